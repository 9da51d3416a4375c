package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/loisplang/loisp/compiler"
	"github.com/loisplang/loisp/compileserver"
	"github.com/loisplang/loisp/config"
	"github.com/loisplang/loisp/diag"
	"github.com/loisplang/loisp/emitter"
	"github.com/loisplang/loisp/lexer"
	"github.com/loisplang/loisp/repl"
	"github.com/loisplang/loisp/sexpr"
	"github.com/loisplang/loisp/stats"
	"github.com/loisplang/loisp/toolchain"
	"github.com/loisplang/loisp/typecheck"
)

var Version = "dev"

func main() {
	flag.Usage = printHelp
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "compile":
		err = runCompile(args[1:])
	case "run":
		err = runRun(args[1:])
	case "run-test":
		err = runRunTest(args[1:])
	case "serve":
		err = runServe(args[1:])
	case "repl":
		err = runRepl(args[1:])
	case "help", "-h", "--help":
		printHelp()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "loisp: unknown subcommand %q\n", args[0])
		printHelp()
		os.Exit(1)
	}

	if err == nil {
		os.Exit(0)
	}
	if diagErr, ok := err.(*diag.Error); ok {
		fmt.Fprintln(os.Stderr, diagErr.Error())
		os.Exit(diagErr.ExitCode())
	}
	fmt.Fprintln(os.Stderr, "loisp:", err)
	os.Exit(1)
}

func printHelp() {
	fmt.Fprintln(os.Stderr, `loisp - a compiler for the Loisp stack language

Usage:
  loisp compile <input>     compile to output.asm, assemble and link to output
  loisp run <input>         compile then execute, forwarding the exit status
  loisp run-test <dir>      check dir exists (the test runner is not implemented)
  loisp serve               start the HTTP+WebSocket compile server
  loisp repl                start the interactive REPL (unimplemented)
  loisp help                show this message`)
}

// pipeline runs lex -> parse -> resolve -> typecheck -> emit over a
// single input file, recording per-stage statistics.
func pipeline(path string, cfg *config.Config, st *stats.CompileStatistics) (string, *diag.Error) {
	src, ioErr := os.ReadFile(path) // #nosec G304 -- path is a user-supplied CLI argument, the expected use of this tool
	if ioErr != nil {
		return "", diag.Newf(diag.Position{File: path}, diag.IOError, "reading %s: %v", path, ioErr)
	}

	st.Start()

	st.StageStart("lex")
	l := lexer.New(string(src), path)
	toks := l.All()
	st.StageEnd("lex", len(toks))
	if l.Errors().HasErrors() {
		return "", l.Errors().First()
	}

	st.StageStart("parse")
	p := sexpr.New(toks, l.Errors())
	exprs := p.ParseAll()
	st.StageEnd("parse", len(exprs))
	if p.Errors().HasErrors() {
		return "", p.Errors().First()
	}

	st.StageStart("resolve")
	searchRoot := filepath.Dir(path)
	if len(cfg.Include.SearchRoots) > 0 && cfg.Include.SearchRoots[0] != "." {
		searchRoot = cfg.Include.SearchRoots[0]
	}
	r := compiler.New(searchRoot)
	r.SetLimits(cfg.Include.MaxDepth, cfg.Macro.MaxExpansionDepth)
	prog := r.ResolveFile(exprs)
	st.StageEnd("resolve", len(prog.TopLevel)+len(prog.Functions))
	if r.Errors().HasErrors() {
		return "", r.Errors().First()
	}

	st.StageStart("typecheck")
	if tcErr := typecheck.Check(prog); tcErr != nil {
		st.StageEnd("typecheck", 0)
		return "", tcErr
	}
	st.StageEnd("typecheck", len(prog.TopLevel))

	st.StageStart("emit")
	asm, emitErr := emitter.Emit(prog)
	st.StageEnd("emit", len(asm))
	if emitErr != nil {
		return "", diag.New(diag.Position{File: path}, diag.IOError, emitErr.Error())
	}

	st.Finalize()
	return asm, nil
}

func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "echo toolchain commands to stderr")
	showStats := fs.Bool("stats", false, "print compile-stage statistics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("compile: expected exactly one input file")
	}
	input := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st := stats.New()
	asm, diagErr := pipeline(input, cfg, st)
	if diagErr != nil {
		return diagErr
	}

	drv := toolchain.New()
	drv.FasmPath = cfg.Toolchain.FasmPath
	drv.Verbose = *verbose || cfg.Toolchain.Verbose

	asmPath := "output.asm"
	if err := drv.WriteAssembly(asmPath, asm); err != nil {
		return diag.New(diag.Position{File: asmPath}, diag.IOError, err.Error())
	}
	if tcErr := drv.Assemble(asmPath, "output"); tcErr != nil {
		return tcErr
	}
	if !cfg.Toolchain.KeepAsm {
		defer os.Remove(asmPath)
	}

	if *showStats {
		fmt.Fprint(os.Stderr, st.String())
	}
	return nil
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "echo toolchain commands to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run: expected exactly one input file")
	}
	input := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st := stats.New()
	asm, diagErr := pipeline(input, cfg, st)
	if diagErr != nil {
		return diagErr
	}

	drv := toolchain.New()
	drv.FasmPath = cfg.Toolchain.FasmPath
	drv.Verbose = *verbose || cfg.Toolchain.Verbose

	tmpDir, err := os.MkdirTemp("", "loisp-run-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	asmPath := filepath.Join(tmpDir, "output.asm")
	binPath := filepath.Join(tmpDir, "output")
	if err := drv.WriteAssembly(asmPath, asm); err != nil {
		return diag.New(diag.Position{File: asmPath}, diag.IOError, err.Error())
	}
	if tcErr := drv.Assemble(asmPath, binPath); tcErr != nil {
		return tcErr
	}

	code, runErr := drv.Run(binPath)
	if runErr != nil {
		return diag.New(diag.Position{File: binPath}, diag.ToolchainError, runErr.Error())
	}
	os.Exit(code)
	return nil
}

// runRunTest is a thin delegation point: the golden-output test runner
// itself is out of scope (spec.md §1), so this subcommand only validates
// that dir exists and reports that running it is not implemented here.
func runRunTest(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("run-test: expected exactly one directory")
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return diag.New(diag.Position{File: args[0]}, diag.IOError, err.Error())
	}
	if !info.IsDir() {
		return fmt.Errorf("run-test: %s is not a directory", args[0])
	}
	return fmt.Errorf("run-test: delegated test runner is not implemented in this repository")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "address to listen on (default from loisp.toml)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	listenAddr := cfg.Server.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	srv := compileserver.NewServer(listenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("shutting down compile server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runRepl(args []string) error {
	_, err := repl.Eval(nil, "")
	fmt.Fprintln(os.Stderr, strings.TrimSpace(`
loisp repl: interactive mode is not implemented in this repository.
Use 'loisp compile <input>' or 'loisp run <input>' instead.`))
	return err
}
