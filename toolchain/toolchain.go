// Package toolchain drives the external assembler: it writes the emitted
// fasm source to disk, invokes `fasm`, and optionally runs the resulting
// binary, per spec.md §4.6. Grounded on the command-running pattern in
// ajroetker-goat's main.go (`runCommand`), the teacher itself having no
// subprocess driver of its own.
package toolchain

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/loisplang/loisp/diag"
)

// Driver writes and assembles one compile's output.
type Driver struct {
	// FasmPath is the `fasm` binary to invoke; defaults to "fasm" on PATH.
	FasmPath string
	// Verbose, when true, echoes the command line being run to stderr.
	Verbose bool
}

// New creates a Driver with the default fasm lookup.
func New() *Driver {
	return &Driver{FasmPath: "fasm"}
}

// WriteAssembly writes asm to path. The CLI reports a failure here as an
// IOError.
func (d *Driver) WriteAssembly(path, asm string) error {
	if err := os.WriteFile(path, []byte(asm), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Assemble runs `fasm asmPath outPath`, reporting the child's stderr on
// failure as a ToolchainError.
func (d *Driver) Assemble(asmPath, outPath string) *diag.Error {
	out, err := d.run(d.FasmPath, asmPath, outPath)
	if err != nil {
		return diag.Newf(diag.Position{File: asmPath}, diag.ToolchainError,
			"fasm failed: %v\n%s", err, out)
	}
	return nil
}

// Run executes binPath with args, forwarding stdout/stderr and returning
// its exit status, per the `run` subcommand's contract of forwarding the
// child's exit code.
func (d *Driver) Run(binPath string, args ...string) (int, error) {
	cmd := exec.Command(binPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if d.Verbose {
		fmt.Fprintf(os.Stderr, "running %v\n", cmd.Args)
	}
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}

func (d *Driver) run(name string, arg ...string) (string, error) {
	if d.Verbose {
		fmt.Fprintf(os.Stderr, "running %v\n", append([]string{name}, arg...))
	}
	cmd := exec.Command(name, arg...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), err
	}
	return string(output), nil
}
