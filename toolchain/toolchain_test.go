package toolchain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAssembly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output.asm")
	d := New()
	if err := d.WriteAssembly(path, "format ELF64 executable 3\n"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading back: %s", err)
	}
	if string(got) != "format ELF64 executable 3\n" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestAssembleMissingFasmIsToolchainError(t *testing.T) {
	d := &Driver{FasmPath: "loisp-fasm-definitely-not-on-path"}
	err := d.Assemble("output.asm", "output")
	if err == nil {
		t.Fatal("expected a ToolchainError when fasm isn't available")
	}
}
