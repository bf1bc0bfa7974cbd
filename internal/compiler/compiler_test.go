package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/compiler"
	"github.com/alexisbouchez/linguaiter/internal/emit"
)

func TestBuildWritesExecutable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.lingua")
	if err := os.WriteFile(src, []byte(`print("hello\n");`), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	out := filepath.Join(dir, "hello")

	if err := compiler.Build(src, emit.TargetELF64, out); err != nil {
		t.Fatalf("Build: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("expected mode 0755, got %v", info.Mode().Perm())
	}
	data, _ := os.ReadFile(out)
	if len(data) < 4 || data[0] != 0x7F || data[1] != 'E' {
		t.Errorf("expected an ELF file, got % x", data[:4])
	}
}

func TestBuildFailsOnCompileError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.lingua")
	if err := os.WriteFile(src, []byte(`print(undefined_name);`), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	out := filepath.Join(dir, "bad")

	if err := compiler.Build(src, emit.TargetELF64, out); err == nil {
		t.Fatal("expected a name error, got none")
	}
	if _, err := os.Stat(out); err == nil {
		t.Error("a failed build must not leave a partial output file")
	}
}

func TestHostTargetMatchesBuildPlatform(t *testing.T) {
	// HostTarget must return one of the two supported triples; this mostly
	// guards against a typo'd GOOS/GOARCH comparison regressing to always
	// returning the same target.
	switch compiler.HostTarget() {
	case emit.TargetELF64, emit.TargetMachOARM64:
	default:
		t.Error("HostTarget returned neither supported target")
	}
}
