package emit_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/emit"
)

func TestEmitELF64Header(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	prints := [][]byte{[]byte("hello\n")}

	if err := emit.EmitBinary(prints, emit.TargetELF64, path); err != nil {
		t.Fatalf("EmitBinary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(data) < 64 {
		t.Fatalf("file too short for an ELF header: %d bytes", len(data))
	}
	if !(data[0] == 0x7F && data[1] == 'E' && data[2] == 'L' && data[3] == 'F') {
		t.Fatalf("bad ELF magic: % x", data[:4])
	}
	if data[4] != 2 {
		t.Errorf("expected ELFCLASS64, got %d", data[4])
	}
	etype := binary.LittleEndian.Uint16(data[16:18])
	if etype != 2 {
		t.Errorf("expected ET_EXEC (2), got %d", etype)
	}
	machine := binary.LittleEndian.Uint16(data[18:20])
	if machine != 0x3E {
		t.Errorf("expected EM_X86_64 (0x3e), got %#x", machine)
	}
	entry := binary.LittleEndian.Uint64(data[24:32])
	if entry != 0x400000+0x78 {
		t.Errorf("expected entry 0x400078, got %#x", entry)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("expected mode 0755, got %v", info.Mode().Perm())
	}
}

func TestEmitMachOARM64Header(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	prints := [][]byte{[]byte("hi")}

	if err := emit.EmitBinary(prints, emit.TargetMachOARM64, path); err != nil {
		t.Fatalf("EmitBinary: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(data) < 32 {
		t.Fatalf("file too short for a mach-o header: %d bytes", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != 0xFEEDFACF {
		t.Errorf("bad mach-o 64-bit magic: %#x", magic)
	}
	cpuType := binary.LittleEndian.Uint32(data[4:8])
	if cpuType != 0x0100000C {
		t.Errorf("expected CPU_TYPE_ARM64, got %#x", cpuType)
	}
	fileType := binary.LittleEndian.Uint32(data[12:16])
	if fileType != 2 {
		t.Errorf("expected MH_EXECUTE (2), got %d", fileType)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	prints := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc\n")}

	p1 := filepath.Join(dir, "out1")
	p2 := filepath.Join(dir, "out2")
	if err := emit.EmitBinary(prints, emit.TargetELF64, p1); err != nil {
		t.Fatalf("EmitBinary 1: %v", err)
	}
	if err := emit.EmitBinary(prints, emit.TargetELF64, p2); err != nil {
		t.Fatalf("EmitBinary 2: %v", err)
	}
	d1, _ := os.ReadFile(p1)
	d2, _ := os.ReadFile(p2)
	if string(d1) != string(d2) {
		t.Error("two emits of the same print list produced different bytes")
	}
}

func TestEmitUnknownTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	err := emit.EmitBinary(nil, emit.Target(99), path)
	if err == nil {
		t.Fatal("expected an error for an unknown target")
	}
}
