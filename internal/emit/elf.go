package emit

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

// ELF64/x86-64 layout constants: a single PT_LOAD segment covering the
// whole file, no section headers, no symbol table. Header sizes are derived
// from the wire structs below via unsafe.Sizeof instead of hardcoded, so a
// field added to either struct is reflected here rather than silently
// producing a wrong offset.
var (
	elfHeaderSize = int(unsafe.Sizeof(elf64Header{}))
	elfPhdrSize   = int(unsafe.Sizeof(elf64ProgHeader{}))
	elfCodeOffset = elfHeaderSize + elfPhdrSize // 0x78
	elfEntryAddr  = elfBaseAddr + elfCodeOffset
)

const (
	elfBaseAddr = 0x400000

	elfPrintInstrSize = 24 // mov eax,1 / mov edi,1 / lea rsi,[rip+disp32] / mov edx,len / syscall
	elfExitInstrSize  = 9  // mov eax,60 / xor edi,edi / syscall
)

type elf64Header struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elf64ProgHeader struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// buildELF64 assembles the code section: one 24-byte sys_write sequence per
// print, a trailing 9-byte exit(0), then the raw string bytes concatenated
// right after the instructions. The lea's rip-relative displacement is
// computed the same way codegen.c does: target offset minus the address of
// the instruction immediately following the lea.
func buildELF64(prints [][]byte) ([]byte, error) {
	var strs bytes.Buffer
	offsets := make([]int, len(prints))
	for i, p := range prints {
		offsets[i] = strs.Len()
		strs.Write(p)
	}

	totalInstrSize := len(prints)*elfPrintInstrSize + elfExitInstrSize

	var code bytes.Buffer
	for i, p := range prints {
		ripAfterLea := int32(i*elfPrintInstrSize + 17)
		target := int32(totalInstrSize + offsets[i])
		disp := target - ripAfterLea

		code.WriteByte(0xB8) // mov eax, 1
		writeU32(&code, 1)
		code.WriteByte(0xBF) // mov edi, 1
		writeU32(&code, 1)
		code.Write([]byte{0x48, 0x8D, 0x35}) // lea rsi, [rip+disp32]
		writeU32(&code, uint32(disp))
		code.WriteByte(0xBA) // mov edx, len
		writeU32(&code, uint32(len(p)))
		code.Write([]byte{0x0F, 0x05}) // syscall
	}

	code.WriteByte(0xB8) // mov eax, 60
	writeU32(&code, 60)
	code.Write([]byte{0x31, 0xFF}) // xor edi, edi
	code.Write([]byte{0x0F, 0x05}) // syscall

	code.Write(strs.Bytes())

	fileSize := uint64(elfCodeOffset + code.Len())

	var out bytes.Buffer

	hdr := elf64Header{
		Type: 2, Machine: 0x3E, Version: 1,
		Entry: uint64(elfEntryAddr), Phoff: uint64(elfHeaderSize), Shoff: 0,
		Flags: 0, Ehsize: uint16(elfHeaderSize), Phentsize: uint16(elfPhdrSize), Phnum: 1,
	}
	hdr.Ident[0], hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 0x7F, 'E', 'L', 'F'
	hdr.Ident[4] = 2 // ELFCLASS64
	hdr.Ident[5] = 1 // ELFDATA2LSB
	hdr.Ident[6] = 1 // EV_CURRENT
	hdr.Ident[7] = 0 // ELFOSABI_NONE
	if err := binary.Write(&out, binary.LittleEndian, hdr); err != nil {
		return nil, errors.Wrap(err, "write elf header")
	}

	ph := elf64ProgHeader{
		Type: 1, Flags: 0x5, Offset: 0, // PT_LOAD, PF_R|PF_X
		Vaddr: elfBaseAddr, Paddr: elfBaseAddr,
		Filesz: fileSize, Memsz: fileSize, Align: 0x1000,
	}
	if err := binary.Write(&out, binary.LittleEndian, ph); err != nil {
		return nil, errors.Wrap(err, "write elf program header")
	}

	out.Write(code.Bytes())
	return out.Bytes(), nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
