package emit

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

// Mach-O/arm64 constants. The layout is deliberately minimal: one __TEXT
// segment covering the header, load commands, and code (including the
// appended string data), and one near-empty __LINKEDIT segment holding just
// enough of the chained-fixups/exports-trie/symtab scaffolding for the
// loader to accept the image.
const (
	machoPageSize = 16384

	machoMagic64    = 0xFEEDFACF
	cpuTypeARM64    = 0x0100000C
	cpuSubtypeARM64 = 0x00000000
	mhExecute       = 0x2
	mhFlags         = 0x00200085 // MH_NOUNDEFS|MH_DYLDLINK|MH_TWOLEVEL|MH_PIE

	lcSegment64         = 0x19
	lcLoadDylinker      = 0x0E
	lcLoadDylib         = 0x0C
	lcMain              = 0x80000028
	lcBuildVersion      = 0x32
	lcDyldChainedFixups = 0x80000034
	lcDyldExportsTrie   = 0x80000033
	lcSymtab            = 0x02
	lcDysymtab          = 0x0B

	platformMacOS = 1

	chainedFixupsStubSize = 48
	exportsTrieStubSize   = 8

	loadCommandSlack = 32 // room for codesign to later insert LC_CODE_SIGNATURE

	machoPrintInstrSize = 20 // adr x1 / movz x0,#1 / movz x2,#len / movz x16,#4 / svc #0x80
	machoExitInstrSize  = 12 // movz x0,#0 / movz x16,#1 / svc #0x80
)

// Load-command sizes, derived from the wire structs via unsafe.Sizeof
// instead of hardcoded, so a struct field change is caught here rather than
// producing a mis-sized command the loader silently misparses.
var (
	headerSize     = int(unsafe.Sizeof(machHeader64{}))
	segCmdSize     = int(unsafe.Sizeof(segmentCommand64{}))
	sectCmdSize    = int(unsafe.Sizeof(section64{}))
	mainCmdSize    = int(unsafe.Sizeof(entryPointCommand{}))
	buildVerSize   = int(unsafe.Sizeof(buildVersionCommand{}))
	linkeditDCSize = int(unsafe.Sizeof(linkeditDataCommand{})) // linkedit_data_command
	symtabCmdSize  = int(unsafe.Sizeof(symtabCommand{}))
	dysymtabSize   = int(unsafe.Sizeof(dysymtabCommand{}))
)

type machHeader64 struct {
	Magic      uint32
	CPUType    uint32
	CPUSubtype uint32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
	Reserved   uint32
}

type segmentCommand64 struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uint64
	VMSize   uint64
	FileOff  uint64
	FileSize uint64
	MaxProt  uint32
	InitProt uint32
	NSects   uint32
	Flags    uint32
}

type section64 struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint64
	Size      uint64
	Offset    uint32
	Align     uint32
	RelOff    uint32
	NReloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
	Reserved3 uint32
}

type entryPointCommand struct {
	Cmd       uint32
	CmdSize   uint32
	EntryOff  uint64
	StackSize uint64
}

type buildVersionCommand struct {
	Cmd      uint32
	CmdSize  uint32
	Platform uint32
	Minos    uint32
	SDK      uint32
	NTools   uint32
}

type linkeditDataCommand struct {
	Cmd      uint32
	CmdSize  uint32
	DataOff  uint32
	DataSize uint32
}

type symtabCommand struct {
	Cmd     uint32
	CmdSize uint32
	SymOff  uint32
	NSyms   uint32
	StrOff  uint32
	StrSize uint32
}

type dysymtabCommand struct {
	Cmd            uint32
	CmdSize        uint32
	ILocalSym      uint32
	NLocalSym      uint32
	IExtdefSym     uint32
	NExtdefSym     uint32
	IUndefSym      uint32
	NUndefSym      uint32
	TOCOff         uint32
	NTOC           uint32
	ModTabOff      uint32
	NModTab        uint32
	ExtRefSymOff   uint32
	NExtRefSyms    uint32
	IndirectSymOff uint32
	NIndirectSyms  uint32
	ExtRelOff      uint32
	NExtRel        uint32
	LocRelOff      uint32
	NLocRel        uint32
}

func segName(s string) (out [16]byte) {
	copy(out[:], s)
	return out
}

// encodeADR builds an arm64 ADR instruction (Rd = Rd-register, PC-relative
// byte displacement imm): the 21-bit signed immediate is split into immlo
// (low 2 bits, into bits 30:29) and immhi (high 19 bits, into bits 23:5).
func encodeADR(rd uint32, imm int32) uint32 {
	u := uint32(imm) & 0x1FFFFF
	immlo := u & 0x3
	immhi := (u >> 2) & 0x7FFFF
	return 0x10000000 | (immlo << 29) | (immhi << 5) | rd
}

func encodeMOVZ(rd uint32, imm16 uint32) uint32 {
	return 0xD2800000 | ((imm16 & 0xFFFF) << 5) | rd
}

func encodeSVC(imm16 uint32) uint32 {
	return 0xD4000001 | ((imm16 & 0xFFFF) << 5)
}

// buildMachOARM64 assembles a PIE Mach-O arm64 executable: __PAGEZERO (4
// GiB, no perms), __TEXT (r-x, header + load commands + code + appended
// string data), __LINKEDIT (r, chained-fixups stub + exports-trie stub +
// empty symtab/dysymtab).
func buildMachOARM64(prints [][]byte) ([]byte, error) {
	var strs bytes.Buffer
	offsets := make([]int, len(prints))
	for i, p := range prints {
		offsets[i] = strs.Len()
		strs.Write(p)
	}

	totalInstrSize := len(prints)*machoPrintInstrSize + machoExitInstrSize

	var code bytes.Buffer
	for i, p := range prints {
		adrAddr := int32(i * machoPrintInstrSize)
		target := int32(totalInstrSize + offsets[i])
		disp := target - adrAddr
		if disp < -(1<<20) || disp >= 1<<20 {
			return nil, errors.Errorf("adr displacement %d for print %d does not fit in 21 bits", disp, i)
		}

		writeU32(&code, encodeADR(1, disp))           // adr x1, &str
		writeU32(&code, encodeMOVZ(0, 1))              // movz x0, #1
		writeU32(&code, encodeMOVZ(2, uint32(len(p)))) // movz x2, #len
		writeU32(&code, encodeMOVZ(16, 4))             // movz x16, #4
		writeU32(&code, encodeSVC(0x80))               // svc #0x80
	}
	writeU32(&code, encodeMOVZ(0, 0))  // movz x0, #0
	writeU32(&code, encodeMOVZ(16, 1)) // movz x16, #1
	writeU32(&code, encodeSVC(0x80))   // svc #0x80

	code.Write(strs.Bytes())

	// ---- Layout ----
	lcTotal := segCmdSize + // __PAGEZERO
		segCmdSize + sectCmdSize + // __TEXT (1 section)
		segCmdSize + // __LINKEDIT
		align(12+len("/usr/lib/dyld\x00"), 8) +
		align(24+len("/usr/lib/libSystem.B.dylib\x00"), 8) +
		mainCmdSize +
		buildVerSize +
		linkeditDCSize + // LC_DYLD_CHAINED_FIXUPS
		linkeditDCSize + // LC_DYLD_EXPORTS_TRIE
		symtabCmdSize +
		dysymtabSize

	textSectionOff := align(headerSize+lcTotal+loadCommandSlack, 8)
	textSegFileSize := align(textSectionOff+code.Len(), machoPageSize)

	linkeditOff := textSegFileSize
	chainedFixupsOff := linkeditOff
	exportsTrieOff := align(chainedFixupsOff+chainedFixupsStubSize, 8)
	linkeditContentEnd := exportsTrieOff + exportsTrieStubSize
	linkeditFileSize := align(linkeditContentEnd, machoPageSize)
	if linkeditFileSize == 0 {
		linkeditFileSize = machoPageSize
	}

	totalFileSize := linkeditOff + linkeditFileSize

	pagezeroVMSize := uint64(0x100000000)
	textVMAddr := pagezeroVMSize
	textVMSize := uint64(textSegFileSize)
	textSectionVAddr := textVMAddr + uint64(textSectionOff)
	linkeditVMAddr := textVMAddr + uint64(textSegFileSize)
	linkeditVMSize := uint64(linkeditFileSize)

	entryOff := uint64(textSectionOff)

	out := make([]byte, totalFileSize)
	buf := bytes.NewBuffer(out[:0])

	mh := machHeader64{
		Magic: machoMagic64, CPUType: cpuTypeARM64, CPUSubtype: cpuSubtypeARM64,
		FileType: mhExecute, NCmds: 11, SizeOfCmds: uint32(lcTotal), Flags: mhFlags,
	}
	if err := binary.Write(buf, binary.LittleEndian, mh); err != nil {
		return nil, errors.Wrap(err, "write macho header")
	}

	pagezero := segmentCommand64{
		Cmd: lcSegment64, CmdSize: uint32(segCmdSize), SegName: segName("__PAGEZERO"),
		VMAddr: 0, VMSize: pagezeroVMSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, pagezero); err != nil {
		return nil, errors.Wrap(err, "write __PAGEZERO")
	}

	text := segmentCommand64{
		Cmd: lcSegment64, CmdSize: uint32(segCmdSize + sectCmdSize), SegName: segName("__TEXT"),
		VMAddr: textVMAddr, VMSize: textVMSize, FileOff: 0, FileSize: uint64(textSegFileSize),
		MaxProt: 5, InitProt: 5, NSects: 1, // r-x
	}
	if err := binary.Write(buf, binary.LittleEndian, text); err != nil {
		return nil, errors.Wrap(err, "write __TEXT")
	}
	textSect := section64{
		SectName: segName("__text"), SegName: segName("__TEXT"),
		Addr: textSectionVAddr, Size: uint64(code.Len()),
		Offset: uint32(textSectionOff), Align: 2, Flags: 0x80000400, // S_ATTR_PURE_INSTRUCTIONS
	}
	if err := binary.Write(buf, binary.LittleEndian, textSect); err != nil {
		return nil, errors.Wrap(err, "write __text section")
	}

	linkedit := segmentCommand64{
		Cmd: lcSegment64, CmdSize: uint32(segCmdSize), SegName: segName("__LINKEDIT"),
		VMAddr: linkeditVMAddr, VMSize: linkeditVMSize,
		FileOff: uint64(linkeditOff), FileSize: uint64(linkeditFileSize),
		MaxProt: 1, InitProt: 1, // r--
	}
	if err := binary.Write(buf, binary.LittleEndian, linkedit); err != nil {
		return nil, errors.Wrap(err, "write __LINKEDIT")
	}

	writeCString(buf, lcLoadDylinker, 12, "/usr/lib/dyld\x00", 8)
	writeDylibCommand(buf, "/usr/lib/libSystem.B.dylib\x00")

	main := entryPointCommand{Cmd: lcMain, CmdSize: uint32(mainCmdSize), EntryOff: entryOff}
	if err := binary.Write(buf, binary.LittleEndian, main); err != nil {
		return nil, errors.Wrap(err, "write LC_MAIN")
	}

	buildVer := buildVersionCommand{
		Cmd: lcBuildVersion, CmdSize: uint32(buildVerSize), Platform: platformMacOS,
		Minos: 14<<16 | 0<<8 | 0, SDK: 0,
	}
	if err := binary.Write(buf, binary.LittleEndian, buildVer); err != nil {
		return nil, errors.Wrap(err, "write LC_BUILD_VERSION")
	}

	chainedFixups := linkeditDataCommand{
		Cmd: lcDyldChainedFixups, CmdSize: uint32(linkeditDCSize),
		DataOff: uint32(chainedFixupsOff), DataSize: chainedFixupsStubSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, chainedFixups); err != nil {
		return nil, errors.Wrap(err, "write LC_DYLD_CHAINED_FIXUPS")
	}
	exportsTrie := linkeditDataCommand{
		Cmd: lcDyldExportsTrie, CmdSize: uint32(linkeditDCSize),
		DataOff: uint32(exportsTrieOff), DataSize: exportsTrieStubSize,
	}
	if err := binary.Write(buf, binary.LittleEndian, exportsTrie); err != nil {
		return nil, errors.Wrap(err, "write LC_DYLD_EXPORTS_TRIE")
	}

	symtab := symtabCommand{Cmd: lcSymtab, CmdSize: uint32(symtabCmdSize)}
	if err := binary.Write(buf, binary.LittleEndian, symtab); err != nil {
		return nil, errors.Wrap(err, "write LC_SYMTAB")
	}
	dysymtab := dysymtabCommand{Cmd: lcDysymtab, CmdSize: uint32(dysymtabSize)}
	if err := binary.Write(buf, binary.LittleEndian, dysymtab); err != nil {
		return nil, errors.Wrap(err, "write LC_DYSYMTAB")
	}

	// buf shares out's backing array (NewBuffer(out[:0])): everything
	// written above already lives in out[0:buf.Len()]. out's own length
	// (fixed at totalFileSize, zero-filled) supplies the load-command
	// slack and every other gap.
	copy(out[textSectionOff:], code.Bytes())

	// __LINKEDIT: a declared-but-empty chained-fixups header (three segment
	// slots, all zero seg_info_offset means no fixups in any of them) and an
	// empty exports trie (terminal_size=0, child_count=0, left zeroed).
	binary.LittleEndian.PutUint32(out[chainedFixupsOff+4:], 32)  // starts_offset
	binary.LittleEndian.PutUint32(out[chainedFixupsOff+8:], 48)  // imports_offset (no imports)
	binary.LittleEndian.PutUint32(out[chainedFixupsOff+12:], 48) // symbols_offset (no symbols)
	binary.LittleEndian.PutUint32(out[chainedFixupsOff+20:], 1)  // imports_format: DYLD_CHAINED_IMPORT
	binary.LittleEndian.PutUint32(out[chainedFixupsOff+32:], 3)  // starts_in_image.seg_count

	return out, nil
}

func writeCString(buf *bytes.Buffer, cmd uint32, nameOff uint32, s string, align8 int) {
	cmdSize := align(int(nameOff)+len(s), align8)
	writeU32(buf, cmd)
	writeU32(buf, uint32(cmdSize))
	writeU32(buf, nameOff)
	buf.WriteString(s)
	pad := cmdSize - int(nameOff) - len(s)
	buf.Write(make([]byte, pad))
}

func writeDylibCommand(buf *bytes.Buffer, path string) {
	const nameOff = 24
	cmdSize := align(nameOff+len(path), 8)
	writeU32(buf, lcLoadDylib)
	writeU32(buf, uint32(cmdSize))
	writeU32(buf, nameOff)
	writeU32(buf, 2)       // timestamp
	writeU32(buf, 0x10000) // current_version
	writeU32(buf, 0x10000) // compat_version
	buf.WriteString(path)
	pad := cmdSize - nameOff - len(path)
	buf.Write(make([]byte, pad))
}
