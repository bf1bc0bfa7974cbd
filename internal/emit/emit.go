// Package emit turns a compiled program's print list into a native
// executable: ELF64/x86-64 or Mach-O/arm64. Both formats share the same
// idea — concatenate one write syscall sequence per print, append the raw
// string bytes right after the code, wrap the result in the minimum
// header/load-command scaffolding a loader requires — so the package
// exposes one EmitBinary entry point and a Target to pick the backend, a
// pair of pure encode functions plus a thin os.File wrapper.
package emit

import (
	"os"

	"github.com/pkg/errors"
)

// Target selects which executable format EmitBinary produces.
type Target int

const (
	// TargetELF64 produces a statically-linked Linux x86-64 executable.
	TargetELF64 Target = iota
	// TargetMachOARM64 produces a macOS arm64 executable, ad-hoc signed.
	TargetMachOARM64
)

// EmitBinary builds the executable for target from prints (the exact byte
// sequences a compiled program writes to stdout, in order) and writes it to
// path with mode 0755. For TargetMachOARM64 it additionally invokes
// codesign; a codesign failure is silently ignored and does not fail the build, since
// the produced file is still a valid (if unsigned) Mach-O image.
func EmitBinary(prints [][]byte, target Target, path string) error {
	var (
		data []byte
		err  error
	)
	switch target {
	case TargetELF64:
		data, err = buildELF64(prints)
	case TargetMachOARM64:
		data, err = buildMachOARM64(prints)
	default:
		return errors.Errorf("emit: unknown target %d", target)
	}
	if err != nil {
		return errors.Wrap(err, "emit: build executable")
	}

	if err := os.WriteFile(path, data, 0755); err != nil {
		return errors.Wrapf(err, "emit: write %s", path)
	}
	if err := os.Chmod(path, 0755); err != nil {
		return errors.Wrapf(err, "emit: chmod %s", path)
	}

	if target == TargetMachOARM64 {
		runCodesign(path)
	}
	return nil
}

func align(n, a int) int {
	return (n + a - 1) / a * a
}
