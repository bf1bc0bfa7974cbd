// Package compiler glues the pipeline together: parse + resolve imports +
// evaluate at compile time + emit a native binary. It is a thin layer
// between a CLI and the packages that do the real work.
package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/emit"
	"github.com/alexisbouchez/linguaiter/internal/importer"
	"github.com/alexisbouchez/linguaiter/internal/interp"
	"github.com/pkg/errors"
)

// HostTarget picks the emitter target matching the machine running the
// compiler: Mach-O arm64 on darwin/arm64, ELF64/x86-64 everywhere else.
// There is no cross-compilation support: the two target triples are
// selected by the build host, not by a flag.
func HostTarget() emit.Target {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		return emit.TargetMachOARM64
	}
	return emit.TargetELF64
}

// Build compiles the Lingua source at srcPath entirely at compile time and
// writes the resulting native executable to outPath with mode 0755. It
// returns the diagnostic bag as an error (via diag.Bag's error interface) on
// any fatal diagnostic; outPath is left unwritten in that case.
func Build(srcPath string, target emit.Target, outPath string) error {
	diags := diag.NewBag()
	ctx := interp.NewEvalCtx(diags)
	resolver := importer.NewResolver(ctx, diags)

	if _, _, err := resolver.Load(srcPath); err != nil {
		return err
	}

	if err := emit.EmitBinary(ctx.Prints, target, outPath); err != nil {
		return errors.Wrapf(err, "emit %s", outPath)
	}
	return nil
}

// BuildAndRun compiles srcPath to a temporary executable, runs it with stdout
// connected to the caller's, and reports the child's exit code: build to a
// temp path, run it, forward the exit code.
//
// The returned exitCode is only meaningful when err is nil or an *exec.ExitError
// was the cause; a compilation failure reports exitCode 1 alongside the error,
// matching the CLI's own fallback in that case.
func BuildAndRun(srcPath string) (exitCode int, err error) {
	tmp, err := os.CreateTemp("", "lingua-*")
	if err != nil {
		return 1, errors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := Build(srcPath, HostTarget(), tmpPath); err != nil {
		return 1, err
	}

	abs, err := filepath.Abs(tmpPath)
	if err != nil {
		return 1, errors.Wrap(err, "resolve temp path")
	}

	cmd := exec.Command(abs)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 1, errors.Wrap(runErr, "run compiled program")
}
