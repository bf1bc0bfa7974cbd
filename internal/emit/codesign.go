package emit

import (
	"os/exec"
)

// runCodesign invokes `codesign --force --sign - <path>` to ad-hoc sign a
// freshly written Mach-O binary, required to run on Apple Silicon. A signing
// failure (missing codesign, non-darwin host, non-zero exit) is swallowed:
// the unsigned file is left in place and the caller may still choose what to
// do with it.
func runCodesign(path string) {
	cmd := exec.Command("codesign", "--force", "--sign", "-", path)
	_ = cmd.Run()
}
