package importer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/importer"
	"github.com/alexisbouchez/linguaiter/internal/interp"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestResolvesPublicFunctionAndExtensionlessPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.lingua", `pub fn greet() -> string { return "hi"; }`)
	main := writeFile(t, dir, "main.lingua", `import { greet } from "./util"; print(greet());`)

	ctx := interp.NewEvalCtx(diag.NewBag())
	r := importer.NewResolver(ctx, ctx.Diags)
	if _, _, err := r.Load(main); err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	for _, p := range ctx.Prints {
		buf.Write(p)
	}
	if buf.String() != "hi" {
		t.Errorf("got %q, want %q", buf.String(), "hi")
	}
}

func TestPrivateNameIsNotImportable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.lingua", `fn secret() -> string { return "no"; }`)
	main := writeFile(t, dir, "main.lingua", `import { secret } from "./util"; print(secret());`)

	ctx := interp.NewEvalCtx(diag.NewBag())
	r := importer.NewResolver(ctx, ctx.Diags)
	if _, _, err := r.Load(main); err == nil {
		t.Fatal("expected a non-public import error, got none")
	}
}

func TestCyclicImportIsRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.lingua", `import { b } from "./b"; pub fn a() -> int { return 1; }`)
	writeFile(t, dir, "b.lingua", `import { a } from "./a"; pub fn b() -> int { return 1; }`)
	main := writeFile(t, dir, "main.lingua", `import { a } from "./a"; print(a());`)

	ctx := interp.NewEvalCtx(diag.NewBag())
	r := importer.NewResolver(ctx, ctx.Diags)
	if _, _, err := r.Load(main); err == nil {
		t.Fatal("expected a cyclic import error, got none")
	}
}

func TestCrossModuleCallResolvesWithoutExplicitImport(t *testing.T) {
	// A function in an imported module that itself calls another function
	// declared in that same module must resolve, even though main.lingua
	// never imports the helper directly: module-local calls are resolved
	// against the shared function table, not against main's own imports.
	dir := t.TempDir()
	writeFile(t, dir, "util.lingua", `
fn double(n: int) -> int { return n * 2; }
pub fn quadruple(n: int) -> int { return double(double(n)); }
`)
	main := writeFile(t, dir, "main.lingua", `import { quadruple } from "./util"; print(quadruple(3));`)

	ctx := interp.NewEvalCtx(diag.NewBag())
	r := importer.NewResolver(ctx, ctx.Diags)
	if _, _, err := r.Load(main); err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	for _, p := range ctx.Prints {
		buf.Write(p)
	}
	if buf.String() != "12" {
		t.Errorf("got %q, want %q", buf.String(), "12")
	}
}
