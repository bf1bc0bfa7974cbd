package interp_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/interp"
	"github.com/alexisbouchez/linguaiter/internal/parser"
)

// run parses and evaluates src, returning the concatenated PrintList as a
// string, the way the emitter would see it (one []byte per print call).
func run(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse("test.lingua", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err != nil {
		t.Fatalf("eval: %v", err)
	}
	var buf bytes.Buffer
	for _, p := range ctx.Prints {
		buf.Write(p)
	}
	return buf.String()
}

// runExample is run's counterpart for Example functions, which take no
// *testing.T and are expected to succeed unconditionally.
func runExample(src string) string {
	prog, err := parser.Parse("example.lingua", []byte(src))
	if err != nil {
		panic(err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err != nil {
		panic(err)
	}
	var buf bytes.Buffer
	for _, p := range ctx.Prints {
		buf.Write(p)
	}
	return buf.String()
}

func ExampleEvalCtx_Run_print() {
	fmt.Print(runExample(`print("hello\n");`))
	// Output:
	// hello
}

func ExampleEvalCtx_Run_constArith() {
	fmt.Print(runExample(`const x: int = 21; print(x*2);`))
	// Output:
	// 42
}

func ExampleEvalCtx_Run_defaultParam() {
	fmt.Print(runExample(`fn add(a: int, b: int = 1) -> int { return a + b; } print(add(b=10, a=5));`))
	// Output:
	// 15
}

func ExampleEvalCtx_Run_classInheritance() {
	fmt.Print(runExample(`class P { x: int; y: int } class Q : P { z: int } let q = new Q(1,2,3); print(q.x + q.y + q.z);`))
	// Output:
	// 6
}

func ExampleEvalCtx_Run_stdlibImport() {
	fmt.Print(runExample(`import { to_upper } from "std/string"; print(to_upper("ab"));`))
	// Output:
	// AB
}

func ExampleEvalCtx_Run_loopCall() {
	fmt.Print(runExample(`fn f() { print("a"); } for (var i: int = 0; i < 3; i = i + 1) { f(); } print("!");`))
	// Output:
	// aaa!
}

func TestConstReassignmentIsFatal(t *testing.T) {
	prog, err := parser.Parse("test.lingua", []byte(`const x: int = 1; x = 2;`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err == nil {
		t.Fatal("expected a mutability error, got none")
	}
}

func TestDivisionByZeroIsFatal(t *testing.T) {
	prog, err := parser.Parse("test.lingua", []byte(`print(1/0);`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err == nil {
		t.Fatal("expected a division-by-zero error, got none")
	}
}

func TestForLoopIterationCap(t *testing.T) {
	prog, err := parser.Parse("test.lingua", []byte(`for (var i: int = 0; i < 20000; i = i + 1) {}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err == nil {
		t.Fatal("expected a for-loop iteration cap error, got none")
	}
}

func TestRecursionGuard(t *testing.T) {
	prog, err := parser.Parse("test.lingua", []byte(`fn loop_forever() -> int { return loop_forever(); } print(loop_forever());`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err == nil {
		t.Fatal("expected a recursion-depth error, got none")
	}
}

// Stdlib string round-trip / idempotence properties from the testable
// properties section.
func TestStdlibStringIdempotence(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`import { to_upper } from "std/string"; print(to_upper(to_upper("ab")));`, "AB"},
		{`import { trim } from "std/string"; print(trim(trim("  hi  ")));`, "hi"},
		{`import { replace } from "std/string"; print(replace("aXa", "X", "X"));`, "aXa"},
	}
	for _, c := range cases {
		if got := run(t, c.src); got != c.want {
			t.Errorf("src %q: got %q, want %q", c.src, got, c.want)
		}
	}
}

func TestStringIndexBoundary(t *testing.T) {
	if got := run(t, `let s: string = "abc"; print(s[-1]);`); got != "c" {
		t.Errorf("s[-1]: got %q, want %q", got, "c")
	}
	if got := run(t, `let s: string = "abc"; print(s[-3]);`); got != "a" {
		t.Errorf("s[-len(s)]: got %q, want %q", got, "a")
	}

	prog, err := parser.Parse("test.lingua", []byte(`let s: string = "abc"; print(s[3]);`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx := interp.NewEvalCtx(diag.NewBag())
	if err := ctx.Run(prog); err == nil {
		t.Fatal("expected s[len(s)] to be a fatal range error")
	}
}

func TestSliceClampAndOutOfOrder(t *testing.T) {
	if got := run(t, `let s: string = "abcde"; print(s[0:5]);`); got != "abcde" {
		t.Errorf("s[0:len(s)]: got %q, want %q", got, "abcde")
	}
	if got := run(t, `let s: string = "abc"; print(s[2:1]);`); got != "" {
		t.Errorf("a>b slice: got %q, want empty", got)
	}
	if got := run(t, `let s: string = "abc"; print(s[1:100]);`); got != "bc" {
		t.Errorf("b>len(s) slice should clamp: got %q, want %q", got, "bc")
	}
}
