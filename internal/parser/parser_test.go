package parser_test

import (
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/parser"
)

func TestParseValidProgram(t *testing.T) {
	src := `
fn add(a: int, b: int = 1) -> int {
	return a + b;
}

class P { x: int; y: int }
pub class Q : P { z: int }

let q: Q = new Q(1, 2, 3);
print(add(b = 10, a = 5));
`
	prog, err := parser.Parse("test.lingua", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Stmts) != 5 {
		t.Fatalf("expected 5 top-level statements, got %d", len(prog.Stmts))
	}
	if _, ok := prog.Stmts[0].(*ast.FuncDecl); !ok {
		t.Errorf("expected stmt 0 to be a FuncDecl, got %T", prog.Stmts[0])
	}
	cls, ok := prog.Stmts[2].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected stmt 2 to be a ClassDecl, got %T", prog.Stmts[2])
	}
	if !cls.Pub || cls.Parent != "P" {
		t.Errorf("expected pub class Q : P, got pub=%v parent=%q", cls.Pub, cls.Parent)
	}
}

func TestParseUnexpectedTokenFails(t *testing.T) {
	_, err := parser.Parse("test.lingua", []byte(`let x: int = ;`))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if _, ok := err.(*parser.Error); !ok {
		t.Fatalf("expected *parser.Error, got %T", err)
	}
}

func TestParseMissingSemicolonFails(t *testing.T) {
	_, err := parser.Parse("test.lingua", []byte(`let x: int = 1`))
	if err == nil {
		t.Fatal("expected a missing-terminator error")
	}
}

func TestParseImportStatement(t *testing.T) {
	prog, err := parser.Parse("test.lingua", []byte(`import { to_upper, trim } from "std/string";`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	imp, ok := prog.Stmts[0].(*ast.Import)
	if !ok {
		t.Fatalf("expected an Import, got %T", prog.Stmts[0])
	}
	if imp.Path != "std/string" || len(imp.Names) != 2 {
		t.Errorf("got path=%q names=%v", imp.Path, imp.Names)
	}
}
