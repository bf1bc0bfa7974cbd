package diag_test

import (
	"strings"
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

func TestBagHasErrorsOnlyAfterErrorf(t *testing.T) {
	b := diag.NewBag()
	if b.HasErrors() {
		t.Fatal("fresh bag must not report errors")
	}
	b.Warnf(token.Position{Line: 1}, "never mutated: %s", "x")
	if b.HasErrors() {
		t.Fatal("a warning alone must not count as an error")
	}
	b.Errorf(token.Position{Line: 2}, "undefined name %q", "y")
	if !b.HasErrors() {
		t.Fatal("expected HasErrors after Errorf")
	}
	if len(b.All()) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(b.All()))
	}
}

func TestExcerptUsesActiveFileContext(t *testing.T) {
	b := diag.NewBag()
	b.PushFile("a.lingua", []byte("line one\nline two\nline three"))
	pos := token.Position{Filename: "a.lingua", Line: 2}
	b.Errorf(pos, "boom")
	b.PopFile()

	if got := b.Excerpt(pos); got != "line two" {
		t.Errorf("got %q, want %q", got, "line two")
	}

	if !strings.Contains(b.Error(), "line two") {
		t.Errorf("Error() should include the excerpt, got %q", b.Error())
	}
}

func TestExcerptSurvivesPopFile(t *testing.T) {
	// Error() is normally rendered after the whole compilation has finished,
	// by which point every PushFile has a matching PopFile; excerpts must
	// still be renderable at that point.
	b := diag.NewBag()
	b.PushFile("a.lingua", []byte("only line"))
	pos := token.Position{Filename: "a.lingua", Line: 1}
	b.PopFile()

	if got := b.Excerpt(pos); got != "only line" {
		t.Errorf("got %q, want %q", got, "only line")
	}
}

func TestExcerptUnknownFileIsEmpty(t *testing.T) {
	b := diag.NewBag()
	if got := b.Excerpt(token.Position{Filename: "never-pushed.lingua", Line: 1}); got != "" {
		t.Errorf("expected empty excerpt for an unknown file, got %q", got)
	}
}
