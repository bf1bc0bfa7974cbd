package lexer_test

import (
	"testing"

	"github.com/alexisbouchez/linguaiter/internal/lexer"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

func allTokens(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New("test.lingua", []byte(src))
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lex %q: %v", src, err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexBasicTokens(t *testing.T) {
	toks := allTokens(t, `let x: int = 21 * 2;`)
	want := []token.Kind{
		token.KwLet, token.Ident, token.Colon, token.Ident, token.Equals,
		token.Int, token.Star, token.Int, token.Semicolon, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := allTokens(t, `"a\nb\tc\\\""`)
	if toks[0].Kind != token.String {
		t.Fatalf("expected a string token, got %v", toks[0].Kind)
	}
	if toks[0].Text != "a\nb\tc\\\"" {
		t.Errorf("got %q", toks[0].Text)
	}
}

func TestLexUnterminatedStringIsFatal(t *testing.T) {
	l := lexer.New("test.lingua", []byte(`"unterminated`))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an unterminated-string error")
	}
}

func TestLexUnknownByteIsFatal(t *testing.T) {
	l := lexer.New("test.lingua", []byte("@"))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an unknown-byte error")
	}
}

func TestLexCommentsAreSkipped(t *testing.T) {
	toks := allTokens(t, "// a line comment\nlet /* inline */ x: int = 1;")
	if toks[0].Kind != token.KwLet {
		t.Fatalf("expected comments to be skipped, got %v first", toks[0].Kind)
	}
}

func TestLexMultiCharOperators(t *testing.T) {
	toks := allTokens(t, `a == b != c <= d >= e && f || g`)
	want := []token.Kind{
		token.Ident, token.EqEq, token.Ident, token.NotEq, token.Ident,
		token.LtEq, token.Ident, token.GtEq, token.Ident, token.AndAnd,
		token.Ident, token.OrOr, token.Ident, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}
