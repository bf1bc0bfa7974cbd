// Package token defines the lexical tokens of the Lingua language and the
// source positions attached to every token and AST node.
package token

import "text/scanner"

// Position reuses text/scanner's Position so that diagnostics across the
// lexer, parser and evaluator all share one location type and formatting.
type Position = scanner.Position

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	String
	Int
	Float
	Bool

	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Colon
	Comma
	Dot
	Equals
	Arrow

	// operators
	Plus
	Minus
	Star
	Slash
	Percent
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
	Amp
	Pipe
	Caret
	Shl
	Shr
	Tilde
	Bang

	// keywords
	KwLet
	KwConst
	KwVar
	KwIf
	KwElse
	KwFor
	KwWhile
	KwMatch
	KwFn
	KwClass
	KwNew
	KwReturn
	KwBreak
	KwContinue
	KwImport
	KwFrom
	KwPub
	KwTrue
	KwFalse
)

var keywords = map[string]Kind{
	"let":      KwLet,
	"const":    KwConst,
	"var":      KwVar,
	"if":       KwIf,
	"else":     KwElse,
	"for":      KwFor,
	"while":    KwWhile,
	"match":    KwMatch,
	"fn":       KwFn,
	"class":    KwClass,
	"new":      KwNew,
	"return":   KwReturn,
	"break":    KwBreak,
	"continue": KwContinue,
	"import":   KwImport,
	"from":     KwFrom,
	"pub":      KwPub,
	"true":     KwTrue,
	"false":    KwFalse,
}

// Lookup returns the keyword Kind for ident, and ok=true if ident is a keyword.
func Lookup(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// Token is a single lexical token with its source text and position.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "eof"
	case Ident:
		return "identifier"
	case String:
		return "string literal"
	case Int:
		return "integer literal"
	case Float:
		return "float literal"
	case Bool:
		return "bool literal"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case Semicolon:
		return "';'"
	case Colon:
		return "':'"
	case Comma:
		return "','"
	case Dot:
		return "'.'"
	case Equals:
		return "'='"
	case Arrow:
		return "'->'"
	default:
		return "token"
	}
}
