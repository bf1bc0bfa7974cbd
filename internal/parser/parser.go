// Package parser implements the recursive-descent, one-token-lookahead
// parser for Lingua: tokens in, a typed *ast.Program out.
//
// A single stateful struct scans token-by-token and writes into accumulating
// slices, generalized from a flat instruction stream to a full statement and
// expression grammar.
package parser

import (
	"fmt"

	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/lexer"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

// Error is a fatal syntax error: an unexpected token or a missing terminator.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// parseAbort is the sentinel panic value used to unwind straight out of the
// recursive descent on the first fatal error: Lingua's grammar has no
// meaningful error-recovery strategy, a parse error always terminates
// compilation, so there is no point threading error returns through every
// production.
type parseAbort struct{ err *Error }

type parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	next token.Token
	has  bool // whether `next` holds a valid lookahead
}

// Parse scans and parses the full contents of src (named filename for
// diagnostics) into a Program.
func Parse(filename string, src []byte) (prog *ast.Program, err error) {
	p := &parser{lex: lexer.New(filename, src)}
	defer func() {
		if r := recover(); r != nil {
			if ab, ok := r.(parseAbort); ok {
				err = ab.err
				return
			}
			panic(r)
		}
	}()
	if e := p.advance(); e != nil {
		return nil, e
	}
	var stmts []ast.Stmt
	for p.cur.Kind != token.EOF {
		stmts = append(stmts, p.parseTopLevelStmt())
	}
	return &ast.Program{Stmts: stmts}, nil
}

func (p *parser) abort(pos token.Position, format string, args ...interface{}) {
	panic(parseAbort{&Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}

// advance pulls the next token from the lexer into p.cur, converting lexical
// errors into a fatal parser abort (a lex error and a parse error are both
// "terminate compilation" conditions from the caller's perspective).
func (p *parser) advance() error {
	if p.has {
		p.cur = p.next
		p.has = false
		return nil
	}
	t, err := p.lex.Next()
	if err != nil {
		if lerr, ok := err.(*lexer.Error); ok {
			p.abort(lerr.Pos, "%s", lerr.Msg)
		}
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) peekNext() token.Token {
	if !p.has {
		t, err := p.lex.Next()
		if err != nil {
			if lerr, ok := err.(*lexer.Error); ok {
				p.abort(lerr.Pos, "%s", lerr.Msg)
			}
		}
		p.next = t
		p.has = true
	}
	return p.next
}

func (p *parser) expect(k token.Kind, what string) token.Token {
	if p.cur.Kind != k {
		p.abort(p.cur.Pos, "expected %s, got %s", what, describe(p.cur))
	}
	t := p.cur
	p.advance()
	return t
}

func describe(t token.Token) string {
	if t.Kind == token.Ident || t.Kind == token.Int || t.Kind == token.Float || t.Kind == token.String {
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	}
	return t.Kind.String()
}

func (p *parser) expectIdent(what string) string {
	t := p.expect(token.Ident, what)
	return t.Text
}

// ---- top-level / statements ----

func (p *parser) parseTopLevelStmt() ast.Stmt {
	pub := false
	if p.cur.Kind == token.KwPub {
		pub = true
		p.advance()
	}
	switch p.cur.Kind {
	case token.KwFn:
		return p.parseFuncDecl(pub)
	case token.KwClass:
		return p.parseClassDecl(pub)
	case token.KwLet, token.KwConst, token.KwVar:
		d := p.parseVarDecl(pub)
		p.expect(token.Semicolon, "';'")
		return d
	case token.KwImport:
		if pub {
			p.abort(p.cur.Pos, "'pub' is not allowed on import")
		}
		return p.parseImport()
	default:
		if pub {
			p.abort(p.cur.Pos, "'pub' is only allowed on fn, class, let, const or var")
		}
		return p.parseStmt()
	}
}

func (p *parser) parseStmt() ast.Stmt {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.KwLet, token.KwConst, token.KwVar:
		d := p.parseVarDecl(false)
		p.expect(token.Semicolon, "';'")
		return d
	case token.KwReturn:
		p.advance()
		var val ast.Expr
		if p.cur.Kind != token.Semicolon {
			val = p.parseExpr()
		}
		p.expect(token.Semicolon, "';'")
		return ast.NewReturn(pos, val)
	case token.KwBreak:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return ast.NewBreak(pos)
	case token.KwContinue:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return ast.NewContinue(pos)
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwMatch:
		return p.parseMatch()
	case token.LBrace:
		return p.parseBlock()
	case token.Ident:
		return p.parseIdentStmt(pos)
	default:
		p.abort(pos, "unexpected %s at start of statement", describe(p.cur))
		return nil
	}
}

func (p *parser) parseVarDecl(pub bool) *ast.VarDecl {
	pos := p.cur.Pos
	var kind ast.VarDeclKind
	switch p.cur.Kind {
	case token.KwLet:
		kind = ast.DeclLet
	case token.KwConst:
		kind = ast.DeclConst
	case token.KwVar:
		kind = ast.DeclVar
	}
	p.advance()
	name := p.expectIdent("variable name")
	var typ ast.TypeName
	if p.cur.Kind == token.Colon {
		p.advance()
		typ = ast.TypeName(p.expectIdent("type name"))
	}
	p.expect(token.Equals, "'='")
	val := p.parseExpr()
	return ast.NewVarDecl(pos, kind, name, typ, val, pub)
}

// parseIdentStmt disambiguates assignment, obj.field = expr, and
// call/method-call expression statements, all of which start with an
// identifier.
func (p *parser) parseIdentStmt(pos token.Position) ast.Stmt {
	name := p.cur.Text
	p.advance()

	// obj.field(...) or obj.field = expr
	if p.cur.Kind == token.Dot {
		p.advance()
		field := p.expectIdent("field or method name")
		if p.cur.Kind == token.LParen {
			call := p.finishCall(pos, ast.NewVarRef(pos, name), field)
			expr := p.parsePostfix(pos, call)
			p.expect(token.Semicolon, "';'")
			return ast.NewExprStmt(pos, expr)
		}
		target := ast.NewMember(pos, ast.NewVarRef(pos, name), field)
		p.expect(token.Equals, "'='")
		val := p.parseExpr()
		p.expect(token.Semicolon, "';'")
		return ast.NewAssign(pos, target, val)
	}

	if p.cur.Kind == token.LParen {
		call := p.finishCall(pos, nil, name)
		expr := p.parsePostfix(pos, call)
		p.expect(token.Semicolon, "';'")
		return ast.NewExprStmt(pos, expr)
	}

	if p.cur.Kind == token.Equals {
		p.advance()
		val := p.parseExpr()
		p.expect(token.Semicolon, "';'")
		return ast.NewAssign(pos, ast.NewVarRef(pos, name), val)
	}

	p.abort(p.cur.Pos, "unexpected %s after identifier %q", describe(p.cur), name)
	return nil
}

func (p *parser) parseBlock() *ast.Block {
	pos := p.expect(token.LBrace, "'{'").Pos
	var stmts []ast.Stmt
	for p.cur.Kind != token.RBrace {
		if p.cur.Kind == token.EOF {
			p.abort(p.cur.Pos, "unterminated block, expected '}'")
		}
		stmts = append(stmts, p.parseStmt())
	}
	p.advance()
	return ast.NewBlock(pos, stmts)
}

func (p *parser) parseIf() *ast.If {
	pos := p.cur.Pos
	var arms []ast.IfArm
	p.advance() // if
	cond := p.parseParenExpr()
	body := p.parseBlock()
	arms = append(arms, ast.IfArm{Cond: cond, Body: body})
	for p.cur.Kind == token.KwElse {
		p.advance()
		if p.cur.Kind == token.KwIf {
			p.advance()
			c := p.parseParenExpr()
			b := p.parseBlock()
			arms = append(arms, ast.IfArm{Cond: c, Body: b})
			continue
		}
		b := p.parseBlock()
		arms = append(arms, ast.IfArm{Cond: nil, Body: b})
		break
	}
	return ast.NewIf(pos, arms)
}

func (p *parser) parseParenExpr() ast.Expr {
	p.expect(token.LParen, "'('")
	e := p.parseExpr()
	p.expect(token.RParen, "')'")
	return e
}

func (p *parser) parseFor() *ast.For {
	pos := p.cur.Pos
	p.advance()
	p.expect(token.LParen, "'('")
	var initStmt ast.Stmt
	if p.cur.Kind != token.Semicolon {
		switch p.cur.Kind {
		case token.KwLet, token.KwConst, token.KwVar:
			initStmt = p.parseVarDecl(false)
		default:
			initStmt = p.parseSimpleStmtNoSemi()
		}
	}
	p.expect(token.Semicolon, "';'")
	var cond ast.Expr
	if p.cur.Kind != token.Semicolon {
		cond = p.parseExpr()
	}
	p.expect(token.Semicolon, "';'")
	var update ast.Stmt
	if p.cur.Kind != token.RParen {
		update = p.parseSimpleStmtNoSemi()
	}
	p.expect(token.RParen, "')'")
	body := p.parseBlock()
	return ast.NewFor(pos, initStmt, cond, update, body)
}

// parseSimpleStmtNoSemi parses an assignment (no trailing semicolon), used in
// for-loop init/update clauses.
func (p *parser) parseSimpleStmtNoSemi() ast.Stmt {
	pos := p.cur.Pos
	name := p.expectIdent("identifier")
	if p.cur.Kind == token.Dot {
		p.advance()
		field := p.expectIdent("field name")
		p.expect(token.Equals, "'='")
		val := p.parseExpr()
		return ast.NewAssign(pos, ast.NewMember(pos, ast.NewVarRef(pos, name), field), val)
	}
	p.expect(token.Equals, "'='")
	val := p.parseExpr()
	return ast.NewAssign(pos, ast.NewVarRef(pos, name), val)
}

// parseWhile lowers `while (cond) { body }` to `for (; cond; ) { body }`.
func (p *parser) parseWhile() *ast.For {
	pos := p.cur.Pos
	p.advance()
	cond := p.parseParenExpr()
	body := p.parseBlock()
	return ast.NewFor(pos, nil, cond, nil, body)
}

func (p *parser) parseMatch() *ast.Match {
	pos := p.cur.Pos
	p.advance()
	scrutinee := p.parseExpr()
	p.expect(token.LBrace, "'{'")
	var arms []ast.MatchArm
	for p.cur.Kind != token.RBrace {
		var pattern ast.Expr
		if p.cur.Kind == token.Ident && p.cur.Text == "_" {
			p.advance()
		} else {
			pattern = p.parseExpr()
		}
		// The lexer has no "=>" token: accept '=' immediately followed by '>'.
		eq := p.expect(token.Equals, "'=>'")
		if p.cur.Kind != token.Gt || p.cur.Pos.Offset != eq.Pos.Offset+1 {
			p.abort(eq.Pos, "expected '=>', got %s", describe(p.cur))
		}
		p.advance()
		body := p.parseStmt()
		arms = append(arms, ast.MatchArm{Pattern: pattern, Body: body})
		if p.cur.Kind == token.Comma {
			p.advance()
		}
	}
	p.advance()
	return ast.NewMatch(pos, scrutinee, arms)
}

func (p *parser) parseFuncDecl(pub bool) *ast.FuncDecl {
	pos := p.cur.Pos
	p.advance()
	name := p.expectIdent("function name")
	p.expect(token.LParen, "'('")
	var params []ast.Param
	for p.cur.Kind != token.RParen {
		pname := p.expectIdent("parameter name")
		p.expect(token.Colon, "':'")
		ptype := ast.TypeName(p.expectIdent("parameter type"))
		var def ast.Expr
		if p.cur.Kind == token.Equals {
			p.advance()
			def = p.parseUnary()
		}
		params = append(params, ast.Param{Name: pname, Type: ptype, Default: def})
		if p.cur.Kind == token.Comma {
			p.advance()
		}
	}
	p.advance() // )
	var ret ast.TypeName
	if p.cur.Kind == token.Arrow {
		p.advance()
		ret = ast.TypeName(p.expectIdent("return type"))
	}
	body := p.parseBlock()
	return ast.NewFuncDecl(pos, name, params, ret, body, pub)
}

func (p *parser) parseClassDecl(pub bool) *ast.ClassDecl {
	pos := p.cur.Pos
	p.advance()
	name := p.expectIdent("class name")
	var parent string
	if p.cur.Kind == token.Colon {
		p.advance()
		parent = p.expectIdent("parent class name")
	}
	p.expect(token.LBrace, "'{'")
	var fields []ast.Field
	var methods []*ast.FuncDecl
	for p.cur.Kind != token.RBrace {
		if p.cur.Kind == token.KwFn {
			methods = append(methods, p.parseFuncDecl(false))
			continue
		}
		fname := p.expectIdent("field name")
		p.expect(token.Colon, "':'")
		ftype := ast.TypeName(p.expectIdent("field type"))
		fields = append(fields, ast.Field{Name: fname, Type: ftype})
		if p.cur.Kind == token.Semicolon {
			p.advance()
		}
	}
	p.advance()
	return ast.NewClassDecl(pos, name, parent, fields, methods, pub)
}

func (p *parser) parseImport() ast.Stmt {
	pos := p.cur.Pos
	p.advance()
	p.expect(token.LBrace, "'{'")
	var names []string
	for p.cur.Kind != token.RBrace {
		names = append(names, p.expectIdent("imported name"))
		if p.cur.Kind == token.Comma {
			p.advance()
		}
	}
	p.advance()
	p.expect(token.KwFrom, "'from'")
	pathTok := p.expect(token.String, "import path string")
	p.expect(token.Semicolon, "';'")
	return ast.NewImport(pos, names, pathTok.Text)
}

// ---- expressions ----
//
// Precedence climbs from parseExpr (or) down to parsePrimary, following
// lowest to highest: or, and, | ^ &, ==/!=, </<=/>/>=, <</>>, +/-, * / %,
// unary, postfix, primary.

func (p *parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.cur.Kind == token.OrOr {
		pos := p.cur.Pos
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinOp(pos, token.OrOr, left, right)
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseBitOr()
	for p.cur.Kind == token.AndAnd {
		pos := p.cur.Pos
		p.advance()
		right := p.parseBitOr()
		left = ast.NewBinOp(pos, token.AndAnd, left, right)
	}
	return left
}

func (p *parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.cur.Kind == token.Pipe {
		pos := p.cur.Pos
		p.advance()
		right := p.parseBitXor()
		left = ast.NewBinOp(pos, token.Pipe, left, right)
	}
	return left
}

func (p *parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.cur.Kind == token.Caret {
		pos := p.cur.Pos
		p.advance()
		right := p.parseBitAnd()
		left = ast.NewBinOp(pos, token.Caret, left, right)
	}
	return left
}

func (p *parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.cur.Kind == token.Amp {
		pos := p.cur.Pos
		p.advance()
		right := p.parseEquality()
		left = ast.NewBinOp(pos, token.Amp, left, right)
	}
	return left
}

func (p *parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.cur.Kind == token.EqEq || p.cur.Kind == token.NotEq {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right := p.parseRelational()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *parser) parseRelational() ast.Expr {
	left := p.parseShift()
	for p.cur.Kind == token.Lt || p.cur.Kind == token.LtEq || p.cur.Kind == token.Gt || p.cur.Kind == token.GtEq {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right := p.parseShift()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.cur.Kind == token.Shl || p.cur.Kind == token.Shr {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.cur.Kind == token.Plus || p.cur.Kind == token.Minus {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.cur.Kind == token.Star || p.cur.Kind == token.Slash || p.cur.Kind == token.Percent {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinOp(pos, op, left, right)
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	if p.cur.Kind == token.Minus || p.cur.Kind == token.Tilde || p.cur.Kind == token.Bang {
		op := p.cur.Kind
		pos := p.cur.Pos
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryOp(pos, op, operand)
	}
	return p.parsePostfixFromPrimary()
}

func (p *parser) parsePostfixFromPrimary() ast.Expr {
	pos := p.cur.Pos
	e := p.parsePrimary()
	return p.parsePostfix(pos, e)
}

func (p *parser) parsePostfix(pos token.Position, e ast.Expr) ast.Expr {
	for {
		switch p.cur.Kind {
		case token.Dot:
			p.advance()
			name := p.expectIdent("field or method name")
			if p.cur.Kind == token.LParen {
				e = p.finishCall(pos, e, name)
				continue
			}
			e = ast.NewMember(pos, e, name)
		case token.LBracket:
			p.advance()
			if p.cur.Kind == token.Colon {
				p.advance()
				to := p.parseExpr()
				p.expect(token.RBracket, "']'")
				e = ast.NewSlice(pos, e, nil, to)
				continue
			}
			first := p.parseExpr()
			if p.cur.Kind == token.Colon {
				p.advance()
				var to ast.Expr
				if p.cur.Kind != token.RBracket {
					to = p.parseExpr()
				}
				p.expect(token.RBracket, "']'")
				e = ast.NewSlice(pos, e, first, to)
				continue
			}
			p.expect(token.RBracket, "']'")
			e = ast.NewIndex(pos, e, first)
		default:
			return e
		}
	}
}

// finishCall parses "(args)" assuming p.cur == LParen, producing a Call node.
// receiver is nil for an unqualified call.
func (p *parser) finishCall(pos token.Position, receiver ast.Expr, name string) ast.Expr {
	p.advance() // (
	var args []ast.Arg
	for p.cur.Kind != token.RParen {
		if p.cur.Kind == token.Ident && p.peekNext().Kind == token.Equals {
			argName := p.cur.Text
			p.advance()
			p.advance()
			val := p.parseExpr()
			args = append(args, ast.Arg{Name: argName, Value: val})
		} else {
			val := p.parseExpr()
			args = append(args, ast.Arg{Value: val})
		}
		if p.cur.Kind == token.Comma {
			p.advance()
		}
	}
	p.advance() // )
	return ast.NewCall(pos, receiver, name, args)
}

func (p *parser) parsePrimary() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.Int:
		text := p.cur.Text
		p.advance()
		var v int64
		for _, c := range []byte(text) {
			v = v*10 + int64(c-'0')
		}
		return ast.NewIntLit(pos, v)
	case token.Float:
		text := p.cur.Text
		p.advance()
		v := parseFloat(text)
		return ast.NewFloatLit(pos, v)
	case token.String:
		text := p.cur.Text
		p.advance()
		return ast.NewStringLit(pos, text)
	case token.Bool:
		v := p.cur.Text == "true"
		p.advance()
		return ast.NewBoolLit(pos, v)
	case token.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RParen, "')'")
		return e
	case token.KwNew:
		p.advance()
		cls := p.expectIdent("class name")
		p.expect(token.LParen, "'('")
		var args []ast.Arg
		for p.cur.Kind != token.RParen {
			if p.cur.Kind == token.Ident && p.peekNext().Kind == token.Equals {
				argName := p.cur.Text
				p.advance()
				p.advance()
				val := p.parseExpr()
				args = append(args, ast.Arg{Name: argName, Value: val})
			} else {
				args = append(args, ast.Arg{Value: p.parseExpr()})
			}
			if p.cur.Kind == token.Comma {
				p.advance()
			}
		}
		p.advance()
		return ast.NewNewExpr(pos, cls, args)
	case token.Ident:
		name := p.cur.Text
		p.advance()
		if p.cur.Kind == token.LParen {
			return p.finishCall(pos, nil, name)
		}
		return ast.NewVarRef(pos, name)
	default:
		p.abort(pos, "unexpected %s", describe(p.cur))
		return nil
	}
}

func parseFloat(s string) float64 {
	var intPart, fracPart float64
	var fracDiv float64 = 1
	seenDot := false
	for _, c := range s {
		if c == '.' {
			seenDot = true
			continue
		}
		d := float64(c - '0')
		if !seenDot {
			intPart = intPart*10 + d
		} else {
			fracDiv *= 10
			fracPart = fracPart*10 + d
		}
	}
	return intPart + fracPart/fracDiv
}
