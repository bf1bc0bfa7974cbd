package interp

import (
	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

func (c *EvalCtx) evalExpr(expr ast.Expr, scope *Scope) Value {
	switch e := expr.(type) {
	case *ast.IntLit:
		return IntValue(e.Value)
	case *ast.FloatLit:
		return FloatValue(e.Value)
	case *ast.StringLit:
		return StringValue(e.Value)
	case *ast.BoolLit:
		return BoolValue(e.Value)
	case *ast.VarRef:
		sym, ok := scope.Lookup(e.Name)
		if !ok {
			c.fail(e.Loc(), "undefined variable %q", e.Name)
		}
		return sym.Value
	case *ast.BinOp:
		return c.evalBinOp(e, scope)
	case *ast.UnaryOp:
		return c.evalUnaryOp(e, scope)
	case *ast.Index:
		return c.evalIndexExpr(e, scope)
	case *ast.Slice:
		return c.evalSliceExpr(e, scope)
	case *ast.Member:
		return c.evalMemberExpr(e, scope)
	case *ast.Call:
		return c.evalCallExpr(e, scope)
	case *ast.NewExpr:
		return c.evalNewExpr(e, scope)
	default:
		c.fail(expr.Loc(), "internal error: unhandled expression %T", expr)
		return VoidValue()
	}
}

func isNumeric(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func toFloat(v Value) float64 {
	if v.Kind == KindFloat {
		return v.F
	}
	return float64(v.I)
}

// evalBinOp evaluates both operands unconditionally (Open Question #3: no
// short-circuiting), then applies the operator.
func (c *EvalCtx) evalBinOp(e *ast.BinOp, scope *Scope) Value {
	l := c.evalExpr(e.Left, scope)
	r := c.evalExpr(e.Right, scope)
	pos := e.Loc()

	switch e.Op {
	case token.Plus:
		if l.Kind == KindString || r.Kind == KindString {
			return StringValue(l.Stringify() + r.Stringify())
		}
		if !isNumeric(l) || !isNumeric(r) {
			c.fail(pos, "invalid operand types for '+': %s and %s", l.TypeName(), r.TypeName())
		}
		if l.Kind == KindFloat || r.Kind == KindFloat {
			return FloatValue(toFloat(l) + toFloat(r))
		}
		return IntValue(l.I + r.I)

	case token.Minus, token.Star:
		if !isNumeric(l) || !isNumeric(r) {
			c.fail(pos, "invalid operand types for arithmetic: %s and %s", l.TypeName(), r.TypeName())
		}
		if l.Kind == KindFloat || r.Kind == KindFloat {
			if e.Op == token.Minus {
				return FloatValue(toFloat(l) - toFloat(r))
			}
			return FloatValue(toFloat(l) * toFloat(r))
		}
		if e.Op == token.Minus {
			return IntValue(l.I - r.I)
		}
		return IntValue(l.I * r.I)

	case token.Slash:
		if !isNumeric(l) || !isNumeric(r) {
			c.fail(pos, "invalid operand types for '/': %s and %s", l.TypeName(), r.TypeName())
		}
		if l.Kind == KindFloat || r.Kind == KindFloat {
			rf := toFloat(r)
			if rf == 0 {
				c.fail(pos, "division by zero")
			}
			return FloatValue(toFloat(l) / rf)
		}
		if r.I == 0 {
			c.fail(pos, "division by zero")
		}
		return IntValue(l.I / r.I)

	case token.Percent:
		if l.Kind != KindInt || r.Kind != KindInt {
			c.fail(pos, "'%%' requires int operands")
		}
		if r.I == 0 {
			c.fail(pos, "division by zero")
		}
		return IntValue(l.I % r.I)

	case token.Amp, token.Pipe, token.Caret, token.Shl, token.Shr:
		if l.Kind != KindInt || r.Kind != KindInt {
			c.fail(pos, "bitwise operator requires int operands")
		}
		switch e.Op {
		case token.Amp:
			return IntValue(l.I & r.I)
		case token.Pipe:
			return IntValue(l.I | r.I)
		case token.Caret:
			return IntValue(l.I ^ r.I)
		case token.Shl:
			return IntValue(l.I << uint(r.I))
		default:
			return IntValue(l.I >> uint(r.I))
		}

	case token.EqEq, token.NotEq:
		c.compatibleForEquality(l, r, pos)
		eq := l.Equal(r)
		if e.Op == token.NotEq {
			eq = !eq
		}
		return BoolValue(eq)

	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return c.evalOrdering(e.Op, l, r, pos)

	case token.AndAnd, token.OrOr:
		if l.Kind != KindBool || r.Kind != KindBool {
			c.fail(pos, "logical operator requires bool operands")
		}
		if e.Op == token.AndAnd {
			return BoolValue(l.B && r.B)
		}
		return BoolValue(l.B || r.B)

	default:
		c.fail(pos, "internal error: unhandled binary operator")
		return VoidValue()
	}
}

func (c *EvalCtx) evalOrdering(op token.Kind, l, r Value, pos token.Position) Value {
	if l.Kind == KindBool || r.Kind == KindBool {
		c.fail(pos, "ordering operators forbid bool operands")
	}
	var cmp int
	switch {
	case isNumeric(l) && isNumeric(r):
		lf, rf := toFloat(l), toFloat(r)
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	case l.Kind == KindString && r.Kind == KindString:
		switch {
		case l.S < r.S:
			cmp = -1
		case l.S > r.S:
			cmp = 1
		}
	default:
		c.fail(pos, "cannot order %s and %s", l.TypeName(), r.TypeName())
	}
	switch op {
	case token.Lt:
		return BoolValue(cmp < 0)
	case token.LtEq:
		return BoolValue(cmp <= 0)
	case token.Gt:
		return BoolValue(cmp > 0)
	default:
		return BoolValue(cmp >= 0)
	}
}

func (c *EvalCtx) evalUnaryOp(e *ast.UnaryOp, scope *Scope) Value {
	v := c.evalExpr(e.Operand, scope)
	switch e.Op {
	case token.Minus:
		switch v.Kind {
		case KindInt:
			return IntValue(-v.I)
		case KindFloat:
			return FloatValue(-v.F)
		default:
			c.fail(e.Loc(), "unary '-' requires an int or float operand")
		}
	case token.Tilde:
		if v.Kind != KindInt {
			c.fail(e.Loc(), "unary '~' requires an int operand")
		}
		return IntValue(^v.I)
	case token.Bang:
		if v.Kind != KindBool {
			c.fail(e.Loc(), "unary '!' requires a bool operand")
		}
		return BoolValue(!v.B)
	}
	return VoidValue()
}

// stringIndex implements s[i] semantics shared by the `[i]` operator and the
// char_at stdlib builtin: negative indices wrap from the end, out-of-range is
// fatal.
func (c *EvalCtx) stringIndex(s string, i int64, pos token.Position) string {
	n := int64(len(s))
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		c.fail(pos, "string index %d out of range (length %d)", i, n)
	}
	return string(s[i])
}

// stringSlice implements s[a:b] semantics shared by the `[a:b]` operator and
// the substr stdlib builtin: negative bounds wrap, out-of-range bounds clamp,
// a>b yields "".
func stringSlice(s string, hasFrom bool, from int64, hasTo bool, to int64) string {
	n := int64(len(s))
	a := int64(0)
	if hasFrom {
		a = from
		if a < 0 {
			a += n
		}
	}
	b := n
	if hasTo {
		b = to
		if b < 0 {
			b += n
		}
	}
	if a < 0 {
		a = 0
	}
	if a > n {
		a = n
	}
	if b < 0 {
		b = 0
	}
	if b > n {
		b = n
	}
	if a > b {
		return ""
	}
	return s[a:b]
}

func (c *EvalCtx) evalIndexExpr(e *ast.Index, scope *Scope) Value {
	target := c.evalExpr(e.Target, scope)
	if target.Kind != KindString {
		c.fail(e.Loc(), "indexing requires a string operand, got %s", target.TypeName())
	}
	idx := c.evalExpr(e.Index, scope)
	if idx.Kind != KindInt {
		c.fail(e.Loc(), "string index must be int, got %s", idx.TypeName())
	}
	return StringValue(c.stringIndex(target.S, idx.I, e.Loc()))
}

func (c *EvalCtx) evalSliceExpr(e *ast.Slice, scope *Scope) Value {
	target := c.evalExpr(e.Target, scope)
	if target.Kind != KindString {
		c.fail(e.Loc(), "slicing requires a string operand, got %s", target.TypeName())
	}
	var from, to int64
	hasFrom, hasTo := e.From != nil, e.To != nil
	if hasFrom {
		fv := c.evalExpr(e.From, scope)
		if fv.Kind != KindInt {
			c.fail(e.Loc(), "slice bound must be int, got %s", fv.TypeName())
		}
		from = fv.I
	}
	if hasTo {
		tv := c.evalExpr(e.To, scope)
		if tv.Kind != KindInt {
			c.fail(e.Loc(), "slice bound must be int, got %s", tv.TypeName())
		}
		to = tv.I
	}
	return StringValue(stringSlice(target.S, hasFrom, from, hasTo, to))
}

func (c *EvalCtx) evalMemberExpr(e *ast.Member, scope *Scope) Value {
	target := c.evalExpr(e.Target, scope)
	if target.Kind != KindObject {
		c.fail(e.Loc(), "member access requires an object, got %s", target.TypeName())
	}
	v, ok := target.Obj.Get(e.Field)
	if !ok {
		c.fail(e.Loc(), "unknown field %q on class %q", e.Field, target.Obj.Class.Name)
	}
	return v
}
