package interp

import (
	"strings"

	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

// stdlibFunc is a native std/string builtin: it receives already-evaluated
// positional arguments and returns a Value, or calls fail (via c) on a type
// or range error using the same rules as the core operators.
type stdlibFunc func(c *EvalCtx, args []Value, pos token.Position) Value

var stdlibStringFuncs = map[string]stdlibFunc{
	"len":          stdlibLen,
	"trim":         stdlibTrim,
	"contains":     stdlibContains,
	"replace":      stdlibReplace,
	"to_upper":     stdlibToUpper,
	"to_lower":     stdlibToLower,
	"starts_with":  stdlibStartsWith,
	"ends_with":    stdlibEndsWith,
	"index_of":     stdlibIndexOf,
	"char_at":      stdlibCharAt,
	"substr":       stdlibSubstr,
}

// StdlibStringNames lists every name the "std/string" module exports, for
// the import resolver's static stdlib table.
func StdlibStringNames() []string {
	names := make([]string, 0, len(stdlibStringFuncs))
	for name := range stdlibStringFuncs {
		names = append(names, name)
	}
	return names
}

// callStdlibString evaluates args positionally (builtins take no named or
// default parameters) and dispatches to fn.
func (c *EvalCtx) callStdlibString(fn stdlibFunc, name string, args []ast.Arg, scope *Scope, pos token.Position) Value {
	values := make([]Value, len(args))
	for i, a := range args {
		if a.Name != "" {
			c.fail(pos, "%s does not accept named arguments", name)
		}
		values[i] = c.evalExpr(a.Value, scope)
	}
	return fn(c, values, pos)
}

func (c *EvalCtx) argString(v Value, name string, pos token.Position) string {
	if v.Kind != KindString {
		c.fail(pos, "%s: expected string argument, got %s", name, v.TypeName())
	}
	return v.S
}

func (c *EvalCtx) argInt(v Value, name string, pos token.Position) int64 {
	if v.Kind != KindInt {
		c.fail(pos, "%s: expected int argument, got %s", name, v.TypeName())
	}
	return v.I
}

func (c *EvalCtx) checkArity(args []Value, n int, name string, pos token.Position) {
	if len(args) != n {
		c.fail(pos, "%s expects %d argument(s), got %d", name, n, len(args))
	}
}

func stdlibLen(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 1, "len", pos)
	s := c.argString(args[0], "len", pos)
	return IntValue(int64(len(s)))
}

func stdlibTrim(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 1, "trim", pos)
	s := c.argString(args[0], "trim", pos)
	return StringValue(strings.TrimSpace(s))
}

func stdlibContains(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 2, "contains", pos)
	s := c.argString(args[0], "contains", pos)
	sub := c.argString(args[1], "contains", pos)
	return BoolValue(strings.Contains(s, sub))
}

func stdlibReplace(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 3, "replace", pos)
	s := c.argString(args[0], "replace", pos)
	old := c.argString(args[1], "replace", pos)
	repl := c.argString(args[2], "replace", pos)
	if old == "" {
		return StringValue(s)
	}
	return StringValue(strings.ReplaceAll(s, old, repl))
}

func stdlibToUpper(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 1, "to_upper", pos)
	s := c.argString(args[0], "to_upper", pos)
	return StringValue(strings.ToUpper(s))
}

func stdlibToLower(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 1, "to_lower", pos)
	s := c.argString(args[0], "to_lower", pos)
	return StringValue(strings.ToLower(s))
}

func stdlibStartsWith(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 2, "starts_with", pos)
	s := c.argString(args[0], "starts_with", pos)
	p := c.argString(args[1], "starts_with", pos)
	return BoolValue(strings.HasPrefix(s, p))
}

func stdlibEndsWith(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 2, "ends_with", pos)
	s := c.argString(args[0], "ends_with", pos)
	p := c.argString(args[1], "ends_with", pos)
	return BoolValue(strings.HasSuffix(s, p))
}

func stdlibIndexOf(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 2, "index_of", pos)
	s := c.argString(args[0], "index_of", pos)
	sub := c.argString(args[1], "index_of", pos)
	return IntValue(int64(strings.Index(s, sub)))
}

func stdlibCharAt(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 2, "char_at", pos)
	s := c.argString(args[0], "char_at", pos)
	i := c.argInt(args[1], "char_at", pos)
	return StringValue(c.stringIndex(s, i, pos))
}

func stdlibSubstr(c *EvalCtx, args []Value, pos token.Position) Value {
	c.checkArity(args, 3, "substr", pos)
	s := c.argString(args[0], "substr", pos)
	a := c.argInt(args[1], "substr", pos)
	b := c.argInt(args[2], "substr", pos)
	return StringValue(stringSlice(s, true, a, true, b))
}
