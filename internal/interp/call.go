package interp

import (
	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

// evalCallExpr dispatches a Call node: a builtin print/println, a qualified
// method call, or an unqualified function/stdlib call.
func (c *EvalCtx) evalCallExpr(e *ast.Call, scope *Scope) Value {
	if e.Receiver != nil {
		recv := c.evalExpr(e.Receiver, scope)
		if recv.Kind != KindObject {
			c.fail(e.Loc(), "method receiver must be an object, got %s", recv.TypeName())
		}
		cls, method, ok := recv.Obj.Class.LookupMethod(e.Name)
		if !ok {
			c.fail(e.Loc(), "unknown method %q on class %q", e.Name, recv.Obj.Class.Name)
		}
		return c.callMethod(method, cls, recv.Obj, e.Args, scope, e.Loc())
	}

	switch e.Name {
	case "print":
		return c.evalPrint(e, scope, false)
	case "println":
		return c.evalPrint(e, scope, true)
	}

	if fn, ok := c.Functions[e.Name]; ok {
		return c.callFunction(fn, e.Args, scope, e.Loc())
	}
	if c.StdlibString[e.Name] {
		if fn, ok := stdlibStringFuncs[e.Name]; ok {
			return c.callStdlibString(fn, e.Name, e.Args, scope, e.Loc())
		}
	}
	c.fail(e.Loc(), "undefined function %q", e.Name)
	return VoidValue()
}

func (c *EvalCtx) evalPrint(e *ast.Call, scope *Scope, newline bool) Value {
	if len(e.Args) != 1 || e.Args[0].Name != "" {
		c.fail(e.Loc(), "%s expects exactly one positional argument", e.Name)
	}
	v := c.evalExpr(e.Args[0].Value, scope)
	s := v.Stringify()
	if newline {
		s += "\n"
	}
	c.Prints = append(c.Prints, []byte(s))
	return VoidValue()
}

// callFunction invokes an unqualified user function. Its scope's parent is
// the root scope, not the call site's: functions are not closures over
// caller locals, only over top-level declarations.
func (c *EvalCtx) callFunction(fn *ast.FuncDecl, args []ast.Arg, callerScope *Scope, pos token.Position) Value {
	c.enterCall(pos)
	defer c.leaveCall()

	fnScope := NewScope(c.RootScope)
	c.bindParams(fn.Params, args, callerScope, fnScope, pos)

	rc := &ReturnCtx{}
	c.runStmts(fn.Body.Stmts, fnScope, rc)
	c.warnUnmutated(fnScope)

	return c.finishCall(fn.Name, fn.ReturnType, rc, fn.Loc())
}

// callMethod invokes obj.method(args). Field values are injected into the
// method scope as plain mutable symbols and written back on return, rather
// than aliasing the object's storage directly (design notes: "object field
// mutation from methods").
func (c *EvalCtx) callMethod(method *ast.FuncDecl, definingClass *ClassDef, obj *ObjData, args []ast.Arg, callerScope *Scope, pos token.Position) Value {
	c.enterCall(pos)
	defer c.leaveCall()

	methodScope := NewScope(callerScope)
	fieldSyms := make([]*Symbol, len(obj.Class.Fields))
	for i, f := range obj.Class.Fields {
		sym := &Symbol{Name: f.Name, Value: obj.Values[i], Type: string(f.Type), Pos: method.Loc()}
		methodScope.Declare(sym)
		fieldSyms[i] = sym
	}
	c.bindParams(method.Params, args, callerScope, methodScope, pos)

	rc := &ReturnCtx{}
	c.runStmts(method.Body.Stmts, methodScope, rc)
	c.warnUnmutated(methodScope)

	for i := range obj.Class.Fields {
		obj.Values[i] = fieldSyms[i].Value
	}

	return c.finishCall(method.Name, method.ReturnType, rc, method.Loc())
}

func (c *EvalCtx) finishCall(name string, retType ast.TypeName, rc *ReturnCtx, pos token.Position) Value {
	if retType == "" {
		return VoidValue()
	}
	if !rc.HasReturn {
		c.fail(pos, "function %q must return a value of type %s on every path", name, retType)
	}
	c.checkType(rc.ReturnValue, retType, pos)
	return rc.ReturnValue
}

func (c *EvalCtx) enterCall(pos token.Position) {
	c.callDepth++
	if c.callDepth > maxCallDepth {
		c.fail(pos, "recursion depth exceeded %d", maxCallDepth)
	}
}

func (c *EvalCtx) leaveCall() { c.callDepth-- }

// bindParams implements argument matching: positional arguments bind to the
// initial parameters in order, named
// arguments then bind by name, any parameter still unbound falls back to its
// default (fatal if it has none), and every bound value is type-checked.
func (c *EvalCtx) bindParams(params []ast.Param, args []ast.Arg, callerScope, target *Scope, pos token.Position) {
	bound := make([]bool, len(params))
	values := make([]Value, len(params))

	idx := 0
	for _, a := range args {
		if a.Name != "" {
			continue
		}
		if idx >= len(params) {
			c.fail(pos, "too many positional arguments")
		}
		values[idx] = c.evalExpr(a.Value, callerScope)
		bound[idx] = true
		idx++
	}
	for _, a := range args {
		if a.Name == "" {
			continue
		}
		pi := paramIndex(params, a.Name)
		if pi < 0 {
			c.fail(pos, "unknown named argument %q", a.Name)
		}
		if bound[pi] {
			c.fail(pos, "duplicate argument %q", a.Name)
		}
		values[pi] = c.evalExpr(a.Value, callerScope)
		bound[pi] = true
	}

	for i, p := range params {
		if !bound[i] {
			if p.Default == nil {
				c.fail(pos, "missing required argument %q", p.Name)
			}
			values[i] = c.evalExpr(p.Default, target)
		}
		c.checkType(values[i], p.Type, pos)
		target.Declare(&Symbol{Name: p.Name, Value: values[i], Type: string(p.Type), Pos: pos})
	}
}

func paramIndex(params []ast.Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// evalNewExpr constructs a class instance: resolve the class, match
// constructor arguments against its flattened field list (parent fields
// first), type-check each, and produce an ObjData.
func (c *EvalCtx) evalNewExpr(e *ast.NewExpr, scope *Scope) Value {
	cls, ok := c.Classes[e.Class]
	if !ok {
		c.fail(e.Loc(), "unknown class %q", e.Class)
	}

	bound := make([]bool, len(cls.Fields))
	values := make([]Value, len(cls.Fields))

	idx := 0
	for _, a := range e.Args {
		if a.Name != "" {
			continue
		}
		if idx >= len(cls.Fields) {
			c.fail(e.Loc(), "too many positional arguments constructing %q", e.Class)
		}
		values[idx] = c.evalExpr(a.Value, scope)
		bound[idx] = true
		idx++
	}
	for _, a := range e.Args {
		if a.Name == "" {
			continue
		}
		fi := fieldIndex(cls.Fields, a.Name)
		if fi < 0 {
			c.fail(e.Loc(), "unknown field %q in constructor for class %q", a.Name, e.Class)
		}
		if bound[fi] {
			c.fail(e.Loc(), "duplicate field argument %q", a.Name)
		}
		values[fi] = c.evalExpr(a.Value, scope)
		bound[fi] = true
	}
	for i, f := range cls.Fields {
		if !bound[i] {
			c.fail(e.Loc(), "missing field %q constructing class %q", f.Name, e.Class)
		}
		c.checkType(values[i], f.Type, e.Loc())
	}

	return ObjectValue(&ObjData{Class: cls, Values: values})
}

func fieldIndex(fields []ast.Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
