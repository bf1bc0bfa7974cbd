package interp

import (
	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

// runStmts evaluates stmts in order within scope, stopping as soon as rc
// picks up a return/break/continue flag.
func (c *EvalCtx) runStmts(stmts []ast.Stmt, scope *Scope, rc *ReturnCtx) {
	for _, st := range stmts {
		c.evalStmt(st, scope, rc)
		if rc.shortCircuits() {
			return
		}
	}
}

func (c *EvalCtx) evalBlock(b *ast.Block, parent *Scope, rc *ReturnCtx) {
	child := NewScope(parent)
	c.runStmts(b.Stmts, child, rc)
	c.warnUnmutated(child)
}

func (c *EvalCtx) evalStmt(stmt ast.Stmt, scope *Scope, rc *ReturnCtx) {
	switch s := stmt.(type) {
	case *ast.FuncDecl, *ast.ClassDecl, *ast.Import:
		// Already processed by collectDecls / the importer.

	case *ast.VarDecl:
		val := c.evalExpr(s.Value, scope)
		c.checkType(val, s.Type, s.Loc())
		sym := &Symbol{Name: s.Name, Value: val, Type: string(s.Type), IsConst: s.Kind == ast.DeclConst, Pos: s.Loc()}
		if !scope.Declare(sym) {
			c.fail(s.Loc(), "%q already declared in this scope", s.Name)
		}

	case *ast.Assign:
		c.evalAssign(s, scope)

	case *ast.ExprStmt:
		c.evalExpr(s.Call, scope)

	case *ast.Block:
		c.evalBlock(s, scope, rc)

	case *ast.If:
		c.evalIf(s, scope, rc)

	case *ast.For:
		c.evalFor(s, scope, rc)

	case *ast.Match:
		c.evalMatch(s, scope, rc)

	case *ast.Return:
		if c.callDepth == 0 {
			c.fail(s.Loc(), "return outside of a function or method")
		}
		rc.HasReturn = true
		if s.Value != nil {
			rc.ReturnValue = c.evalExpr(s.Value, scope)
		} else {
			rc.ReturnValue = VoidValue()
		}

	case *ast.Break:
		if c.loopDepth == 0 {
			c.fail(s.Loc(), "break outside of a loop")
		}
		rc.HasBreak = true

	case *ast.Continue:
		if c.loopDepth == 0 {
			c.fail(s.Loc(), "continue outside of a loop")
		}
		rc.HasContinue = true

	default:
		c.fail(stmt.Loc(), "internal error: unhandled statement %T", stmt)
	}
}

func (c *EvalCtx) evalAssign(s *ast.Assign, scope *Scope) {
	val := c.evalExpr(s.Value, scope)
	switch target := s.Target.(type) {
	case *ast.VarRef:
		sym, ok := scope.Lookup(target.Name)
		if !ok {
			c.fail(s.Loc(), "undefined variable %q", target.Name)
		}
		if sym.IsConst {
			c.fail(s.Loc(), "cannot assign to const %q", target.Name)
		}
		c.checkType(val, ast.TypeName(sym.Type), s.Loc())
		sym.Value = val
		sym.Mutated = true
	case *ast.Member:
		recv := c.evalExpr(target.Target, scope)
		if recv.Kind != KindObject {
			c.fail(s.Loc(), "field assignment requires an object")
		}
		fieldType := fieldTypeOf(recv.Obj.Class, target.Field)
		c.checkType(val, fieldType, s.Loc())
		if !recv.Obj.Set(target.Field, val) {
			c.fail(s.Loc(), "unknown field %q on class %q", target.Field, recv.Obj.Class.Name)
		}
	default:
		c.fail(s.Loc(), "invalid assignment target")
	}
}

func fieldTypeOf(cls *ClassDef, name string) ast.TypeName {
	for _, f := range cls.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return ""
}

func (c *EvalCtx) evalIf(s *ast.If, scope *Scope, rc *ReturnCtx) {
	for _, arm := range s.Arms {
		if arm.Cond == nil {
			c.evalBlock(arm.Body, scope, rc)
			return
		}
		cond := c.evalExpr(arm.Cond, scope)
		c.expectBool(cond, arm.Cond.Loc())
		if cond.B {
			c.evalBlock(arm.Body, scope, rc)
			return
		}
	}
}

func (c *EvalCtx) evalFor(s *ast.For, scope *Scope, rc *ReturnCtx) {
	header := NewScope(scope)
	if s.Init != nil {
		c.evalStmt(s.Init, header, &ReturnCtx{})
	}

	c.loopDepth++
	defer func() { c.loopDepth-- }()

	iterations := 0
	for {
		if s.Cond != nil {
			cond := c.evalExpr(s.Cond, header)
			c.expectBool(cond, s.Cond.Loc())
			if !cond.B {
				break
			}
		}

		iterations++
		if iterations > maxForIterate {
			c.fail(s.Loc(), "for-loop exceeded %d iterations", maxForIterate)
		}

		body := NewScope(header)
		bodyRC := &ReturnCtx{}
		c.runStmts(s.Body.Stmts, body, bodyRC)
		c.warnUnmutated(body)

		if bodyRC.HasReturn {
			rc.HasReturn = true
			rc.ReturnValue = bodyRC.ReturnValue
			return
		}
		if bodyRC.HasBreak {
			break
		}
		// continue (or plain fall-through) both proceed to the update clause.

		if s.Update != nil {
			c.evalStmt(s.Update, header, &ReturnCtx{})
		}
	}

	c.warnUnmutated(header)
}

func (c *EvalCtx) evalMatch(s *ast.Match, scope *Scope, rc *ReturnCtx) {
	scrutinee := c.evalExpr(s.Scrutinee, scope)
	for _, arm := range s.Arms {
		matched := arm.Pattern == nil
		if !matched {
			pat := c.evalExpr(arm.Pattern, scope)
			matched = c.compatibleForEquality(scrutinee, pat, s.Loc()) && scrutinee.Equal(pat)
		}
		if matched {
			armScope := NewScope(scope)
			c.evalStmt(arm.Body, armScope, rc)
			c.warnUnmutated(armScope)
			return
		}
	}
}

func (c *EvalCtx) compatibleForEquality(a, b Value, pos token.Position) bool {
	numeric := func(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }
	if numeric(a) && numeric(b) {
		return true
	}
	if a.Kind != b.Kind {
		c.fail(pos, "cannot compare %s and %s", a.TypeName(), b.TypeName())
	}
	return true
}
