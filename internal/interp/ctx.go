package interp

import (
	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

const (
	maxCallDepth  = 1000
	maxForIterate = 10000
)

// abortEval is the sentinel panic value an EvalCtx raises once it has
// recorded a fatal diagnostic: like asm's parser, Lingua's evaluator has no
// error-recovery strategy, so every fatal condition unwinds straight to Run.
// This mirrors vm.Run's panic-recover-with-errors.Wrapf loop, generalized
// from "convert an internal panic into a wrapped error" to "convert an
// internal panic into the diagnostic bag already holding the error".
type abortEval struct{}

// ReturnCtx is the mutable control-flow record threaded through statement
// evaluation: any of its flags short-circuits the rest of the current
// statement sequence.
type ReturnCtx struct {
	HasReturn   bool
	HasBreak    bool
	HasContinue bool
	ReturnValue Value
}

func (rc *ReturnCtx) shortCircuits() bool {
	return rc.HasReturn || rc.HasBreak || rc.HasContinue
}

// EvalCtx bundles every piece of ambient state the original C evaluator kept
// as mutable globals (g_ft, g_ct, g_prints) into one explicit value threaded
// through every evaluation entry point, per the design notes.
type EvalCtx struct {
	Diags        *diag.Bag
	Functions    map[string]*ast.FuncDecl
	Classes      map[string]*ClassDef
	StdlibString map[string]bool // std/string names this compilation imported
	Prints       [][]byte
	RootScope    *Scope

	callDepth int
	loopDepth int
}

// NewEvalCtx creates an evaluator context reporting to diags.
func NewEvalCtx(diags *diag.Bag) *EvalCtx {
	return &EvalCtx{
		Diags:        diags,
		Functions:    make(map[string]*ast.FuncDecl),
		Classes:      make(map[string]*ClassDef),
		StdlibString: make(map[string]bool),
	}
}

// ImportStdlibString marks names as imported from std/string, making them
// callable as unqualified builtin calls.
func (c *EvalCtx) ImportStdlibString(names []string) {
	for _, n := range names {
		c.StdlibString[n] = true
	}
}

func (c *EvalCtx) fail(pos token.Position, format string, args ...interface{}) {
	c.Diags.Errorf(pos, format, args...)
	panic(abortEval{})
}

// Run evaluates prog's top-level declarations and statements in a fresh root
// scope, returning the accumulated diagnostics bag (as an error) if anything
// was fatal. Used directly for a single file: its std/string imports are
// honoured, other imports are not resolved. A multi-file compilation instead
// drives CollectDecls/EvalTopLevelStmts per module through the importer so
// every module's declarations share one EvalCtx.
func (c *EvalCtx) Run(prog *ast.Program) error {
	c.RootScope = NewScope(nil)
	for _, st := range prog.Stmts {
		if imp, ok := st.(*ast.Import); ok && imp.Path == "std/string" {
			c.ImportStdlibString(imp.Names)
		}
	}
	if err := c.CollectDecls(prog.Stmts); err != nil {
		return err
	}
	return c.EvalTopLevelStmts(topLevelCode(prog.Stmts), c.RootScope)
}

// topLevelCode drops declarations already handled by CollectDecls, leaving
// only the statements that actually execute.
func topLevelCode(stmts []ast.Stmt) []ast.Stmt {
	var out []ast.Stmt
	for _, st := range stmts {
		switch st.(type) {
		case *ast.FuncDecl, *ast.ClassDecl, *ast.Import:
			continue
		}
		out = append(out, st)
	}
	return out
}

// CollectDecls registers every top-level function and class declaration in
// stmts into the shared Functions/Classes tables, flattening class field
// lists and method tables by walking each class's parent chain. Safe to call
// once per module in a multi-file compilation: declarations accumulate
// across calls, so a function in one file can call a function declared in
// another.
func (c *EvalCtx) CollectDecls(stmts []ast.Stmt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortEval); ok {
				err = c.Diags
				return
			}
			panic(r)
		}
	}()
	c.collectDecls(stmts)
	if c.Diags.HasErrors() {
		return c.Diags
	}
	return nil
}

// EvalTopLevelStmts runs stmts (a module's non-declaration top-level
// statements) in scope, recovering from the abortEval sentinel the same way
// Run does. Used both by Run for the root file and by the importer to
// materialize each imported module's public variables.
func (c *EvalCtx) EvalTopLevelStmts(stmts []ast.Stmt, scope *Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortEval); ok {
				err = c.Diags
				return
			}
			panic(r)
		}
	}()
	rc := &ReturnCtx{}
	for _, st := range stmts {
		c.evalStmt(st, scope, rc)
	}
	c.warnUnmutated(scope)
	if c.Diags.HasErrors() {
		return c.Diags
	}
	return nil
}

// collectDecls registers every top-level function and class declaration in
// stmts, then flattens class field lists and method tables by walking each
// class's parent chain (in any declaration order: classes may reference a
// parent declared later in the file).
func (c *EvalCtx) collectDecls(stmts []ast.Stmt) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *ast.FuncDecl:
			if _, dup := c.Functions[s.Name]; dup {
				c.fail(s.Loc(), "function %q already declared", s.Name)
			}
			c.Functions[s.Name] = s
		case *ast.ClassDecl:
			if _, dup := c.Classes[s.Name]; dup {
				c.fail(s.Loc(), "class %q already declared", s.Name)
			}
			c.Classes[s.Name] = &ClassDef{Name: s.Name, Methods: make(map[string]*ast.FuncDecl), Decl: s}
		}
	}
	for name := range c.Classes {
		c.resolveClass(name, make(map[string]bool))
	}
}

func (c *EvalCtx) resolveClass(name string, resolving map[string]bool) *ClassDef {
	cd, ok := c.Classes[name]
	if !ok {
		return nil
	}
	if cd.resolved {
		return cd
	}
	if resolving[name] {
		c.fail(cd.Decl.Loc(), "cyclic class inheritance involving %q", name)
	}
	resolving[name] = true

	if cd.Decl.Parent != "" {
		parentDef, ok := c.Classes[cd.Decl.Parent]
		if !ok {
			c.fail(cd.Decl.Loc(), "unknown parent class %q", cd.Decl.Parent)
		}
		parentDef = c.resolveClass(cd.Decl.Parent, resolving)
		cd.Parent = parentDef
		cd.Fields = append(append([]ast.Field{}, parentDef.Fields...), cd.Decl.Fields...)
	} else {
		cd.Fields = append([]ast.Field{}, cd.Decl.Fields...)
	}

	for _, m := range cd.Decl.Methods {
		if _, dup := cd.Methods[m.Name]; dup {
			c.fail(m.Loc(), "method %q already declared on class %q", m.Name, name)
		}
		cd.Methods[m.Name] = m
	}

	cd.resolved = true
	resolving[name] = false
	return cd
}

func (c *EvalCtx) warnUnmutated(scope *Scope) {
	for _, sym := range scope.Unmutated() {
		c.Diags.Warnf(sym.Pos, "variable %q is never mutated", sym.Name)
	}
}

// checkType enforces a declared type against a value. int widens implicitly
// to a float-typed slot (mirroring the language's own arithmetic promotion);
// every other mismatch is fatal. An empty want means no declared type to
// enforce (e.g. an inferred let).
func (c *EvalCtx) checkType(v Value, want ast.TypeName, pos token.Position) {
	if want == "" {
		return
	}
	w := string(want)
	if w == "float" && v.Kind == KindInt {
		return
	}
	if v.TypeName() != w {
		c.fail(pos, "type mismatch: expected %s, got %s", w, v.TypeName())
	}
}

func (c *EvalCtx) expectBool(v Value, pos token.Position) {
	if v.Kind != KindBool {
		c.fail(pos, "expected bool, got %s", v.TypeName())
	}
}
