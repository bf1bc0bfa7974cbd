// Package importer resolves Lingua import statements: a static stdlib table
// for "std/..." paths, and a path-keyed module cache with cycle detection
// for everything else.
//
// Resolution keeps a file-path -> parsed Program table built by recursively
// descending into each import before the importing file's own statements
// are evaluated, the same way a flat name -> value table resolves labels
// built during a single pass, generalized to file-to-file visibility.
// Every resolved module shares a single interp.EvalCtx, so a function
// declared in one file can call a function declared in another without
// re-resolving it; only the names an import statement actually requests are
// checked against that module's `pub` declarations.
package importer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbouchez/linguaiter/internal/ast"
	"github.com/alexisbouchez/linguaiter/internal/diag"
	"github.com/alexisbouchez/linguaiter/internal/interp"
	"github.com/alexisbouchez/linguaiter/internal/parser"
	"github.com/alexisbouchez/linguaiter/internal/token"
)

// importAbort unwinds straight out of recursive resolution on the first
// fatal error, mirroring parser.parseAbort and interp.abortEval: an import
// cycle, a missing file, or an unknown public name all terminate compilation
// immediately, so there is no recovery path worth threading as return values.
type importAbort struct{}

type cachedModule struct {
	prog  *ast.Program
	scope *interp.Scope
}

// Resolver drives depth-first import resolution for one compilation.
type Resolver struct {
	Ctx   *interp.EvalCtx
	diags *diag.Bag
	cache map[string]*cachedModule
	stack []string // resolved absolute paths currently being loaded, for cycle detection
}

// NewResolver creates a Resolver that merges every resolved module's
// declarations into ctx.
func NewResolver(ctx *interp.EvalCtx, diags *diag.Bag) *Resolver {
	return &Resolver{Ctx: ctx, diags: diags, cache: make(map[string]*cachedModule)}
}

func (r *Resolver) fail(pos token.Position, format string, args ...interface{}) {
	r.diags.Errorf(pos, format, args...)
	panic(importAbort{})
}

// Load parses path, resolves its imports depth-first, merges its
// declarations into the shared EvalCtx, evaluates its own top-level
// statements, and returns its program and the scope its top-level variables
// live in. Load is the entry point for the root source file; nested imports
// go through the unexported load.
func (r *Resolver) Load(path string) (prog *ast.Program, scope *interp.Scope, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(importAbort); ok {
				err = r.diags
				return
			}
			panic(rec)
		}
	}()
	prog, scope = r.load(path, token.Position{})
	return prog, scope, nil
}

func (r *Resolver) load(path string, requestedFrom token.Position) (*ast.Program, *interp.Scope) {
	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		r.fail(requestedFrom, "cannot resolve path %q: %s", path, aerr)
	}
	if cached, ok := r.cache[abs]; ok {
		return cached.prog, cached.scope
	}
	for _, onStack := range r.stack {
		if onStack == abs {
			r.fail(requestedFrom, "cyclic import involving %q", path)
		}
	}

	src, rerr := os.ReadFile(abs)
	if rerr != nil {
		r.fail(requestedFrom, "cannot read %q: %s", path, rerr)
	}

	r.diags.PushFile(abs, src)
	defer r.diags.PopFile()

	prog, perr := parser.Parse(abs, src)
	if perr != nil {
		if pe, ok := perr.(*parser.Error); ok {
			r.fail(pe.Pos, "%s", pe.Msg)
		}
		r.fail(requestedFrom, "%s", perr)
	}

	r.stack = append(r.stack, abs)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	scope := interp.NewScope(nil)
	r.processImports(prog, filepath.Dir(abs), scope)

	if err := r.Ctx.CollectDecls(prog.Stmts); err != nil {
		panic(importAbort{})
	}
	if err := r.Ctx.EvalTopLevelStmts(topLevelVars(prog.Stmts), scope); err != nil {
		panic(importAbort{})
	}

	r.cache[abs] = &cachedModule{prog: prog, scope: scope}
	return prog, scope
}

// processImports resolves every import statement in prog, regardless of
// where it appears among prog's other top-level statements, before anything
// in prog itself is evaluated. Resolved public variables are declared
// directly into scope, the importing file's own top-level scope.
func (r *Resolver) processImports(prog *ast.Program, dir string, scope *interp.Scope) {
	for _, st := range prog.Stmts {
		imp, ok := st.(*ast.Import)
		if !ok {
			continue
		}
		if strings.HasPrefix(imp.Path, "std/") {
			r.resolveStdlibImport(imp)
			continue
		}
		r.resolveFileImport(imp, dir, scope)
	}
}

func (r *Resolver) resolveStdlibImport(imp *ast.Import) {
	if imp.Path != "std/string" {
		r.fail(imp.Loc(), "unknown stdlib module %q", imp.Path)
	}
	known := make(map[string]bool)
	for _, n := range interp.StdlibStringNames() {
		known[n] = true
	}
	for _, name := range imp.Names {
		if !known[name] {
			r.fail(imp.Loc(), "%q is not exported by %q", name, imp.Path)
		}
	}
	r.Ctx.ImportStdlibString(imp.Names)
}

// resolveFileImport resolves a non-stdlib import path relative to dir (the
// importing file's directory), trying the literal path first and falling
// back to appending ".lingua" when the path has no extension of its own.
func (r *Resolver) resolveFileImport(imp *ast.Import, dir string, scope *interp.Scope) {
	target := filepath.Join(dir, imp.Path)
	if _, err := os.Stat(target); err != nil {
		withExt := target
		if filepath.Ext(target) == "" {
			withExt = target + ".lingua"
		}
		if _, err2 := os.Stat(withExt); err2 != nil {
			r.fail(imp.Loc(), "cannot resolve import %q", imp.Path)
		}
		target = withExt
	}

	modProg, modScope := r.load(target, imp.Loc())

	for _, name := range imp.Names {
		kind, pub := findTopLevelDecl(modProg, name)
		switch kind {
		case declNone:
			r.fail(imp.Loc(), "%q has no member %q", imp.Path, name)
		case declFunc, declClass:
			if !pub {
				r.fail(imp.Loc(), "%q is not public in %q", name, imp.Path)
			}
			// Already globally resolvable: merged into the shared EvalCtx's
			// Functions/Classes tables when the module was loaded above.
		case declVar:
			if !pub {
				r.fail(imp.Loc(), "%q is not public in %q", name, imp.Path)
			}
			sym, ok := modScope.LookupLocal(name)
			if !ok {
				r.fail(imp.Loc(), "internal error: public variable %q missing from %q", name, imp.Path)
			}
			scope.Declare(&interp.Symbol{
				Name: sym.Name, Value: sym.Value, Type: sym.Type, IsConst: sym.IsConst, Pos: imp.Loc(),
			})
		}
	}
}

type declKind int

const (
	declNone declKind = iota
	declFunc
	declClass
	declVar
)

// findTopLevelDecl looks for name among prog's own top-level declarations
// (not its imports' declarations) and reports whether it is `pub`.
func findTopLevelDecl(prog *ast.Program, name string) (declKind, bool) {
	for _, st := range prog.Stmts {
		switch s := st.(type) {
		case *ast.FuncDecl:
			if s.Name == name {
				return declFunc, s.Pub
			}
		case *ast.ClassDecl:
			if s.Name == name {
				return declClass, s.Pub
			}
		case *ast.VarDecl:
			if s.Name == name {
				return declVar, s.Pub
			}
		}
	}
	return declNone, false
}

func topLevelVars(stmts []ast.Stmt) []ast.Stmt {
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
