// Package scope is the AST Scope & Binding Analyzer (component C). esbuild
// builds scopes and resolves bindings inline while its own parser walks the
// token stream; since this spec's parser is external (spec.md §1), the
// analyzer here is exposed as a standalone Builder that a parser adapter
// drives while it walks whatever concrete syntax tree it produces - push a
// scope on block entry, declare each binding as it's seen, resolve each
// identifier reference, pop the scope on exit. The result is the same
// Scope/SymbolMap/Part shape esbuild's parser produces, grounded on
// esbuild's internal/js_parser scope-handling (visitClass, pushScopeForVisit,
// recordDeclaredSymbol) but factored out as reusable, parser-independent
// operations over internal/ast's Scope and SymbolMap types.
package scope

import (
	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/jsast"
)

// Builder constructs one module's Scope tree and SymbolMap entry while a
// parser adapter walks that module's syntax tree.
type Builder struct {
	SourceIndex uint32
	Symbols     *[]ast.Symbol // per-load slice the caller later stores at SymbolMap.SymbolsForSource[SourceIndex]

	ModuleScope *ast.Scope
	current     *ast.Scope
}

func NewBuilder(sourceIndex uint32, symbols *[]ast.Symbol) *Builder {
	moduleScope := ast.NewScope(ast.ScopeModule, nil)
	return &Builder{
		SourceIndex: sourceIndex,
		Symbols:     symbols,
		ModuleScope: moduleScope,
		current:     moduleScope,
	}
}

// PushScope enters a new lexical region (function body, block, class body).
func (b *Builder) PushScope(kind ast.ScopeKind) *ast.Scope {
	b.current = ast.NewScope(kind, b.current)
	return b.current
}

// PopScope returns to the enclosing scope. Panics (a programmer error, not
// a user-facing one) if called without a matching PushScope - mirrors
// esbuild's own "Internal error" assertions for this class of bug.
func (b *Builder) PopScope() {
	if b.current.Parent == nil {
		panic("scope: PopScope called without a matching PushScope")
	}
	b.current = b.current.Parent
}

// Declare records a new binding in the current scope, hoisting "var"s and
// hoisted functions to the nearest function/module scope per spec.md §4.C.
func (b *Builder) Declare(name string, kind ast.SymbolKind) ast.Ref {
	target := b.current
	if kind.IsHoisted() {
		target = b.current.HoistTarget()
	}

	ref := ast.Ref{SourceIndex: b.SourceIndex, InnerIndex: uint32(len(*b.Symbols))}
	*b.Symbols = append(*b.Symbols, ast.Symbol{OriginalName: name, Kind: kind, Link: ast.InvalidRef})
	target.Members[name] = ref
	return ref
}

// Reference resolves an identifier by lexical lookup from innermost to
// outermost scope (spec.md §4.C). An unresolved name becomes a synthesized
// SymbolUnbound binding at module scope - a global like "console" - so
// every reference always has a Ref to carry, never a bare string.
func (b *Builder) Reference(name string) ast.Ref {
	if ref, ok := b.current.Lookup(name); ok {
		return ref
	}
	if ref, ok := b.ModuleScope.Members[name]; ok {
		return ref
	}
	ref := ast.Ref{SourceIndex: b.SourceIndex, InnerIndex: uint32(len(*b.Symbols))}
	*b.Symbols = append(*b.Symbols, ast.Symbol{OriginalName: name, Kind: ast.SymbolUnbound, Link: ast.InvalidRef})
	b.ModuleScope.Members[name] = ref
	return ref
}

// IsPureFunc reports whether a callee name was configured as a pure
// initializer (spec.md §9 open question, resolved as configuration-driven
// in internal/config.BuildOptions.IsPureFunction).
type IsPureFunc func(calleeName string) bool

// ClassifySideEffectFree implements spec.md §4.C's statement classification:
// a top-level statement is side-effect free iff it is a pure declaration
// with a pure initializer, a function/class declaration, or an
// import/export declaration. Function-call initializers are side-effecting
// unless the callee is flagged pure.
func ClassifySideEffectFree(stmt jsast.Stmt, isPure IsPureFunc) bool {
	switch s := stmt.Data.(type) {
	case *jsast.SImport, *jsast.SExportClause, *jsast.SExportFrom, *jsast.SExportStar:
		return true

	case *jsast.SFunction, *jsast.SClass:
		return true

	case *jsast.SExportDefault:
		if s.Value.Function != nil || s.Value.Class != nil {
			return true
		}
		if s.Value.Expr != nil {
			return exprIsPure(*s.Value.Expr, isPure)
		}
		return true

	case *jsast.SLocal:
		for _, decl := range s.Decls {
			if decl.Init != nil && !exprIsPure(*decl.Init, isPure) {
				return false
			}
		}
		return true

	default:
		// SExpr and anything else at top level is an expression statement:
		// side-effecting unless every expression it contains is pure.
		if e, ok := stmt.Data.(*jsast.SExpr); ok {
			return exprIsPure(e.Value, isPure)
		}
		return false
	}
}

func exprIsPure(expr jsast.Expr, isPure IsPureFunc) bool {
	switch e := expr.Data.(type) {
	case *jsast.EIdentifier, *jsast.EImportIdentifier, *jsast.ENumber, *jsast.EString, *jsast.EBoolean:
		return true

	case *jsast.ECall:
		// spec.md §4.C: "Function-call initializers are side-effecting unless
		// the callee is flagged pure by configuration." IsPureCall is set by
		// the parser adapter after consulting config.BuildOptions.IsPureFunction.
		return e.IsPureCall

	case *jsast.EDot:
		return exprIsPure(e.Target, isPure)

	default:
		// Anything else (EOpaque and unrecognized kinds) is treated
		// conservatively as side-effecting, per spec.md §4.C's default.
		return false
	}
}
