// Package jsast is the reduced, already-scope-resolved AST shape that the
// core consumes. spec.md §1 is explicit that the real JavaScript parser is
// an external collaborator - the core "consumes an ESTree-shaped AST and
// produces emitted source text, but does not itself implement lexing or
// expression parsing". This package is that consumption boundary: a loader
// plugin (or the bundled reference adapter in internal/jsparser)
// is expected to hand back a tree shaped like this, with every identifier
// reference already tagged with its resolving ast.Ref by the Scope &
// Binding Analyzer.
//
// Node kinds are modeled as a tagged-variant/sum type (an "E"/"S" marker
// interface plus a concrete payload struct per kind), not as an OO class
// hierarchy - the open-extension point for new syntax is the external
// parser, not subclassing nodes here.
package jsast

import (
	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/logger"
)

type Expr struct {
	Loc  logger.Loc
	Data E
}

type E interface{ isExpr() }

// EIdentifier references a local or cross-scope binding.
type EIdentifier struct{ Ref ast.Ref }

// EImportIdentifier references a binding imported from another module. It's
// kept distinct from EIdentifier (mirroring the teacher's own split) because
// after linking it may need to print as a namespace property access instead
// of a bare name, depending on the target module format.
type EImportIdentifier struct {
	Ref          ast.Ref
	WasOriginallyIdentifier bool
}

// ECall models any call expression. Target and Args are only inspected by
// the side-effect classifier (spec.md §4.C) and the liveness engine's
// reference propagation (spec.md §4.E) - they are not evaluated.
type ECall struct {
	Target     Expr
	Args       []Expr
	IsPureCall bool // set when the callee's name is in config.PureFunctions; "/* @__PURE__ */" comments are not read
}

// EDot is a static member access "target.name", such as a dotted call
// target. The liveness engine does not narrow "import * as ns" usage by it:
// a live namespace import keeps every named export of its target live.
type EDot struct {
	Target Expr
	Name   string
}

type ENumber struct{ Value float64 }
type EString struct{ Value string }
type EBoolean struct{ Value bool }

// EOpaque is a catch-all leaf for expression shapes this reduced AST does
// not model in detail (object/array literals, arrow functions, templates,
// ...). It still carries the set of Refs the real expression touches so the
// liveness engine's reference propagation stays sound without needing a
// full expression-kind enumeration. Raw is the verbatim original source text
// for the expression; since renaming a Ref embedded inside it would need a
// byte range per reference that this reduced shape doesn't track, the
// printer (component G) emits Raw unchanged. This is sound precisely because
// ReferencedRefs is only used for liveness/reachability: anything complex
// enough to fall into EOpaque is expected (by construction of the parser
// adapter) to only reference names that keep their original spelling
// (globals, or bindings the renamer happens not to need to rename).
type EOpaque struct {
	ReferencedRefs []ast.Ref
	Raw            string
}

func (EIdentifier) isExpr()       {}
func (EImportIdentifier) isExpr() {}
func (ECall) isExpr()             {}
func (EDot) isExpr()              {}
func (ENumber) isExpr()           {}
func (EString) isExpr()           {}
func (EBoolean) isExpr()          {}
func (EOpaque) isExpr()           {}

type Stmt struct {
	Loc  logger.Loc
	Data S
}

type S interface{ isStmt() }

// SLocal is a "var"/"let"/"const" declaration with zero or more declarators.
type SLocal struct {
	Kind        ast.SymbolKind
	Decls       []Decl
	IsExported  bool
}

type Decl struct {
	Ref  ast.Ref
	Init *Expr // nil if there is no initializer
}

// SFunction and SClass are always classified side-effect-free declarations
// per spec.md §4.C(b), regardless of their body.
type SFunction struct {
	Ref        ast.Ref
	IsExported bool

	// Raw is the verbatim "(params) { body }" source text following the
	// declared name, patched in unchanged by the printer - the same
	// verbatim-patch convention EOpaque documents, applied to a function
	// body instead of an expression so a declaration's actual behavior
	// survives bundling rather than being reduced to an empty stub.
	Raw string
}
type SClass struct {
	Ref        ast.Ref
	IsExported bool

	// Raw is the verbatim "extends ... { body }" source text following the
	// declared name; see SFunction.Raw.
	Raw string
}

// SExpr is a bare expression statement, e.g. a top-level "console.log(x)" or
// a polyfill's IIFE. Side-effect classification runs the Expr through the
// same call/pure-callee rule as initializers.
type SExpr struct{ Value Expr }

// SImport is a static "import ... from 'specifier'" declaration. ImportRecordIndex
// indexes into AST.ImportRecords. Items is empty for a bare "import 'x'".
type SImport struct {
	ImportRecordIndex uint32
	DefaultName       *ast.Ref
	StarName          *ast.Ref
	Items             []ClauseItem
}

// SExportClause is "export { a, b as c }" with no "from" clause.
type SExportClause struct {
	Items []ClauseItem
}

// SExportFrom is "export { a, b as c } from 'specifier'".
type SExportFrom struct {
	ImportRecordIndex uint32
	Items             []ClauseItem
}

// SExportStar is "export * from 'specifier'" or, with Alias set,
// "export * as ns from 'specifier'".
type SExportStar struct {
	ImportRecordIndex uint32
	Alias             *string
}

// SExportDefault wraps either a named function/class declaration or an
// arbitrary expression following "export default".
type SExportDefault struct {
	Ref   ast.Ref // the synthetic "default" binding
	Value ExportDefaultValue
}

type ExportDefaultValue struct {
	Expr     *Expr
	Function *SFunction
	Class    *SClass
}

// ClauseItem is one "name" or "name as alias" entry in an import/export
// clause.
type ClauseItem struct {
	Alias        string
	Name         string
	Ref          ast.Ref
	AliasLoc     logger.Loc
}

func (SLocal) isStmt()          {}
func (SFunction) isStmt()       {}
func (SClass) isStmt()          {}
func (SExpr) isStmt()           {}
func (SImport) isStmt()         {}
func (SExportClause) isStmt()   {}
func (SExportFrom) isStmt()     {}
func (SExportStar) isStmt()     {}
func (SExportDefault) isStmt()  {}

type SymbolUse struct {
	CountEstimate uint32
}

type Dependency struct {
	SourceIndex uint32
	PartIndex   uint32
}

type DeclaredSymbol struct {
	Ref        ast.Ref
	IsTopLevel bool
}

// Part is one independently-tree-shakeable slice of a module's top-level
// statements - spec.md's Statement record, grouped so that declarations and
// the expressions inside them move (or get dropped) together. Every
// top-level statement in a parsed module belongs to exactly one Part.
type Part struct {
	Stmt Stmt

	DeclaredSymbols []DeclaredSymbol
	SymbolUses      map[ast.Ref]SymbolUse

	// Other parts (possibly in other modules, once linked) this part's
	// statement can't be dropped without: its own declarations' dependents,
	// or an upstream re-export's source.
	Dependencies []Dependency

	// True iff this is a pure declaration with a pure initializer, a
	// function/class declaration, or an import/export declaration - the
	// three side-effect-free shapes named in spec.md §4.C.
	CanBeRemovedIfUnused bool

	// Flipped true by the liveness engine; monotonic, never reset.
	IsLive bool
}

// NamespaceAlias records that a symbol is really "import * as ns" member
// access rather than a plain top-level binding. The reference parser leaves
// AST.NamespaceAliases empty, and neither the renamer nor the printer reads it.
type NamespaceAlias struct {
	NamespaceRef ast.Ref
	Alias        string
}

// AST is the per-module parse result instantiated by the Module Loader
// (component B) once the external parser adapter and the Scope & Binding
// Analyzer (component C) have both run.
type AST struct {
	ModuleScope   *ast.Scope
	Parts         []Part
	ImportRecords []ast.ImportRecord

	// Every export this module declares, keyed by its exported name -
	// spec.md's Module.exports map. Named re-exports and "export * as ns"
	// are recorded here too (see ExportKind) and resolved by the Module
	// Graph Builder's linking pass; a plain "export *" is recorded in
	// ExportStars instead.
	NamedExports map[string]ExportEntry

	// "export *" sources this module doesn't itself resolve locally -
	// spec.md's Module.star_reexports, expanded lazily by the graph builder.
	ExportStars []uint32 // indices into ImportRecords

	NamespaceAliases map[ast.Ref]NamespaceAlias

	HasLazyExportSideEffect bool
}

type ExportKind uint8

const (
	ExportLocal ExportKind = iota
	ExportReexport
)

// ExportEntry is spec.md's ExportRecord. A Local export names the Ref of
// the binding it exports (needed so the liveness engine can seed from it); a
// Reexport defers resolution to another module's export table.
type ExportEntry struct {
	Kind ExportKind
	Ref  ast.Ref // valid only when Kind == ExportLocal

	ImportRecordIndex uint32 // valid only when Kind == ExportReexport
	ImportedName      string // valid only when Kind == ExportReexport

	AliasLoc logger.Loc
}
