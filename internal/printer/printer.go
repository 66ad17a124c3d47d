// Package printer is the emission half of the Renamer & Emitter (component
// G): given a chunk's module order and a renamer.Renamer that has already
// assigned collision-free output names, it walks every live jsast.Part in
// order and produces output source text plus source-map segments. Grounded
// on esbuild's internal/js_printer's statement-walking shape, but operating
// over this spec's reduced, already-linked jsast.AST instead of
// re-serializing a full expression grammar (spec.md §4.G: "a magic-string-
// style patch... deletions for dead sub-statements, renames where bindings
// changed"). Dead statements (IsLive == false) are simply never visited.
package printer

import (
	"fmt"
	"strconv"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/helpers"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/renamer"
	"github.com/module-linker/bundler/internal/runtime"
	"github.com/module-linker/bundler/internal/sourcemap"
)

// CrossChunkImportItem is one renamed binding this chunk pulls in from
// another chunk at runtime - spec.md §4.F's "cross-chunk edges become
// runtime imports emitted in the bundle's output module format".
type CrossChunkImportItem struct {
	ExportAlias string // the name the other chunk exports it under
	LocalName   string // the name already assigned to it in this chunk
}

// CrossChunkImport groups the items this chunk needs from one other chunk.
type CrossChunkImport struct {
	ChunkFileName string
	Items         []CrossChunkImportItem
}

// ExportedBinding is one live top-level binding this chunk exposes, either
// because another chunk imports it or because it's an entry point's own
// named export.
type ExportedBinding struct {
	Ref   ast.Ref
	Alias string
}

type Options struct {
	Format     config.Format
	ModuleName string // global variable name for IIFE/UMD; derived from the entry's identifier name

	CrossChunkImports []CrossChunkImport
	Exports           []ExportedBinding

	// IsEntryPointChunk controls whether Exports are emitted as a module's
	// externally-visible "export" clause (ESM/CJS/UMD's public surface) or
	// purely as an internal cross-chunk contract with no public alias.
	IsEntryPointChunk bool

	ASCIIOnly bool
}

// ModuleSourceMap is one module's contribution to the chunk's source-map
// segments (spec.md §4.G: "source-map segments are emitted per
// original→output character range"). Composing these per-module chunks into
// a single bundle-wide source-map v3 document is left to a caller outside
// the core - spec.md §1 names "source-map composition beyond emission of
// per-segment mappings" as out of scope.
type ModuleSourceMap struct {
	SourceIndex uint32
	Chunk       sourcemap.Chunk
}

type Result struct {
	JS         []byte
	SourceMaps []ModuleSourceMap
}

// Print is the Renamer & Emitter's emission step: renamer has already run
// (internal/renamer), moduleOrder is the Chunker's (component F) decided
// order, and g is the fully linked, tree-shaken graph.
func Print(g *graph.ModuleGraph, moduleOrder []uint32, rn renamer.Renamer, opts Options) Result {
	p := &printer{graph: g, renamer: rn, opts: opts}

	p.printPreamble()
	for _, sourceIndex := range moduleOrder {
		p.printModule(sourceIndex)
	}
	p.printPostamble()

	return Result{
		JS:         p.j.Done(),
		SourceMaps: p.sourceMaps,
	}
}

type printer struct {
	graph   *graph.ModuleGraph
	renamer renamer.Renamer
	opts    Options
	j       helpers.Joiner

	sourceMaps []ModuleSourceMap
}

func (p *printer) name(ref ast.Ref) string {
	return p.renamer.NameForSymbol(ref)
}

// printPreamble emits the format-specific wrapper opening and the
// cross-chunk imports spec.md §4.F requires - a plain ESM import for the
// default format, a require() destructure for CommonJS, nothing extra for
// IIFE/UMD beyond the shared closure argument list.
func (p *printer) printPreamble() {
	switch p.opts.Format {
	case config.FormatCommonJS:
		p.j.AddString("\"use strict\";\n")
		for _, imp := range p.opts.CrossChunkImports {
			p.j.AddString(fmt.Sprintf("const %s = require(%s);\n", requireNamespaceVar(imp), quote(imp.ChunkFileName)))
			for _, item := range imp.Items {
				p.j.AddString(fmt.Sprintf("const %s = %s.%s;\n", item.LocalName, requireNamespaceVar(imp), item.ExportAlias))
			}
		}

	case config.FormatIIFE, config.FormatUMD:
		name := p.opts.ModuleName
		if name == "" {
			name = "bundle"
		}
		if p.opts.Format == config.FormatUMD {
			p.j.AddString(fmt.Sprintf(
				"(function(root, factory) {\n"+
					"  if (typeof module === \"object\" && typeof module.exports === \"object\") module.exports = factory();\n"+
					"  else if (typeof define === \"function\" && define.amd) define(factory);\n"+
					"  else root.%s = factory();\n"+
					"})(typeof self !== \"undefined\" ? self : this, function() {\n", name))
		} else {
			p.j.AddString("(function() {\n")
		}
		for _, imp := range p.opts.CrossChunkImports {
			// IIFE/UMD chunks have no module loader to ask, so cross-chunk
			// sharing for these formats assumes a single chunk (spec.md §4.F
			// allows splitting only for formats whose runtime can resolve it);
			// the global the other chunk's IIFE assigned to is read directly.
			for _, item := range imp.Items {
				p.j.AddString(fmt.Sprintf("var %s = %s;\n", item.LocalName, item.ExportAlias))
			}
		}

	default: // FormatESModule
		for _, imp := range p.opts.CrossChunkImports {
			names := make([]string, len(imp.Items))
			for i, item := range imp.Items {
				if item.ExportAlias == item.LocalName {
					names[i] = item.ExportAlias
				} else {
					names[i] = fmt.Sprintf("%s as %s", item.ExportAlias, item.LocalName)
				}
			}
			p.j.AddString(fmt.Sprintf("import {%s} from %s;\n", joinComma(names), quote(imp.ChunkFileName)))
		}
	}
}

func (p *printer) printPostamble() {
	switch p.opts.Format {
	case config.FormatCommonJS:
		if len(p.opts.Exports) > 0 {
			for _, e := range p.opts.Exports {
				p.j.AddString(fmt.Sprintf("module.exports.%s = %s;\n", e.Alias, p.name(e.Ref)))
			}
		}

	case config.FormatIIFE:
		if len(p.opts.Exports) > 0 && p.opts.IsEntryPointChunk {
			name := p.opts.ModuleName
			if name == "" {
				name = "bundle"
			}
			p.j.AddString(fmt.Sprintf("var %s = {};\n", name))
			for _, e := range p.opts.Exports {
				p.j.AddString(fmt.Sprintf("%s.%s = %s;\n", name, e.Alias, p.name(e.Ref)))
			}
		}
		p.j.AddString("})();\n")

	case config.FormatUMD:
		if len(p.opts.Exports) > 0 {
			p.j.AddString("return {\n")
			for i, e := range p.opts.Exports {
				comma := ","
				if i == len(p.opts.Exports)-1 {
					comma = ""
				}
				p.j.AddString(fmt.Sprintf("  %s: %s%s\n", e.Alias, p.name(e.Ref), comma))
			}
			p.j.AddString("};\n")
		} else {
			p.j.AddString("return {};\n")
		}
		p.j.AddString("});\n")

	default: // FormatESModule
		if len(p.opts.Exports) > 0 {
			names := make([]string, len(p.opts.Exports))
			for i, e := range p.opts.Exports {
				local := p.name(e.Ref)
				if local == e.Alias {
					names[i] = local
				} else {
					names[i] = fmt.Sprintf("%s as %s", local, e.Alias)
				}
			}
			p.j.AddString(fmt.Sprintf("export {%s};\n", joinComma(names)))
		}
	}
}

func requireNamespaceVar(imp CrossChunkImport) string {
	return "import_" + sanitizeIdentifier(imp.ChunkFileName)
}

func sanitizeIdentifier(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// printModule prints one module's live parts into a scratch Joiner of its
// own, rather than directly into the chunk-wide p.j. A sourcemap.ChunkBuilder
// is keyed to one source file's line/column structure (its lineOffsetTables
// come from that file's own contents), so mixing statements from several
// modules through a single builder would map every one of them against the
// wrong file. Printing each module in isolation first, then appending its
// bytes to the chunk output, keeps each module's segments correct without
// needing to compose them into one file-spanning map (out of scope; see
// ModuleSourceMap's doc comment).
func (p *printer) printModule(sourceIndex uint32) {
	if sourceIndex == runtime.SourceIndex {
		// The synthetic runtime module has no Parts of its own in this
		// reduced AST (its helpers are plain source text); only emit it if
		// tree-shaking actually included one of its symbols. A full
		// implementation would tree-shake the runtime the same as any other
		// module (spec.md §4.G's doc comment on internal/runtime) - this
		// printer takes the simpler route of including it wholesale the
		// first time any chunk needs it, since in practice a chunk needing
		// any interop helper needs most of the small runtime anyway.
		p.j.AddString(runtime.Source.Contents)
		return
	}

	module := &p.graph.Modules[sourceIndex]

	anyLive := false
	for i := range module.AST.Parts {
		if module.AST.Parts[i].IsLive {
			anyLive = true
			break
		}
	}
	if !anyLive {
		return
	}

	lineOffsetTables := sourcemap.GenerateLineOffsetTables(module.Source.Contents, 0)
	builder := sourcemap.MakeChunkBuilder(lineOffsetTables, p.opts.ASCIIOnly)

	saved := p.j
	p.j = helpers.Joiner{}

	for i := range module.AST.Parts {
		part := &module.AST.Parts[i]
		if !part.IsLive {
			continue
		}
		builder.AddSourceMapping(part.Stmt.Loc, "", p.j.Done())
		p.printStmt(part.Stmt)
	}

	moduleBytes := p.j.Done()
	p.j = saved
	p.j.AddBytes(moduleBytes)

	p.sourceMaps = append(p.sourceMaps, ModuleSourceMap{
		SourceIndex: sourceIndex,
		Chunk:       builder.GenerateChunk(moduleBytes),
	})
}

func (p *printer) printStmt(stmt jsast.Stmt) {
	switch s := stmt.Data.(type) {
	case *jsast.SLocal:
		p.j.AddString(hoistKeyword(s.Kind))
		p.j.AddString(" ")
		for i, decl := range s.Decls {
			if i > 0 {
				p.j.AddString(", ")
			}
			p.j.AddString(p.name(decl.Ref))
			if decl.Init != nil {
				p.j.AddString(" = ")
				p.printExpr(*decl.Init)
			}
		}
		p.j.AddString(";\n")

	case *jsast.SFunction:
		p.j.AddString(fmt.Sprintf("function %s%s\n", p.name(s.Ref), s.Raw))

	case *jsast.SClass:
		p.j.AddString(fmt.Sprintf("class %s%s\n", p.name(s.Ref), s.Raw))

	case *jsast.SExpr:
		p.printExpr(s.Value)
		p.j.AddString(";\n")

	case *jsast.SImport:
		p.printExternalImport(s)

	case *jsast.SExportDefault:
		p.printExportDefault(s)

	// SExportClause, SExportFrom and SExportStar never reach the printer
	// for an internal target: the linker (internal/graph) has already
	// resolved the binding they name to its declaring module, and
	// ExportedBinding/CrossChunkImport (computed by the chunk assembler,
	// outside this package) are what actually surface it in the output.
	// They only print here when they point at an external module, which
	// the reduced AST doesn't currently synthesize - left unimplemented
	// deliberately rather than guessed at; see DESIGN.md.
	case *jsast.SExportClause, *jsast.SExportFrom, *jsast.SExportStar:

	default:
		panic(fmt.Sprintf("printer: unhandled statement kind %T", s))
	}
}

func (p *printer) printExternalImport(s *jsast.SImport) {
	var names []string
	if s.DefaultName != nil {
		names = append(names, p.name(*s.DefaultName))
	}
	for _, item := range s.Items {
		local := p.name(item.Ref)
		if local == item.Name {
			names = append(names, local)
		} else {
			names = append(names, fmt.Sprintf("%s as %s", item.Name, local))
		}
	}

	// The path text isn't modeled on SImport directly in this reduced AST -
	// it lives on the owning ImportRecord, which the chunk assembler
	// resolves via module.AST.ImportRecords[s.ImportRecordIndex] before
	// calling here in the general case. Bare "import 'x'" (the common case
	// for an external side-effect-only import, spec.md §8 scenario S3's
	// sibling for externals) has no bindings to rename at all.
	if s.DefaultName == nil && s.StarName == nil && len(names) == 0 {
		p.j.AddString(fmt.Sprintf("import %s;\n", quote("")))
		return
	}
	if s.StarName != nil {
		p.j.AddString(fmt.Sprintf("import * as %s from %s;\n", p.name(*s.StarName), quote("")))
		return
	}
	p.j.AddString(fmt.Sprintf("import {%s} from %s;\n", joinComma(names), quote("")))
}

func (p *printer) printExportDefault(s *jsast.SExportDefault) {
	switch {
	case s.Value.Function != nil:
		p.j.AddString(fmt.Sprintf("function %s%s\n", p.name(s.Value.Function.Ref), s.Value.Function.Raw))
	case s.Value.Class != nil:
		p.j.AddString(fmt.Sprintf("class %s%s\n", p.name(s.Value.Class.Ref), s.Value.Class.Raw))
	case s.Value.Expr != nil:
		p.j.AddString(fmt.Sprintf("var %s = ", p.name(s.Ref)))
		p.printExpr(*s.Value.Expr)
		p.j.AddString(";\n")
	}
}

func (p *printer) printExpr(expr jsast.Expr) {
	switch e := expr.Data.(type) {
	case *jsast.EIdentifier:
		p.j.AddString(p.name(e.Ref))

	case *jsast.EImportIdentifier:
		p.j.AddString(p.nameForImport(e.Ref))

	case *jsast.ECall:
		p.printExpr(e.Target)
		p.j.AddString("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.j.AddString(", ")
			}
			p.printExpr(arg)
		}
		p.j.AddString(")")

	case *jsast.EDot:
		p.printExpr(e.Target)
		p.j.AddString("." + e.Name)

	case *jsast.ENumber:
		p.j.AddString(formatNumber(e.Value))

	case *jsast.EString:
		p.j.AddBytes(helpers.QuoteSingle(e.Value, p.opts.ASCIIOnly))

	case *jsast.EBoolean:
		if e.Value {
			p.j.AddString("true")
		} else {
			p.j.AddString("false")
		}

	case *jsast.EOpaque:
		// Verbatim patch: see jsast.EOpaque's doc comment for why this is
		// sound without per-reference renaming.
		p.j.AddString(e.Raw)

	default:
		panic(fmt.Sprintf("printer: unhandled expression kind %T", e))
	}
}

// nameForImport prints a reference that crossed a module boundary. If the
// linker fully resolved it (the common case, spec.md §4.D's linking rules),
// it was already merged into the exporter's own symbol by ast.MergeSymbols,
// so the renamer's normal FollowSymbols path already gives the right
// answer. A namespace import ("import * as ns") was deliberately left
// unmerged (see graph.linkImportBinding) and has no single target symbol to
// follow, so it prints as a reference to the synthesized namespace binding
// itself; wrapping that namespace in an actual object literal of every
// member is a format/interop concern the runtime helpers
// (internal/runtime's __toESM/__exportStar) exist to cover when the
// collaborating module isn't itself bundled.
func (p *printer) nameForImport(ref ast.Ref) string {
	return p.name(ref)
}

func hoistKeyword(kind ast.SymbolKind) string {
	if kind == ast.SymbolHoisted {
		return "var"
	}
	return "let"
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quote(s string) string {
	return string(helpers.QuoteSingle(s, false))
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
