package graph

import (
	"context"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/module-linker/bundler/internal/resolver"
)

// ResolveFunc adapts the Identifier & Path Resolver (component A) into the
// narrow shape the builder calls it with.
type ResolveFunc func(specifier, importerID string) (resolver.ResolvedID, error)

// LoadFunc adapts the Module Loader (component B) the same way. symbols is
// where the parser adapter declares every binding it finds into, via
// internal/scope.Builder; the caller folds it into the graph's own symbol
// table once the load reports back (see scheduleIfNew).
type LoadFunc func(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*Module, []logger.Msg, error)

// parseResult is what a load goroutine sends back to the single goroutine
// that owns the graph - grounded on esbuild's own scanner.resultChannel
// fan-in. Resolving and
// reading+parsing a file is the part that happens in parallel; deciding what
// index it gets and what to scan next happens back on one goroutine only.
type parseResult struct {
	index   uint32
	module  *Module
	symbols []ast.Symbol
	msgs    []logger.Msg
	err     error
}

// Builder is the Module Graph Builder (component D): starting from a set of
// entry points, it demand-drives resolve+load over every import it
// discovers, builds one ModuleGraph, and links import/export bindings once
// every reachable module has finished loading. Grounded on esbuild's
// bundler.go scan loop: a single goroutine owns "visited"/the graph itself
// and only ever reads results off a channel; the resolve+read+parse work
// that can safely run in parallel is dispatched into its own goroutine per
// file and reports back instead of mutating the graph directly (spec.md §5:
// "cooperative single-logical-thread orchestration with parallel I/O").
type Builder struct {
	resolve ResolveFunc
	load    LoadFunc

	graph *ModuleGraph
	msgs  []logger.Msg

	// visited is spec.md §4.D rule 3's cycle-tolerance mechanism: an id
	// already present here has been assigned its index and a load has been
	// dispatched for it, whether or not that load has reported back yet.
	// Scheduling an import whose target is still "in construction" just
	// returns its already-allocated index instead of waiting on it or
	// re-dispatching it, so an import cycle links (an edge between two
	// not-yet-finished modules) instead of deadlocking.
	visited map[string]uint32

	results   chan parseResult
	remaining int
}

func NewBuilder(resolve ResolveFunc, load LoadFunc) *Builder {
	return &Builder{
		resolve: resolve,
		load:    load,
		graph:   NewModuleGraph(),
		visited: make(map[string]uint32),
		results: make(chan parseResult),
	}
}

// Build is spec.md §4.D's contract: scan every entry point and everything
// they transitively import, then link. Entry points keep the order they
// were given in (spec.md §3's "entry ids in user order").
func (b *Builder) Build(ctx context.Context, entryPaths []string) (*ModuleGraph, []logger.Msg) {
	type pendingEntry struct {
		outputPath string
		index      uint32
	}
	var pendingEntries []pendingEntry

	for _, specifier := range entryPaths {
		resolved, err := b.resolve(specifier, "")
		if err != nil {
			b.addMsg(logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: err.Error()}})
			continue
		}
		index := b.scheduleIfNew(ctx, resolved.ID)
		pendingEntries = append(pendingEntries, pendingEntry{outputPath: resolved.ID, index: index})
	}

	for b.remaining > 0 {
		result := <-b.results
		b.remaining--
		b.handleResult(ctx, result)
	}

	for _, pe := range pendingEntries {
		b.graph.EntryPoints = append(b.graph.EntryPoints, EntryPoint{
			OutputPath:  pe.outputPath,
			SourceIndex: pe.index,
			Kind:        EntryPointUserSpecified,
		})
		b.graph.Meta[pe.index].EntryPointKind = EntryPointUserSpecified
	}

	b.link()

	return b.graph, b.msgs
}

// scheduleIfNew allocates id's graph slot the first time it's seen and
// kicks off its load in a new goroutine, all on the single graph-owning
// goroutine - so "visited" can be a plain map, no lock required. Called
// again for an id already in flight just returns its existing index.
func (b *Builder) scheduleIfNew(ctx context.Context, id string) uint32 {
	if index, ok := b.visited[id]; ok {
		return index
	}

	index, _ := b.graph.IndexForID(id)
	b.visited[id] = index
	b.remaining++

	// symbols is a goroutine-local slice, not a pointer into the graph's own
	// (still-growing) symbol table: scheduleIfNew can itself be called again
	// while this load is still in flight, which may grow
	// Symbols.SymbolsForSource and reallocate its backing array. The load
	// goroutine's result is only folded into the graph by handleResult, back
	// on the single goroutine that owns it, once that growth has settled.
	go func() {
		var symbols []ast.Symbol
		module, msgs, err := b.load(ctx, id, index, &symbols)
		b.results <- parseResult{index: index, module: module, symbols: symbols, msgs: msgs, err: err}
	}()

	return index
}

// handleResult runs on the single graph-owning goroutine: it stores the
// loaded module, then resolves every import record it declares, scheduling
// each target's load the same way - this is how the scan fans out level by
// level until the results channel runs dry.
func (b *Builder) handleResult(ctx context.Context, result parseResult) {
	for _, m := range result.msgs {
		b.addMsg(m)
	}
	if result.err != nil {
		b.addMsg(logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: result.err.Error()}})
		return
	}

	module := result.module
	module.Dependencies = make([]ast.Index32, len(module.AST.ImportRecords))
	b.graph.Modules[result.index] = *module
	b.graph.Symbols.SymbolsForSource[result.index] = result.symbols

	importerID := b.graph.IDForIndex(result.index)
	for i, record := range module.AST.ImportRecords {
		resolved, err := b.resolve(record.Path.Text, importerID)
		if err != nil {
			b.addMsg(logger.Msg{Kind: logger.Error, Data: logger.MsgData{
				Text:     err.Error(),
				Location: &logger.MsgLocation{File: importerID},
			}})
			continue
		}
		if resolved.IsExternal() {
			continue
		}

		targetIndex := b.scheduleIfNew(ctx, resolved.ID)
		b.graph.Modules[result.index].Dependencies[i] = ast.MakeIndex32(targetIndex)

		if resolved.SideEffects != nil {
			b.graph.Modules[targetIndex].SideEffects = SideEffects{
				Kind: NoSideEffects_PackageJSON,
				Data: resolved.SideEffects,
			}
		}
	}
}

func (b *Builder) addMsg(msg logger.Msg) {
	b.msgs = append(b.msgs, msg)
}

// link implements spec.md §4.D's three linking rules over the fully-scanned
// graph: a named import binds to the exporter's local declaration or fails
// with MISSING_EXPORT; "export *" merges every named export not already
// declared locally, with a name claimed by more than one star-reexport
// silently dropped rather than reported (spec.md's stated ambiguity rule);
// a default export is never included by a "export *" re-export.
func (b *Builder) link() {
	for i := range b.graph.Modules {
		module := &b.graph.Modules[i]
		for ref := range b.graph.Symbols.SymbolsForSource[i] {
			symbol := &b.graph.Symbols.SymbolsForSource[i][ref]
			if symbol.Kind != ast.SymbolImport {
				continue
			}
			b.linkImportBinding(uint32(i), uint32(ref), module, symbol)
		}
	}
}

func (b *Builder) linkImportBinding(sourceIndex, innerIndex uint32, module *Module, symbol *ast.Symbol) {
	// The parser adapter stashes the owning import record's index in
	// ImportSourceIndex ahead of linking; this pass resolves it down to the
	// real target module index, or clears it (InvalidIndex32) on failure.
	if !symbol.ImportSourceIndex.IsValid() {
		return
	}
	recordIndex := symbol.ImportSourceIndex.GetIndex()
	if int(recordIndex) >= len(module.Dependencies) {
		return
	}
	targetIndex32 := module.Dependencies[recordIndex]
	if !targetIndex32.IsValid() {
		// External - nothing to link, the printer leaves this as a runtime import.
		return
	}
	targetIndex := targetIndex32.GetIndex()

	name := symbol.ImportedName
	if name == "" {
		return
	}
	if name == ast.NamespaceImportName {
		// "import * as ns" - there's no single export to chase; the whole
		// target module is the binding. Liveness (component E) and the
		// printer read ImportSourceIndex directly for this case instead of
		// going through a resolved Ref.
		symbol.ImportSourceIndex = ast.MakeIndex32(targetIndex)
		return
	}

	resolvedRef, ok := b.graph.ResolveExport(targetIndex, name, map[uint32]bool{sourceIndex: true})
	if !ok {
		importerSource := &b.graph.Modules[sourceIndex].Source
		targetSource := &b.graph.Modules[targetIndex].Source
		var rangeForErr logger.Range
		if int(recordIndex) < len(module.AST.ImportRecords) {
			rangeForErr = module.AST.ImportRecords[recordIndex].Range
		}
		b.addMsg(logger.Msg{Kind: logger.Error, Data: logger.MsgData{
			Text: (&MissingExportError{
				ImporterID: importerSource.PrettyPath,
				TargetID:   targetSource.PrettyPath,
				Name:       name,
			}).Error(),
			Location: logger.LocationOrNil(importerSource, rangeForErr),
		}})
		symbol.ImportSourceIndex = ast.InvalidIndex32
		return
	}

	symbol.ImportSourceIndex = ast.MakeIndex32(targetIndex)
	ast.MergeSymbols(b.graph.Symbols, resolvedRef, ast.Ref{SourceIndex: sourceIndex, InnerIndex: innerIndex})
}

