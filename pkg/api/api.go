// Package api is the plugin host surface (§6, external to the core):
// the Plugin/hook shapes the core consumes, BuildOptions/BuildResult, and
// the Build orchestration that wires the Identifier & Path Resolver
// (internal/resolver), the Module Loader (internal/loader), the Module
// Graph Builder (internal/graph), the Liveness/Tree-Shake Engine and
// Chunker (internal/linker), and the Renamer & Emitter (internal/renamer,
// internal/printer) into one `build(entries) -> output artifacts` call.
// Grounded on esbuild's pkg/api, trimmed to the narrow resolveId/load/
// transform contract spec.md §1 names (no render/generateBundle dispatch
// beyond what a caller can already do with BuildResult).
package api

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/linker"
	"github.com/module-linker/bundler/internal/loader"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/module-linker/bundler/internal/printer"
	"github.com/module-linker/bundler/internal/resolver"
)

// Loader mirrors config.Loader at the public surface, so a plugin can name
// one without importing an internal package.
type Loader = config.Loader

const (
	LoaderNone    = config.LoaderNone
	LoaderDefault = config.LoaderDefault
	LoaderJS      = config.LoaderJS
	LoaderJSON    = config.LoaderJSON
	LoaderText    = config.LoaderText
	LoaderFile    = config.LoaderFile
	LoaderCopy    = config.LoaderCopy
)

// ResolveArgs/ResolveResult etc. are the core-facing shapes of spec.md §6's
// plugin hook contract: "resolveId(specifier, importer|null) -> string |
// {id, external?} | null". A nil result means "yield to the next hook" -
// the host tries the next plugin, then the built-in resolver.
type ResolveArgs struct {
	Specifier  string
	ImporterID string
}

type ResolveResult struct {
	ID       string
	External bool
}

type LoadArgs struct {
	ID string
}

type LoadResult struct {
	Code string
}

type TransformArgs struct {
	Code string
	ID   string
}

type TransformResult struct {
	Code string
}

// Plugin is the host-facing registration unit; OnResolve/OnLoad/OnTransform
// map 1:1 to spec.md §6's resolveId/load/transform. A hook returning a nil
// result and a nil error yields to the next plugin (or the default
// behavior); a non-nil error is surfaced as PLUGIN_ERROR tagged with Name.
type Plugin struct {
	Name string

	OnResolve   func(ResolveArgs) (*ResolveResult, error)
	OnLoad      func(LoadArgs) (*LoadResult, error)
	OnTransform func(TransformArgs) (*TransformResult, error)
}

// PluginError is spec.md §6's PLUGIN_ERROR: a hook's error tagged with the
// plugin that threw it.
type PluginError struct {
	PluginName string
	Err        error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("[plugin %s] %s", e.PluginName, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// BuildOptions is config.BuildOptions plus the two collaborators spec.md §1
// calls out as external to the core: the plugin list and the JS parser
// adapter. Parse is required - without it the Module Loader has no way to
// turn source text into the jsast.AST the rest of the pipeline consumes.
type BuildOptions struct {
	config.BuildOptions

	Plugins []Plugin
	Parse   loader.ParseFunc

	// FS overrides the default OS-backed I/O adapter; nil uses fs.RealFS.
	FS fs.FS

	// IgnoreFile is forwarded to fs.RealFS when FS is nil.
	IgnoreFile string

	ASCIIOnly bool
}

// OutputFile is spec.md §6's bundle-output artifact shape: fileName, code,
// and the source-map segments emitted for it (composing those into a
// source-map v3 document is out of scope; see printer.ModuleSourceMap).
type OutputFile struct {
	Path       string
	Contents   []byte
	SourceMaps []printer.ModuleSourceMap
}

type BuildResult struct {
	Outputs  []OutputFile
	Errors   []logger.Msg
	Warnings []logger.Msg
}

// Build is the core's single entry point: resolve+load+analyze (A/B/C) via
// the Module Graph Builder (D), mark liveness (E), partition into chunks
// (F), then rename and emit (G). Matches spec.md §2's "a single build(entry)
// call triggers the cascade; cancellation at any point unwinds cleanly" via
// ctx.
func Build(ctx context.Context, options BuildOptions) (*BuildResult, error) {
	if options.Parse == nil {
		return nil, fmt.Errorf("api.BuildOptions.Parse is required: the core does not implement a JS parser (spec.md §1)")
	}

	fileSystem := options.FS
	if fileSystem == nil {
		fileSystem = fs.RealFS(options.IgnoreFile)
	}

	resolveHooks := make([]resolver.Hook, 0, len(options.Plugins))
	loadHooks := make([]loader.LoadHook, 0, len(options.Plugins))
	transformHooks := make([]loader.TransformHook, 0, len(options.Plugins))

	for _, p := range options.Plugins {
		p := p
		if p.OnResolve != nil {
			resolveHooks = append(resolveHooks, func(specifier, importerID string) (string, bool, bool, error) {
				result, err := p.OnResolve(ResolveArgs{Specifier: specifier, ImporterID: importerID})
				if err != nil {
					return "", false, false, &PluginError{PluginName: p.Name, Err: err}
				}
				if result == nil {
					return "", false, false, nil
				}
				return result.ID, result.External, true, nil
			})
		}
		if p.OnLoad != nil {
			loadHooks = append(loadHooks, func(id string) (string, bool, error) {
				result, err := p.OnLoad(LoadArgs{ID: id})
				if err != nil {
					return "", false, &PluginError{PluginName: p.Name, Err: err}
				}
				if result == nil {
					return "", false, nil
				}
				return result.Code, true, nil
			})
		}
		if p.OnTransform != nil {
			transformHooks = append(transformHooks, func(code, id string) (string, bool, error) {
				result, err := p.OnTransform(TransformArgs{Code: code, ID: id})
				if err != nil {
					return "", false, &PluginError{PluginName: p.Name, Err: err}
				}
				if result == nil {
					return "", false, nil
				}
				return result.Code, true, nil
			})
		}
	}

	res := resolver.New(fileSystem, &options.BuildOptions, resolveHooks)
	ld := loader.New(fileSystem, &options.BuildOptions, loadHooks, transformHooks, options.Parse)

	builder := graph.NewBuilder(res.Resolve, ld.Load)
	g, msgs := builder.Build(ctx, options.EntryPoints)

	result := &BuildResult{}
	for _, m := range msgs {
		if m.Kind == logger.Error {
			result.Errors = append(result.Errors, m)
		} else {
			result.Warnings = append(result.Warnings, m)
		}
	}
	sortDiagnostics(result.Errors)
	sortDiagnostics(result.Warnings)
	if len(result.Errors) > 0 {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := linker.NewEngine(g)
	engine.MarkLive()
	linker.ComputeEntryBits(g)
	chunks := linker.ComputeChunks(g)
	renamers := linker.ChunkRenamers(g, chunks)
	ios := linker.ComputeCrossChunkIO(g, chunks, renamers)

	for _, m := range linker.DetectCycles(g, chunks, ios, options.Format) {
		if m.Kind == logger.Error {
			result.Errors = append(result.Errors, m)
		} else {
			result.Warnings = append(result.Warnings, m)
		}
	}
	sortDiagnostics(result.Errors)
	sortDiagnostics(result.Warnings)
	if len(result.Errors) > 0 {
		return result, nil
	}

	for i, chunk := range chunks {
		opts := printer.Options{
			Format:            options.Format,
			ASCIIOnly:         options.ASCIIOnly,
			IsEntryPointChunk: chunk.IsEntryPoint,
		}
		for _, imp := range ios[i].Imports {
			out := printer.CrossChunkImport{ChunkFileName: chunkFileName(g, chunks, imp.ChunkIndex)}
			for _, item := range imp.Items {
				out.Items = append(out.Items, printer.CrossChunkImportItem{
					ExportAlias: item.ExportAlias,
					LocalName:   item.LocalName,
				})
			}
			opts.CrossChunkImports = append(opts.CrossChunkImports, out)
		}

		if chunk.IsEntryPoint {
			opts.ModuleName = moduleNameForEntry(g, chunk.EntrySourceIndex)
			entry := &g.Modules[chunk.EntrySourceIndex]
			var names []string
			for name := range entry.AST.NamedExports {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if ref, ok := g.ResolveExport(chunk.EntrySourceIndex, name, map[uint32]bool{}); ok {
					opts.Exports = append(opts.Exports, printer.ExportedBinding{Ref: ref, Alias: name})
				}
			}
		} else {
			for _, exp := range ios[i].Exports {
				opts.Exports = append(opts.Exports, printer.ExportedBinding{Ref: exp.Ref, Alias: exp.Alias})
			}
		}

		printed := printer.Print(g, chunk.Modules, renamers[i], opts)
		result.Outputs = append(result.Outputs, OutputFile{
			Path:       chunkFileName(g, chunks, i),
			Contents:   printed.JS,
			SourceMaps: printed.SourceMaps,
		})
	}

	return result, nil
}

// chunkFileName derives an output path from the entry's own id for an
// entry-point chunk, and a synthesized shared-chunk name otherwise - spec.md
// §6's "deterministic filename derived from entry or content hash", with the
// hash component left to the caller (on-disk naming/writing is out of
// scope, spec.md §1).
func chunkFileName(g *graph.ModuleGraph, chunks []*linker.Chunk, index int) string {
	chunk := chunks[index]
	if chunk.IsEntryPoint {
		id := g.IDForIndex(chunk.EntrySourceIndex)
		base := path.Base(id)
		ext := path.Ext(base)
		return strings.TrimSuffix(base, ext) + ".js"
	}
	return fmt.Sprintf("chunk-%d.js", index)
}

func moduleNameForEntry(g *graph.ModuleGraph, sourceIndex uint32) string {
	return g.Modules[sourceIndex].Source.IdentifierName
}

func sortDiagnostics(msgs []logger.Msg) {
	sort.SliceStable(msgs, func(i, j int) bool {
		li, lj := msgs[i].Data.Location, msgs[j].Data.Location
		if li == nil || lj == nil {
			return li != nil
		}
		if li.File != lj.File {
			return li.File < lj.File
		}
		return li.Line < lj.Line
	})
}
