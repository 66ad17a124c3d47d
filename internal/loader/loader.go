// Package loader is the Module Loader (component B): given a resolved
// module id, produces a graph.Module by running the plugin load/transform
// hook chain, falling back to the default I/O adapter, then handing source
// text to the external parser adapter and the Scope & Binding Analyzer.
// Grounded on esbuild's bundler.go scan loop (the "visited" map + channel
// fan-in that lets many files load concurrently while each one's own
// processing stays serial), factored into its own package since this spec
// treats the parser as an external collaborator rather than inlining a full
// lexer/parser the way esbuild's scanner does.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/module-linker/bundler/internal/graph"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/logger"
)

// LoadHook is a plugin's load hook: returns ok=false to yield to the next
// hook or to the default I/O adapter (spec.md §6).
type LoadHook func(id string) (code string, ok bool, err error)

// TransformHook is a plugin's transform hook, run in registration order
// after load succeeds (spec.md §4.B step 2).
type TransformHook func(code, id string) (newCode string, ok bool, err error)

// ParseFunc is the external parser adapter's contract (spec.md §1: "the
// core consumes an ESTree-shaped AST... does not itself implement lexing or
// expression parsing"). It is also responsible for driving an
// internal/scope.Builder to produce the resolved Scope/SymbolMap/Part data
// the rest of the core operates on.
type ParseFunc func(source logger.Source, symbols *[]ast.Symbol) (jsast.AST, []logger.Msg)

// ParseError is spec.md §4.B's PARSE_ERROR, carrying the position the
// parser adapter reported.
type ParseError struct {
	ID  string
	Msg logger.Msg
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.ID, e.Msg.Data.Text)
}

// FileNotFoundError is raised when no load hook claims an id and the
// default I/O adapter can't read it either.
type FileNotFoundError struct {
	ID string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("could not read file: %s", e.ID)
}

type Loader struct {
	fs      fs.FS
	options *config.BuildOptions
	loadHooks      []LoadHook
	transformHooks []TransformHook
	parse          ParseFunc

	mu      sync.Mutex
	inFlight map[string]*pending
}

type pending struct {
	done   chan struct{}
	module *graph.Module
	msgs   []logger.Msg
	err    error
}

func New(fileSystem fs.FS, options *config.BuildOptions, loadHooks []LoadHook, transformHooks []TransformHook, parse ParseFunc) *Loader {
	return &Loader{
		fs:             fileSystem,
		options:        options,
		loadHooks:      loadHooks,
		transformHooks: transformHooks,
		parse:          parse,
		inFlight:       make(map[string]*pending),
	}
}

// Load is spec.md §4.B's contract: idempotent per id, with concurrent
// callers for the same id sharing one pending result rather than loading
// and parsing twice. symbols is the slice the parser adapter declares this
// module's bindings into; internal/graph passes a goroutine-local slice and
// stores it at ModuleGraph.Symbols.SymbolsForSource[sourceIndex] after the
// load returns.
func (l *Loader) Load(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*graph.Module, []logger.Msg, error) {
	l.mu.Lock()
	if p, ok := l.inFlight[id]; ok {
		l.mu.Unlock()
		<-p.done
		return p.module, p.msgs, p.err
	}
	p := &pending{done: make(chan struct{})}
	l.inFlight[id] = p
	l.mu.Unlock()

	p.module, p.msgs, p.err = l.loadUncached(ctx, id, sourceIndex, symbols)
	close(p.done)
	return p.module, p.msgs, p.err
}

func (l *Loader) loadUncached(ctx context.Context, id string, sourceIndex uint32, symbols *[]ast.Symbol) (*graph.Module, []logger.Msg, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	code, err := l.runLoadHooks(id)
	if err != nil {
		return nil, nil, err
	}

	for _, hook := range l.transformHooks {
		newCode, ok, herr := hook(code, id)
		if herr != nil {
			return nil, nil, herr
		}
		if ok {
			code = newCode
		}
	}

	source := logger.Source{
		Index:      sourceIndex,
		KeyPath:    logger.Path{Text: id},
		PrettyPath: id,
		Contents:   code,
	}

	parsed, msgs := l.parse(source, symbols)

	module := &graph.Module{
		Source: source,
		AST:    parsed,
	}
	return module, msgs, nil
}

func (l *Loader) runLoadHooks(id string) (string, error) {
	for _, hook := range l.loadHooks {
		code, ok, err := hook(id)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}

	code, err := l.fs.ReadFile(id)
	if err != nil {
		return "", &FileNotFoundError{ID: id}
	}
	return code, nil
}
