package graph

import (
	"fmt"

	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/jsast"
)

// MissingExportError is spec.md §4.D's MISSING_EXPORT diagnostic: a named
// import that cannot be traced to any declaration, reexport, or "export *"
// in the target module.
type MissingExportError struct {
	ImporterID, TargetID, Name string
}

// Error renders spec.md §8 scenario 8's exact fixture shape:
// "'default' is not exported by foo.js, imported by main.js".
func (e *MissingExportError) Error() string {
	return fmt.Sprintf("'%s' is not exported by %s, imported by %s", e.Name, e.TargetID, e.ImporterID)
}

// ResolveExport implements spec.md §4.D's three linking rules over a fully
// scanned graph: a local export resolves directly to its declaration; a
// named reexport chases into the module its import record points at; an
// "export *" only contributes a name no closer export already claims, with
// a name reachable through more than one star reexport left unresolved
// rather than guessed at (spec.md's stated ambiguity rule), and "default"
// never forwarded through a star reexport. visiting guards against a cycle
// of reexports chasing each other forever - callers seed it with every
// source index already on the chase so far.
//
// Exported so the Liveness engine (component E) can seed itself from an
// entry point's named exports using the same chase the linker uses, instead
// of duplicating it.
func (g *ModuleGraph) ResolveExport(sourceIndex uint32, name string, visiting map[uint32]bool) (ast.Ref, bool) {
	if visiting[sourceIndex] {
		return ast.Ref{}, false
	}
	visiting[sourceIndex] = true

	module := &g.Modules[sourceIndex]

	if entry, ok := module.AST.NamedExports[name]; ok {
		switch entry.Kind {
		case jsast.ExportLocal:
			return entry.Ref, true

		case jsast.ExportReexport:
			if int(entry.ImportRecordIndex) >= len(module.Dependencies) {
				return ast.Ref{}, false
			}
			target := module.Dependencies[entry.ImportRecordIndex]
			if !target.IsValid() {
				return ast.Ref{}, false
			}
			return g.ResolveExport(target.GetIndex(), entry.ImportedName, visiting)
		}
	}

	if name == "default" {
		return ast.Ref{}, false
	}

	var match ast.Ref
	found := false
	ambiguous := false
	for _, recordIndex := range module.AST.ExportStars {
		if int(recordIndex) >= len(module.Dependencies) {
			continue
		}
		target := module.Dependencies[recordIndex]
		if !target.IsValid() {
			continue
		}
		ref, ok := g.ResolveExport(target.GetIndex(), name, visiting)
		if !ok {
			continue
		}
		if found && ref != match {
			ambiguous = true
			continue
		}
		match = ref
		found = true
	}
	if !found || ambiguous {
		return ast.Ref{}, false
	}
	return match, true
}
