// Package graph holds the ModuleGraph data model (spec.md §3) and the
// Module Graph Builder (component D) that populates it. It is grounded on
// the teacher's internal/graph + the scan half of internal/bundler, merged
// into one package now that there is a single module representation
// (JS-only; the CSS/"copy" loader reprs esbuild carries have no home here).
package graph

import (
	"github.com/module-linker/bundler/internal/ast"
	"github.com/module-linker/bundler/internal/jsast"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/module-linker/bundler/internal/resolver"
)

type SideEffectsKind uint8

const (
	// The default: conservatively assume the module has side effects.
	HasSideEffects SideEffectsKind = iota

	// A "package.json" "sideEffects" field said this file's package has none.
	NoSideEffects_PackageJSON

	// Explicitly marked pure by a plugin's load result.
	NoSideEffects_PureData_FromPlugin
)

type SideEffects struct {
	Kind SideEffectsKind
	Data *resolver.SideEffectsData
}

// Module is spec.md §3's Module record: one loaded source file, its parsed
// AST, and the bookkeeping the later phases need. Its Source.Index is the
// canonical id referenced everywhere else as a uint32 instead of a string,
// assigned exactly once by the scanner and never mutated thereafter.
type Module struct {
	Source logger.Source
	AST    jsast.AST

	SideEffects SideEffects

	// Resolved ids of every import/export/export-star this module contains,
	// in ImportRecords order. Populated by the resolver before loading the
	// target; INVALID until resolution succeeds.
	Dependencies []ast.Index32
}

// HasModuleSideEffects is spec.md §4.E's per-module determination: side
// effects are assumed unless a package.json or plugin explicitly says
// otherwise.
func (m *Module) HasModuleSideEffects() bool {
	return m.SideEffects.Kind == HasSideEffects
}

func (m *Module) ImportRecords() []ast.ImportRecord {
	return m.AST.ImportRecords
}
