// Package ast holds the data structures that are shared between every phase
// of the bundler: the resolver, the loader, the graph builder, the tree
// shaker, the chunker and the renamer all operate on these types instead of
// reaching into a format-specific AST package. Keeping them here (instead of
// alongside the JavaScript node-kind definitions in "jsast") is what lets a
// cross-module reference be expressed as a plain index lookup rather than a
// pointer into another module's tree - see Ref below.
package ast

import (
	"github.com/module-linker/bundler/internal/logger"
)

type ImportKind uint8

const (
	// The module(s) passed to Build/Resolve directly
	ImportEntryPoint ImportKind = iota

	// A static "import" or "export ... from" statement
	ImportStmt

	// A dynamic "import()" expression
	ImportDynamic
)

func (kind ImportKind) StringForMetafile() string {
	switch kind {
	case ImportStmt:
		return "import-statement"
	case ImportDynamic:
		return "dynamic-import"
	case ImportEntryPoint:
		return "entry-point"
	default:
		panic("internal error: unknown import kind")
	}
}

// IsAsync is true for import kinds whose target module isn't necessarily
// loaded (and therefore linked) before the importing module runs.
func (kind ImportKind) IsAsync() bool {
	return kind == ImportDynamic
}

type ImportRecordFlags uint8

const (
	// This import's specifier resolved to a module classified as external;
	// it is not included in the bundle and is left as a runtime import/require.
	IsExternal ImportRecordFlags = 1 << iota

	// "import * as ns" - the whole namespace is referenced, not individual
	// named members, so the liveness engine can't narrow to specific exports.
	ContainsImportStar

	// "import def from ..." or "import {default as x} from ..."
	ContainsDefaultAlias

	// This record was downgraded from a fatal unresolved-import error to a
	// warning because the specifier is on the configured external allow-list.
	WasAllowedExternal
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

// ImportRecord is one static or dynamic import/re-export edge discovered by
// the graph builder while scanning a module. It corresponds to spec.md's
// Module.imports entries plus the star_reexports list (whose record indices
// the module's jsast.AST keeps in ExportStars).
type ImportRecord struct {
	Path  logger.Path
	Range logger.Range

	// Filled in once the Identifier & Path Resolver has run
	SourceIndex Index32

	Kind  ImportKind
	Flags ImportRecordFlags
}

// Index32 stores a 32-bit index where the zero value is invalid. This is a
// smaller and GC-friendlier alternative to a nullable pointer or a boolean
// sidecar field, and it's how cross-module edges stay indices instead of
// pointers (see package doc comment).
type Index32 struct {
	flippedBits uint32
}

var InvalidIndex32 = Index32{}

func MakeIndex32(index uint32) Index32 {
	return Index32{flippedBits: ^index}
}

func (i Index32) IsValid() bool {
	return i.flippedBits != 0
}

func (i Index32) GetIndex() uint32 {
	return ^i.flippedBits
}
