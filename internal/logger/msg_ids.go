package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors do not get a message ID because you
// cannot turn errors into non-errors (otherwise the build would incorrectly
// succeed). Some internal log messages do not get a message ID because they
// are part of verbose and/or internal debugging output. These messages use
// "MsgID_None" instead.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Resolver
	MsgID_Resolver_IgnoredBareImport
	MsgID_Resolver_DifferentPathCase

	// Loader
	MsgID_Loader_EmptyLoadResult

	// Graph / linking
	MsgID_Graph_AmbiguousReexport
	MsgID_Graph_DuplicateImportOptions

	// Tree shaking
	MsgID_Shake_IgnoredSideEffectImport

	// Chunking / emission
	MsgID_Chunk_CircularDependency
	MsgID_Chunk_MixedExports

	// Source maps
	MsgID_SourceMap_MissingSourceMap
	MsgID_SourceMap_InvalidSourceMappings

	MsgID_END // Keep this at the end (used only for tests)
)

func StringToMsgIDs(str string, logLevel LogLevel, overrides map[MsgID]LogLevel) {
	switch str {
	case "ignored-bare-import":
		overrides[MsgID_Resolver_IgnoredBareImport] = logLevel
	case "different-path-case":
		overrides[MsgID_Resolver_DifferentPathCase] = logLevel
	case "empty-load-result":
		overrides[MsgID_Loader_EmptyLoadResult] = logLevel
	case "ambiguous-reexport":
		overrides[MsgID_Graph_AmbiguousReexport] = logLevel
	case "duplicate-import-options":
		overrides[MsgID_Graph_DuplicateImportOptions] = logLevel
	case "ignored-side-effect-import":
		overrides[MsgID_Shake_IgnoredSideEffectImport] = logLevel
	case "circular-dependency":
		overrides[MsgID_Chunk_CircularDependency] = logLevel
	case "mixed-exports":
		overrides[MsgID_Chunk_MixedExports] = logLevel
	case "missing-source-map":
		overrides[MsgID_SourceMap_MissingSourceMap] = logLevel
	case "invalid-source-mappings":
		overrides[MsgID_SourceMap_InvalidSourceMappings] = logLevel
	default:
		// Ignore invalid entries since this message id may have
		// been renamed/removed since when this code was written
	}
}

func MsgIDToString(id MsgID) string {
	switch id {
	case MsgID_Resolver_IgnoredBareImport:
		return "ignored-bare-import"
	case MsgID_Resolver_DifferentPathCase:
		return "different-path-case"
	case MsgID_Loader_EmptyLoadResult:
		return "empty-load-result"
	case MsgID_Graph_AmbiguousReexport:
		return "ambiguous-reexport"
	case MsgID_Graph_DuplicateImportOptions:
		return "duplicate-import-options"
	case MsgID_Shake_IgnoredSideEffectImport:
		return "ignored-side-effect-import"
	case MsgID_Chunk_CircularDependency:
		return "circular-dependency"
	case MsgID_Chunk_MixedExports:
		return "mixed-exports"
	case MsgID_SourceMap_MissingSourceMap:
		return "missing-source-map"
	case MsgID_SourceMap_InvalidSourceMappings:
		return "invalid-source-mappings"
	}
	return ""
}

// Some message IDs are more diverse internally than externally (in case we
// want to expand the set of them later on). So just map these to the largest
// one arbitrarily since you can't tell the difference externally anyway.
func StringToMaximumMsgID(id string) MsgID {
	overrides := make(map[MsgID]LogLevel)
	maxID := MsgID_None
	StringToMsgIDs(id, LevelInfo, overrides)
	for id := range overrides {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}
