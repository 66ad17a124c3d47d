// Package sourcemap builds source-map v3 "mappings" segments for one
// module's contribution to a chunk (spec.md §4.G: "source-map segments are
// emitted per original->output character range"). Grounded on esbuild's
// internal/sourcemap, but trimmed to exactly the surface the patch-over-
// spans printer (internal/printer) exercises: a line/column offset table
// for one file's original text, and a ChunkBuilder that turns a sequence of
// (original location, printed output so far) calls into VLQ-encoded
// mappings. esbuild's nested-input-source-map remapping, its standalone
// SourceMap.Find lookup, and its cross-goroutine chunk-joining pass
// (AppendSourceMapChunk) all exist to stitch together source maps produced
// in parallel across a whole bundle and to remap through an already-
// minified dependency's own source map - neither loader.Load nor
// printer.Print in this bundler ever constructs or joins such a thing, so
// none of that survives here.
package sourcemap

import (
	"github.com/module-linker/bundler/internal/helpers"
	"github.com/module-linker/bundler/internal/logger"
)

var base64 = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")

// encodeVLQ writes value as a source-map base64 VLQ digit run: the sign
// lives in bit 0, each digit holds 5 value bits plus a continuation bit.
func encodeVLQ(encoded []byte, value int) []byte {
	var vlq int
	if value < 0 {
		vlq = ((-value) << 1) | 1
	} else {
		vlq = value << 1
	}

	if (vlq >> 5) == 0 {
		digit := vlq & 31
		return append(encoded, base64[digit])
	}

	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq != 0 {
			digit |= 32
		}
		encoded = append(encoded, base64[digit])
		if vlq == 0 {
			break
		}
	}

	return encoded
}

// LineOffsetTable speeds up turning a byte offset into the original file
// into a (line, UTF-16 column) pair without rescanning the file on every
// AddSourceMapping call. Columns are counted as UTF-16 code units to match
// the popular "source-map" library's interpretation, which is what most
// consumers expect even though the spec itself is loose about it.
type LineOffsetTable struct {
	columnsForNonASCII        []int32
	byteOffsetToFirstNonASCII int32
	byteOffsetToStartOfLine   int32
}

// GenerateLineOffsetTables scans contents once up front, building one
// LineOffsetTable per line. Most JS is ASCII and the ASCII byte-offset to
// UTF-16-column mapping is 1:1, so a per-line non-ASCII column table is
// only built for lines that need one.
func GenerateLineOffsetTables(contents string, approximateLineCount int32) []LineOffsetTable {
	var columnsForNonASCII []int32
	byteOffsetToFirstNonASCII := int32(0)
	lineByteOffset := 0
	columnByteOffset := 0
	column := int32(0)

	tables := make([]LineOffsetTable, 0, approximateLineCount)

	for i, c := range contents {
		if column == 0 {
			lineByteOffset = i
		}

		if c > 0x7F && columnsForNonASCII == nil {
			columnByteOffset = i - lineByteOffset
			byteOffsetToFirstNonASCII = int32(columnByteOffset)
			columnsForNonASCII = []int32{}
		}

		if columnsForNonASCII != nil {
			for lineBytesSoFar := i - lineByteOffset; columnByteOffset <= lineBytesSoFar; columnByteOffset++ {
				columnsForNonASCII = append(columnsForNonASCII, column)
			}
		}

		switch c {
		case '\r', '\n', ' ', ' ':
			if c == '\r' && i+1 < len(contents) && contents[i+1] == '\n' {
				column++
				continue
			}

			tables = append(tables, LineOffsetTable{
				byteOffsetToStartOfLine:   int32(lineByteOffset),
				byteOffsetToFirstNonASCII: byteOffsetToFirstNonASCII,
				columnsForNonASCII:        columnsForNonASCII,
			})
			columnByteOffset = 0
			byteOffsetToFirstNonASCII = 0
			columnsForNonASCII = nil
			column = 0

		default:
			if c <= 0xFFFF {
				column++
			} else {
				column += 2
			}
		}
	}

	if column == 0 {
		lineByteOffset = len(contents)
	}
	if columnsForNonASCII != nil {
		for lineBytesSoFar := len(contents) - lineByteOffset; columnByteOffset <= lineBytesSoFar; columnByteOffset++ {
			columnsForNonASCII = append(columnsForNonASCII, column)
		}
	}

	tables = append(tables, LineOffsetTable{
		byteOffsetToStartOfLine:   int32(lineByteOffset),
		byteOffsetToFirstNonASCII: byteOffsetToFirstNonASCII,
		columnsForNonASCII:        columnsForNonASCII,
	})
	return tables
}

// MappingsBuffer is the VLQ-encoded "mappings" string for one chunk. A
// caller stitching several chunks' output together into a single bundle-
// wide document (out of scope for this core, spec.md §1) would need to
// rewrite the first mapping of each buffer relative to the previous
// chunk's end state; nothing in this repo does that, so the buffer is
// carried as a flat, self-contained byte slice.
type MappingsBuffer struct {
	Data []byte
}

// Chunk is one module's contribution to a chunk's source map: the encoded
// mappings, the quoted name literals those mappings reference, and the end
// state needed to keep VLQ deltas correct if a caller appends another
// chunk after this one. This is the shape printer.ModuleSourceMap carries
// out of the core (spec.md §1: composing these into one bundle-wide
// source-map v3 document is left to a caller outside the core).
type Chunk struct {
	Buffer      MappingsBuffer
	QuotedNames [][]byte

	EndState SourceMapState

	// There's no mapping at the very end of a file, so a caller appending
	// another chunk after this one needs to know how many columns were
	// already printed on the last line.
	FinalGeneratedColumn int

	ShouldIgnore bool
}

// SourceMapState is one mapping's absolute position. Source maps store
// deltas between consecutive mappings rather than absolute positions, so
// ChunkBuilder always carries both the previous and current state around
// in order to compute the next delta.
type SourceMapState struct {
	GeneratedLine int

	GeneratedColumn int
	SourceIndex     int
	OriginalLine    int
	OriginalColumn  int
	OriginalName    int
	HasOriginalName bool
}

func appendMappingToBuffer(buffer []byte, lastByte byte, prevState, currentState SourceMapState) []byte {
	if lastByte != 0 && lastByte != ';' && lastByte != '"' {
		buffer = append(buffer, ',')
	}

	buffer = encodeVLQ(buffer, currentState.GeneratedColumn-prevState.GeneratedColumn)
	buffer = encodeVLQ(buffer, currentState.SourceIndex-prevState.SourceIndex)
	buffer = encodeVLQ(buffer, currentState.OriginalLine-prevState.OriginalLine)
	buffer = encodeVLQ(buffer, currentState.OriginalColumn-prevState.OriginalColumn)

	if currentState.HasOriginalName {
		buffer = encodeVLQ(buffer, currentState.OriginalName-prevState.OriginalName)
	}

	return buffer
}

// ChunkBuilder accumulates source mappings for one module as the printer
// walks its live parts, turning (original location, name, output-so-far)
// triples into VLQ-encoded segments. One builder is scoped to a single
// module's own line/column structure (its LineOffsetTable comes from that
// module's own contents), which is why internal/printer makes a fresh one
// per module rather than sharing a builder across a chunk.
type ChunkBuilder struct {
	sourceMap           []byte
	quotedNames         [][]byte
	namesMap            map[string]uint32
	lineOffsetTables    []LineOffsetTable
	prevOriginalName    string
	prevState           SourceMapState
	lastGeneratedUpdate int
	generatedColumn     int
	prevGeneratedLen    int
	prevOriginalLoc     logger.Loc
	hasPrevState        bool
	asciiOnly           bool

	// esbuild's "source-map" library workaround: some consumers return a
	// null mapping for any line that doesn't itself start with one. Rather
	// than special-case that here, a builder repeats the previous mapping
	// at column zero whenever a line would otherwise start bare.
	lineStartsWithMapping bool
}

func MakeChunkBuilder(lineOffsetTables []LineOffsetTable, asciiOnly bool) ChunkBuilder {
	return ChunkBuilder{
		prevOriginalLoc:  logger.Loc{Start: -1},
		lineOffsetTables: lineOffsetTables,
		asciiOnly:        asciiOnly,
		namesMap:         make(map[string]uint32),
	}
}

// AddSourceMapping records that originalLoc in the module's source text
// produced the output printed so far (output is the module-relative bytes
// printed up to and including this mapping's generated position).
func (b *ChunkBuilder) AddSourceMapping(originalLoc logger.Loc, originalName string, output []byte) {
	if originalLoc == b.prevOriginalLoc && (b.prevGeneratedLen == len(output) || b.prevOriginalName == originalName) {
		return
	}

	b.prevOriginalLoc = originalLoc
	b.prevGeneratedLen = len(output)
	b.prevOriginalName = originalName

	lineOffsetTables := b.lineOffsetTables
	count := len(lineOffsetTables)
	originalLine := 0
	for count > 0 {
		step := count / 2
		i := originalLine + step
		if lineOffsetTables[i].byteOffsetToStartOfLine <= originalLoc.Start {
			originalLine = i + 1
			count = count - step - 1
		} else {
			count = step
		}
	}
	originalLine--

	line := &lineOffsetTables[originalLine]
	originalColumn := int(originalLoc.Start - line.byteOffsetToStartOfLine)
	if line.columnsForNonASCII != nil && originalColumn >= int(line.byteOffsetToFirstNonASCII) {
		originalColumn = int(line.columnsForNonASCII[originalColumn-int(line.byteOffsetToFirstNonASCII)])
	}

	b.updateGeneratedLineAndColumn(output)

	if !b.lineStartsWithMapping && b.generatedColumn > 0 && b.hasPrevState {
		b.appendMapping(SourceMapState{
			GeneratedLine:   b.prevState.GeneratedLine,
			GeneratedColumn: 0,
			OriginalLine:    b.prevState.OriginalLine,
			OriginalColumn:  b.prevState.OriginalColumn,
		})
	}

	state := SourceMapState{
		GeneratedLine:   b.prevState.GeneratedLine,
		GeneratedColumn: b.generatedColumn,
		OriginalLine:    originalLine,
		OriginalColumn:  originalColumn,
	}
	if originalName != "" {
		i, ok := b.namesMap[originalName]
		if !ok {
			i = uint32(len(b.quotedNames))
			b.quotedNames = append(b.quotedNames, helpers.QuoteForJSON(originalName, b.asciiOnly))
			b.namesMap[originalName] = i
		}
		state.OriginalName = int(i)
		state.HasOriginalName = true
	}
	b.appendMapping(state)

	b.lineStartsWithMapping = true
}

// GenerateChunk closes out the builder once the module's remaining output
// (everything printed since the last AddSourceMapping call) is known.
func (b *ChunkBuilder) GenerateChunk(output []byte) Chunk {
	b.updateGeneratedLineAndColumn(output)

	shouldIgnore := true
	for _, c := range b.sourceMap {
		if c != ';' {
			shouldIgnore = false
			break
		}
	}

	return Chunk{
		Buffer:               MappingsBuffer{Data: b.sourceMap},
		QuotedNames:          b.quotedNames,
		EndState:             b.prevState,
		FinalGeneratedColumn: b.generatedColumn,
		ShouldIgnore:         shouldIgnore,
	}
}

// updateGeneratedLineAndColumn advances the generated-position cursor over
// everything printed since the last call, emitting a ';' line separator for
// each newline crossed.
func (b *ChunkBuilder) updateGeneratedLineAndColumn(output []byte) {
	for i, c := range string(output[b.lastGeneratedUpdate:]) {
		switch c {
		case '\r', '\n', ' ', ' ':
			if c == '\r' {
				newlineCheck := b.lastGeneratedUpdate + i + 1
				if newlineCheck < len(output) && output[newlineCheck] == '\n' {
					continue
				}
			}

			if !b.lineStartsWithMapping && b.hasPrevState {
				b.appendMapping(SourceMapState{
					GeneratedLine:   b.prevState.GeneratedLine,
					GeneratedColumn: 0,
					OriginalLine:    b.prevState.OriginalLine,
					OriginalColumn:  b.prevState.OriginalColumn,
				})
			}

			b.prevState.GeneratedLine++
			b.prevState.GeneratedColumn = 0
			b.generatedColumn = 0
			b.sourceMap = append(b.sourceMap, ';')
			b.lineStartsWithMapping = false

		default:
			if c <= 0xFFFF {
				b.generatedColumn++
			} else {
				b.generatedColumn += 2
			}
		}
	}

	b.lastGeneratedUpdate = len(output)
}

func (b *ChunkBuilder) appendMapping(currentState SourceMapState) {
	var lastByte byte
	if len(b.sourceMap) != 0 {
		lastByte = b.sourceMap[len(b.sourceMap)-1]
	}

	b.sourceMap = appendMappingToBuffer(b.sourceMap, lastByte, b.prevState, currentState)
	prevOriginalName := b.prevState.OriginalName
	b.prevState = currentState
	if !currentState.HasOriginalName {
		b.prevState.OriginalName = prevOriginalName
	}
	b.hasPrevState = true
}
