package runtime_test

import (
	"strings"
	"testing"

	"github.com/module-linker/bundler/internal/runtime"
	"github.com/stretchr/testify/assert"
)

func TestSourceExportsInteropHelpers(t *testing.T) {
	for _, name := range []string{"__commonJS", "__esm", "__export", "__exportStar", "__toESM", "__toCommonJS"} {
		assert.True(t, strings.Contains(runtime.Source.Contents, name), "missing helper %s", name)
	}
}

func TestSourceIndexIsZero(t *testing.T) {
	assert.Equal(t, uint32(0), runtime.SourceIndex)
	assert.Equal(t, uint32(0), uint32(runtime.Source.Index))
}
