package resolver

import (
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/tidwall/gjson"
)

// packageJSON is the handful of package.json fields the resolver cares
// about, read with gjson instead of a full encoding/json unmarshal - the
// resolver only ever needs four fields out of a file that can run to
// hundreds of lines, per SPEC_FULL.md's DOMAIN STACK.
type packageJSON struct {
	name               string
	main               map[string]string // field name ("main", "module", "browser") -> path
	exports            gjson.Result
	hasExports         bool
	sideEffectsFalse   bool
	sideEffectsIsArray bool
	sideEffectsGlobs   []string
}

func (p *packageJSON) mainFieldFor(fields []string) string {
	for _, field := range fields {
		if v, ok := p.main[field]; ok && v != "" {
			return v
		}
	}
	return ""
}

// matchExportsSubpath resolves a subpath import ("./foo") through the
// package.json "exports" map, supporting glob subpath patterns
// ("./features/*" -> "./lib/features/*.js") via doublestar, per Node's
// conditional-exports algorithm and SPEC_FULL.md's DOMAIN STACK entry for
// doublestar/v4.
func (p *packageJSON) matchExportsSubpath(subpath string) (string, bool) {
	if !p.hasExports {
		return "", false
	}

	if direct := p.exports.Get(gjsonEscape(subpath)); direct.Exists() {
		if target := pickExportsCondition(direct); target != "" {
			return target, true
		}
	}

	found := ""
	p.exports.ForEach(func(key, value gjson.Result) bool {
		pattern := key.String()
		if ok, _ := doublestar.Match(pattern, subpath); ok {
			if target := pickExportsCondition(value); target != "" {
				found = expandGlobTarget(pattern, target, subpath)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found, true
	}
	return "", false
}

// pickExportsCondition resolves one exports-map value down to a path,
// preferring the "import" and "default" conditions (this spec has no
// "require" condition since there is no CommonJS consumer of the resolver
// itself - only of emitted output, per spec.md §4.G).
func pickExportsCondition(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	for _, cond := range []string{"import", "default", "browser"} {
		if sub := v.Get(cond); sub.Exists() {
			if sub.Type == gjson.String {
				return sub.String()
			}
			if nested := pickExportsCondition(sub); nested != "" {
				return nested
			}
		}
	}
	return ""
}

func expandGlobTarget(pattern, target, subpath string) string {
	starIdx := strings.IndexByte(pattern, '*')
	if starIdx < 0 {
		return target
	}
	suffix := subpath[starIdx:]
	if tStar := strings.IndexByte(target, '*'); tStar >= 0 {
		return target[:tStar] + suffix + target[tStar+1:]
	}
	return target
}

// gjsonEscape lets subpath keys like "./foo" be looked up without gjson
// treating the dots as a nested-path separator.
func gjsonEscape(key string) string {
	out := make([]byte, 0, len(key)+2)
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}

type packageJSONCache struct {
	fs fs.FS

	mu    sync.Mutex
	cache map[string]*packageJSON
}

func newPackageJSONCache(fileSystem fs.FS) *packageJSONCache {
	return &packageJSONCache{fs: fileSystem, cache: make(map[string]*packageJSON)}
}

func (c *packageJSONCache) read(pkgDir string) *packageJSON {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[pkgDir]; ok {
		return cached
	}

	contents, err := c.fs.ReadFile(pkgDir + "/package.json")
	if err != nil {
		c.cache[pkgDir] = nil
		return nil
	}

	parsed := gjson.Parse(contents)
	pkg := &packageJSON{
		name: parsed.Get("name").String(),
		main: map[string]string{
			"main":    parsed.Get("main").String(),
			"module":  parsed.Get("module").String(),
			"browser": parsed.Get("browser").String(),
		},
	}

	if exports := parsed.Get("exports"); exports.Exists() {
		pkg.exports = exports
		pkg.hasExports = true
	}

	if se := parsed.Get("sideEffects"); se.Exists() {
		switch se.Type {
		case gjson.False:
			pkg.sideEffectsFalse = true
		case gjson.JSON:
			if se.IsArray() {
				pkg.sideEffectsFalse = true
				pkg.sideEffectsIsArray = true
				se.ForEach(func(_, glob gjson.Result) bool {
					pkg.sideEffectsGlobs = append(pkg.sideEffectsGlobs, glob.String())
					return true
				})
			}
		}
	}

	c.cache[pkgDir] = pkg
	return pkg
}
