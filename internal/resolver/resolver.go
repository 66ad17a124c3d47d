// Package resolver is the Identifier & Path Resolver (component A): turns an
// import specifier plus importer id into a canonical module id, an
// "external" classification, or a failure. Grounded on esbuild's
// internal/resolver, trimmed to one platform-agnostic resolution algorithm
// (no tsconfig paths, no Yarn PnP, no "browser" field remapping) since this
// spec has no TypeScript and no CSS.
package resolver

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/fs"
	"github.com/module-linker/bundler/internal/logger"
)

type Classification uint8

const (
	ClassificationNormal Classification = iota
	ClassificationExternal
)

// SideEffectsData records why a module was deemed free of side effects, so
// a diagnostic can point back at the package.json "sideEffects" field (or
// plugin) responsible - spec.md §4.E's module-side-effect determination.
type SideEffectsData struct {
	Source *logger.Source

	// Set if a plugin's resolveId result carried sideEffects:false instead of
	// this coming from package.json.
	PluginName string

	Range logger.Range

	// True if "sideEffects" was an array of globs rather than a bare boolean.
	IsSideEffectsArrayInJSON bool
}

type ResolvedID struct {
	ID             string
	Classification Classification
	SideEffects    *SideEffectsData
}

func (r ResolvedID) IsExternal() bool {
	return r.Classification == ClassificationExternal
}

// Hook is a plugin's resolveId hook, adapted from pkg/api.Plugin's public
// shape into the narrow signature the resolver calls. "ok" is false to yield
// to the next hook (spec.md §6: "Hooks returning null yield to the next
// plugin").
type Hook func(specifier, importerID string) (id string, external bool, ok bool, err error)

// UnresolvedImportError is spec.md §4.A's UNRESOLVED_IMPORT failure.
type UnresolvedImportError struct {
	Specifier  string
	ImporterID string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("Could not resolve %q from %q", e.Specifier, e.ImporterID)
}

type cacheKey struct {
	specifier  string
	importerID string
}

// Resolver is the per-build instance spec.md §5 describes: its cache is a
// concurrency-safe map supporting concurrent reads and guarded writes, with
// no lock held across a suspension point (a plugin hook call happens before
// the cache is ever locked).
type Resolver struct {
	fs      fs.FS
	options *config.BuildOptions
	hooks   []Hook

	mu    sync.RWMutex
	cache map[cacheKey]ResolvedID

	pkgJSONCache *packageJSONCache
}

func New(fileSystem fs.FS, options *config.BuildOptions, hooks []Hook) *Resolver {
	return &Resolver{
		fs:           fileSystem,
		options:      options,
		hooks:        hooks,
		cache:        make(map[cacheKey]ResolvedID),
		pkgJSONCache: newPackageJSONCache(fileSystem),
	}
}

// Resolve is spec.md §4.A's contract.
func (r *Resolver) Resolve(specifier, importerID string) (ResolvedID, error) {
	key := cacheKey{specifier, importerID}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err := r.resolveUncached(specifier, importerID)
	if err != nil {
		return ResolvedID{}, err
	}

	r.mu.Lock()
	r.cache[key] = result
	r.mu.Unlock()
	return result, nil
}

func (r *Resolver) resolveUncached(specifier, importerID string) (ResolvedID, error) {
	// Step 1: plugin resolveId hooks in registration order, first non-nil wins.
	for _, hook := range r.hooks {
		id, external, ok, err := hook(specifier, importerID)
		if err != nil {
			return ResolvedID{}, err
		}
		if ok {
			class := ClassificationNormal
			if external {
				class = ClassificationExternal
			}
			return ResolvedID{ID: id, Classification: class}, nil
		}
	}

	// Step 2: the built-in resolver.
	if IsPackagePath(specifier) {
		return r.resolveBareSpecifier(specifier, importerID)
	}
	return r.resolveRelativeOrAbsolute(specifier, importerID)
}

// IsPackagePath distinguishes a bare specifier ("react", "@scope/pkg/sub")
// from a relative or absolute path, exactly esbuild's own rule.
func IsPackagePath(p string) bool {
	return !strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "./") &&
		!strings.HasPrefix(p, "../") && p != "." && p != ".."
}

func (r *Resolver) resolveRelativeOrAbsolute(specifier, importerID string) (ResolvedID, error) {
	abs := specifier
	if !path.IsAbs(abs) {
		abs = path.Join(path.Dir(importerID), specifier)
	} else {
		abs = path.Clean(abs)
	}

	if id, ok := r.probeFile(abs); ok {
		return ResolvedID{ID: id}, nil
	}

	return ResolvedID{}, &UnresolvedImportError{Specifier: specifier, ImporterID: importerID}
}

var extensionsToTry = []string{"", ".js", ".mjs", ".cjs", ".json"}

// probeFile tries the literal path, then each extension, then each
// extension joined under "/index" - Node's CommonJS/ESM resolution order.
func (r *Resolver) probeFile(abs string) (string, bool) {
	for _, ext := range extensionsToTry {
		candidate := abs + ext
		if r.fileExists(candidate) {
			return candidate, true
		}
	}
	for _, ext := range extensionsToTry[1:] {
		candidate := path.Join(abs, "index"+ext)
		if r.fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *Resolver) fileExists(p string) bool {
	dir, base := path.Split(strings.TrimSuffix(p, "/"))
	if dir == "" {
		dir = "."
	}
	entries, err := r.fs.ReadDir(strings.TrimSuffix(dir, "/"))
	if err != nil {
		return false
	}
	kind, ok := entries[base]
	return ok && kind == fs.FileEntry
}

// resolveBareSpecifier walks ancestor directories looking for
// "node_modules/<pkg>", per spec.md §4.A step 2's "node_modules package
// scan". A bare specifier with no matching package and no allow-external
// entry fails with UNRESOLVED_IMPORT; with an allow-external entry it is
// classified external instead. No warning is emitted for that case, here or
// by internal/graph's Builder.
func (r *Resolver) resolveBareSpecifier(specifier, importerID string) (ResolvedID, error) {
	pkgName, subpath := splitPackageSpecifier(specifier)

	for dir := path.Dir(importerID); ; {
		pkgDir := path.Join(dir, "node_modules", pkgName)
		if entries, err := r.fs.ReadDir(pkgDir); err == nil {
			if id, sideEffects, ok := r.resolvePackageDir(pkgDir, subpath, entries); ok {
				return ResolvedID{ID: id, SideEffects: sideEffects}, nil
			}
		}

		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if r.options != nil && r.options.IsExternal(specifier) {
		return ResolvedID{ID: specifier, Classification: ClassificationExternal}, nil
	}

	return ResolvedID{}, &UnresolvedImportError{Specifier: specifier, ImporterID: importerID}
}

func splitPackageSpecifier(specifier string) (pkgName string, subpath string) {
	parts := strings.SplitN(specifier, "/", 2)
	if strings.HasPrefix(specifier, "@") && len(parts) == 2 {
		scopedParts := strings.SplitN(parts[1], "/", 2)
		pkgName = parts[0] + "/" + scopedParts[0]
		if len(scopedParts) == 2 {
			subpath = scopedParts[1]
		}
		return
	}
	pkgName = parts[0]
	if len(parts) == 2 {
		subpath = parts[1]
	}
	return
}

func (r *Resolver) resolvePackageDir(pkgDir, subpath string, entries map[string]fs.EntryKind) (string, *SideEffectsData, bool) {
	pkgJSON := r.pkgJSONCache.read(pkgDir)

	if subpath != "" {
		if pkgJSON != nil {
			if target, ok := pkgJSON.matchExportsSubpath("./" + subpath); ok {
				p := path.Join(pkgDir, target)
				if id, ok := r.probeFile(p); ok {
					return id, sideEffectsFor(pkgJSON, pkgDir), true
				}
			}
		}
		if id, ok := r.probeFile(path.Join(pkgDir, subpath)); ok {
			return id, sideEffectsFor(pkgJSON, pkgDir), true
		}
		return "", nil, false
	}

	if pkgJSON != nil {
		if main := pkgJSON.mainFieldFor(r.mainFields()); main != "" {
			if id, ok := r.probeFile(path.Join(pkgDir, main)); ok {
				return id, sideEffectsFor(pkgJSON, pkgDir), true
			}
		}
	}

	if id, ok := r.probeFile(path.Join(pkgDir, "index")); ok {
		return id, sideEffectsFor(pkgJSON, pkgDir), true
	}
	_ = entries
	return "", nil, false
}

func (r *Resolver) mainFields() []string {
	platform := config.PlatformBrowser
	if r.options != nil {
		platform = r.options.Platform
	}
	switch platform {
	case config.PlatformNode:
		return []string{"main", "module"}
	case config.PlatformNeutral:
		return nil
	default:
		return []string{"browser", "module", "main"}
	}
}

func sideEffectsFor(pkgJSON *packageJSON, pkgDir string) *SideEffectsData {
	if pkgJSON == nil || !pkgJSON.sideEffectsFalse {
		return nil
	}
	return &SideEffectsData{
		IsSideEffectsArrayInJSON: pkgJSON.sideEffectsIsArray,
	}
}
