// Package config is the bundler's build-options model: everything the
// resolver, loader, and linker need to know that isn't discovered from the
// source files themselves. It is grounded on esbuild's internal/config,
// trimmed to the options this spec's components actually branch on, with
// file/env/flag merging done by viper instead of esbuild's own hand-rolled
// flag-to-struct plumbing (see SPEC_FULL.md's AMBIENT STACK).
package config

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

type Platform uint8

const (
	PlatformBrowser Platform = iota
	PlatformNode
	PlatformNeutral
)

// Format is the output module format the Renamer & Emitter (component G)
// targets - spec.md §4.G's "at least ESM, CommonJS, IIFE, and UMD".
type Format uint8

const (
	FormatESModule Format = iota
	FormatCommonJS
	FormatIIFE
	FormatUMD
)

func (f Format) String() string {
	switch f {
	case FormatCommonJS:
		return "cjs"
	case FormatIIFE:
		return "iife"
	case FormatUMD:
		return "umd"
	default:
		return "esm"
	}
}

// Loader selects how the Module Loader (component B) turns a file's bytes
// into something the rest of the pipeline understands. Trimmed from
// esbuild's full set (no css/binary/dataurl/ts/tsx loaders: this spec's
// parser is JS-only and external, see spec.md §1).
type Loader uint8

const (
	LoaderNone Loader = iota
	LoaderDefault
	LoaderJS
	LoaderJSON
	LoaderText
	LoaderFile
	LoaderCopy
)

// BuildOptions is the merged result of a config file, environment variables,
// and CLI flags (spec.md's "the configuration loader", out of the core per
// §1, consumed here as a plain struct).
type BuildOptions struct {
	EntryPoints []string
	Outdir      string
	Format      Format
	Platform    Platform
	Bundle      bool
	Splitting   bool

	// Bare specifiers that resolve to "external" even though a package exists
	// on disk for them - may contain doublestar glob patterns (e.g. "react*").
	External []string

	// Function names whose call expressions are treated as pure initializers
	// for the side-effect classification in spec.md §4.C, resolving open
	// question 1 from spec.md §9: pure-call heuristics are configuration-
	// driven, never guessed by the analyzer itself.
	PureFunctions []string

	// Package names explicitly marked side-effect-free regardless of their
	// own package.json "sideEffects" field (spec.md §4.E's "may be explicitly
	// flagged side-effect-free via configuration").
	SideEffectFreePackages []string

	LoaderByExtension map[string]Loader

	Plugins []string // plugin names/paths, resolved by the CLI/host, not the core

	Watch bool
}

// IsExternal reports whether specifier matches one of the External glob
// patterns, per spec.md §4.A step 2's "bare specifiers are declared
// external" and the allow-external-list downgrade rule in §4.A's error
// handling.
func (o *BuildOptions) IsExternal(specifier string) bool {
	for _, pattern := range o.External {
		if pattern == specifier {
			return true
		}
		if ok, _ := doublestar.Match(pattern, specifier); ok {
			return true
		}
	}
	return false
}

// IsPureFunction reports whether calleeName was configured as pure, per
// spec.md §4.C: "Function-call initializers are side-effecting unless the
// callee is flagged pure by configuration."
func (o *BuildOptions) IsPureFunction(calleeName string) bool {
	for _, name := range o.PureFunctions {
		if name == calleeName {
			return true
		}
	}
	return false
}

func (o *BuildOptions) LoaderForPath(path string) Loader {
	ext := ""
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext = path[i:]
	}
	if loader, ok := o.LoaderByExtension[ext]; ok {
		return loader
	}
	switch ext {
	case ".js", ".mjs", ".cjs", ".jsx":
		return LoaderJS
	case ".json":
		return LoaderJSON
	case ".txt":
		return LoaderText
	default:
		return LoaderDefault
	}
}

// Load merges the config file at configFile (read only when configFile is
// non-empty; no default file name is searched for), environment variables
// prefixed "BUNDLER_", and explicit overrides (CLI
// flags, already parsed by cobra) into a BuildOptions. Grounded on the
// cobra+viper pairing used across the example pack for this exact layering.
func Load(configFile string, overrides func(*viper.Viper)) (*BuildOptions, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BUNDLER")
	v.AutomaticEnv()

	v.SetDefault("format", "esm")
	v.SetDefault("platform", "browser")
	v.SetDefault("bundle", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if overrides != nil {
		overrides(v)
	}

	opts := &BuildOptions{
		EntryPoints:            v.GetStringSlice("entryPoints"),
		Outdir:                 v.GetString("outdir"),
		Format:                 parseFormat(v.GetString("format")),
		Platform:               parsePlatform(v.GetString("platform")),
		Bundle:                 v.GetBool("bundle"),
		Splitting:              v.GetBool("splitting"),
		External:               v.GetStringSlice("external"),
		PureFunctions:          v.GetStringSlice("pure"),
		SideEffectFreePackages: v.GetStringSlice("sideEffectFreePackages"),
		Watch:                  v.GetBool("watch"),
		LoaderByExtension:      make(map[string]Loader),
	}

	for ext, name := range v.GetStringMapString("loader") {
		opts.LoaderByExtension[ext] = parseLoaderName(name)
	}

	return opts, nil
}

func parseFormat(s string) Format {
	switch s {
	case "cjs", "commonjs":
		return FormatCommonJS
	case "iife":
		return FormatIIFE
	case "umd":
		return FormatUMD
	default:
		return FormatESModule
	}
}

func parsePlatform(s string) Platform {
	switch s {
	case "node":
		return PlatformNode
	case "neutral":
		return PlatformNeutral
	default:
		return PlatformBrowser
	}
}

func parseLoaderName(s string) Loader {
	switch s {
	case "js":
		return LoaderJS
	case "json":
		return LoaderJSON
	case "text":
		return LoaderText
	case "file":
		return LoaderFile
	case "copy":
		return LoaderCopy
	case "default":
		return LoaderDefault
	default:
		return LoaderNone
	}
}
