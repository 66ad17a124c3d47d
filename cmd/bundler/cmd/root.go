// Package cmd holds the bundler CLI's cobra command tree: one root command
// (no subcommands - a bundler run always means "build these entry points")
// with its flags bound into a config.Load call the way SPEC_FULL.md's
// AMBIENT STACK section describes, grounded on the cobra+viper root command
// pattern the rest of the example pack uses for its own CLIs.
package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/module-linker/bundler/internal/cli_helpers"
	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/exitcode"
	"github.com/module-linker/bundler/internal/jsparser"
)

var (
	cfgFile string

	flagEntryPoints []string
	flagOutdir      string
	flagFormat      string
	flagPlatform    string
	flagBundle      bool
	flagSplitting   bool
	flagExternal    []string
	flagPure        []string
	flagLoader      []string
	flagWatch       bool
	flagIgnoreFile  string
)

var rootCmd = &cobra.Command{
	Use:   "bundler [entry points...]",
	Short: "Bundle JavaScript modules into a handful of ordered output chunks",
	Long: `bundler resolves and loads an entry module's transitive imports, tree-shakes
whatever never runs, partitions what's left into chunks, and renames and
emits each one in the requested module format (esm, cjs, iife, or umd).`,
	Args: cobra.ArbitraryArgs,
	RunE: runBuild,
}

// Execute is the CLI's single entry point, called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		exitcode.Exit(err)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to a YAML config file merged underneath these flags")
	flags.StringSliceVar(&flagEntryPoints, "entry", nil, "entry point module specifier (repeatable; positional args work too)")
	flags.StringVar(&flagOutdir, "outdir", "", "output directory recorded in diagnostics (bundler returns bytes, it does not write files - spec.md §1)")
	flags.StringVar(&flagFormat, "format", "esm", "output format: esm, cjs, iife, or umd")
	flags.StringVar(&flagPlatform, "platform", "browser", "target platform: browser, node, or neutral")
	flags.BoolVar(&flagBundle, "bundle", true, "bundle imports into the output chunks")
	flags.BoolVar(&flagSplitting, "splitting", false, "recorded in the build options but not read: modules shared by entry points always get their own chunk")
	flags.StringSliceVar(&flagExternal, "external", nil, "specifier glob to leave unresolved at the chunk boundary (repeatable)")
	flags.StringSliceVar(&flagPure, "pure", nil, "callee name whose calls are treated as side-effect-free initializers (repeatable)")
	flags.StringArrayVar(&flagLoader, "loader", nil, `".ext=name" loader override, e.g. ".mjs=js" (repeatable)`)
	flags.BoolVar(&flagWatch, "watch", false, "rebuild whenever an entry point changes")
	flags.StringVar(&flagIgnoreFile, "ignore-file", "", "gitignore-style file of paths excluded from directory scans")
}

func runBuild(cobraCmd *cobra.Command, args []string) error {
	entries := append(append([]string{}, flagEntryPoints...), args...)
	if len(entries) == 0 {
		return fmt.Errorf("at least one entry point is required (--entry, or a positional argument)")
	}

	loaderOverrides := map[string]string{}
	for _, item := range flagLoader {
		name, ext, ok := splitLoaderFlag(item)
		if !ok {
			return fmt.Errorf("malformed --loader value %q, expected \".ext=name\"", item)
		}
		if _, errNote := cli_helpers.ParseLoader(name); errNote != nil {
			return fmt.Errorf("--loader %q: %s (%s)", item, errNote.Text, errNote.Note)
		}
		loaderOverrides[ext] = name
	}

	opts, err := configFromFlags(entries, loaderOverrides)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	parse := jsparser.New(opts.IsPureFunction)

	if opts.Watch {
		return runWatch(cobraCmd.Context(), opts, parse, flagIgnoreFile)
	}
	return runOnce(cobraCmd.Context(), opts, parse, flagIgnoreFile)
}

func splitLoaderFlag(item string) (name, ext string, ok bool) {
	parts := strings.SplitN(item, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[0], true
}

func configFromFlags(entries []string, loaderOverrides map[string]string) (*config.BuildOptions, error) {
	return config.Load(cfgFile, func(v *viper.Viper) {
		v.Set("entryPoints", entries)
		if flagOutdir != "" {
			v.Set("outdir", flagOutdir)
		}
		v.Set("format", flagFormat)
		v.Set("platform", flagPlatform)
		v.Set("bundle", flagBundle)
		v.Set("splitting", flagSplitting)
		if len(flagExternal) > 0 {
			v.Set("external", flagExternal)
		}
		if len(flagPure) > 0 {
			v.Set("pure", flagPure)
		}
		if flagWatch {
			v.Set("watch", true)
		}
		if len(loaderOverrides) > 0 {
			v.Set("loader", loaderOverrides)
		}
	})
}
