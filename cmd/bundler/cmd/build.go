package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/module-linker/bundler/internal/config"
	"github.com/module-linker/bundler/internal/exitcode"
	"github.com/module-linker/bundler/internal/loader"
	"github.com/module-linker/bundler/internal/logger"
	"github.com/module-linker/bundler/internal/watch"
	"github.com/module-linker/bundler/pkg/api"
)

func buildOptionsFor(opts *config.BuildOptions, parse loader.ParseFunc, ignoreFile string) api.BuildOptions {
	return api.BuildOptions{
		BuildOptions: *opts,
		Parse:        parse,
		IgnoreFile:   ignoreFile,
	}
}

func runOnce(ctx context.Context, opts *config.BuildOptions, parse loader.ParseFunc, ignoreFile string) error {
	spinner, _ := pterm.SpinnerPrinter.Start(*pterm.DefaultSpinner.WithRemoveWhenDone())
	spinner.UpdateText("bundling " + strings.Join(opts.EntryPoints, ", "))

	result, err := api.Build(ctx, buildOptionsFor(opts, parse, ignoreFile))
	spinner.Stop()
	if err != nil {
		pterm.Error.Printfln("%v", err)
		return err
	}

	printDiagnostics(result.Errors, result.Warnings)
	if len(result.Errors) > 0 {
		pterm.Error.Printfln("%d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
		return exitcode.Set(fmt.Errorf("build failed"), 1)
	}

	pterm.Success.Printfln("built %d chunk(s)", len(result.Outputs))
	for _, out := range result.Outputs {
		pterm.Info.Printfln("%s (%d bytes)", out.Path, len(out.Contents))
	}
	return nil
}

// runWatch drives internal/watch.Watcher with a BuildFunc closing over the
// same options runOnce uses. api.BuildResult doesn't surface which files a
// build actually read (that bookkeeping lives in the module graph, internal
// to api.Build) so, as a known simplification, the watcher re-watches only
// the entry points themselves rather than every transitively-read file; a
// change to an imported dependency that isn't also an entry point won't by
// itself trigger a rebuild.
func runWatch(ctx context.Context, opts *config.BuildOptions, parse loader.ParseFunc, ignoreFile string) error {
	build := func(ctx context.Context) ([]string, []logger.Msg, error) {
		result, err := api.Build(ctx, buildOptionsFor(opts, parse, ignoreFile))
		if err != nil {
			return opts.EntryPoints, nil, err
		}
		for _, out := range result.Outputs {
			pterm.Info.Printfln("%s (%d bytes)", out.Path, len(out.Contents))
		}
		return opts.EntryPoints, append(append([]logger.Msg{}, result.Errors...), result.Warnings...), nil
	}

	w, err := watch.New(build, func(msgs []logger.Msg, err error) {
		if err != nil {
			pterm.Error.Println(err)
			return
		}
		printDiagnostics(splitByKind(msgs, logger.Error), splitByKind(msgs, logger.Warning))
	})
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	pterm.Info.Println("watching for changes, press Ctrl+C to stop")
	return w.Run(ctx)
}

func splitByKind(msgs []logger.Msg, kind logger.MsgKind) []logger.Msg {
	var out []logger.Msg
	for _, m := range msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func printDiagnostics(errors, warnings []logger.Msg) {
	for _, m := range errors {
		pterm.Error.Println(formatMsg(m))
	}
	for _, m := range warnings {
		pterm.Warning.Println(formatMsg(m))
	}
}

func formatMsg(m logger.Msg) string {
	if loc := m.Data.Location; loc != nil {
		return fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, m.Data.Text)
	}
	return m.Data.Text
}
