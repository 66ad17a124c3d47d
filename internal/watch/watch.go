// Package watch is the supplemental watch-mode file system observer named
// in SPEC_FULL.md (out of the core per spec.md §1: "the watch-mode file
// system observer"). It re-invokes a build whenever a file the previous
// build actually read changes, using fsnotify instead of esbuild's own
// cross-platform polling watcher - esbuild avoids fsnotify to dodge cgo on
// some of its 20+ supported platforms, a constraint this project, wired the
// way the rest of the pack does file watching, doesn't share.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/module-linker/bundler/internal/logger"
)

// BuildFunc runs one build and reports the files it read, so Watcher knows
// what to add to fsnotify after the build completes - spec.md §6's
// "watchFiles (all files whose change should re-run this build)".
type BuildFunc func(ctx context.Context) (watchFiles []string, msgs []logger.Msg, err error)

// Watcher re-runs build whenever one of the files from its last run's
// watchFiles changes, until Close is called or ctx is cancelled.
type Watcher struct {
	build   BuildFunc
	fsw     *fsnotify.Watcher
	watched map[string]bool
	onBuild func([]logger.Msg, error)
}

// New creates a watcher. It does not build; Run triggers the first build.
func New(build BuildFunc, onBuild func([]logger.Msg, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{build: build, fsw: fsw, watched: make(map[string]bool), onBuild: onBuild}
	return w, nil
}

// Run triggers the first build, starts watching the directories of the
// files that build reported in watchFiles, and then
// blocks handling fsnotify events and rebuilding until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.runBuildAndRewatch(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return w.fsw.Close()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.runBuildAndRewatch(ctx); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.onBuild(nil, err)
		}
	}
}

func (w *Watcher) runBuildAndRewatch(ctx context.Context) error {
	watchFiles, msgs, err := w.build(ctx)
	w.onBuild(msgs, err)

	seen := make(map[string]bool, len(watchFiles))
	for _, file := range watchFiles {
		dir := filepath.Dir(file)
		seen[dir] = true
		if !w.watched[dir] {
			// fsnotify watches directories, not individual files (matching
			// the pack's own FSNotifyFileWatcher.Add usage) - a rename/unlink
			// of the file itself still surfaces as an event on its directory.
			if addErr := w.fsw.Add(dir); addErr == nil {
				w.watched[dir] = true
			}
		}
	}
	for dir := range w.watched {
		if !seen[dir] {
			w.fsw.Remove(dir)
			delete(w.watched, dir)
		}
	}
	return nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
