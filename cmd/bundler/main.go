// Command bundler is the CLI entry point wiring config, the resolver,
// loader, graph builder, liveness/chunking, and renamer/printer together
// into a single `bundler` (and `bundler --watch`) invocation - the external
// host spec.md §1 leaves to a caller, built here the way the rest of the
// example pack builds its cobra-based CLIs rather than esbuild's own
// hand-rolled os.Args parser.
package main

import (
	"github.com/module-linker/bundler/cmd/bundler/cmd"
)

func main() {
	cmd.Execute()
}
