// This package contains internal CLI-related code that must be shared with
// other internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"

	"github.com/module-linker/bundler/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

// ParseLoader maps the name half of a `--loader ".ext=name"` CLI value to an
// api.Loader.
// Trimmed to this spec's JS-only loader set (no css/ts/tsx/binary/dataurl -
// see config.Loader's doc comment and SPEC_FULL.md's DOMAIN STACK "teacher
// domain deps not wired" note on CSS being out of scope).
func ParseLoader(text string) (api.Loader, *ErrorWithNote) {
	switch text {
	case "copy":
		return api.LoaderCopy, nil
	case "default":
		return api.LoaderDefault, nil
	case "file":
		return api.LoaderFile, nil
	case "js":
		return api.LoaderJS, nil
	case "json":
		return api.LoaderJSON, nil
	case "text":
		return api.LoaderText, nil
	default:
		return api.LoaderNone, MakeErrorWithNote(
			fmt.Sprintf("Invalid loader value: %q", text),
			"Valid values are \"copy\", \"default\", \"file\", \"js\", \"json\", or \"text\".",
		)
	}
}
