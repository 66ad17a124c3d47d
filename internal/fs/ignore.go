package fs

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreMatcher wraps a gitignore-syntax pattern file. A missing or
// unreadable ignore file just means nothing is skipped - it's an opt-in
// convenience, not a required config file.
type ignoreMatcher struct {
	compiled *gitignore.GitIgnore
}

func loadIgnoreMatcher(path string) *ignoreMatcher {
	if path == "" {
		return nil
	}
	compiled, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return &ignoreMatcher{compiled: compiled}
}

func (m *ignoreMatcher) MatchesPath(path string) bool {
	if m == nil || m.compiled == nil {
		return false
	}
	return m.compiled.MatchesPath(path)
}
