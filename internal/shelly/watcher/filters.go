package watcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FilterMatcher holds pre-compiled ignore patterns
type FilterMatcher struct {
	ignoreRegexes []*regexp.Regexp
}

// NewFilterMatcher compiles glob patterns; invalid patterns are dropped
func NewFilterMatcher(patterns []string) *FilterMatcher {
	fm := &FilterMatcher{
		ignoreRegexes: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, pattern := range patterns {
		if compiled, err := regexp.Compile(globToRegex(pattern)); err == nil {
			fm.ignoreRegexes = append(fm.ignoreRegexes, compiled)
		}
	}
	return fm
}

// globToRegex converts a glob pattern to a regular expression
func globToRegex(glob string) string {
	// Escape special regex characters except * and ?
	regex := regexp.QuoteMeta(glob)
	regex = strings.ReplaceAll(regex, `\*`, ".*")
	regex = strings.ReplaceAll(regex, `\?`, ".")
	return "^" + regex + "$"
}

// Ignored reports whether path is an editor temporary file or matches an ignore pattern
func (fm *FilterMatcher) Ignored(path string) bool {
	filename := filepath.Base(path)

	// Skip common editor temporary files
	if strings.HasPrefix(filename, ".") && (strings.HasSuffix(filename, ".swp") ||
		strings.HasSuffix(filename, ".tmp") ||
		strings.Contains(filename, ".sw")) {
		return true
	}
	if strings.HasSuffix(filename, "~") || strings.HasPrefix(filename, ".#") {
		return true
	}

	if fm == nil {
		return false
	}
	for _, regex := range fm.ignoreRegexes {
		if regex.MatchString(filename) || regex.MatchString(path) {
			return true
		}
	}
	return false
}
