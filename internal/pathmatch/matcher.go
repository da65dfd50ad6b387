// Package pathmatch evaluates include/exclude glob sets against
// workspace-relative, slash-separated paths.
//
// Patterns use doublestar syntax (`**`, `{a,b}`, character classes) and are
// matched case-sensitively. A pattern that does not match the full path is
// retried against the base name, so `*.go` matches `src/main.go`.
package pathmatch

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds an include set and an exclude set. Exclude wins on conflict.
type Matcher struct {
	include []string
	exclude []string
}

// New creates a matcher. An empty include set matches every path.
// It returns an error if any pattern is malformed.
func New(include, exclude []string) (*Matcher, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Matcher{
		include: append([]string(nil), include...),
		exclude: append([]string(nil), exclude...),
	}, nil
}

// Match reports whether rel is selected: not excluded, and included.
func (m *Matcher) Match(rel string) bool {
	if m.Excluded(rel) {
		return false
	}
	return m.Included(rel)
}

// Included reports whether rel matches the include set.
func (m *Matcher) Included(rel string) bool {
	if len(m.include) == 0 {
		return true
	}
	return MatchAny(m.include, rel)
}

// Excluded reports whether rel matches the exclude set.
func (m *Matcher) Excluded(rel string) bool {
	return MatchAny(m.exclude, rel)
}

// ExcludesDir reports whether an entire directory can be skipped: some
// exclude pattern of the form `<prefix>/**` matches the directory itself.
func (m *Matcher) ExcludesDir(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, p := range m.exclude {
		prefix, ok := strings.CutSuffix(p, "/**")
		if !ok || prefix == "" {
			continue
		}
		if matchOne(prefix, rel) {
			return true
		}
	}
	return false
}

// MatchAny reports whether rel matches any of the patterns, falling back
// to the base name for each pattern.
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if matchOne(p, rel) {
			return true
		}
	}
	return false
}

func matchOne(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	base := path.Base(rel)
	if base == rel {
		return false
	}
	ok, _ := doublestar.Match(pattern, base)
	return ok
}

// SplitPatterns splits a comma-separated pattern list. Commas inside brace
// groups belong to the pattern, so "**/*.{go,ts}, docs/**" yields two
// patterns. Entries are trimmed and empty entries dropped.
func SplitPatterns(list string) []string {
	var (
		out   []string
		depth int
		start int
	)
	flush := func(end int) {
		if p := strings.TrimSpace(list[start:end]); p != "" {
			out = append(out, p)
		}
	}
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(list))
	return out
}
