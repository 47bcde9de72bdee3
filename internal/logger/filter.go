package logger

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/orgoj/rotalog/internal/config"
	"github.com/orgoj/rotalog/internal/level"
)

type filterRule struct {
	pattern  string
	matcher  glob.Glob
	minLevel level.Level
}

// Filters raises the minimum level for records emitted from matching source
// files. The first matching rule decides.
type Filters struct {
	rules []filterRule
}

// NewFilters compiles the configured rules. Patterns use '/' as separator,
// so "*" stays within one directory and "**" crosses directories.
func NewFilters(rules []config.FilterRule) (*Filters, error) {
	f := &Filters{rules: make([]filterRule, 0, len(rules))}
	for i, r := range rules {
		g, err := glob.Compile(r.Match, '/')
		if err != nil {
			return nil, fmt.Errorf("filter %d: invalid pattern '%s': %w", i, r.Match, err)
		}
		f.rules = append(f.rules, filterRule{pattern: r.Match, matcher: g, minLevel: r.MinLevel})
	}
	return f, nil
}

// Suppress reports whether a record at l from file must be dropped.
func (f *Filters) Suppress(file string, l level.Level) bool {
	if f == nil {
		return false
	}
	for _, r := range f.rules {
		if r.matcher.Match(file) {
			return l < r.minLevel
		}
	}
	return false
}

// Len returns the number of rules.
func (f *Filters) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rules)
}
