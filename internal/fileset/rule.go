package fileset

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Tier is the precedence level that decided an Outcome.
type Tier int

const (
	TierNone Tier = iota
	TierForceInclude
	TierExclude
	TierInclude
	TierDefault
)

func (t Tier) String() string {
	switch t {
	case TierForceInclude:
		return "force_include"
	case TierExclude:
		return "exclude"
	case TierInclude:
		return "include"
	case TierDefault:
		return "default"
	default:
		return "none"
	}
}

// Rule holds the glob lists of one component.
type Rule struct {
	Component    string
	Include      []string
	Exclude      []string
	ForceInclude []string
}

// Outcome is the result of evaluating a Rule against one path. Pattern is
// the last-declared pattern of the deciding tier that matched.
type Outcome struct {
	Included bool
	Tier     Tier
	Pattern  string
}

// Evaluate runs the three-tier evaluator for a single path.
func (r Rule) Evaluate(path string) Outcome {
	if p, ok := lastMatch(r.ForceInclude, path); ok {
		return Outcome{Included: true, Tier: TierForceInclude, Pattern: p}
	}
	if p, ok := lastMatch(r.Exclude, path); ok {
		return Outcome{Tier: TierExclude, Pattern: p}
	}
	if len(r.Include) > 0 {
		if p, ok := lastMatch(r.Include, path); ok {
			return Outcome{Included: true, Tier: TierInclude, Pattern: p}
		}
		return Outcome{}
	}
	if p, ok := lastMatch(DefaultPatterns(r.Component), path); ok {
		return Outcome{Included: true, Tier: TierDefault, Pattern: p}
	}
	return Outcome{}
}

// Forced reports whether the path matches one of the force_include patterns.
func (r Rule) Forced(path string) bool {
	_, ok := lastMatch(r.ForceInclude, path)
	return ok
}

// Validate checks that every pattern of the rule is well formed.
func (r Rule) Validate() error {
	lists := []struct {
		name     string
		patterns []string
	}{
		{"include", r.Include},
		{"exclude", r.Exclude},
		{"force_include", r.ForceInclude},
	}
	for _, l := range lists {
		for _, p := range l.patterns {
			if err := validatePattern(p); err != nil {
				return fmt.Errorf("component %q: invalid %s pattern %q: %w", r.Component, l.name, p, err)
			}
		}
	}
	return nil
}

// validatePattern checks each segment of a pattern, since doublestar only
// reports malformed segments it actually reaches while matching.
func validatePattern(pattern string) error {
	if pattern == "" {
		return doublestar.ErrBadPattern
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return err
		}
	}
	return nil
}

func lastMatch(patterns []string, path string) (string, bool) {
	for i := len(patterns) - 1; i >= 0; i-- {
		if ok, err := doublestar.Match(patterns[i], path); err == nil && ok {
			return patterns[i], true
		}
	}
	return "", false
}
