package fileset

import (
	"fmt"
	"slices"
)

// Classifier assigns install-tree paths to the components of one artifact.
type Classifier struct {
	rules []Rule
}

// NewClassifier validates the rules and orders them canonically: dbg, dev,
// doc, lib, run, test, then custom components in the order given.
func NewClassifier(rules []Rule) (*Classifier, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Component == "" {
			return nil, fmt.Errorf("component name is empty")
		}
		if seen[r.Component] {
			return nil, fmt.Errorf("component %q declared twice", r.Component)
		}
		seen[r.Component] = true
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	ordered := make([]Rule, 0, len(rules))
	for _, kind := range CanonicalOrder {
		if i := slices.IndexFunc(rules, func(r Rule) bool { return r.Component == kind }); i >= 0 {
			ordered = append(ordered, rules[i])
		}
	}
	for _, r := range rules {
		if !IsCanonical(r.Component) {
			ordered = append(ordered, r)
		}
	}
	return &Classifier{rules: ordered}, nil
}

// Components returns the component names in evaluation order.
func (c *Classifier) Components() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Component
	}
	return names
}

// Claim is one component's ownership of a path.
type Claim struct {
	Component string
	Outcome   Outcome
}

// Classify returns the components claiming the path. Force-included paths
// are claimed by every forcing component; otherwise at most one component
// claims the path.
func (c *Classifier) Classify(path string) []Claim {
	var forced []Claim
	for _, r := range c.rules {
		if r.Forced(path) {
			forced = append(forced, Claim{Component: r.Component, Outcome: r.Evaluate(path)})
		}
	}
	if len(forced) > 0 {
		return forced
	}
	for _, r := range c.rules {
		if out := r.Evaluate(path); out.Included {
			return []Claim{{Component: r.Component, Outcome: out}}
		}
	}
	return nil
}

// Partition classifies every path and groups them by component. Paths that
// no component claims are returned separately.
func (c *Classifier) Partition(paths []string) (map[string][]string, []string) {
	groups := make(map[string][]string, len(c.rules))
	var unclaimed []string
	for _, p := range paths {
		claims := c.Classify(p)
		if len(claims) == 0 {
			unclaimed = append(unclaimed, p)
			continue
		}
		for _, cl := range claims {
			groups[cl.Component] = append(groups[cl.Component], p)
		}
	}
	return groups, unclaimed
}
