// Package fileset classifies install-tree paths into artifact components.
//
// Every component carries a Rule with three pattern lists evaluated in
// tiers: force_include wins over exclude, and exclude wins over include.
// When a rule has no include patterns the component kind's default
// membership is used instead. Patterns are doublestar globs over
// slash-separated paths relative to the install tree root.
//
// A Classifier combines the rules of one artifact. A path is claimed by
// every component whose force_include matches it; otherwise by the first
// component, in canonical order, whose rule includes it.
package fileset
