package analysis

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher reports whether a name matches a wildcard pattern.
type Matcher interface {
	Match(name string) bool
}

// CompilePatterns compiles comma-separated wildcard patterns, where * matches
// any run of characters and ? any single character. With fold set the
// patterns are lower-cased, for matching canonical feature names.
func CompilePatterns(lists []string, fold bool) ([]Matcher, error) {
	var out []Matcher
	for _, list := range lists {
		for _, p := range strings.Split(list, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if fold {
				p = strings.ToLower(p)
			}
			g, err := glob.Compile(escapeMeta(p))
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
			out = append(out, g)
		}
	}
	return out, nil
}

// escapeMeta quotes the glob syntax other than * and ?, so brackets and
// braces in demangled names match literally.
func escapeMeta(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '\\', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func matchAny(ms []Matcher, name string) bool {
	return slices.ContainsFunc(ms, func(m Matcher) bool { return m.Match(name) })
}

// Stage is one reduction step over a Usage.
type Stage interface {
	// Apply returns a new Usage holding the entries the stage keeps.
	// The input is not modified.
	Apply(u Usage) Usage
}

// Chain runs stages in sequence.
type Chain struct {
	stages []Stage
}

// NewChain creates a new stage chain.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Apply runs all stages in sequence.
func (c *Chain) Apply(u Usage) Usage {
	for _, s := range c.stages {
		u = s.Apply(u)
	}
	return u
}

// FeatureFilter keeps the feature groups in which any pattern matches any
// single feature. With no patterns every group is kept.
type FeatureFilter struct {
	Patterns []Matcher
}

// Keep reports whether group survives the filter. The baseline group has no
// features and so never survives a non-empty filter.
func (f FeatureFilter) Keep(group string) bool {
	if len(f.Patterns) == 0 {
		return true
	}
	for _, feat := range GroupFeatures(group) {
		if matchAny(f.Patterns, feat) {
			return true
		}
	}
	return false
}

func (f FeatureFilter) total(t Total) Total {
	out := make(Total)
	for g, m := range t {
		if f.Keep(g) {
			out[g] = maps.Clone(m)
		}
	}
	return out
}

// Apply implements Stage.
func (f FeatureFilter) Apply(u Usage) Usage {
	switch u := u.(type) {
	case Total:
		return f.total(u)
	case BySymbol:
		out := make(BySymbol)
		for sym, t := range u {
			if kept := f.total(t); len(kept) > 0 {
				out[sym] = kept
			}
		}
		return out
	}
	return u
}

// SymbolFilter keeps the symbols whose raw name matches a Raw pattern or
// whose demangled name matches a Demangled pattern. With no patterns every
// symbol is kept. Demangle is only called when Demangled is not empty.
type SymbolFilter struct {
	Raw       []Matcher
	Demangled []Matcher
	Demangle  func(string) string
}

// Empty reports whether the filter has no patterns.
func (f SymbolFilter) Empty() bool {
	return len(f.Raw) == 0 && len(f.Demangled) == 0
}

// Keep reports whether the symbol called name survives the filter.
func (f SymbolFilter) Keep(name string) bool {
	if f.Empty() || matchAny(f.Raw, name) {
		return true
	}
	if len(f.Demangled) == 0 {
		return false
	}
	demangled := name
	if f.Demangle != nil {
		demangled = f.Demangle(name)
	}
	return matchAny(f.Demangled, demangled)
}

// Apply implements Stage. A Total has no symbol axis and passes through.
func (f SymbolFilter) Apply(u Usage) Usage {
	switch u := u.(type) {
	case Total:
		return u.clone()
	case BySymbol:
		out := make(BySymbol)
		for sym, t := range u {
			if f.Empty() || f.Keep(sym) {
				out[sym] = t.clone()
			}
		}
		return out
	}
	return u
}

// Filter combines the feature and symbol filters of a query.
type Filter struct {
	Features         []Matcher
	RawSymbols       []Matcher
	DemangledSymbols []Matcher
	Demangle         func(string) string
}

// HasSymbolFilter reports whether any symbol pattern is set.
func (f Filter) HasSymbolFilter() bool {
	return len(f.RawSymbols) > 0 || len(f.DemangledSymbols) > 0
}

// Chain returns the filter as a stage chain. The stages commute.
func (f Filter) Chain() *Chain {
	return NewChain(
		FeatureFilter{Patterns: f.Features},
		SymbolFilter{Raw: f.RawSymbols, Demangled: f.DemangledSymbols, Demangle: f.Demangle},
	)
}

// Apply filters u.
func (f Filter) Apply(u Usage) Usage {
	return f.Chain().Apply(u)
}

// Index derives the feature to symbols index of b. Symbol lists are sorted.
func Index(b BySymbol) FeatureIndex {
	idx := make(FeatureIndex)
	for _, sym := range b.Symbols() {
		for _, feat := range b[sym].Features() {
			idx[feat] = append(idx[feat], sym)
		}
	}
	return idx
}

// Rename re-keys b by rename(symbol). Symbols that map to the same name have
// their counts added together.
func Rename(b BySymbol, rename func(string) string) BySymbol {
	out := make(BySymbol, len(b))
	for sym, t := range b {
		name := rename(sym)
		dst := out[name]
		if dst == nil {
			dst = make(Total, len(t))
			out[name] = dst
		}
		dst.add(t)
	}
	return out
}
