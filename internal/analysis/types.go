package analysis

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Object is the loader's view of an x86 binary: its executable code and the
// symbols that may point into it.
type Object struct {
	Bitness int           // 32 or 64
	Code    []byte        // bytes of the code region
	CodeVA  uint64        // virtual address of Code[0]
	Symbols []SymbolEntry // raw symbols, unsorted, possibly duplicated
}

// Validate checks the invariants the core relies on.
func (o *Object) Validate() error {
	if o.Bitness != 32 && o.Bitness != 64 {
		return fmt.Errorf("%w: unsupported bitness %d", ErrInputFormat, o.Bitness)
	}
	_, err := NewCodeRegion(o.Code, o.CodeVA)
	return err
}

// SymbolEntry is a named address taken from a symbol table.
type SymbolEntry struct {
	Name string
	Addr uint64
}

// SymbolRange is the byte extent of a symbol, relative to the start of the
// code region.
type SymbolRange struct {
	Name  string
	Begin int
	End   int
}

// Len returns the size of the range in bytes.
func (r SymbolRange) Len() int { return r.End - r.Begin }

// CodeRegion is the executable code of a binary. It is never modified after
// construction.
type CodeRegion struct {
	data []byte
	va   uint64
}

// NewCodeRegion returns the region for data loaded at va.
func NewCodeRegion(data []byte, va uint64) (CodeRegion, error) {
	if va > math.MaxUint64-uint64(len(data)) {
		return CodeRegion{}, fmt.Errorf("%w: code region at %#x with size %d overflows the address space",
			ErrMalformedLayout, va, len(data))
	}
	return CodeRegion{data: data, va: va}, nil
}

// Bytes returns the region's bytes. Callers must not modify them.
func (c CodeRegion) Bytes() []byte { return c.data }

// VA returns the virtual address of the first byte.
func (c CodeRegion) VA() uint64 { return c.va }

// Size returns the region size in bytes.
func (c CodeRegion) Size() int { return len(c.data) }

// Slice returns the bytes covered by r.
func (c CodeRegion) Slice(r SymbolRange) []byte { return c.data[r.Begin:r.End] }

// Instruction is one decoded instruction reduced to what aggregation needs.
type Instruction struct {
	Mnemonic string
	Features []string
}

// GroupKey returns the canonical feature-group key of features: lower-cased
// names in decoder order joined by commas. Baseline instructions have the
// empty key.
func GroupKey(features []string) string {
	switch len(features) {
	case 0:
		return ""
	case 1:
		return strings.ToLower(features[0])
	}
	lower := make([]string, len(features))
	for i, f := range features {
		lower[i] = strings.ToLower(f)
	}
	return strings.Join(lower, ",")
}

// GroupFeatures splits a group key back into its feature names.
func GroupFeatures(group string) []string {
	if group == "" {
		return nil
	}
	return strings.Split(group, ",")
}

// MnemonicCounts maps a mnemonic to its number of occurrences.
type MnemonicCounts map[string]int

// Usage is the result of an analysis: either Total or BySymbol.
type Usage interface {
	isUsage()
}

// Total maps a feature group to the mnemonics counted in it.
type Total map[string]MnemonicCounts

// BySymbol maps a symbol name to the Total of the instructions in its range.
type BySymbol map[string]Total

func (Total) isUsage()    {}
func (BySymbol) isUsage() {}

// Groups returns the feature groups in lexicographic order.
func (t Total) Groups() []string {
	return sortedKeys(t)
}

// Count returns the number of instructions in t.
func (t Total) Count() int {
	n := 0
	for _, m := range t {
		for _, c := range m {
			n += c
		}
	}
	return n
}

// Features returns every individual feature used in t, sorted.
func (t Total) Features() []string {
	seen := make(map[string]bool)
	for g := range t {
		for _, f := range GroupFeatures(g) {
			seen[f] = true
		}
	}
	return sortedKeys(seen)
}

// add merges counts of other into t.
func (t Total) clone() Total {
	c := make(Total, len(t))
	c.add(t)
	return c
}

func (t Total) add(other Total) {
	for g, m := range other {
		dst := t[g]
		if dst == nil {
			dst = make(MnemonicCounts, len(m))
			t[g] = dst
		}
		for mn, c := range m {
			dst[mn] += c
		}
	}
}

// Symbols returns the symbol names in lexicographic order.
func (b BySymbol) Symbols() []string {
	return sortedKeys(b)
}

// FeatureIndex maps a feature name to the sorted symbols that use it.
type FeatureIndex map[string][]string

// Features returns the indexed features in lexicographic order.
func (fi FeatureIndex) Features() []string {
	return sortedKeys(fi)
}

// sortedKeys returns the keys of m in lexicographic order.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
