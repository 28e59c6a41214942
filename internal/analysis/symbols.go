package analysis

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ianlancetaylor/demangle"
)

// BuildRanges partitions the code region [codeVA, codeVA+codeSize) into
// per-symbol ranges.
//
// Symbols at address zero or outside the region are dropped and exact
// duplicates collapse to one entry. The survivors are ordered by address,
// then name. Each range runs from its symbol to the next symbol, the last
// one to the end of the region, so symbols sharing an address produce
// zero-width ranges except for the last of them.
func BuildRanges(codeVA uint64, codeSize int, syms []SymbolEntry) []SymbolRange {
	if codeSize <= 0 {
		return nil
	}
	end := codeVA + uint64(codeSize)
	kept := make([]SymbolEntry, 0, len(syms))
	for _, s := range syms {
		if s.Addr == 0 || s.Addr < codeVA || s.Addr >= end {
			continue
		}
		kept = append(kept, s)
	}
	slices.SortStableFunc(kept, func(a, b SymbolEntry) int {
		return cmp.Or(cmp.Compare(a.Addr, b.Addr), cmp.Compare(a.Name, b.Name))
	})
	kept = slices.Compact(kept)

	ranges := make([]SymbolRange, len(kept))
	for i, s := range kept {
		ranges[i].Name = s.Name
		ranges[i].Begin = int(s.Addr - codeVA)
		if i > 0 {
			ranges[i-1].End = ranges[i].Begin
		}
	}
	if n := len(ranges); n > 0 {
		ranges[n-1].End = codeSize
	}
	slog.Debug("Built symbol ranges", "symbols", len(syms), "ranges", len(ranges),
		"dropped", len(syms)-len(ranges))
	return ranges
}

// Demangler demangles symbol names, caching the results.
// It is safe for concurrent use.
type Demangler struct {
	mu    sync.RWMutex
	cache map[string]string
	hits  atomic.Int64
}

// NewDemangler returns an empty Demangler.
func NewDemangler() *Demangler {
	return &Demangler{cache: make(map[string]string)}
}

// Demangle returns the demangled form of name, or name itself when it is
// not a mangled C++ or Rust symbol.
func (d *Demangler) Demangle(name string) string {
	d.mu.RLock()
	if cached, ok := d.cache[name]; ok {
		d.mu.RUnlock()
		d.hits.Add(1)
		return cached
	}
	d.mu.RUnlock()

	demangled := demangle.Filter(name, demangle.NoClones)

	d.mu.Lock()
	d.cache[name] = demangled
	d.mu.Unlock()
	return demangled
}

// Stats returns the number of cached names and cache hits.
func (d *Demangler) Stats() (cached, hits int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache), int(d.hits.Load())
}
