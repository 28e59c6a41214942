package analysis

// TotalContext is the aggregation context used for whole-region counts.
const TotalContext = ""

// Aggregator counts instructions by context, feature group and mnemonic.
// The zero value is not usable; call NewAggregator.
type Aggregator struct {
	counts BySymbol
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{counts: make(BySymbol)}
}

// Add counts inst under context, which is a symbol name or TotalContext.
func (a *Aggregator) Add(context string, inst Instruction) {
	t := a.counts[context]
	if t == nil {
		t = make(Total)
		a.counts[context] = t
	}
	group := GroupKey(inst.Features)
	m := t[group]
	if m == nil {
		m = make(MnemonicCounts)
		t[group] = m
	}
	m[inst.Mnemonic]++
}

// Merge adds the counts of other into a.
func (a *Aggregator) Merge(other *Aggregator) {
	for ctx, t := range other.counts {
		dst := a.counts[ctx]
		if dst == nil {
			dst = make(Total, len(t))
			a.counts[ctx] = dst
		}
		dst.add(t)
	}
}

// Total returns the counts recorded under TotalContext.
func (a *Aggregator) Total() Total {
	out := make(Total)
	if t, ok := a.counts[TotalContext]; ok {
		out.add(t)
	}
	return out
}

// BySymbol returns a copy of the counts of every context.
func (a *Aggregator) BySymbol() BySymbol {
	out := make(BySymbol, len(a.counts))
	for ctx, t := range a.counts {
		c := make(Total, len(t))
		c.add(t)
		out[ctx] = c
	}
	return out
}
