package analysis

import (
	"context"
	"fmt"
)

// Mode selects the shape of a report.
type Mode int

const (
	// ModeTotal counts instructions over the whole code region.
	ModeTotal Mode = iota
	// ModeBySymbol counts instructions per symbol.
	ModeBySymbol
	// ModeByFeature lists, for each feature, the symbols using it.
	ModeByFeature
)

func (m Mode) String() string {
	switch m {
	case ModeTotal:
		return "total"
	case ModeBySymbol:
		return "by-symbol"
	case ModeByFeature:
		return "by-feature"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Query describes one analysis request.
type Query struct {
	Mode   Mode
	Filter Filter
	// ShowDemangled reports symbols under their demangled names.
	ShowDemangled bool
}

// EffectiveMode returns the mode the query runs in. Symbol filters and
// demangled names need per-symbol counts, so they promote ModeTotal to
// ModeBySymbol.
func (q Query) EffectiveMode() Mode {
	if q.Mode == ModeTotal && (q.Filter.HasSymbolFilter() || q.ShowDemangled) {
		return ModeBySymbol
	}
	return q.Mode
}

// Report is the filtered result of a Query.
type Report struct {
	Mode  Mode
	Usage Usage        // Total for ModeTotal, BySymbol otherwise
	Index FeatureIndex // set for ModeByFeature
}

// Total returns the report's usage when it is a Total.
func (r Report) Total() (Total, bool) {
	t, ok := r.Usage.(Total)
	return t, ok
}

// BySymbol returns the report's usage when it is a BySymbol.
func (r Report) BySymbol() (BySymbol, bool) {
	b, ok := r.Usage.(BySymbol)
	return b, ok
}

// Run executes q.
func (a *Analyzer) Run(ctx context.Context, q Query) (Report, error) {
	if q.Filter.Demangle == nil {
		q.Filter.Demangle = a.Demangle
	}
	mode := q.EffectiveMode()
	if mode == ModeTotal {
		t, err := a.Total(ctx)
		if err != nil {
			return Report{}, err
		}
		return Report{Mode: mode, Usage: q.Filter.Apply(t)}, nil
	}

	b, err := a.BySymbol(ctx)
	if err != nil {
		return Report{}, err
	}
	b = q.Filter.Apply(b).(BySymbol)
	if q.ShowDemangled {
		b = Rename(b, q.Filter.Demangle)
	}
	rep := Report{Mode: mode, Usage: b}
	if mode == ModeByFeature {
		rep.Index = Index(b)
	}
	return rep, nil
}
