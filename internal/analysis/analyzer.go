package analysis

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is the number of instructions decoded between
// context checks.
const cancelCheckInterval = 1 << 14

// Options configures an Analyzer.
type Options struct {
	// Decoder creates instruction decoders. Defaults to X86Decoder.
	Decoder DecoderFunc
	// Workers bounds the number of symbol ranges decoded in parallel.
	// Defaults to GOMAXPROCS.
	Workers int
}

// Analyzer computes feature usage for one binary.
type Analyzer struct {
	bitness    int
	region     CodeRegion
	ranges     []SymbolRange
	newDecoder DecoderFunc
	workers    int
	demangler  *Demangler
}

// New validates obj and prepares its code region and symbol ranges.
func New(obj *Object, opts Options) (*Analyzer, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	region, err := NewCodeRegion(obj.Code, obj.CodeVA)
	if err != nil {
		return nil, err
	}
	if opts.Decoder == nil {
		opts.Decoder = X86Decoder
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{
		bitness:    obj.Bitness,
		region:     region,
		ranges:     BuildRanges(region.VA(), region.Size(), obj.Symbols),
		newDecoder: opts.Decoder,
		workers:    opts.Workers,
		demangler:  NewDemangler(),
	}, nil
}

// Bitness returns 32 or 64.
func (a *Analyzer) Bitness() int { return a.bitness }

// Region returns the code region.
func (a *Analyzer) Region() CodeRegion { return a.region }

// Ranges returns the symbol ranges, ordered by offset.
func (a *Analyzer) Ranges() []SymbolRange { return a.ranges }

// Demangle demangles name through the analyzer's cache.
func (a *Analyzer) Demangle(name string) string { return a.demangler.Demangle(name) }

// Total decodes the whole code region once and counts every instruction.
func (a *Analyzer) Total(ctx context.Context) (Total, error) {
	agg := NewAggregator()
	if err := a.decodeInto(ctx, agg, TotalContext, a.region.Bytes()); err != nil {
		return nil, err
	}
	t := agg.Total()
	slog.Debug("Decoded code region", "bytes", a.region.Size(), "instructions", t.Count())
	return t, nil
}

// BySymbol decodes each symbol range separately. Ranges are spread over a
// bounded worker pool; the result does not depend on the worker count.
func (a *Analyzer) BySymbol(ctx context.Context) (BySymbol, error) {
	if len(a.ranges) == 0 {
		return nil, ErrNoSymbols
	}
	batches := batchRanges(a.ranges, a.workers*4)
	partials := make([]*Aggregator, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, batch := range batches {
		g.Go(func() error {
			agg := NewAggregator()
			for _, r := range batch {
				if err := a.decodeInto(gctx, agg, r.Name, a.region.Slice(r)); err != nil {
					return err
				}
			}
			partials[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewAggregator()
	for _, p := range partials {
		merged.Merge(p)
	}
	b := merged.BySymbol()
	slog.Debug("Decoded symbol ranges", "ranges", len(a.ranges), "symbols", len(b),
		"batches", len(batches), "workers", a.workers)
	return b, nil
}

func (a *Analyzer) decodeInto(ctx context.Context, agg *Aggregator, key string, code []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := 0
	for inst := range Instructions(a.newDecoder, code, a.bitness) {
		agg.Add(key, inst)
		n++
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// batchRanges splits ranges into at most n contiguous batches of similar
// byte size.
func batchRanges(ranges []SymbolRange, n int) [][]SymbolRange {
	if n < 1 {
		n = 1
	}
	total := 0
	for _, r := range ranges {
		total += r.Len()
	}
	target := max(total/n, 1)

	var (
		out   [][]SymbolRange
		start int
		size  int
	)
	for i, r := range ranges {
		size += r.Len()
		if size >= target {
			out = append(out, ranges[start:i+1])
			start, size = i+1, 0
		}
	}
	if start < len(ranges) {
		out = append(out, ranges[start:])
	}
	return out
}
