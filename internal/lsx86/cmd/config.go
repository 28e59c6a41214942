package cmd

import (
	"github.com/spf13/cobra"

	"lsx86/internal/analysis"
	"lsx86/internal/report"
)

// Config is the resolved configuration of a report run.
type Config struct {
	Format                string   `json:"format" jsonschema:"title=Format,enum=table,enum=list,enum=json,enum=markdown,default=table"`
	ShowSymbols           bool     `json:"showSymbols" jsonschema:"title=Show Symbols,description=Report per raw symbol name"`
	ShowDemangled         bool     `json:"showDemangled" jsonschema:"title=Show Demangled,description=Report per demangled symbol name"`
	GroupByFeature        bool     `json:"groupByFeature" jsonschema:"title=Group By Feature,description=List the functions using each extension"`
	FeatureFilter         []string `json:"featureFilter,omitempty" jsonschema:"title=Feature Filter,description=Comma-separated wildcard patterns over extension names"`
	RawSymbolFilter       []string `json:"rawSymbolFilter,omitempty" jsonschema:"title=Raw Symbol Filter,description=Comma-separated wildcard patterns over raw symbol names"`
	DemangledSymbolFilter []string `json:"demangledSymbolFilter,omitempty" jsonschema:"title=Demangled Symbol Filter,description=Comma-separated wildcard patterns over demangled symbol names"`
	Workers               int      `json:"workers,omitempty" jsonschema:"title=Workers,description=Symbol ranges decoded in parallel,minimum=0"`
	Debug                 bool     `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	CPUProfile            string   `json:"cpuProfile,omitempty" jsonschema:"title=CPU Profile,description=Path for CPU profile output"`
	MemProfile            string   `json:"memProfile,omitempty" jsonschema:"title=Memory Profile,description=Path for heap profile output"`
}

func configFromFlags(cmd *cobra.Command) Config {
	var cfg Config
	flags := cmd.Flags()

	cfg.Format = report.FormatTable.String()
	for _, f := range []report.Format{report.FormatList, report.FormatJSON, report.FormatMarkdown} {
		if on, _ := flags.GetBool(f.String()); on {
			cfg.Format = f.String()
		}
	}
	cfg.ShowSymbols, _ = flags.GetBool("show-symbol")
	cfg.ShowDemangled, _ = flags.GetBool("show-demangled")
	cfg.GroupByFeature, _ = flags.GetBool("group-by-feature")
	cfg.FeatureFilter, _ = flags.GetStringArray("feature-filter")
	cfg.RawSymbolFilter, _ = flags.GetStringArray("raw-symbol-filter")
	cfg.DemangledSymbolFilter, _ = flags.GetStringArray("demangled-symbol-filter")
	cfg.Workers, _ = flags.GetInt("workers")
	cfg.Debug, _ = flags.GetBool("debug")
	cfg.CPUProfile, _ = flags.GetString("cpuprofile")
	cfg.MemProfile, _ = flags.GetString("memprofile")
	return cfg
}

// Query translates the configuration into an analysis query.
func (c Config) Query() (analysis.Query, error) {
	var (
		q   analysis.Query
		err error
	)
	switch {
	case c.GroupByFeature:
		q.Mode = analysis.ModeByFeature
	case c.ShowSymbols || c.ShowDemangled:
		q.Mode = analysis.ModeBySymbol
	}
	q.ShowDemangled = c.ShowDemangled

	if q.Filter.Features, err = analysis.CompilePatterns(c.FeatureFilter, true); err != nil {
		return q, err
	}
	if q.Filter.RawSymbols, err = analysis.CompilePatterns(c.RawSymbolFilter, false); err != nil {
		return q, err
	}
	if q.Filter.DemangledSymbols, err = analysis.CompilePatterns(c.DemangledSymbolFilter, false); err != nil {
		return q, err
	}
	return q, nil
}
