package report

import (
	"encoding/json"
	"fmt"
	"io"

	"lsx86/internal/analysis"
	"lsx86/internal/ui/colorize"
)

// document returns the value serialised for rep. Feature groups keep their
// raw keys, so the baseline group is "".
func document(rep analysis.Report) any {
	if rep.Mode == analysis.ModeByFeature {
		if rep.Index == nil {
			return analysis.FeatureIndex{}
		}
		return rep.Index
	}
	return rep.Usage
}

func renderJSON(w io.Writer, rep analysis.Report, color bool) error {
	doc := document(rep)
	if !color {
		bts, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", bts)
		return err
	}

	bts, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	out, err := colorize.JSON(string(bts))
	if err != nil {
		out = string(bts)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
