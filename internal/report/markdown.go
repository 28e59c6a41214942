package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"lsx86/internal/analysis"
	"lsx86/internal/lsx86/styles"
)

var mdEscaper = strings.NewReplacer("|", `\|`, "`", "'")

// code formats s as inline code safe inside a table cell.
func code(s string) string {
	return "`" + mdEscaper.Replace(s) + "`"
}

// Markdown returns the markdown source of rep.
func Markdown(rep analysis.Report) string {
	var b strings.Builder
	if rep.Mode == analysis.ModeByFeature {
		b.WriteString("# Functions by extension\n")
		for _, feat := range rep.Index.Features() {
			fmt.Fprintf(&b, "\n## %s\n\n", feat)
			for _, sym := range rep.Index[feat] {
				fmt.Fprintf(&b, "- %s\n", code(sym))
			}
		}
		return b.String()
	}

	switch u := rep.Usage.(type) {
	case analysis.Total:
		b.WriteString("# Instruction set extensions\n\n")
		b.WriteString("| Extension | Opcode | Count |\n| --- | --- | ---: |\n")
		writeTotalRows(&b, "", u)
	case analysis.BySymbol:
		b.WriteString("# Instruction set extensions by function\n\n")
		b.WriteString("| Function | Extension | Opcode | Count |\n| --- | --- | --- | ---: |\n")
		for _, sym := range u.Symbols() {
			writeTotalRows(&b, code(sym)+" | ", u[sym])
		}
	}
	return b.String()
}

func writeTotalRows(b *strings.Builder, prefix string, t analysis.Total) {
	for _, g := range t.Groups() {
		for _, mn := range slices.Sorted(maps.Keys(t[g])) {
			fmt.Fprintf(b, "| %s%s | %s | %d |\n", prefix, Label(g), mn, t[g][mn])
		}
	}
}

func renderMarkdown(w io.Writer, rep analysis.Report, opts Options) error {
	md := Markdown(rep)
	if !opts.Color {
		_, err := io.WriteString(w, md)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = 80
	}
	r, err := styles.GetMarkdownRenderer(width)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
