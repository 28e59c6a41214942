// Package report renders analysis results as lists, aligned tables, JSON
// documents or markdown.
//
// Rendering is a pure function of an analysis.Report: iteration is
// lexicographic on every key, so identical results render identically.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"lsx86/internal/analysis"
)

// NoneLabel names the group of instructions that need no extension.
const NoneLabel = "none"

// Format selects the output shape.
type Format int

const (
	FormatTable Format = iota
	FormatList
	FormatJSON
	FormatMarkdown
)

func (f Format) String() string {
	switch f {
	case FormatTable:
		return "table"
	case FormatList:
		return "list"
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "markdown"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat returns the format called name.
func ParseFormat(name string) (Format, error) {
	for f := FormatTable; f <= FormatMarkdown; f++ {
		if strings.EqualFold(name, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown output format %q", name)
}

// Options controls rendering.
type Options struct {
	Format Format
	// Color enables ANSI styling: table headers, JSON highlighting and
	// rendered markdown.
	Color bool
	// Width is the wrap width of rendered markdown. Zero means 80.
	Width int
}

// Label returns the display name of a feature group.
func Label(group string) string {
	if group == "" {
		return NoneLabel
	}
	return group
}

// Render writes rep to w.
func Render(w io.Writer, rep analysis.Report, opts Options) error {
	switch opts.Format {
	case FormatList:
		return renderList(w, rep)
	case FormatTable:
		return renderTable(w, rep, opts.Color)
	case FormatJSON:
		return renderJSON(w, rep, opts.Color)
	case FormatMarkdown:
		return renderMarkdown(w, rep, opts)
	}
	return fmt.Errorf("unknown output format %v", opts.Format)
}

// errWriter keeps the first write error so renderers can write freely and
// check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderList(w io.Writer, rep analysis.Report) error {
	ew := &errWriter{w: w}
	if rep.Mode == analysis.ModeByFeature {
		for _, feat := range rep.Index.Features() {
			ew.printf("Functions that use %s:\n", feat)
			for _, sym := range rep.Index[feat] {
				ew.printf("- %s\n", sym)
			}
			ew.printf("\n")
		}
		return ew.err
	}

	switch u := rep.Usage.(type) {
	case analysis.Total:
		for _, g := range u.Groups() {
			ew.printf("%s\n", Label(g))
		}
	case analysis.BySymbol:
		users := groupUsers(u)
		for _, g := range slices.Sorted(maps.Keys(users)) {
			ew.printf("Functions that use %s:\n", Label(g))
			for _, sym := range users[g] {
				ew.printf("- %s\n", sym)
			}
			ew.printf("\n")
		}
	}
	return ew.err
}

// groupUsers maps each feature group to the sorted symbols with
// instructions in it.
func groupUsers(b analysis.BySymbol) map[string][]string {
	users := make(map[string][]string)
	for _, sym := range b.Symbols() {
		for g := range b[sym] {
			users[g] = append(users[g], sym)
		}
	}
	return users
}
