package report

import (
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"lsx86/internal/analysis"
	"lsx86/internal/lsx86/styles"
)

type table struct {
	header []string
	right  []bool // right-aligned columns
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header, right: make([]bool, len(header))}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	ws := make([]int, len(t.header))
	for i, h := range t.header {
		ws[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			ws[i] = max(ws[i], lipgloss.Width(c))
		}
	}
	return ws
}

func pad(s string, width int, right bool) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

func center(s string, width int) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	return strings.Repeat(" ", n/2) + s + strings.Repeat(" ", n-n/2)
}

// write prints the table with centred headers, a dashed rule and columns
// separated by one space. Trailing blanks are trimmed.
func (t *table) write(w io.Writer, color bool) error {
	ws := t.widths()
	cells := make([]string, len(ws))

	for i, h := range t.header {
		cells[i] = center(h, ws[i])
	}
	header := strings.TrimRight(strings.Join(cells, " "), " ")
	for i, n := range ws {
		cells[i] = strings.Repeat("-", n)
	}
	rule := strings.Join(cells, " ")
	if color {
		header = styles.TableHeader.Render(header)
		rule = styles.TableRule.Render(rule)
	}

	ew := &errWriter{w: w}
	ew.printf("%s\n%s\n", header, rule)
	for _, row := range t.rows {
		for i, c := range row {
			cells[i] = pad(c, ws[i], t.right[i])
		}
		ew.printf("%s\n", strings.TrimRight(strings.Join(cells, " "), " "))
	}
	return ew.err
}

func addTotalRows(t *table, prefix []string, total analysis.Total) {
	for _, g := range total.Groups() {
		counts := total[g]
		for _, mn := range slices.Sorted(maps.Keys(counts)) {
			t.add(append(slices.Clone(prefix), Label(g), mn, strconv.Itoa(counts[mn]))...)
		}
	}
}

func renderTable(w io.Writer, rep analysis.Report, color bool) error {
	if rep.Mode == analysis.ModeByFeature {
		t := newTable("Extension", "Function")
		for _, feat := range rep.Index.Features() {
			for _, sym := range rep.Index[feat] {
				t.add(feat, sym)
			}
		}
		return t.write(w, color)
	}

	switch u := rep.Usage.(type) {
	case analysis.Total:
		t := newTable("Extension", "Opcode", "Count")
		t.right[2] = true
		addTotalRows(t, nil, u)
		return t.write(w, color)
	case analysis.BySymbol:
		t := newTable("Function", "Extension", "Opcode", "Count")
		t.right[3] = true
		for _, sym := range u.Symbols() {
			addTotalRows(t, []string{sym}, u[sym])
		}
		return t.write(w, color)
	}
	return nil
}
