// Package styles holds the colours of lsx86 terminal output.
package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// VS Code dark colours used by reports.
const (
	VSCodeForeground = "#D4D4D4"
	VSCodeInlineCode = "#EACD53"
	VSCodeComment    = "#6A9955"
	VSCodeHeading    = "#569CD6"
	VSCodeLineNumber = "#858585"
)

// TableHeader styles the header row of table reports.
var TableHeader = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color(VSCodeHeading))

// TableRule styles the rule under the header row.
var TableRule = lipgloss.NewStyle().
	Foreground(lipgloss.Color(VSCodeLineNumber))

// palette is what a markdown style is built from. An empty titleBg leaves
// the top heading unboxed.
type palette struct {
	text    string
	heading string
	title   string
	titleBg string
	code    string
	rule    string
}

var reportPalette = palette{
	text:    VSCodeForeground,
	heading: VSCodeHeading,
	title:   VSCodeHeading,
	code:    VSCodeInlineCode,
	rule:    VSCodeLineNumber,
}

var browsePalette = palette{
	text:    charmtone.Smoke.Hex(),
	heading: charmtone.Malibu.Hex(),
	title:   charmtone.Zest.Hex(),
	titleBg: charmtone.Charple.Hex(),
	code:    charmtone.Malibu.Hex(),
	rule:    charmtone.Charcoal.Hex(),
}
