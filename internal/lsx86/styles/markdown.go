package styles

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

func ptr[T any](v T) *T { return &v }

// GetMarkdownRenderer returns the renderer of markdown reports.
func GetMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return newRenderer(reportPalette, width)
}

// GetBrowseRenderer returns the renderer of the interactive browser.
func GetBrowseRenderer(width int) (*glamour.TermRenderer, error) {
	return newRenderer(browsePalette, width)
}

func newRenderer(p palette, width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle(p)),
		glamour.WithWordWrap(width),
	)
}

// markdownStyle styles the markdown reports emit: one title, extension
// subheadings, a count table or bullet lists of symbols in inline code.
func markdownStyle(p palette) ansi.StyleConfig {
	title := ansi.StylePrimitive{
		Prefix: "# ",
		Color:  ptr(p.title),
		Bold:   ptr(true),
	}
	if p.titleBg != "" {
		title.Prefix = " "
		title.Suffix = " "
		title.BackgroundColor = ptr(p.titleBg)
	}

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: ptr(p.text)},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       ptr(p.heading),
				Bold:        ptr(true),
			},
		},
		H1: ansi.StyleBlock{StylePrimitive: title},
		// Extension names under "Functions by extension".
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Prefix: "▸ "},
		},
		Strong: ansi.StylePrimitive{Bold: ptr(true)},
		List: ansi.StyleList{
			LevelIndent: 2,
		},
		Item: ansi.StylePrimitive{BlockPrefix: "• "},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: ptr(p.code)},
		},
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: ptr(p.rule)},
			},
			CenterSeparator: ptr("┼"),
			ColumnSeparator: ptr("│"),
			RowSeparator:    ptr("─"),
		},
	}
}
