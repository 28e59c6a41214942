package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// ReportDark is the style used for highlighted JSON reports.
var ReportDark = styles.Register(chroma.MustNewStyle("lsx86-dark", chroma.StyleEntries{
	chroma.Text:       "#D4D4D4",
	chroma.Background: "bg:#1e1e1e",

	// Object keys are feature groups, symbols and mnemonics.
	chroma.NameTag:     "#9CDCFE",
	chroma.NameBuiltin: "#569CD6", // true, false, null

	chroma.LiteralNumber:        "#B5CEA8",
	chroma.LiteralNumberInteger: "#B5CEA8",
	chroma.LiteralNumberFloat:   "#B5CEA8",

	chroma.String:              "#CE9178",
	chroma.LiteralStringDouble: "#CE9178",

	chroma.Punctuation: "#808080",
	chroma.Operator:    "#808080",
}))
