package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// EnvNoColor disables all highlighting when set to a non-empty value.
const EnvNoColor = "LSX86_NO_COLOR"

// Disabled reports whether highlighting is turned off by the environment.
func Disabled() bool {
	return os.Getenv(EnvNoColor) != ""
}

// getReportStyle returns the report style with fallbacks
func getReportStyle() *chroma.Style {
	candidates := []string{ReportDark.Name, "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	// Try high-color first, then fallback
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// highlight tokenises code with the named lexer and formats it for the
// terminal. On any failure the input is returned unchanged.
func highlight(lexerName, code string) (string, error) {
	if Disabled() {
		return code, nil
	}

	lexer := lexers.Get(lexerName)
	if lexer == nil {
		return code, nil
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getReportStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// JSON applies syntax highlighting to a JSON document.
func JSON(doc string) (string, error) {
	return highlight("json", doc)
}

// StripANSI removes ANSI escape codes from s.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
