package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/glamour"

	"lsx86/internal/ui/colorize"
)

const sampleReport = "# Instruction set extensions by function\n\n" +
	"| Function | Extension | Opcode | Count |\n| --- | --- | --- | ---: |\n" +
	"| `vector_add` | avx512vl,avx512f | vaddps | 12 |\n"

func TestRenderers(t *testing.T) {
	tests := []struct {
		name string
		new  func(int) (*glamour.TermRenderer, error)
	}{
		{"report", GetMarkdownRenderer},
		{"browse", GetBrowseRenderer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.new(100)
			if err != nil {
				t.Fatal(err)
			}
			out, err := r.Render(sampleReport)
			if err != nil {
				t.Fatal(err)
			}
			plain := colorize.StripANSI(out)
			for _, want := range []string{"Instruction set extensions by function", "vector_add", "vaddps", "12"} {
				if !strings.Contains(plain, want) {
					t.Errorf("rendered report lacks %q:\n%s", want, plain)
				}
			}
		})
	}
}

func TestMarkdownStyleTitle(t *testing.T) {
	report := markdownStyle(reportPalette)
	if report.H1.Prefix != "# " || report.H1.BackgroundColor != nil {
		t.Errorf("report title = %+v", report.H1.StylePrimitive)
	}
	browse := markdownStyle(browsePalette)
	if browse.H1.BackgroundColor == nil || *browse.H1.BackgroundColor != browsePalette.titleBg {
		t.Errorf("browse title = %+v", browse.H1.StylePrimitive)
	}
}
