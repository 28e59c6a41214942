package report

import (
	"bytes"
	"strings"
	"testing"

	"lsx86/internal/analysis"
	"lsx86/internal/ui/colorize"
)

var (
	sampleTotal = analysis.Report{
		Mode: analysis.ModeTotal,
		Usage: analysis.Total{
			"sse": {"movaps": 3, "addps": 1},
			"":    {"ret": 1},
		},
	}
	sampleBySymbol = analysis.Report{
		Mode: analysis.ModeBySymbol,
		Usage: analysis.BySymbol{
			"f":          {"sse": {"movaps": 12}, "": {"ret": 1}},
			"vector_add": {"avx512vl,avx512f": {"vaddps": 2}},
		},
	}
	sampleByFeature = analysis.Report{
		Mode:  analysis.ModeByFeature,
		Usage: sampleBySymbol.Usage,
		Index: analysis.Index(sampleBySymbol.Usage.(analysis.BySymbol)),
	}
)

func render(t *testing.T, rep analysis.Report, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, rep, opts); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestRenderGolden(t *testing.T) {
	tests := []struct {
		name   string
		rep    analysis.Report
		format Format
		want   string
	}{
		{
			name:   "total table",
			rep:    sampleTotal,
			format: FormatTable,
			want: `Extension Opcode Count
--------- ------ -----
none      ret        1
sse       addps      1
sse       movaps     3
`,
		},
		{
			name:   "by symbol table",
			rep:    sampleBySymbol,
			format: FormatTable,
			want: ` Function     Extension     Opcode Count
---------- ---------------- ------ -----
f          none             ret        1
f          sse              movaps    12
vector_add avx512vl,avx512f vaddps     2
`,
		},
		{
			name:   "by feature table",
			rep:    sampleByFeature,
			format: FormatTable,
			want: `Extension  Function
--------- ----------
avx512f   vector_add
avx512vl  vector_add
sse       f
`,
		},
		{
			name:   "total list",
			rep:    sampleTotal,
			format: FormatList,
			want:   "none\nsse\n",
		},
		{
			name:   "by symbol list",
			rep:    sampleBySymbol,
			format: FormatList,
			want: `Functions that use none:
- f

Functions that use avx512vl,avx512f:
- vector_add

Functions that use sse:
- f

`,
		},
		{
			name:   "by feature list",
			rep:    sampleByFeature,
			format: FormatList,
			want: `Functions that use avx512f:
- vector_add

Functions that use avx512vl:
- vector_add

Functions that use sse:
- f

`,
		},
		{
			name:   "total json",
			rep:    sampleTotal,
			format: FormatJSON,
			want:   `{"":{"ret":1},"sse":{"addps":1,"movaps":3}}` + "\n",
		},
		{
			name:   "by symbol json",
			rep:    sampleBySymbol,
			format: FormatJSON,
			want:   `{"f":{"":{"ret":1},"sse":{"movaps":12}},"vector_add":{"avx512vl,avx512f":{"vaddps":2}}}` + "\n",
		},
		{
			name:   "by feature json",
			rep:    sampleByFeature,
			format: FormatJSON,
			want:   `{"avx512f":["vector_add"],"avx512vl":["vector_add"],"sse":["f"]}` + "\n",
		},
		{
			name:   "total markdown",
			rep:    sampleTotal,
			format: FormatMarkdown,
			want: `# Instruction set extensions

| Extension | Opcode | Count |
| --- | --- | ---: |
| none | ret | 1 |
| sse | addps | 1 |
| sse | movaps | 3 |
`,
		},
		{
			name:   "by symbol markdown",
			rep:    sampleBySymbol,
			format: FormatMarkdown,
			want: "# Instruction set extensions by function\n\n" +
				"| Function | Extension | Opcode | Count |\n| --- | --- | --- | ---: |\n" +
				"| `f` | none | ret | 1 |\n" +
				"| `f` | sse | movaps | 12 |\n" +
				"| `vector_add` | avx512vl,avx512f | vaddps | 2 |\n",
		},
		{
			name:   "by feature markdown",
			rep:    sampleByFeature,
			format: FormatMarkdown,
			want: "# Functions by extension\n" +
				"\n## avx512f\n\n- `vector_add`\n" +
				"\n## avx512vl\n\n- `vector_add`\n" +
				"\n## sse\n\n- `f`\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.rep, Options{Format: tt.format}); got != tt.want {
				t.Errorf("Render() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	empty := analysis.Report{Mode: analysis.ModeTotal, Usage: analysis.Total{}}
	if got := render(t, empty, Options{Format: FormatList}); got != "" {
		t.Errorf("list = %q", got)
	}
	if got := render(t, empty, Options{Format: FormatJSON}); got != "{}\n" {
		t.Errorf("json = %q", got)
	}
	want := "Extension Opcode Count\n--------- ------ -----\n"
	if got := render(t, empty, Options{Format: FormatTable}); got != want {
		t.Errorf("table = %q", got)
	}
}

func TestRenderColor(t *testing.T) {
	t.Setenv(colorize.EnvNoColor, "")
	for _, f := range []Format{FormatTable, FormatJSON, FormatMarkdown} {
		t.Run(f.String(), func(t *testing.T) {
			got := colorize.StripANSI(render(t, sampleTotal, Options{Format: f, Color: true, Width: 60}))
			for _, want := range []string{"movaps", "addps"} {
				if !strings.Contains(got, want) {
					t.Errorf("output does not mention %s:\n%s", want, got)
				}
			}
		})
	}
}

func TestMarkdownEscapesSymbols(t *testing.T) {
	rep := analysis.Report{
		Mode:  analysis.ModeBySymbol,
		Usage: analysis.BySymbol{"operator|(a`b)": {"": {"ret": 1}}},
	}
	md := Markdown(rep)
	if !strings.Contains(md, "| `operator\\|(a'b)` | none | ret | 1 |") {
		t.Errorf("Markdown() =\n%s", md)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatTable, FormatList, FormatJSON, FormatMarkdown} {
		got, err := ParseFormat(strings.ToUpper(f.String()))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %v, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) succeeded")
	}
}
