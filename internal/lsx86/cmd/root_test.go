package cmd

import (
	"bytes"
	"debug/elf"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"lsx86/internal/analysis"
	"lsx86/internal/elfx/elftest"
	"lsx86/internal/hostcpu"
)

// movaps xmm0, xmm1 three times, addps xmm0, xmm1, ret
var sseText = []byte{
	0x0f, 0x28, 0xc1,
	0x0f, 0x28, 0xc1,
	0x0f, 0x28, 0xc1,
	0x0f, 0x58, 0xc1,
	0xc3,
}

func writeBinary(t *testing.T, spec elftest.Spec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.out")
	if err := os.WriteFile(path, elftest.Build(spec), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sseBinary(t *testing.T) string {
	return writeBinary(t, elftest.Spec{
		TextAddr: 0x1000,
		Text:     sseText,
		Symbols: []elftest.Symbol{
			{Name: "_Z3addv", Addr: 0x1000, Type: elf.STT_FUNC},
		},
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootReport(t *testing.T) {
	bin := sseBinary(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "default table",
			args: []string{bin},
			want: `Extension Opcode Count
--------- ------ -----
none      ret        1
sse       addps      1
sse       movaps     3
`,
		},
		{
			name: "list",
			args: []string{"-l", bin},
			want: "none\nsse\n",
		},
		{
			name: "json",
			args: []string{"-j", bin},
			want: `{"":{"ret":1},"sse":{"addps":1,"movaps":3}}` + "\n",
		},
		{
			name: "feature filter",
			args: []string{"-j", "-F", "SSE", bin},
			want: `{"sse":{"addps":1,"movaps":3}}` + "\n",
		},
		{
			name: "raw symbols",
			args: []string{"-j", "-s", bin},
			want: `{"_Z3addv":{"":{"ret":1},"sse":{"addps":1,"movaps":3}}}` + "\n",
		},
		{
			name: "demangled symbols",
			args: []string{"-j", "-d", bin},
			want: `{"add()":{"":{"ret":1},"sse":{"addps":1,"movaps":3}}}` + "\n",
		},
		{
			name: "symbol filter promotes to per symbol",
			args: []string{"-j", "-S", "_Z*", bin},
			want: `{"_Z3addv":{"":{"ret":1},"sse":{"addps":1,"movaps":3}}}` + "\n",
		},
		{
			name: "symbol filter without match",
			args: []string{"-j", "-S", "main", bin},
			want: "{}\n",
		},
		{
			name: "group by feature",
			args: []string{"-g", "-l", bin},
			want: "Functions that use sse:\n- _Z3addv\n\n",
		},
		{
			name: "group by feature json",
			args: []string{"-g", "-j", "-d", bin},
			want: `{"sse":["add()"]}` + "\n",
		},
		{
			name: "one worker",
			args: []string{"-w", "1", "-j", "-s", bin},
			want: `{"_Z3addv":{"":{"ret":1},"sse":{"addps":1,"movaps":3}}}` + "\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got != tt.want {
				t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestRootErrors(t *testing.T) {
	bin := sseBinary(t)
	stripped := writeBinary(t, elftest.Spec{TextAddr: 0x1000, Text: sseText, NoSymtab: true})
	arm := writeBinary(t, elftest.Spec{Machine: elf.EM_AARCH64, TextAddr: 0x1000, Text: sseText})
	notELF := filepath.Join(t.TempDir(), "notelf")
	if err := os.WriteFile(notELF, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		args   []string
		target error
		substr string
	}{
		{name: "stripped per symbol", args: []string{"-s", stripped}, target: analysis.ErrNoSymbols},
		{name: "not elf", args: []string{notELF}, target: analysis.ErrInputFormat},
		{name: "wrong machine", args: []string{arm}, target: analysis.ErrInputFormat},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "nope")}, target: os.ErrNotExist},
		{name: "exclusive formats", args: []string{"-l", "-j", bin}, substr: "none of the others can be"},
		{name: "exclusive symbol modes", args: []string{"-s", "-d", bin}, substr: "none of the others can be"},
		{name: "no binary", args: nil, substr: "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error %v is not %v", err, tt.target)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q does not contain %q", err, tt.substr)
			}
		})
	}
}

func TestStrippedTotalStillWorks(t *testing.T) {
	stripped := writeBinary(t, elftest.Spec{TextAddr: 0x1000, Text: sseText, NoSymtab: true})
	got, err := execute(t, "-l", stripped)
	if err != nil {
		t.Fatal(err)
	}
	if got != "none\nsse\n" {
		t.Errorf("got %q", got)
	}
}

func TestConfigQuery(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		mode      analysis.Mode
		effective analysis.Mode
	}{
		{name: "default", cfg: Config{}, mode: analysis.ModeTotal, effective: analysis.ModeTotal},
		{name: "symbols", cfg: Config{ShowSymbols: true}, mode: analysis.ModeBySymbol, effective: analysis.ModeBySymbol},
		{name: "demangled", cfg: Config{ShowDemangled: true}, mode: analysis.ModeBySymbol, effective: analysis.ModeBySymbol},
		{name: "group wins", cfg: Config{GroupByFeature: true, ShowSymbols: true}, mode: analysis.ModeByFeature, effective: analysis.ModeByFeature},
		{name: "filter promotes", cfg: Config{DemangledSymbolFilter: []string{"foo::*"}}, mode: analysis.ModeTotal, effective: analysis.ModeBySymbol},
		{name: "feature filter keeps total", cfg: Config{FeatureFilter: []string{"avx*"}}, mode: analysis.ModeTotal, effective: analysis.ModeTotal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.cfg.Query()
			if err != nil {
				t.Fatal(err)
			}
			if q.Mode != tt.mode {
				t.Errorf("Mode = %v, want %v", q.Mode, tt.mode)
			}
			if got := q.EffectiveMode(); got != tt.effective {
				t.Errorf("EffectiveMode = %v, want %v", got, tt.effective)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	for target, field := range map[string]string{
		"config": "featureFilter",
		"check":  "required_level",
	} {
		t.Run(target, func(t *testing.T) {
			got, err := execute(t, "schema", target)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, field) {
				t.Errorf("schema for %s does not mention %s:\n%s", target, field, got)
			}
		})
	}

	if _, err := execute(t, "schema", "bogus"); err == nil {
		t.Error("expected error for unknown schema target")
	}
}

func TestCheckJSON(t *testing.T) {
	bin := sseBinary(t)
	got, err := execute(t, "check", "--json", bin)
	if err != nil && !errors.Is(err, ErrIncompatible) {
		t.Fatal(err)
	}
	var res hostcpu.Result
	if err := json.Unmarshal([]byte(got), &res); err != nil {
		t.Fatalf("unmarshal %q: %v", got, err)
	}
	if res.RequiredLevel != 1 {
		t.Errorf("RequiredLevel = %d, want 1", res.RequiredLevel)
	}
	if (err == nil) != res.OK() {
		t.Errorf("error %v disagrees with OK() = %v", err, res.OK())
	}
}

func TestWriteCheck(t *testing.T) {
	var buf bytes.Buffer
	writeCheck(&buf, hostcpu.Result{
		Brand:         "Test CPU",
		HostLevel:     2,
		RequiredLevel: 3,
		Missing:       []string{"avx", "avx2"},
	}, false)
	want := `CPU:            Test CPU
Host level:     x86-64-v2
Required level: x86-64-v3
Missing:        avx, avx2
Unchecked:      none
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestBrowseModel(t *testing.T) {
	bin := sseBinary(t)
	a, err := newAnalyzer(bin, 1)
	if err != nil {
		t.Fatal(err)
	}
	msg := analyzeCmd(t.Context(), bin, 1)()
	res, ok := msg.(analysisMsg)
	if !ok {
		t.Fatalf("analyzeCmd returned %T", msg)
	}
	if res.err != nil {
		t.Fatal(res.err)
	}
	if len(res.items) != 1 || res.items[0].demangled != a.Demangle("_Z3addv") || res.items[0].count != 5 {
		t.Fatalf("items = %+v", res.items)
	}

	m := newModel(t.Context(), bin, 1)
	if !strings.Contains(m.View(), "Analyzing") {
		t.Errorf("loading view = %q", m.View())
	}

	next, _ := m.Update(res)
	m = next.(model)
	if m.loading || m.mode != viewSymbols {
		t.Fatalf("loading = %v, mode = %v", m.loading, m.mode)
	}
	next, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(model)
	if m.width != 100 {
		t.Errorf("width = %d", m.width)
	}
	if !strings.Contains(m.View(), "add()") {
		t.Errorf("symbols view does not list add():\n%s", m.View())
	}

	m.showDetails(res.items[0])
	if m.mode != viewDetails {
		t.Errorf("mode = %v after showDetails", m.mode)
	}
	if m.nextMode() != viewSummary {
		t.Errorf("nextMode from details = %v", m.nextMode())
	}
}

func TestBrowseWithoutSymbols(t *testing.T) {
	stripped := writeBinary(t, elftest.Spec{TextAddr: 0x1000, Text: sseText, NoSymtab: true})
	res := analyzeCmd(t.Context(), stripped, 1)().(analysisMsg)
	if res.err != nil {
		t.Fatal(res.err)
	}
	if len(res.items) != 0 || res.total.Count() != 5 {
		t.Fatalf("items = %d, total = %d", len(res.items), res.total.Count())
	}

	next, _ := newModel(t.Context(), stripped, 1).Update(res)
	m := next.(model)
	if m.mode != viewSummary || m.nextMode() != viewSummary {
		t.Errorf("mode = %v, next = %v", m.mode, m.nextMode())
	}
}
