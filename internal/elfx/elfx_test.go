package elfx

import (
	"debug/elf"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"lsx86/internal/analysis"
	"lsx86/internal/elfx/elftest"
)

var sampleText = []byte{
	0x0f, 0x28, 0xc1,       // movaps xmm0, xmm1
	0xc3,                   // ret
	0xc5, 0xfc, 0x58, 0xc1, // vaddps ymm0, ymm0, ymm1
	0xc3,
}

func TestNewImage(t *testing.T) {
	tests := []struct {
		name        string
		spec        elftest.Spec
		wantBitness int
		wantText    string
		wantSyms    []Sym
	}{
		{
			name: "elf64",
			spec: elftest.Spec{
				TextAddr: 0x401000,
				Text:     sampleText,
				Symbols: []elftest.Symbol{
					{Name: "f", Addr: 0x401000, Type: elf.STT_FUNC},
					{Name: "g", Addr: 0x401004, Type: elf.STT_FUNC},
					{Name: "crt.c", Type: elf.STT_FILE},
					{Name: "", Addr: 0x401002},
					{Name: "memcpy", Undefined: true, Type: elf.STT_FUNC},
				},
			},
			wantBitness: 64,
			wantText:    ".text",
			wantSyms:    []Sym{{"f", 0x401000}, {"g", 0x401004}},
		},
		{
			name: "elf32",
			spec: elftest.Spec{
				Class:    elf.ELFCLASS32,
				Machine:  elf.EM_386,
				TextAddr: 0x8049000,
				Text:     sampleText,
				Symbols:  []elftest.Symbol{{Name: "main", Addr: 0x8049000, Type: elf.STT_FUNC}},
			},
			wantBitness: 32,
			wantText:    ".text",
			wantSyms:    []Sym{{"main", 0x8049000}},
		},
		{
			name: "no text section",
			spec: elftest.Spec{
				TextName: ".code",
				TextAddr: 0x1000,
				Text:     sampleText,
				NoSymtab: true,
			},
			wantBitness: 64,
			wantText:    "LOAD(exec)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, err := NewImage(elftest.Build(tt.spec))
			if err != nil {
				t.Fatal(err)
			}
			defer im.Close()
			if im.Bitness != tt.wantBitness {
				t.Errorf("Bitness = %d, want %d", im.Bitness, tt.wantBitness)
			}
			if im.Text.Name != tt.wantText || im.Text.VA != tt.spec.TextAddr || im.Text.Size != uint64(len(sampleText)) {
				t.Errorf("Text = %+v", im.Text)
			}
			if !reflect.DeepEqual(im.Code(), sampleText) {
				t.Errorf("Code() = % x", im.Code())
			}
			if len(tt.wantSyms) == 0 && len(im.Syms) == 0 {
				return
			}
			if !reflect.DeepEqual(im.Syms, tt.wantSyms) {
				t.Errorf("Syms = %v, want %v", im.Syms, tt.wantSyms)
			}
		})
	}
}

func TestNewImageErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not elf", []byte("#!/bin/sh\necho hi\n"), analysis.ErrInputFormat},
		{"arm64", elftest.Build(elftest.Spec{Machine: elf.EM_AARCH64, Text: sampleText}), analysis.ErrInputFormat},
		{"empty code", elftest.Build(elftest.Spec{TextAddr: 0x1000}), analysis.ErrInputFormat},
		{"code past end of file", elftest.Build(elftest.Spec{TextAddr: 0x1000, Text: sampleText, TextOffset: 1 << 20}),
			analysis.ErrMalformedLayout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImage(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewImage() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.out")
	data := elftest.Build(elftest.Spec{
		TextAddr: 0x401000,
		Text:     sampleText,
		Symbols:  []elftest.Symbol{{Name: "f", Addr: 0x401000, Type: elf.STT_FUNC}},
	})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	obj, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := &analysis.Object{
		Bitness: 64,
		Code:    sampleText,
		CodeVA:  0x401000,
		Symbols: []analysis.SymbolEntry{{Name: "f", Addr: 0x401000}},
	}
	if !reflect.DeepEqual(obj, want) {
		t.Errorf("Load() = %+v, want %+v", obj, want)
	}
	if err := obj.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(empty); !errors.Is(err, analysis.ErrInputFormat) {
		t.Errorf("Open(empty) error = %v", err)
	}
	if _, err := Open(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v", err)
	}
}

func FuzzNewImage(f *testing.F) {
	f.Add(elftest.Build(elftest.Spec{TextAddr: 0x1000, Text: sampleText,
		Symbols: []elftest.Symbol{{Name: "f", Addr: 0x1000}}}))
	f.Add(elftest.Build(elftest.Spec{Class: elf.ELFCLASS32, Machine: elf.EM_386, TextAddr: 0x1000, Text: sampleText}))
	f.Fuzz(func(t *testing.T, data []byte) {
		im, err := NewImage(data)
		if err != nil {
			return
		}
		obj := im.Object()
		if err := obj.Validate(); err != nil {
			t.Fatalf("loaded object fails validation: %v", err)
		}
		if uint64(len(obj.Code)) != im.Text.Size {
			t.Fatalf("code size %d, section size %d", len(obj.Code), im.Text.Size)
		}
	})
}
