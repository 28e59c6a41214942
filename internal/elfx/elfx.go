// Package elfx opens x86 ELF binaries and extracts the executable code region and symbols the analysis needs.
package elfx

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"syscall"

	"lsx86/internal/analysis"
)

type Image struct {
	Path    string
	File    *elf.File
	All     []byte
	Bitness int
	Loads   []Seg
	Text    Section
	Syms    []Sym
	Dynsyms []Sym
	f       *os.File
	mapped  bool
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

type Sym struct {
	Name string
	Addr uint64
}

// Open maps the file at path and parses it.
func Open(path string) (*Image, error) {
	of, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.Size() == 0 {
		of.Close()
		return nil, fmt.Errorf("%w: %s is empty", analysis.ErrInputFormat, path)
	}
	if fi.Size() > math.MaxInt {
		of.Close()
		return nil, fmt.Errorf("%w: %s is too large to map", analysis.ErrMalformedLayout, path)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im, err := NewImage(all)
	if err != nil {
		syscall.Munmap(all)
		of.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	im.Path = path
	im.f = of
	im.mapped = true
	return im, nil
}

// NewImage parses an ELF image held in data. The image refers to data
// until it is closed.
func NewImage(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrInputFormat, err)
	}
	im := &Image{File: f, All: data}

	switch f.Machine {
	case elf.EM_386:
		im.Bitness = 32
	case elf.EM_X86_64:
		im.Bitness = 64
	default:
		return nil, fmt.Errorf("%w: unsupported machine %v", analysis.ErrInputFormat, f.Machine)
	}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	if s := f.Section(".text"); s != nil && s.Type != elf.SHT_NOBITS {
		im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
	}
	// Fallback if stripped of section headers.
	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				slog.Debug("No .text section, using executable segment", "va", l.Vaddr, "size", l.Filesz)
				break
			}
		}
	}
	if im.Text.Size == 0 {
		return nil, fmt.Errorf("%w: no code section", analysis.ErrInputFormat)
	}
	if err := im.checkLayout(); err != nil {
		return nil, err
	}

	im.loadStaticSymbols()
	im.loadDynamicSymbols()
	return im, nil
}

func (im *Image) checkLayout() error {
	t := im.Text
	switch {
	case t.Off > math.MaxUint64-t.Size:
		return fmt.Errorf("%w: %s offset %#x with size %#x overflows", analysis.ErrMalformedLayout, t.Name, t.Off, t.Size)
	case t.VA > math.MaxUint64-t.Size:
		return fmt.Errorf("%w: %s at %#x with size %#x overflows the address space", analysis.ErrMalformedLayout, t.Name, t.VA, t.Size)
	case t.Size > math.MaxInt:
		return fmt.Errorf("%w: %s size %#x is too large", analysis.ErrMalformedLayout, t.Name, t.Size)
	case t.Off+t.Size > uint64(len(im.All)):
		return fmt.Errorf("%w: %s [%#x, %#x) exceeds the file size %#x", analysis.ErrMalformedLayout,
			t.Name, t.Off, t.Off+t.Size, len(im.All))
	}
	return nil
}

// Close unmaps the memory and closes the underlying file.
func (im *Image) Close() error {
	var err1, err2 error
	if im.mapped && im.All != nil {
		err1 = syscall.Munmap(im.All)
	}
	im.All = nil
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	return errors.Join(err1, err2)
}

// Code returns a copy of the code region's bytes, independent of the mapping.
func (im *Image) Code() []byte {
	return bytes.Clone(im.All[im.Text.Off : im.Text.Off+im.Text.Size])
}

// Symbols returns the static then the dynamic symbols.
func (im *Image) Symbols() []analysis.SymbolEntry {
	out := make([]analysis.SymbolEntry, 0, len(im.Syms)+len(im.Dynsyms))
	for _, tab := range [][]Sym{im.Syms, im.Dynsyms} {
		for _, s := range tab {
			out = append(out, analysis.SymbolEntry{Name: s.Name, Addr: s.Addr})
		}
	}
	return out
}

// Object returns the analysis view of the image.
func (im *Image) Object() *analysis.Object {
	return &analysis.Object{
		Bitness: im.Bitness,
		Code:    im.Code(),
		CodeVA:  im.Text.VA,
		Symbols: im.Symbols(),
	}
}

// Load opens path and returns its analysis view. The file is unmapped
// before Load returns.
func Load(path string) (*analysis.Object, error) {
	im, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer im.Close()
	obj := im.Object()
	slog.Debug("Loaded binary", "file", path, "bitness", obj.Bitness, "code_va", obj.CodeVA,
		"code_size", len(obj.Code), "symbols", len(obj.Symbols))
	return obj, nil
}

// loadStaticSymbols loads symbols from .symtab. Stripped binaries have none.
func (im *Image) loadStaticSymbols() {
	syms, err := im.File.Symbols()
	if err != nil {
		if !errors.Is(err, elf.ErrNoSymbols) {
			slog.Debug("Skipping static symbols", "err", err)
		}
		return
	}
	im.Syms = keepSymbols(syms)
}

// loadDynamicSymbols loads symbols from .dynsym.
func (im *Image) loadDynamicSymbols() {
	syms, err := im.File.DynamicSymbols()
	if err != nil {
		if !errors.Is(err, elf.ErrNoSymbols) {
			slog.Debug("Skipping dynamic symbols", "err", err)
		}
		return
	}
	im.Dynsyms = keepSymbols(syms)
}

// keepSymbols drops unnamed, undefined, section and file symbols.
func keepSymbols(syms []elf.Symbol) []Sym {
	out := make([]Sym, 0, len(syms))
	for _, s := range syms {
		if s.Name == "" || s.Section == elf.SHN_UNDEF {
			continue
		}
		switch elf.ST_TYPE(s.Info) {
		case elf.STT_SECTION, elf.STT_FILE:
			continue
		}
		out = append(out, Sym{Name: s.Name, Addr: s.Value})
	}
	return out
}
