// Package elftest builds small synthetic x86 ELF images for tests.
//
// An image has one PT_LOAD segment covering the code, and the sections
// null, code, .strtab, .symtab and .shstrtab, in that order.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Symbol is a symbol table entry. Symbols are defined in the code section
// unless Undefined is set.
type Symbol struct {
	Name      string
	Addr      uint64
	Type      elf.SymType
	Undefined bool
}

// Spec describes an image.
type Spec struct {
	Class    elf.Class   // ELFCLASS64 unless set
	Machine  elf.Machine // EM_X86_64 unless set
	TextName string      // ".text" unless set
	TextAddr uint64
	Text     []byte
	Symbols  []Symbol
	// TextOffset, when non-zero, replaces the file offset recorded for the
	// code section and segment.
	TextOffset uint64
	// NoSymtab emits an empty symbol table.
	NoSymtab bool
}

const (
	secText = 1 + iota
	secStrtab
	secSymtab
	secShstrtab
	numSections
)

type layout struct {
	is64                        bool
	ehsize, phentsize, shentsize uint64
	symentsize                  uint64
	textOff, strOff, symOff     uint64
	shstrOff, shoff             uint64
	strtab, shstrtab            []byte
	nameOff                     []uint32
	shName                      [numSections]uint32
	syms                        []Symbol
}

func align8(n uint64) uint64 { return (n + 7) &^ 7 }

func plan(s Spec) layout {
	l := layout{is64: s.Class != elf.ELFCLASS32}
	if l.is64 {
		l.ehsize, l.phentsize, l.shentsize, l.symentsize = 64, 56, 64, 24
	} else {
		l.ehsize, l.phentsize, l.shentsize, l.symentsize = 52, 32, 40, 16
	}
	if !s.NoSymtab {
		l.syms = s.Symbols
	}

	l.strtab = []byte{0}
	for _, sym := range l.syms {
		l.nameOff = append(l.nameOff, uint32(len(l.strtab)))
		l.strtab = append(append(l.strtab, sym.Name...), 0)
	}
	textName := s.TextName
	if textName == "" {
		textName = ".text"
	}
	l.shstrtab = []byte{0}
	for i, name := range []string{textName, ".strtab", ".symtab", ".shstrtab"} {
		l.shName[i+1] = uint32(len(l.shstrtab))
		l.shstrtab = append(append(l.shstrtab, name...), 0)
	}

	l.textOff = l.ehsize + l.phentsize
	l.strOff = l.textOff + uint64(len(s.Text))
	l.symOff = align8(l.strOff + uint64(len(l.strtab)))
	l.shstrOff = l.symOff + uint64(len(l.syms)+1)*l.symentsize
	l.shoff = align8(l.shstrOff + uint64(len(l.shstrtab)))
	return l
}

// Build returns the bytes of the image described by s.
func Build(s Spec) []byte {
	if s.Machine == 0 {
		s.Machine = elf.EM_X86_64
	}
	l := plan(s)
	textOff := l.textOff
	if s.TextOffset != 0 {
		textOff = s.TextOffset
	}

	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	pad := func(off uint64) {
		for uint64(buf.Len()) < off {
			buf.WriteByte(0)
		}
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	if !l.is64 {
		ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	}
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	size := uint64(len(s.Text))
	flags := uint32(elf.PF_R | elf.PF_X)
	type section struct {
		typ                elf.SectionType
		flags              elf.SectionFlag
		addr, off, size    uint64
		link, info         uint32
		addralign, entsize uint64
	}
	sections := [numSections]section{
		secText:     {elf.SHT_PROGBITS, elf.SHF_ALLOC | elf.SHF_EXECINSTR, s.TextAddr, textOff, size, 0, 0, 16, 0},
		secStrtab:   {elf.SHT_STRTAB, 0, 0, l.strOff, uint64(len(l.strtab)), 0, 0, 1, 0},
		secSymtab:   {elf.SHT_SYMTAB, 0, 0, l.symOff, uint64(len(l.syms)+1) * l.symentsize, secStrtab, 1, 8, l.symentsize},
		secShstrtab: {elf.SHT_STRTAB, 0, 0, l.shstrOff, uint64(len(l.shstrtab)), 0, 0, 1, 0},
	}

	if l.is64 {
		w(elf.Header64{
			Ident: ident, Type: uint16(elf.ET_EXEC), Machine: uint16(s.Machine),
			Version: uint32(elf.EV_CURRENT), Entry: s.TextAddr, Phoff: l.ehsize, Shoff: l.shoff,
			Ehsize: uint16(l.ehsize), Phentsize: uint16(l.phentsize), Phnum: 1,
			Shentsize: uint16(l.shentsize), Shnum: numSections, Shstrndx: secShstrtab,
		})
		w(elf.Prog64{
			Type: uint32(elf.PT_LOAD), Flags: flags, Off: textOff, Vaddr: s.TextAddr,
			Paddr: s.TextAddr, Filesz: size, Memsz: size, Align: 0x1000,
		})
	} else {
		w(elf.Header32{
			Ident: ident, Type: uint16(elf.ET_EXEC), Machine: uint16(s.Machine),
			Version: uint32(elf.EV_CURRENT), Entry: uint32(s.TextAddr), Phoff: uint32(l.ehsize),
			Shoff: uint32(l.shoff), Ehsize: uint16(l.ehsize), Phentsize: uint16(l.phentsize), Phnum: 1,
			Shentsize: uint16(l.shentsize), Shnum: numSections, Shstrndx: secShstrtab,
		})
		w(elf.Prog32{
			Type: uint32(elf.PT_LOAD), Off: uint32(textOff), Vaddr: uint32(s.TextAddr),
			Paddr: uint32(s.TextAddr), Filesz: uint32(size), Memsz: uint32(size), Flags: flags, Align: 0x1000,
		})
	}

	pad(l.textOff)
	buf.Write(s.Text)
	pad(l.strOff)
	buf.Write(l.strtab)
	pad(l.symOff)
	if l.is64 {
		w(elf.Sym64{})
	} else {
		w(elf.Sym32{})
	}
	for i, sym := range l.syms {
		info := elf.ST_INFO(elf.STB_GLOBAL, sym.Type)
		shndx := uint16(secText)
		if sym.Undefined {
			shndx = uint16(elf.SHN_UNDEF)
		}
		if l.is64 {
			w(elf.Sym64{Name: l.nameOff[i], Info: info, Shndx: shndx, Value: sym.Addr})
		} else {
			w(elf.Sym32{Name: l.nameOff[i], Info: info, Shndx: shndx, Value: uint32(sym.Addr)})
		}
	}
	pad(l.shstrOff)
	buf.Write(l.shstrtab)
	pad(l.shoff)

	for i, sec := range sections {
		if l.is64 {
			w(elf.Section64{
				Name: l.shName[i], Type: uint32(sec.typ), Flags: uint64(sec.flags), Addr: sec.addr,
				Off: sec.off, Size: sec.size, Link: sec.link, Info: sec.info,
				Addralign: sec.addralign, Entsize: sec.entsize,
			})
		} else {
			w(elf.Section32{
				Name: l.shName[i], Type: uint32(sec.typ), Flags: uint32(sec.flags), Addr: uint32(sec.addr),
				Off: uint32(sec.off), Size: uint32(sec.size), Link: sec.link, Info: sec.info,
				Addralign: uint32(sec.addralign), Entsize: uint32(sec.entsize),
			})
		}
	}
	return buf.Bytes()
}
