// Package disasm decodes x86 and x86-64 machine code into instructions
// annotated with the CPUID feature sets they require.
//
// Legacy and SSE encodings are decoded with golang.org/x/arch/x86/x86asm.
// VEX and EVEX encodings are sized by a prefix and ModRM walker in this
// package and named by rebuilding the equivalent legacy encoding.
package disasm

// Inst is a decoded instruction.
type Inst struct {
	Offset   int       // byte offset of the instruction in the decoded buffer
	Len      int       // encoded length in bytes
	Mnemonic string    // mnemonic in lowercase
	Features []Feature // CPUID features required, empty for baseline instructions
}

// Invalid reports whether the decoder could not recognise the bytes at Offset.
func (i Inst) Invalid() bool { return i.Mnemonic == MnemonicInvalid }

// Stream is a linear sequence of instructions.
type Stream []Inst

// MnemonicInvalid names the 1-byte instruction produced for unrecognised bytes.
const MnemonicInvalid = "invalid"

// MnemonicUnknown names a well-formed VEX or EVEX instruction whose opcode is
// not in the naming tables.
const MnemonicUnknown = "unknown"

type status int

const (
	decoded status = iota
	truncated
	unrecognized
)

// Decoder walks a byte buffer one instruction at a time.
// It resynchronises on unrecognised bytes by skipping one byte and stops
// at the first instruction that runs past the end of the buffer.
type Decoder struct {
	mode    int
	code    []byte
	pos     int
	next    Inst
	pending bool
	done    bool
}

// NewDecoder returns a decoder for code executing in the given bitness
// (16, 32 or 64). Any other bitness yields a decoder with nothing to decode.
func NewDecoder(bitness int, code []byte) *Decoder {
	d := &Decoder{mode: bitness, code: code}
	switch bitness {
	case 16, 32, 64:
	default:
		d.done = true
	}
	return d
}

// CanDecode reports whether another complete instruction is available.
func (d *Decoder) CanDecode() bool {
	if d.pending {
		return true
	}
	if d.done || d.pos >= len(d.code) {
		return false
	}
	inst, st := decodeOne(d.code[d.pos:], d.mode)
	if st == truncated {
		d.done = true
		return false
	}
	inst.Offset = d.pos
	d.next, d.pending = inst, true
	return true
}

// Decode returns the next instruction. It returns the zero Inst when
// CanDecode would report false.
func (d *Decoder) Decode() Inst {
	if !d.CanDecode() {
		return Inst{}
	}
	inst := d.next
	d.next, d.pending = Inst{}, false
	d.pos += inst.Len
	return inst
}

// Offset returns the position of the next undecoded byte.
func (d *Decoder) Offset() int { return d.pos }

// All decodes the whole buffer.
func All(bitness int, code []byte) Stream {
	var out Stream
	d := NewDecoder(bitness, code)
	for d.CanDecode() {
		out = append(out, d.Decode())
	}
	return out
}

func invalidInst() Inst {
	return Inst{Len: 1, Mnemonic: MnemonicInvalid}
}

// decodeOne decodes the instruction at the start of src.
// An unrecognised encoding yields a 1-byte invalid instruction.
func decodeOne(src []byte, mode int) (Inst, status) {
	if inst, st, ok := decodeExtra(src, mode); ok {
		return inst, st
	}

	pre, addr16 := 0, mode == 16
scan:
	for pre < len(src) && pre < maxInstLen {
		switch src[pre] {
		case prefixES, prefixCS, prefixSS, prefixDS, prefixFS, prefixGS:
		case prefixAddrSize:
			addr16 = mode == 32
		default:
			break scan
		}
		pre++
	}
	if pre < len(src) && isVectorEscape(src[pre:], mode) {
		inst, st := decodeVector(src, pre, mode, addr16)
		if st == unrecognized {
			return invalidInst(), unrecognized
		}
		return inst, st
	}
	return decodeLegacy(src, mode)
}
