package analysis

import (
	"iter"
	"slices"

	"lsx86/internal/disasm"
)

// Decoder yields classified instructions from a byte buffer.
// CanDecode is the only stopping condition: decoders must not fail on
// padding, data or truncated trailing bytes.
type Decoder interface {
	CanDecode() bool
	Decode() Instruction
}

// DecoderFunc creates a Decoder for code executing in the given bitness.
type DecoderFunc func(bitness int, code []byte) Decoder

// X86Decoder returns a Decoder backed by the disasm package.
func X86Decoder(bitness int, code []byte) Decoder {
	return x86Decoder{disasm.NewDecoder(bitness, code)}
}

type x86Decoder struct {
	d *disasm.Decoder
}

func (x x86Decoder) CanDecode() bool { return x.d.CanDecode() }

func (x x86Decoder) Decode() Instruction {
	inst := x.d.Decode()
	var features []string
	if len(inst.Features) > 0 {
		features = make([]string, len(inst.Features))
		for i, f := range inst.Features {
			features[i] = string(f)
		}
	}
	return Instruction{Mnemonic: inst.Mnemonic, Features: features}
}

// Instructions decodes code lazily, in order.
func Instructions(newDecoder DecoderFunc, code []byte, bitness int) iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		dec := newDecoder(bitness, code)
		for dec.CanDecode() {
			if !yield(dec.Decode()) {
				return
			}
		}
	}
}

// Classify decodes code into its ordered instruction sequence.
func Classify(newDecoder DecoderFunc, code []byte, bitness int) []Instruction {
	return slices.Collect(Instructions(newDecoder, code, bitness))
}
