package analysis

// fakeOps maps a single code byte to the instruction a fakeDecoder yields.
var fakeOps = map[byte]Instruction{
	0x01: {Mnemonic: "movaps", Features: []string{"sse"}},
	0x02: {Mnemonic: "addps", Features: []string{"sse"}},
	0x03: {Mnemonic: "ret"},
	0x04: {Mnemonic: "vpaddd", Features: []string{"AVX2"}},
	0x05: {Mnemonic: "vaddps", Features: []string{"avx512vl", "avx512f"}},
	0x06: {Mnemonic: "pshufb", Features: []string{"ssse3"}},
}

// fakeDecoder decodes one instruction per byte using fakeOps.
type fakeDecoder struct {
	code []byte
	pos  int
}

func newFakeDecoder(_ int, code []byte) Decoder {
	return &fakeDecoder{code: code}
}

func (d *fakeDecoder) CanDecode() bool { return d.pos < len(d.code) }

func (d *fakeDecoder) Decode() Instruction {
	b := d.code[d.pos]
	d.pos++
	if inst, ok := fakeOps[b]; ok {
		return inst
	}
	return Instruction{Mnemonic: "invalid"}
}
