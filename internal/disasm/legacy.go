package disasm

import (
	"errors"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// decodeLegacy decodes a non-VEX instruction with x86asm.
func decodeLegacy(src []byte, mode int) (Inst, status) {
	inst, err := x86asm.Decode(src, mode)
	switch {
	case errors.Is(err, x86asm.ErrTruncated):
		return Inst{}, truncated
	case err != nil:
		return invalidInst(), unrecognized
	case inst.Op == 0:
		// x86asm reports both a lone prefix and an instruction cut off by
		// the end of src as a 1-byte prefix instruction.
		if runsPastEnd(src, mode) {
			return Inst{}, truncated
		}
		return invalidInst(), unrecognized
	}
	return Inst{
		Len:      inst.Len,
		Mnemonic: mnemonic(inst.Op),
		Features: legacyFeatures(inst, src[:inst.Len]),
	}, decoded
}

// runsPastEnd reports whether src holds the start of an instruction that
// would decode if more bytes were available.
func runsPastEnd(src []byte, mode int) bool {
	if len(src) >= maxInstLen {
		return false
	}
	var buf [maxInstLen]byte
	copy(buf[:], src)
	inst, err := x86asm.Decode(buf[:], mode)
	return err == nil && inst.Op != 0 && inst.Len > len(src)
}

// mnemonic returns the lowercase name of op. x86asm tags the SSE forms of
// CMPSD and MOVSD with an _XMM suffix to keep them apart from the string
// instructions.
func mnemonic(op x86asm.Op) string {
	return strings.ToLower(strings.TrimSuffix(op.String(), "_XMM"))
}

// decodeExtra handles encodings x86asm has no table entries for:
// CET end-branch markers, RDSEED, SHA and ADX.
func decodeExtra(src []byte, mode int) (Inst, status, bool) {
	p, mand := 0, byte(0)
	for p < len(src) && p < maxInstLen {
		b := src[p]
		if b != prefixOpSize && b != prefixRep && b != prefixRepNE {
			break
		}
		mand = b
		p++
	}
	if mode == 64 && p < len(src) && src[p]&0xF0 == rexBase {
		p++
	}
	if p+1 >= len(src) || src[p] != escape0F {
		return Inst{}, decoded, false
	}
	op := src[p+1]
	body := src[p+2:]

	var (
		name  string
		feat  Feature
		n     int // bytes after the opcode
		imm   int
		known bool
	)
	switch op {
	case 0x1E:
		if mand != prefixRep || len(body) == 0 {
			return Inst{}, decoded, false
		}
		switch body[0] {
		case 0xFA:
			name, feat, n, known = "endbr64", CETIBT, 1, true
		case 0xFB:
			name, feat, n, known = "endbr32", CETIBT, 1, true
		}
	case 0xC7:
		if mand == prefixRep || len(body) == 0 {
			return Inst{}, decoded, false
		}
		if modrmMod(body[0]) == 3 && modrmReg(body[0]) == 7 {
			name, feat, n, known = "rdseed", RDSEED, 1, true
		}
	case escape38:
		if len(body) == 0 {
			return Inst{}, truncated, true
		}
		switch sub := body[0]; {
		case sub >= 0xC8 && sub <= 0xCD && mand == 0:
			name, feat, known = shaNames[sub-0xC8], SHA, true
		case sub == 0xF6 && mand == prefixOpSize:
			name, feat, known = "adcx", ADX, true
		case sub == 0xF6 && mand == prefixRep:
			name, feat, known = "adox", ADX, true
		}
		if known {
			m, ok := operandLen(body[1:], false)
			if !ok {
				return Inst{}, truncated, true
			}
			n = 1 + m
		}
	case escape3A:
		if len(body) == 0 {
			return Inst{}, truncated, true
		}
		if body[0] == 0xCC && mand == 0 {
			m, ok := operandLen(body[1:], false)
			if !ok {
				return Inst{}, truncated, true
			}
			name, feat, n, imm, known = "sha1rnds4", SHA, 1+m, 1, true
		}
	}
	if !known {
		return Inst{}, decoded, false
	}
	total := p + 2 + n + imm
	if total > len(src) {
		return Inst{}, truncated, true
	}
	return Inst{Len: total, Mnemonic: name, Features: []Feature{feat}}, decoded, true
}

var shaNames = [...]string{"sha1nexte", "sha1msg1", "sha1msg2", "sha256rnds2", "sha256msg1", "sha256msg2"}
