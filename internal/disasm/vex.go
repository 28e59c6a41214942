package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// vector holds the fields of a VEX or EVEX prefix that naming depends on.
type vector struct {
	evex   bool
	opMap  byte // 1: 0F, 2: 0F38, 3: 0F3A, 5 and 6: EVEX FP16 maps
	pp     byte
	w      bool
	l      int // vector length in bits
	opcode byte
	modrm  byte
	hasRM  bool
}

// isVectorEscape reports whether b starts with a VEX or EVEX prefix.
// Outside 64-bit mode C4, C5 and 62 are LES, LDS and BOUND unless the next
// byte has both high bits set, which those instructions cannot encode.
func isVectorEscape(b []byte, mode int) bool {
	switch b[0] {
	case vex2, vex3, evex:
	default:
		return false
	}
	if mode == 64 {
		return true
	}
	if mode != 32 || len(b) < 2 {
		return false
	}
	return b[1]&0xC0 == 0xC0
}

// decodeVector decodes the VEX or EVEX instruction whose escape byte is at
// src[pre].
func decodeVector(src []byte, pre, mode int, addr16 bool) (Inst, status) {
	var (
		v      vector
		header int
	)
	b := src[pre:]
	switch b[0] {
	case vex2:
		if len(b) < 2 {
			return Inst{}, truncated
		}
		v = vector{opMap: 1, pp: b[1] & 3, l: vexLen(b[1])}
		header = 2
	case vex3:
		if len(b) < 3 {
			return Inst{}, truncated
		}
		v = vector{opMap: b[1] & 0x1F, pp: b[2] & 3, w: b[2]&0x80 != 0, l: vexLen(b[2])}
		if v.opMap < 1 || v.opMap > 3 {
			return Inst{}, unrecognized
		}
		header = 3
	case evex:
		if len(b) < 4 {
			return Inst{}, truncated
		}
		p0, p1, p2 := b[1], b[2], b[3]
		if p1&0x04 == 0 {
			return Inst{}, unrecognized
		}
		v = vector{evex: true, opMap: p0 & 0x07, pp: p1 & 3, w: p1&0x80 != 0}
		switch v.opMap {
		case 1, 2, 3, 5, 6:
		default:
			return Inst{}, unrecognized
		}
		v.l = 128 << ((p2 >> 5) & 3)
		header = 4
	}

	pos := pre + header
	if pos >= len(src) {
		return Inst{}, truncated
	}
	v.opcode = src[pos]
	pos++
	v.hasRM = !(v.opMap == 1 && v.opcode == 0x77 && !v.evex)
	if v.hasRM {
		n, ok := operandLen(src[pos:], addr16)
		if !ok {
			return Inst{}, truncated
		}
		v.modrm = src[pos]
		pos += n
		// EVEX.b on a register form selects static rounding, which implies
		// the full 512-bit length.
		if v.evex && modrmMod(v.modrm) == 3 && src[pre+3]&0x10 != 0 {
			v.l = 512
		}
	}
	if hasImm8(v.opMap, v.opcode) {
		pos++
	}
	if pos > len(src) {
		return Inst{}, truncated
	}
	if pos > maxInstLen {
		return Inst{}, unrecognized
	}

	inst := Inst{Len: pos}
	if v.evex {
		inst.Mnemonic, inst.Features = nameEVEX(v, src[pre+header:pos], mode)
	} else {
		inst.Mnemonic, inst.Features = nameVEX(v, src[pre+header:pos], mode)
	}
	return inst, decoded
}

func vexLen(b byte) int {
	if b&0x04 != 0 {
		return 256
	}
	return 128
}

// hasImm8 reports whether the opcode carries an 8-bit immediate after its
// operand bytes.
func hasImm8(opMap, opcode byte) bool {
	switch opMap {
	case 3:
		return true
	case 1:
		switch opcode {
		case 0x70, 0x71, 0x72, 0x73, 0xC2, 0xC4, 0xC5, 0xC6:
			return true
		}
	}
	return false
}

// legacyOp decodes the legacy SSE encoding equivalent to a vector
// instruction. body starts at the opcode byte.
func legacyOp(v vector, body []byte, mode int) (x86asm.Inst, bool) {
	buf := make([]byte, 0, maxInstLen+4)
	if p := mandatoryPrefix(v.pp); p != 0 {
		buf = append(buf, p)
	}
	if v.w && mode == 64 {
		buf = append(buf, rexBase|rexW)
	}
	buf = append(buf, escape0F)
	switch v.opMap {
	case 2:
		buf = append(buf, escape38)
	case 3:
		buf = append(buf, escape3A)
	case 1:
	default:
		return x86asm.Inst{}, false
	}
	buf = append(buf, body...)
	inst, err := x86asm.Decode(buf, mode)
	if err != nil || inst.Op == 0 || inst.Len != len(buf) {
		return x86asm.Inst{}, false
	}
	return inst, true
}

// nameVEX returns the mnemonic and features of a VEX instruction.
func nameVEX(v vector, body []byte, mode int) (string, []Feature) {
	if name, feats, ok := vexOnly(v); ok {
		return name, feats
	}
	inst, ok := legacyOp(v, body, mode)
	if !ok {
		return MnemonicUnknown, []Feature{AVX}
	}
	op := inst.Op.String()
	name := "v" + mnemonic(inst.Op)
	switch {
	case isAESOp(op):
		if v.l == 256 {
			return name, []Feature{VAES}
		}
		return name, []Feature{AVX, AES}
	case op == "PCLMULQDQ":
		if v.l == 256 {
			return name, []Feature{VPCLMULQDQ}
		}
		return name, []Feature{AVX, PCLMULQDQ}
	case v.l == 256 && isIntegerVectorOp(op):
		return name, []Feature{AVX2}
	}
	return name, []Feature{AVX}
}

// nameEVEX returns the mnemonic and features of an EVEX instruction.
func nameEVEX(v vector, body []byte, mode int) (string, []Feature) {
	if v.opMap == 5 || v.opMap == 6 {
		return MnemonicUnknown, []Feature{AVX512FP16}
	}
	if name, feat, scalar, ok := evexOnly(v); ok {
		return name, withVL(v, feat, scalar)
	}
	inst, ok := legacyOp(v, body, mode)
	if !ok {
		return MnemonicUnknown, []Feature{AVX512F}
	}
	op := inst.Op.String()
	name := "v" + mnemonic(inst.Op)
	switch {
	case isAESOp(op):
		return name, withVL(v, VAES, false)
	case op == "PCLMULQDQ":
		return name, withVL(v, VPCLMULQDQ, false)
	}
	feat := AVX512F
	switch {
	case evexByteWordOps[op]:
		feat = AVX512BW
	case evexDQOps[op]:
		feat = AVX512DQ
	}
	if v.w {
		// Quadword forms with no legacy counterpart.
		switch op {
		case "PMINSD", "PMINUD", "PMAXSD", "PMAXUD", "PABSD":
			name = strings.TrimSuffix(name, "d") + "q"
		}
	}
	return name, withVL(v, feat, isScalarOp(op))
}

// withVL prefixes avx512vl for 128- and 256-bit forms of vector instructions.
func withVL(v vector, feat Feature, scalar bool) []Feature {
	if scalar || v.l >= 512 {
		return []Feature{feat}
	}
	return []Feature{AVX512VL, feat}
}

func isAESOp(op string) bool {
	return strings.HasPrefix(op, "AES")
}

// isIntegerVectorOp reports whether the 256-bit VEX form of op is an AVX2
// instruction.
func isIntegerVectorOp(op string) bool {
	switch op {
	case "PTEST":
		return false
	case "MPSADBW", "MOVNTDQA":
		return true
	}
	return strings.HasPrefix(op, "P")
}

// isScalarOp reports whether op ignores the vector length.
func isScalarOp(op string) bool {
	switch op {
	case "MOVD", "MOVQ", "PEXTRB", "PEXTRW", "PEXTRD", "PEXTRQ",
		"PINSRB", "PINSRW", "PINSRD", "PINSRQ", "INSERTPS", "EXTRACTPS":
		return true
	}
	// Integer ops ending in SD are packed: PMINSD, PMAXSD, PABSD.
	if strings.HasPrefix(op, "P") {
		return false
	}
	op = strings.TrimSuffix(op, "_XMM")
	return strings.HasSuffix(op, "SS") || strings.HasSuffix(op, "SD") || strings.HasSuffix(op, "2SI")
}
