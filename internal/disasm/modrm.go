package disasm

// Encoding constants.
const (
	maxInstLen = 15

	prefixES       = 0x26
	prefixCS       = 0x2E
	prefixSS       = 0x36
	prefixDS       = 0x3E
	prefixFS       = 0x64
	prefixGS       = 0x65
	prefixOpSize   = 0x66
	prefixAddrSize = 0x67
	prefixRepNE    = 0xF2
	prefixRep      = 0xF3

	escape0F = 0x0F
	escape38 = 0x38
	escape3A = 0x3A

	vex3 = 0xC4
	vex2 = 0xC5
	evex = 0x62

	rexBase = 0x40
	rexW    = 0x08
)

// ModRM fields.
func modrmMod(b byte) byte { return b >> 6 }
func modrmReg(b byte) byte { return (b >> 3) & 7 }
func modrmRM(b byte) byte  { return b & 7 }

// operandLen returns the number of ModRM, SIB and displacement bytes at the
// start of b. ok is false when b ends before the operand bytes do.
func operandLen(b []byte, addr16 bool) (n int, ok bool) {
	if len(b) == 0 {
		return 0, false
	}
	modrm := b[0]
	mod, rm := modrmMod(modrm), modrmRM(modrm)
	n = 1
	if mod == 3 {
		return n, true
	}
	if addr16 {
		switch {
		case mod == 0 && rm == 6, mod == 2:
			n += 2
		case mod == 1:
			n++
		}
		return n, len(b) >= n
	}
	if rm == 4 {
		if len(b) < 2 {
			return 0, false
		}
		n++
		if mod == 0 && b[1]&7 == 5 {
			n += 4
		}
	}
	switch {
	case mod == 0 && rm == 5:
		n += 4
	case mod == 1:
		n++
	case mod == 2:
		n += 4
	}
	return n, len(b) >= n
}

// mandatoryPrefix maps the VEX/EVEX pp field to its legacy prefix byte.
func mandatoryPrefix(pp byte) byte {
	switch pp {
	case 1:
		return prefixOpSize
	case 2:
		return prefixRep
	case 3:
		return prefixRepNE
	}
	return 0
}
