package disasm

// Opcodes that only exist in VEX or EVEX form, or whose VEX/EVEX name differs
// from the legacy instruction at the same position.

type opKey struct {
	opMap, pp, opcode byte
}

// vexOp names a VEX instruction by VEX.W.
type vexOp struct {
	w0, w1 string
	feat   Feature
}

var vexOps = map[opKey]vexOp{
	// 0F38, 66
	{2, 1, 0x0C}: {"vpermilps", "", AVX},
	{2, 1, 0x0D}: {"vpermilpd", "", AVX},
	{2, 1, 0x0E}: {"vtestps", "", AVX},
	{2, 1, 0x0F}: {"vtestpd", "", AVX},
	{2, 1, 0x13}: {"vcvtph2ps", "", F16C},
	{2, 1, 0x16}: {"vpermps", "", AVX2},
	{2, 1, 0x1A}: {"vbroadcastf128", "", AVX},
	{2, 1, 0x2C}: {"vmaskmovps", "", AVX},
	{2, 1, 0x2D}: {"vmaskmovpd", "", AVX},
	{2, 1, 0x2E}: {"vmaskmovps", "", AVX},
	{2, 1, 0x2F}: {"vmaskmovpd", "", AVX},
	{2, 1, 0x36}: {"vpermd", "", AVX2},
	{2, 1, 0x45}: {"vpsrlvd", "vpsrlvq", AVX2},
	{2, 1, 0x46}: {"vpsravd", "", AVX2},
	{2, 1, 0x47}: {"vpsllvd", "vpsllvq", AVX2},
	{2, 1, 0x58}: {"vpbroadcastd", "", AVX2},
	{2, 1, 0x59}: {"vpbroadcastq", "", AVX2},
	{2, 1, 0x5A}: {"vbroadcasti128", "", AVX2},
	{2, 1, 0x78}: {"vpbroadcastb", "", AVX2},
	{2, 1, 0x79}: {"vpbroadcastw", "", AVX2},
	{2, 1, 0x8C}: {"vpmaskmovd", "vpmaskmovq", AVX2},
	{2, 1, 0x8E}: {"vpmaskmovd", "vpmaskmovq", AVX2},
	{2, 1, 0x90}: {"vpgatherdd", "vpgatherdq", AVX2},
	{2, 1, 0x91}: {"vpgatherqd", "vpgatherqq", AVX2},
	{2, 1, 0x92}: {"vgatherdps", "vgatherdpd", AVX2},
	{2, 1, 0x93}: {"vgatherqps", "vgatherqpd", AVX2},
	{2, 1, 0xF7}: {"shlx", "shlx", BMI2},
	// 0F38, no prefix
	{2, 0, 0xF2}: {"andn", "andn", BMI1},
	{2, 0, 0xF5}: {"bzhi", "bzhi", BMI2},
	{2, 0, 0xF7}: {"bextr", "bextr", BMI1},
	// 0F38, F3
	{2, 2, 0xF5}: {"pext", "pext", BMI2},
	{2, 2, 0xF7}: {"sarx", "sarx", BMI2},
	// 0F38, F2
	{2, 3, 0xF5}: {"pdep", "pdep", BMI2},
	{2, 3, 0xF6}: {"mulx", "mulx", BMI2},
	{2, 3, 0xF7}: {"shrx", "shrx", BMI2},
	// 0F3A, 66
	{3, 1, 0x00}: {"", "vpermq", AVX2},
	{3, 1, 0x01}: {"", "vpermpd", AVX2},
	{3, 1, 0x02}: {"vpblendd", "", AVX2},
	{3, 1, 0x04}: {"vpermilps", "", AVX},
	{3, 1, 0x05}: {"vpermilpd", "", AVX},
	{3, 1, 0x06}: {"vperm2f128", "", AVX},
	{3, 1, 0x18}: {"vinsertf128", "", AVX},
	{3, 1, 0x19}: {"vextractf128", "", AVX},
	{3, 1, 0x1D}: {"vcvtps2ph", "", F16C},
	{3, 1, 0x38}: {"vinserti128", "", AVX2},
	{3, 1, 0x39}: {"vextracti128", "", AVX2},
	{3, 1, 0x46}: {"vperm2i128", "", AVX2},
	{3, 1, 0x4A}: {"vblendvps", "", AVX},
	{3, 1, 0x4B}: {"vblendvpd", "", AVX},
	// 0F3A, F2
	{3, 3, 0xF0}: {"rorx", "rorx", BMI2},
}

// vexOnly names VEX instructions that have no legacy SSE equivalent.
func vexOnly(v vector) (string, []Feature, bool) {
	switch {
	case v.opMap == 1 && v.pp == 0 && v.opcode == 0x77:
		if v.l == 256 {
			return "vzeroall", []Feature{AVX}, true
		}
		return "vzeroupper", []Feature{AVX}, true
	case v.opMap == 2 && v.pp == 1 && (v.opcode == 0x18 || v.opcode == 0x19):
		name := "vbroadcastss"
		if v.opcode == 0x19 {
			name = "vbroadcastsd"
		}
		if modrmMod(v.modrm) == 3 {
			return name, []Feature{AVX2}, true
		}
		return name, []Feature{AVX}, true
	case v.opMap == 2 && v.pp == 0 && v.opcode == 0xF3:
		switch modrmReg(v.modrm) {
		case 1:
			return "blsr", []Feature{BMI1}, true
		case 2:
			return "blsmsk", []Feature{BMI1}, true
		case 3:
			return "blsi", []Feature{BMI1}, true
		}
	case v.opMap == 3 && v.pp == 1 && v.opcode == 0x4C:
		if v.l == 256 {
			return "vpblendvb", []Feature{AVX2}, true
		}
		return "vpblendvb", []Feature{AVX}, true
	case v.opMap == 2 && v.pp == 1 && v.opcode >= 0x96:
		if name, ok := fmaName(v.opcode, v.w); ok {
			return name, []Feature{FMA}, true
		}
	}
	op, ok := vexOps[opKey{v.opMap, v.pp, v.opcode}]
	if !ok {
		return "", nil, false
	}
	name := op.w0
	if v.w {
		name = op.w1
	}
	if name == "" {
		return MnemonicUnknown, []Feature{op.feat}, true
	}
	return name, []Feature{op.feat}, true
}

// fmaName names the FMA instruction at 0F38 96..BF. The high nibble selects
// the operand order, the low nibble the operation and packed or scalar form.
func fmaName(opcode byte, w bool) (string, bool) {
	var order string
	switch opcode >> 4 {
	case 0x9:
		order = "132"
	case 0xA:
		order = "213"
	case 0xB:
		order = "231"
	default:
		return "", false
	}
	var base string
	packed := true
	switch opcode & 0x0F {
	case 0x6:
		base = "fmaddsub"
	case 0x7:
		base = "fmsubadd"
	case 0x8:
		base = "fmadd"
	case 0x9:
		base, packed = "fmadd", false
	case 0xA:
		base = "fmsub"
	case 0xB:
		base, packed = "fmsub", false
	case 0xC:
		base = "fnmadd"
	case 0xD:
		base, packed = "fnmadd", false
	case 0xE:
		base = "fnmsub"
	case 0xF:
		base, packed = "fnmsub", false
	default:
		return "", false
	}
	suffix := "ps"
	switch {
	case packed && w:
		suffix = "pd"
	case !packed && w:
		suffix = "sd"
	case !packed:
		suffix = "ss"
	}
	return "v" + base + order + suffix, true
}

// evexOp names an EVEX instruction by EVEX.W, with the feature each width
// requires.
type evexOp struct {
	w0, w1 string
	f0, f1 Feature
	scalar bool
}

func ff(w0, w1 string) evexOp { return evexOp{w0: w0, w1: w1, f0: AVX512F, f1: AVX512F} }
func bw(w0, w1 string) evexOp { return evexOp{w0: w0, w1: w1, f0: AVX512BW, f1: AVX512BW} }

var evexOps = map[opKey]evexOp{
	// 0F
	{1, 1, 0x6F}: ff("vmovdqa32", "vmovdqa64"),
	{1, 1, 0x7F}: ff("vmovdqa32", "vmovdqa64"),
	{1, 2, 0x6F}: ff("vmovdqu32", "vmovdqu64"),
	{1, 2, 0x7F}: ff("vmovdqu32", "vmovdqu64"),
	{1, 3, 0x6F}: bw("vmovdqu8", "vmovdqu16"),
	{1, 3, 0x7F}: bw("vmovdqu8", "vmovdqu16"),
	{1, 1, 0xDB}: ff("vpandd", "vpandq"),
	{1, 1, 0xDF}: ff("vpandnd", "vpandnq"),
	{1, 1, 0xEB}: ff("vpord", "vporq"),
	{1, 1, 0xEF}: ff("vpxord", "vpxorq"),
	{1, 0, 0x5B}: {w0: "vcvtdq2ps", w1: "vcvtqq2ps", f0: AVX512F, f1: AVX512DQ},
	{1, 2, 0xE6}: {w0: "vcvtdq2pd", w1: "vcvtqq2pd", f0: AVX512F, f1: AVX512DQ},
	// 0F38, 66
	{2, 1, 0x10}: bw("", "vpsrlvw"),
	{2, 1, 0x11}: bw("", "vpsravw"),
	{2, 1, 0x12}: bw("", "vpsllvw"),
	{2, 1, 0x13}: ff("vcvtph2ps", ""),
	{2, 1, 0x14}: ff("vprorvd", "vprorvq"),
	{2, 1, 0x15}: ff("vprolvd", "vprolvq"),
	{2, 1, 0x16}: ff("vpermps", "vpermpd"),
	{2, 1, 0x18}: ff("vbroadcastss", ""),
	{2, 1, 0x19}: {w0: "vbroadcastf32x2", w1: "vbroadcastsd", f0: AVX512DQ, f1: AVX512F},
	{2, 1, 0x1A}: {w0: "vbroadcastf32x4", w1: "vbroadcastf64x2", f0: AVX512F, f1: AVX512DQ},
	{2, 1, 0x1B}: {w0: "vbroadcastf32x8", w1: "vbroadcastf64x4", f0: AVX512DQ, f1: AVX512F},
	{2, 1, 0x1F}: ff("", "vpabsq"),
	{2, 1, 0x26}: bw("vptestmb", "vptestmw"),
	{2, 1, 0x27}: ff("vptestmd", "vptestmq"),
	{2, 1, 0x2C}: ff("vscalefps", "vscalefpd"),
	{2, 1, 0x2D}: {w0: "vscalefss", w1: "vscalefsd", f0: AVX512F, f1: AVX512F, scalar: true},
	{2, 1, 0x36}: ff("vpermd", "vpermq"),
	{2, 1, 0x40}: {w0: "vpmulld", w1: "vpmullq", f0: AVX512F, f1: AVX512DQ},
	{2, 1, 0x42}: ff("vgetexpps", "vgetexppd"),
	{2, 1, 0x45}: ff("vpsrlvd", "vpsrlvq"),
	{2, 1, 0x46}: ff("vpsravd", "vpsravq"),
	{2, 1, 0x47}: ff("vpsllvd", "vpsllvq"),
	{2, 1, 0x4C}: ff("vrcp14ps", "vrcp14pd"),
	{2, 1, 0x4E}: ff("vrsqrt14ps", "vrsqrt14pd"),
	{2, 1, 0x58}: ff("vpbroadcastd", ""),
	{2, 1, 0x59}: {w0: "vbroadcasti32x2", w1: "vpbroadcastq", f0: AVX512DQ, f1: AVX512F},
	{2, 1, 0x5A}: {w0: "vbroadcasti32x4", w1: "vbroadcasti64x2", f0: AVX512F, f1: AVX512DQ},
	{2, 1, 0x5B}: {w0: "vbroadcasti32x8", w1: "vbroadcasti64x4", f0: AVX512DQ, f1: AVX512F},
	{2, 1, 0x64}: ff("vpblendmd", "vpblendmq"),
	{2, 1, 0x65}: ff("vblendmps", "vblendmpd"),
	{2, 1, 0x66}: bw("vpblendmb", "vpblendmw"),
	{2, 1, 0x76}: ff("vpermi2d", "vpermi2q"),
	{2, 1, 0x77}: ff("vpermi2ps", "vpermi2pd"),
	{2, 1, 0x78}: bw("vpbroadcastb", ""),
	{2, 1, 0x79}: bw("vpbroadcastw", ""),
	{2, 1, 0x7C}: ff("vpbroadcastd", "vpbroadcastq"),
	{2, 1, 0x7E}: ff("vpermt2d", "vpermt2q"),
	{2, 1, 0x7F}: ff("vpermt2ps", "vpermt2pd"),
	{2, 1, 0x88}: ff("vexpandps", "vexpandpd"),
	{2, 1, 0x89}: ff("vpexpandd", "vpexpandq"),
	{2, 1, 0x8A}: ff("vcompressps", "vcompresspd"),
	{2, 1, 0x8B}: ff("vpcompressd", "vpcompressq"),
	{2, 1, 0x8D}: bw("", "vpermw"),
	{2, 1, 0x90}: ff("vpgatherdd", "vpgatherdq"),
	{2, 1, 0x91}: ff("vpgatherqd", "vpgatherqq"),
	{2, 1, 0x92}: ff("vgatherdps", "vgatherdpd"),
	{2, 1, 0x93}: ff("vgatherqps", "vgatherqpd"),
	{2, 1, 0xA0}: ff("vpscatterdd", "vpscatterdq"),
	{2, 1, 0xA1}: ff("vpscatterqd", "vpscatterqq"),
	{2, 1, 0xA2}: ff("vscatterdps", "vscatterdpd"),
	{2, 1, 0xA3}: ff("vscatterqps", "vscatterqpd"),
	{2, 1, 0xC4}: {w0: "vpconflictd", w1: "vpconflictq", f0: AVX512CD, f1: AVX512CD},
	// 0F38, F3
	{2, 2, 0x28}: bw("vpmovm2b", "vpmovm2w"),
	{2, 2, 0x29}: bw("vpmovb2m", "vpmovw2m"),
	{2, 2, 0x30}: bw("vpmovwb", ""),
	{2, 2, 0x31}: ff("vpmovdb", ""),
	{2, 2, 0x32}: ff("vpmovqb", ""),
	{2, 2, 0x33}: ff("vpmovdw", ""),
	{2, 2, 0x34}: ff("vpmovqw", ""),
	{2, 2, 0x35}: ff("vpmovqd", ""),
	{2, 2, 0x38}: {w0: "vpmovm2d", w1: "vpmovm2q", f0: AVX512DQ, f1: AVX512DQ},
	{2, 2, 0x39}: {w0: "vpmovd2m", w1: "vpmovq2m", f0: AVX512DQ, f1: AVX512DQ},
	// 0F3A, 66
	{3, 1, 0x00}: ff("", "vpermq"),
	{3, 1, 0x01}: ff("", "vpermpd"),
	{3, 1, 0x03}: ff("valignd", "valignq"),
	{3, 1, 0x08}: ff("vrndscaleps", ""),
	{3, 1, 0x09}: ff("", "vrndscalepd"),
	{3, 1, 0x0A}: {w0: "vrndscaless", f0: AVX512F, scalar: true},
	{3, 1, 0x0B}: {w1: "vrndscalesd", f1: AVX512F, scalar: true},
	{3, 1, 0x18}: {w0: "vinsertf32x4", w1: "vinsertf64x2", f0: AVX512F, f1: AVX512DQ},
	{3, 1, 0x19}: {w0: "vextractf32x4", w1: "vextractf64x2", f0: AVX512F, f1: AVX512DQ},
	{3, 1, 0x1A}: {w0: "vinsertf32x8", w1: "vinsertf64x4", f0: AVX512DQ, f1: AVX512F},
	{3, 1, 0x1B}: {w0: "vextractf32x8", w1: "vextractf64x4", f0: AVX512DQ, f1: AVX512F},
	{3, 1, 0x1D}: ff("vcvtps2ph", ""),
	{3, 1, 0x1E}: ff("vpcmpud", "vpcmpuq"),
	{3, 1, 0x1F}: ff("vpcmpd", "vpcmpq"),
	{3, 1, 0x23}: ff("vshuff32x4", "vshuff64x2"),
	{3, 1, 0x25}: ff("vpternlogd", "vpternlogq"),
	{3, 1, 0x26}: ff("vgetmantps", "vgetmantpd"),
	{3, 1, 0x38}: {w0: "vinserti32x4", w1: "vinserti64x2", f0: AVX512F, f1: AVX512DQ},
	{3, 1, 0x39}: {w0: "vextracti32x4", w1: "vextracti64x2", f0: AVX512F, f1: AVX512DQ},
	{3, 1, 0x3A}: {w0: "vinserti32x8", w1: "vinserti64x4", f0: AVX512DQ, f1: AVX512F},
	{3, 1, 0x3B}: {w0: "vextracti32x8", w1: "vextracti64x4", f0: AVX512DQ, f1: AVX512F},
	{3, 1, 0x3E}: bw("vpcmpub", "vpcmpuw"),
	{3, 1, 0x3F}: bw("vpcmpb", "vpcmpw"),
	{3, 1, 0x43}: ff("vshufi32x4", "vshufi64x2"),
	{3, 1, 0x50}: {w0: "vrangeps", w1: "vrangepd", f0: AVX512DQ, f1: AVX512DQ},
	{3, 1, 0x54}: ff("vfixupimmps", "vfixupimmpd"),
	{3, 1, 0x56}: {w0: "vreduceps", w1: "vreducepd", f0: AVX512DQ, f1: AVX512DQ},
	{3, 1, 0x66}: {w0: "vfpclassps", w1: "vfpclasspd", f0: AVX512DQ, f1: AVX512DQ},
}

// evexOnly names EVEX instructions whose name or feature cannot be derived
// from the legacy encoding.
func evexOnly(v vector) (name string, feat Feature, scalar, ok bool) {
	if v.opMap == 2 && v.pp == 1 && v.opcode >= 0x96 {
		if name, ok := fmaName(v.opcode, v.w); ok {
			lo := v.opcode & 0x0F
			return name, AVX512F, lo >= 8 && lo&1 == 1, true
		}
	}
	op, ok := evexOps[opKey{v.opMap, v.pp, v.opcode}]
	if !ok {
		return "", "", false, false
	}
	name, feat = op.w0, op.f0
	if v.w {
		name, feat = op.w1, op.f1
	}
	if name == "" {
		return MnemonicUnknown, AVX512F, false, true
	}
	return name, feat, op.scalar, true
}
