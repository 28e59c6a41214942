package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Feature is a CPUID feature flag an instruction depends on, named the way
// Linux reports it in /proc/cpuinfo where such a name exists.
type Feature string

// CPUID features reported by the decoder.
const (
	FPU          Feature = "fpu"
	MMX          Feature = "mmx"
	SSE          Feature = "sse"
	SSE2         Feature = "sse2"
	SSE3         Feature = "sse3"
	SSSE3        Feature = "ssse3"
	SSE41        Feature = "sse4_1"
	SSE42        Feature = "sse4_2"
	SSE4A        Feature = "sse4a"
	AVX          Feature = "avx"
	AVX2         Feature = "avx2"
	FMA          Feature = "fma"
	F16C         Feature = "f16c"
	BMI1         Feature = "bmi1"
	BMI2         Feature = "bmi2"
	AVX512F      Feature = "avx512f"
	AVX512VL     Feature = "avx512vl"
	AVX512BW     Feature = "avx512bw"
	AVX512DQ     Feature = "avx512dq"
	AVX512CD     Feature = "avx512cd"
	AVX512FP16   Feature = "avx512_fp16"
	AES          Feature = "aes"
	VAES         Feature = "vaes"
	PCLMULQDQ    Feature = "pclmulqdq"
	VPCLMULQDQ   Feature = "vpclmulqdq"
	SHA          Feature = "sha_ni"
	ADX          Feature = "adx"
	POPCNT       Feature = "popcnt"
	LZCNT        Feature = "lzcnt"
	MOVBE        Feature = "movbe"
	RDRAND       Feature = "rdrand"
	RDSEED       Feature = "rdseed"
	CMOV         Feature = "cmov"
	CX8          Feature = "cx8"
	CMPXCHG16B   Feature = "cx16"
	MultiByteNOP Feature = "multibytenop"
	TSC          Feature = "tsc"
	RDTSCP       Feature = "rdtscp"
	RDPMC        Feature = "rdpmc"
	MSR          Feature = "msr"
	CPUID        Feature = "cpuid"
	FXSR         Feature = "fxsr"
	XSAVE        Feature = "xsave"
	XSAVEOPT     Feature = "xsaveopt"
	XSAVEC       Feature = "xsavec"
	XSAVES       Feature = "xsaves"
	CLFLUSH      Feature = "clflush"
	SYSCALL      Feature = "syscall"
	SEP          Feature = "sep"
	MONITOR      Feature = "monitor"
	RTM          Feature = "rtm"
	FSGSBASE     Feature = "fsgsbase"
	INVPCID      Feature = "invpcid"
	PREFETCHW    Feature = "3dnowprefetch"
	CETIBT       Feature = "ibt"
)

// legacyFeatures returns the features required by a non-VEX instruction.
// raw holds the instruction's encoding.
func legacyFeatures(inst x86asm.Inst, raw []byte) []Feature {
	op := inst.Op.String()
	if f, ok := legacyTable[op]; ok {
		if usesMMXRegister(inst) {
			switch {
			case mmxExtensionOps[op]:
				return []Feature{SSE}
			case f[0] == SSE2 && !sse2MMXOps[op]:
				return []Feature{MMX}
			}
		}
		return f
	}
	switch {
	case op == "NOP":
		if isMultiByteNOP(raw) {
			return []Feature{MultiByteNOP}
		}
		return nil
	case strings.HasPrefix(op, "CMOV"):
		return []Feature{CMOV}
	case strings.HasPrefix(op, "FCMOV"):
		return []Feature{FPU, CMOV}
	case op == "FWAIT":
		return nil
	case strings.HasPrefix(op, "F"):
		return []Feature{FPU}
	}
	return nil
}

// isMultiByteNOP reports whether raw is a 0F 1F hinting nop.
func isMultiByteNOP(raw []byte) bool {
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == escape0F {
			return raw[i+1] == 0x1F
		}
	}
	return false
}

func usesMMXRegister(inst x86asm.Inst) bool {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if r, ok := a.(x86asm.Reg); ok && r >= x86asm.M0 && r <= x86asm.M7 {
			return true
		}
	}
	return false
}

// mmxExtensionOps were added to the MMX register file by SSE.
var mmxExtensionOps = map[string]bool{
	"PAVGB": true, "PAVGW": true, "PEXTRW": true, "PINSRW": true,
	"PMAXSW": true, "PMAXUB": true, "PMINSW": true, "PMINUB": true,
	"PMOVMSKB": true, "PMULHUW": true, "PSADBW": true,
}

// sse2MMXOps need SSE2 even when they operate on MMX registers.
var sse2MMXOps = map[string]bool{
	"PADDQ": true, "PSUBQ": true, "PMULUDQ": true,
	"CVTPD2PI": true, "CVTPI2PD": true, "CVTTPD2PI": true,
	"MOVDQ2Q": true, "MOVQ2DQ": true,
}

var legacyTable = buildLegacyTable(map[Feature][]string{
	MMX: {"EMMS"},
	SSE: {
		"ADDPS", "ADDSS", "ANDNPS", "ANDPS", "CMPPS", "CMPSS", "COMISS",
		"CVTPI2PS", "CVTPS2PI", "CVTSI2SS", "CVTSS2SI", "CVTTPS2PI", "CVTTSS2SI",
		"DIVPS", "DIVSS", "LDMXCSR", "MAXPS", "MAXSS", "MINPS", "MINSS",
		"MOVAPS", "MOVHLPS", "MOVHPS", "MOVLHPS", "MOVLPS", "MOVMSKPS",
		"MOVNTPS", "MOVSS", "MOVUPS", "MULPS", "MULSS", "ORPS", "RCPPS",
		"RCPSS", "RSQRTPS", "RSQRTSS", "SHUFPS", "SQRTPS", "SQRTSS", "STMXCSR",
		"SUBPS", "SUBSS", "UCOMISS", "UNPCKHPS", "UNPCKLPS", "XORPS",
		"MASKMOVQ", "MOVNTQ", "PSHUFW", "SFENCE",
		"PREFETCHNTA", "PREFETCHT0", "PREFETCHT1", "PREFETCHT2",
	},
	SSE2: {
		"ADDPD", "ADDSD", "ANDNPD", "ANDPD", "CMPPD", "CMPSD_XMM", "COMISD",
		"CVTDQ2PD", "CVTDQ2PS", "CVTPD2DQ", "CVTPD2PI", "CVTPD2PS", "CVTPI2PD",
		"CVTPS2DQ", "CVTPS2PD", "CVTSD2SI", "CVTSD2SS", "CVTSI2SD", "CVTSS2SD",
		"CVTTPD2DQ", "CVTTPD2PI", "CVTTPS2DQ", "CVTTSD2SI", "DIVPD", "DIVSD",
		"LFENCE", "MASKMOVDQU", "MAXPD", "MAXSD", "MFENCE", "MINPD", "MINSD",
		"MOVAPD", "MOVDQ2Q", "MOVDQA", "MOVDQU", "MOVHPD", "MOVLPD",
		"MOVMSKPD", "MOVNTDQ", "MOVNTI", "MOVNTPD", "MOVQ2DQ", "MOVSD_XMM",
		"MOVUPD", "MULPD", "MULSD", "ORPD", "PAUSE", "PSHUFD", "PSHUFHW",
		"PSHUFLW", "PSLLDQ", "PSRLDQ", "PUNPCKHQDQ", "PUNPCKLQDQ", "SHUFPD",
		"SQRTPD", "SQRTSD", "SUBPD", "SUBSD", "UCOMISD", "UNPCKHPD",
		"UNPCKLPD", "XORPD", "PADDQ", "PSUBQ", "PMULUDQ",
		// MMX instructions, reported as MMX when used on MMX registers.
		"MOVD", "MOVQ", "PACKSSDW", "PACKSSWB", "PACKUSWB", "PADDB", "PADDD",
		"PADDSB", "PADDSW", "PADDUSB", "PADDUSW", "PADDW", "PAND", "PANDN",
		"PCMPEQB", "PCMPEQD", "PCMPEQW", "PCMPGTB", "PCMPGTD", "PCMPGTW",
		"PMADDWD", "PMULHW", "PMULLW", "POR", "PSLLD", "PSLLQ", "PSLLW",
		"PSRAD", "PSRAW", "PSRLD", "PSRLQ", "PSRLW", "PSUBB", "PSUBD",
		"PSUBSB", "PSUBSW", "PSUBUSB", "PSUBUSW", "PSUBW", "PUNPCKHBW",
		"PUNPCKHDQ", "PUNPCKHWD", "PUNPCKLBW", "PUNPCKLDQ", "PUNPCKLWD", "PXOR",
		"PAVGB", "PAVGW", "PEXTRW", "PINSRW", "PMAXSW", "PMAXUB", "PMINSW",
		"PMINUB", "PMOVMSKB", "PMULHUW", "PSADBW",
	},
	SSE3: {
		"ADDSUBPD", "ADDSUBPS", "HADDPD", "HADDPS", "HSUBPD", "HSUBPS",
		"LDDQU", "MOVDDUP", "MOVSHDUP", "MOVSLDUP",
	},
	SSSE3: {
		"PABSB", "PABSD", "PABSW", "PALIGNR", "PHADDD", "PHADDSW", "PHADDW",
		"PHSUBD", "PHSUBSW", "PHSUBW", "PMADDUBSW", "PMULHRSW", "PSHUFB",
		"PSIGNB", "PSIGND", "PSIGNW",
	},
	SSE41: {
		"BLENDPD", "BLENDPS", "BLENDVPD", "BLENDVPS", "DPPD", "DPPS",
		"EXTRACTPS", "INSERTPS", "MOVNTDQA", "MPSADBW", "PACKUSDW", "PBLENDVB",
		"PBLENDW", "PCMPEQQ", "PEXTRB", "PEXTRD", "PEXTRQ", "PHMINPOSUW",
		"PINSRB", "PINSRD", "PINSRQ", "PMAXSB", "PMAXSD", "PMAXUD", "PMAXUW",
		"PMINSB", "PMINSD", "PMINUD", "PMINUW", "PMOVSXBD", "PMOVSXBQ",
		"PMOVSXBW", "PMOVSXDQ", "PMOVSXWD", "PMOVSXWQ", "PMOVZXBD", "PMOVZXBQ",
		"PMOVZXBW", "PMOVZXDQ", "PMOVZXWD", "PMOVZXWQ", "PMULDQ", "PMULLD",
		"PTEST", "ROUNDPD", "ROUNDPS", "ROUNDSD", "ROUNDSS",
	},
	SSE42: {
		"CRC32", "PCMPESTRI", "PCMPESTRM", "PCMPGTQ", "PCMPISTRI", "PCMPISTRM",
	},
	SSE4A:      {"MOVNTSD", "MOVNTSS"},
	AES:        {"AESDEC", "AESDECLAST", "AESENC", "AESENCLAST", "AESIMC", "AESKEYGENASSIST"},
	PCLMULQDQ:  {"PCLMULQDQ"},
	POPCNT:     {"POPCNT"},
	LZCNT:      {"LZCNT"},
	BMI1:       {"TZCNT"},
	MOVBE:      {"MOVBE"},
	RDRAND:     {"RDRAND"},
	CX8:        {"CMPXCHG8B"},
	CMPXCHG16B: {"CMPXCHG16B"},
	TSC:        {"RDTSC"},
	RDTSCP:     {"RDTSCP"},
	RDPMC:      {"RDPMC"},
	MSR:        {"RDMSR", "WRMSR"},
	CPUID:      {"CPUID"},
	FXSR:       {"FXSAVE", "FXSAVE64", "FXRSTOR", "FXRSTOR64"},
	XSAVE:      {"XSAVE", "XSAVE64", "XRSTOR", "XRSTOR64", "XGETBV", "XSETBV"},
	XSAVEOPT:   {"XSAVEOPT", "XSAVEOPT64"},
	XSAVEC:     {"XSAVEC", "XSAVEC64"},
	XSAVES:     {"XSAVES", "XSAVES64", "XRSTORS", "XRSTORS64"},
	CLFLUSH:    {"CLFLUSH"},
	SYSCALL:    {"SYSCALL", "SYSRET"},
	SEP:        {"SYSENTER", "SYSEXIT"},
	MONITOR:    {"MONITOR", "MWAIT"},
	RTM:        {"XABORT", "XBEGIN", "XEND", "XTEST"},
	FSGSBASE:   {"RDFSBASE", "RDGSBASE", "WRFSBASE", "WRGSBASE"},
	INVPCID:    {"INVPCID"},
	PREFETCHW:  {"PREFETCHW"},
}, map[string][]Feature{
	// Instructions needing more than one feature.
	"FCOMI":   {FPU, CMOV},
	"FCOMIP":  {FPU, CMOV},
	"FUCOMI":  {FPU, CMOV},
	"FUCOMIP": {FPU, CMOV},
	"FISTTP":  {FPU, SSE3},
})

func buildLegacyTable(byFeature map[Feature][]string, overrides map[string][]Feature) map[string][]Feature {
	t := make(map[string][]Feature)
	for f, ops := range byFeature {
		for _, op := range ops {
			t[op] = []Feature{f}
		}
	}
	for op, f := range overrides {
		t[op] = f
	}
	return t
}

// evexByteWordOps need AVX512BW when EVEX encoded.
var evexByteWordOps = map[string]bool{
	"PABSB": true, "PABSW": true, "PACKSSDW": true, "PACKSSWB": true,
	"PACKUSDW": true, "PACKUSWB": true, "PADDB": true, "PADDSB": true,
	"PADDSW": true, "PADDUSB": true, "PADDUSW": true, "PADDW": true,
	"PALIGNR": true, "PAVGB": true, "PAVGW": true, "PCMPEQB": true,
	"PCMPEQW": true, "PCMPGTB": true, "PCMPGTW": true, "PEXTRB": true,
	"PEXTRW": true, "PINSRB": true, "PINSRW": true, "PMADDUBSW": true,
	"PMADDWD": true, "PMAXSB": true, "PMAXSW": true, "PMAXUB": true,
	"PMAXUW": true, "PMINSB": true, "PMINSW": true, "PMINUB": true,
	"PMINUW": true, "PMOVSXBW": true, "PMOVZXBW": true, "PMULHRSW": true,
	"PMULHUW": true, "PMULHW": true, "PMULLW": true, "PSADBW": true,
	"PSHUFB": true, "PSHUFHW": true, "PSHUFLW": true, "PSLLDQ": true,
	"PSLLW": true, "PSRAW": true, "PSRLDQ": true, "PSRLW": true,
	"PSUBB": true, "PSUBSB": true, "PSUBSW": true, "PSUBUSB": true,
	"PSUBUSW": true, "PSUBW": true, "PUNPCKHBW": true, "PUNPCKHWD": true,
	"PUNPCKLBW": true, "PUNPCKLWD": true,
}

// evexDQOps need AVX512DQ when EVEX encoded.
var evexDQOps = map[string]bool{
	"ANDPS": true, "ANDPD": true, "ANDNPS": true, "ANDNPD": true,
	"ORPS": true, "ORPD": true, "XORPS": true, "XORPD": true,
	"PEXTRD": true, "PEXTRQ": true, "PINSRD": true, "PINSRQ": true,
}
