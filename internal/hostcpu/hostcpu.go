// Package hostcpu compares the extensions a binary uses with the CPU it is
// running on.
package hostcpu

import (
	"slices"

	"github.com/klauspost/cpuid/v2"

	"lsx86/internal/disasm"
)

// featureIDs maps decoder feature names to cpuid feature flags. Features
// missing from the map cannot be checked on the host.
var featureIDs = map[disasm.Feature]cpuid.FeatureID{
	disasm.FPU:        cpuid.X87,
	disasm.MMX:        cpuid.MMX,
	disasm.SSE:        cpuid.SSE,
	disasm.SSE2:       cpuid.SSE2,
	disasm.SSE3:       cpuid.SSE3,
	disasm.SSSE3:      cpuid.SSSE3,
	disasm.SSE41:      cpuid.SSE4,
	disasm.SSE42:      cpuid.SSE42,
	disasm.SSE4A:      cpuid.SSE4A,
	disasm.AVX:        cpuid.AVX,
	disasm.AVX2:       cpuid.AVX2,
	disasm.FMA:        cpuid.FMA3,
	disasm.F16C:       cpuid.F16C,
	disasm.BMI1:       cpuid.BMI1,
	disasm.BMI2:       cpuid.BMI2,
	disasm.AVX512F:    cpuid.AVX512F,
	disasm.AVX512VL:   cpuid.AVX512VL,
	disasm.AVX512BW:   cpuid.AVX512BW,
	disasm.AVX512DQ:   cpuid.AVX512DQ,
	disasm.AVX512CD:   cpuid.AVX512CD,
	disasm.AVX512FP16: cpuid.AVX512FP16,
	disasm.AES:        cpuid.AESNI,
	disasm.VAES:       cpuid.VAES,
	disasm.PCLMULQDQ:  cpuid.CLMUL,
	disasm.VPCLMULQDQ: cpuid.VPCLMULQDQ,
	disasm.SHA:        cpuid.SHA,
	disasm.ADX:        cpuid.ADX,
	disasm.POPCNT:     cpuid.POPCNT,
	disasm.LZCNT:      cpuid.LZCNT,
	disasm.MOVBE:      cpuid.MOVBE,
	disasm.RDRAND:     cpuid.RDRAND,
	disasm.RDSEED:     cpuid.RDSEED,
	disasm.RDTSCP:     cpuid.RDTSCP,
	disasm.CMOV:       cpuid.CMOV,
	disasm.CX8:        cpuid.CMPXCHG8,
	disasm.CMPXCHG16B: cpuid.CX16,
	disasm.FXSR:       cpuid.FXSR,
	disasm.SYSCALL:    cpuid.SYSCALL,
	disasm.RTM:        cpuid.RTM,
}

// levelFeatures lists, for x86-64 levels 2 to 4, the features that first
// appear at that level.
var levelFeatures = [...][]disasm.Feature{
	2: {disasm.CMPXCHG16B, disasm.POPCNT, disasm.SSE3, disasm.SSE41, disasm.SSE42, disasm.SSSE3},
	3: {disasm.AVX, disasm.AVX2, disasm.BMI1, disasm.BMI2, disasm.F16C, disasm.FMA, disasm.LZCNT,
		disasm.MOVBE, disasm.XSAVE},
	4: {disasm.AVX512F, disasm.AVX512BW, disasm.AVX512CD, disasm.AVX512DQ, disasm.AVX512VL},
}

// RequiredLevel returns the lowest x86-64 microarchitecture level (1 to 4)
// whose feature set includes every levelled feature in features. Features
// outside the level definitions do not raise it.
func RequiredLevel(features []string) int {
	level := 1
	for _, f := range features {
		for l := len(levelFeatures) - 1; l > level; l-- {
			if slices.Contains(levelFeatures[l], disasm.Feature(f)) {
				level = l
				break
			}
		}
	}
	return level
}

// CPU is the subset of cpuid.CPUInfo a check needs.
type CPU interface {
	Has(id cpuid.FeatureID) bool
	X64Level() int
}

// Result is the outcome of comparing a binary's features with a CPU.
type Result struct {
	Brand         string   `json:"brand,omitempty"`
	HostLevel     int      `json:"host_level"`
	RequiredLevel int      `json:"required_level"`
	Missing       []string `json:"missing"`
	Unchecked     []string `json:"unchecked"`
}

// OK reports whether the CPU supports every checked feature and level.
func (r Result) OK() bool {
	return len(r.Missing) == 0 && r.HostLevel >= r.RequiredLevel
}

// CheckCPU compares features with cpu. Missing and Unchecked are sorted.
func CheckCPU(cpu CPU, features []string) Result {
	r := Result{
		HostLevel:     cpu.X64Level(),
		RequiredLevel: RequiredLevel(features),
		Missing:       []string{},
		Unchecked:     []string{},
	}
	for _, f := range features {
		id, ok := featureIDs[disasm.Feature(f)]
		switch {
		case !ok:
			r.Unchecked = append(r.Unchecked, f)
		case !cpu.Has(id):
			r.Missing = append(r.Missing, f)
		}
	}
	slices.Sort(r.Missing)
	slices.Sort(r.Unchecked)
	r.Missing = slices.Compact(r.Missing)
	r.Unchecked = slices.Compact(r.Unchecked)
	return r
}

// Check compares features with the running CPU.
func Check(features []string) Result {
	r := CheckCPU(&cpuid.CPU, features)
	r.Brand = cpuid.CPU.BrandName
	return r
}
