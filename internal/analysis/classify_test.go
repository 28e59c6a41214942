package analysis

import (
	"reflect"
	"testing"
)

func TestClassifyX86(t *testing.T) {
	// movaps; movaps; addps; movaps; ret
	code := []byte{
		0x0f, 0x28, 0x06,
		0x0f, 0x28, 0x0a,
		0x0f, 0x58, 0xc1,
		0x0f, 0x29, 0x07,
		0xc3,
	}
	got := Classify(X86Decoder, code, 64)
	want := []Instruction{
		{Mnemonic: "movaps", Features: []string{"sse"}},
		{Mnemonic: "movaps", Features: []string{"sse"}},
		{Mnemonic: "addps", Features: []string{"sse"}},
		{Mnemonic: "movaps", Features: []string{"sse"}},
		{Mnemonic: "ret"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Classify() = %v, want %v", got, want)
	}

	agg := NewAggregator()
	for _, inst := range got {
		agg.Add(TotalContext, inst)
	}
	wantTotal := Total{
		"sse": {"movaps": 3, "addps": 1},
		"":    {"ret": 1},
	}
	if total := agg.Total(); !reflect.DeepEqual(total, wantTotal) {
		t.Errorf("Total() = %v, want %v", total, wantTotal)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	code := []byte{0xc5, 0xfc, 0x77, 0x62, 0xf1, 0x7c, 0x48, 0x58, 0xd1, 0x06, 0xc3, 0x0f}
	first := Classify(X86Decoder, code, 64)
	second := Classify(X86Decoder, code, 64)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("decoding twice differs:\n%v\n%v", first, second)
	}
	if len(first) != 4 {
		t.Errorf("decoded %d instructions, want 4 (trailing 0f is truncated): %v", len(first), first)
	}
}

func TestInstructionsStopsEarly(t *testing.T) {
	n := 0
	for range Instructions(newFakeDecoder, []byte{1, 2, 3, 4}, 64) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("iterated %d instructions, want 2", n)
	}
}

func TestGroupKey(t *testing.T) {
	tests := []struct {
		features []string
		want     string
	}{
		{nil, ""},
		{[]string{"SSE"}, "sse"},
		{[]string{"AVX512VL", "avx512f"}, "avx512vl,avx512f"},
		{[]string{"avx512f", "avx512vl"}, "avx512f,avx512vl"},
	}
	for _, tt := range tests {
		if got := GroupKey(tt.features); got != tt.want {
			t.Errorf("GroupKey(%v) = %q, want %q", tt.features, got, tt.want)
		}
		if got := GroupFeatures(GroupKey(tt.features)); len(got) != len(tt.features) {
			t.Errorf("GroupFeatures(GroupKey(%v)) = %v", tt.features, got)
		}
	}
}
