package hardware

import (
	"testing"

	"github.com/localcue/dictate/internal/model"
)

func TestDetectMemoized(t *testing.T) {
	p1, err := Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	p2, err := Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p1 != p2 {
		t.Errorf("Detect should be memoized: %+v != %+v", p1, p2)
	}
	if p1.Cores < 1 {
		t.Errorf("Cores = %d; want >= 1", p1.Cores)
	}
}

func TestRecommendedThreads(t *testing.T) {
	cases := []struct {
		cores int
		want  int
	}{
		{1, 1}, {2, 1}, {4, 3}, {8, 7},
	}
	for _, c := range cases {
		p := Profile{Cores: c.cores}
		if got := p.RecommendedThreads(); got != c.want {
			t.Errorf("RecommendedThreads(cores=%d) = %d; want %d", c.cores, got, c.want)
		}
	}
}

func TestSIMDGood(t *testing.T) {
	cases := []struct {
		s    SIMD
		want bool
	}{
		{SIMD{AVX2: true}, true},
		{SIMD{NEON: true}, true},
		{SIMD{AVX: true}, false},
		{SIMD{}, false},
	}
	for _, c := range cases {
		if got := c.s.Good(); got != c.want {
			t.Errorf("SIMD(%+v).Good() = %v; want %v", c.s, got, c.want)
		}
	}
}

func TestRecommendTable(t *testing.T) {
	catalog, err := model.LoadEmbeddedCatalog()
	if err != nil {
		t.Fatalf("LoadEmbeddedCatalog: %v", err)
	}

	cases := []struct {
		ramGB int
		good  bool
		want  string
	}{
		{2, false, "whisper-tiny"},
		{3, true, "whisper-tiny"},
		{4, false, "whisper-base"},
		{7, true, "whisper-base"},
		{8, true, "whisper-small"},
		{8, false, "whisper-small"},
		{32, true, "whisper-small"},
	}
	for _, c := range cases {
		p := Profile{RAMBytes: uint64(c.ramGB) << 30, SIMD: SIMD{AVX2: c.good}}
		rec, err := Recommend(p, catalog)
		if err != nil {
			t.Fatalf("Recommend(%dGB): %v", c.ramGB, err)
		}
		if rec.ModelID != c.want {
			t.Errorf("Recommend(%dGB, good=%v) = %q; want %q", c.ramGB, c.good, rec.ModelID, c.want)
		}
		if rec.Quantization != model.QuantQ5_1 {
			t.Errorf("Recommend(%dGB) quant = %q; want q5_1", c.ramGB, rec.Quantization)
		}
	}
}

func TestRecommendFailsWhenCatalogMissingID(t *testing.T) {
	catalog := &model.Catalog{Version: 1}
	if _, err := Recommend(Profile{RAMBytes: 2 << 30}, catalog); err == nil {
		t.Error("expected ModelNotFound when catalog lacks the recommended id")
	}
}
