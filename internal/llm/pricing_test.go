package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	cases := []struct {
		model string
		want  float64 // input price, -1 for unknown
	}{
		{"gpt-4o-mini", 0.15},
		{"GPT-4o-Mini", 0.15},
		{"claude-haiku-4-5-20251001", 1},
		{"openai/gpt-4o-mini", 0.15},
		{"google/gemini-2.0-flash-exp", 0},
		{"gpt-4o-2024-08-06", 2.5},
		{"mock", -1},
		{"", -1},
	}
	for _, c := range cases {
		got := LookupCost(c.model)
		switch {
		case c.want < 0 && got != nil:
			t.Errorf("LookupCost(%q) = %+v, want nil", c.model, got)
		case c.want >= 0 && got == nil:
			t.Errorf("LookupCost(%q) = nil, want %v", c.model, c.want)
		case got != nil && got.InputPerMTok != c.want:
			t.Errorf("LookupCost(%q).InputPerMTok = %v, want %v", c.model, got.InputPerMTok, c.want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	usd, ok := EstimateCost("gpt-4o-mini", Usage{InputTokens: 2_000_000, OutputTokens: 500_000})
	if !ok {
		t.Fatal("expected gpt-4o-mini to be priced")
	}
	if want := 0.3 + 0.3; math.Abs(usd-want) > 1e-9 {
		t.Fatalf("cost = %v, want %v", usd, want)
	}
	if _, ok := EstimateCost("mock", Usage{InputTokens: 10}); ok {
		t.Fatal("expected mock to be unpriced")
	}
}
