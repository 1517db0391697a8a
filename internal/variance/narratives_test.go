package variance

import "testing"

func TestClassifySkew(t *testing.T) {
	tests := []struct {
		name     string
		upside   float64
		downside float64
		want     string
	}{
		{"both zero", 0, 0, SkewBalanced},
		{"upside only", 5000, 0, SkewUpsideHeavy},
		{"downside only", 0, 5000, SkewDownsideHeavy},
		{"equal impacts", 10000, 10000, SkewBalanced},
		{"just inside upside threshold", 11400, 10000, SkewBalanced},
		{"past upside threshold", 11600, 10000, SkewUpsideHeavy},
		{"just inside downside threshold", 8600, 10000, SkewBalanced},
		{"past downside threshold", 8400, 10000, SkewDownsideHeavy},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifySkew(tc.upside, tc.downside); got != tc.want {
				t.Errorf("classifySkew(%v, %v) = %s, want %s", tc.upside, tc.downside, got, tc.want)
			}
		})
	}
}

func TestNarrativeCoversEveryDriverAndSkew(t *testing.T) {
	skews := []string{SkewUpsideHeavy, SkewDownsideHeavy, SkewBalanced}
	for _, def := range driverDefs {
		for _, skew := range skews {
			if narrative(def.key, skew) == "" {
				t.Errorf("no narrative for driver %s with skew %s", def.key, skew)
			}
		}
	}
}

func TestNarrativeUnknownSkewFallsBackToBalanced(t *testing.T) {
	if got := narrative("win_rate", "sideways"); got != narrativeTemplates["win_rate"][SkewBalanced] {
		t.Errorf("unknown skew should fall back to balanced narrative, got %q", got)
	}
	if got := narrative("no_such_driver", SkewBalanced); got != "" {
		t.Errorf("unknown driver should produce empty narrative, got %q", got)
	}
}
