package output

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/internal/variance"
)

// captureOutput redirects stdout while fn runs and returns what was printed.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = orig

	captured, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured output: %v", err)
	}
	return string(captured)
}

func sampleOutputs() *simulation.Outputs {
	return &simulation.Outputs{
		RunID:                "run-123",
		P10:                  82000,
		P25:                  110500,
		P50:                  150000,
		P75:                  192000,
		P90:                  238000,
		Mean:                 155321.5,
		QuotaProbability:     0.62,
		ExistingPipelineP50:  120000,
		ProjectedPipelineP50: 30000,
		DataQuality: simulation.DataQualityReport{
			Warnings: []string{`win rate for stage "discovery" is backed by 4 closed deals (minimum 20)`},
		},
	}
}

func sampleDrivers() []variance.Driver {
	return []variance.Driver{
		{
			Key:            "win_rate",
			Label:          "Stage win rates",
			UpsideImpact:   24000,
			DownsideImpact: 31000,
			TotalVariance:  55000,
			Assumption: variance.Assumption{
				CurrentValue: 0.55,
				LowBound:     0.40,
				HighBound:    0.70,
				Unit:         "probability",
				Skew:         variance.SkewDownsideHeavy,
				Narrative:    "The forecast is exposed to win-rate erosion.",
			},
		},
		{
			Key:            "slippage",
			Label:          "Close-date slippage",
			UpsideImpact:   12000,
			DownsideImpact: 11000,
			TotalVariance:  23000,
			Assumption: variance.Assumption{
				CurrentValue: 12,
				LowBound:     -8,
				HighBound:    32,
				Unit:         "days",
				Skew:         variance.SkewBalanced,
				Narrative:    "Close-date slippage moves late-window deals roughly symmetrically.",
			},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	got := captureOutput(t, func() {
		PrettyFormat(sampleOutputs(), sampleDrivers())
	})

	wants := []string{
		"--- Forecast run-123 ---",
		"P50        | $150,000.00",
		"P90        | $238,000.00",
		"Mean       | $155,321.50",
		"Existing pipeline P50:  $120,000.00",
		"Projected pipeline P50: $30,000.00",
		"Quota attainment:       62.0%",
		"Data quality warnings:",
		`win rate for stage "discovery"`,
		"--- Variance drivers ---",
		"Stage win rates",
		"downside_heavy",
		"win-rate erosion",
		"now 55.0%, range 40.0% to 70.0%",
		"now 12 days, range -8 days to 32 days",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("pretty output missing %q\noutput:\n%s", want, got)
		}
	}
}

func TestPrettyFormatWithoutDriversOrQuota(t *testing.T) {
	out := sampleOutputs()
	out.QuotaProbability = 0
	out.DataQuality.Warnings = nil

	got := captureOutput(t, func() {
		PrettyFormat(out, nil)
	})

	for _, absent := range []string{"Variance drivers", "Quota attainment", "Data quality warnings"} {
		if strings.Contains(got, absent) {
			t.Errorf("pretty output should not contain %q\noutput:\n%s", absent, got)
		}
	}
}

func TestPrettyHistogram(t *testing.T) {
	hist := simulation.BuildHistogram([]float64{0, 10, 10, 20, 20, 20, 20}, 3)

	got := captureOutput(t, func() {
		PrettyHistogram(hist)
	})

	if !strings.Contains(got, "--- Outcome distribution ---") {
		t.Errorf("histogram output missing header\noutput:\n%s", got)
	}
	// The fullest bucket holds four of seven values and gets the full bar.
	if !strings.Contains(got, strings.Repeat("#", 50)) {
		t.Errorf("expected a full-width bar for the peak bucket\noutput:\n%s", got)
	}

	empty := captureOutput(t, func() {
		PrettyHistogram(simulation.Histogram{Counts: make([]int, 10)})
	})
	if empty != "" {
		t.Errorf("empty histogram should print nothing, got %q", empty)
	}
}

func TestCsvFormat(t *testing.T) {
	got := captureOutput(t, func() {
		CsvFormat(sampleOutputs(), sampleDrivers())
	})

	wants := []string{
		"\"metric\",\"value\"",
		"\"p50\",\"150000.00\"",
		"\"mean\",\"155321.50\"",
		"\"existing_p50\",\"120000.00\"",
		"\"quota_probability\",\"0.6200\"",
		"\"driver\",\"upside\",\"downside\",\"skew\"",
		"\"win_rate\",\"24000.00\",\"31000.00\",\"downside_heavy\"",
		"\"slippage\",\"12000.00\",\"11000.00\",\"balanced\"",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("csv output missing %q\noutput:\n%s", want, got)
		}
	}
}
