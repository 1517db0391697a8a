// Package output provides utilities for formatting and displaying forecast
// results.
package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/internal/variance"
	"github.com/salesops/revenue-forecast/pkg/format"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(out *simulation.Outputs, drivers []variance.Driver) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Forecast %s ---\n", out.RunID)
	fmt.Printf("Percentile | Revenue\n")
	fmt.Printf("__________ | _______\n")
	_, _ = p.Printf("P10        | $%.2f\n", out.P10)
	_, _ = p.Printf("P25        | $%.2f\n", out.P25)
	_, _ = p.Printf("P50        | $%.2f\n", out.P50)
	_, _ = p.Printf("P75        | $%.2f\n", out.P75)
	_, _ = p.Printf("P90        | $%.2f\n", out.P90)
	_, _ = p.Printf("Mean       | $%.2f\n", out.Mean)
	_, _ = p.Printf("\nExisting pipeline P50:  $%.2f\n", out.ExistingPipelineP50)
	_, _ = p.Printf("Projected pipeline P50: $%.2f\n", out.ProjectedPipelineP50)
	if out.QuotaProbability > 0 {
		fmt.Printf("Quota attainment:       %s\n", format.Percent(out.QuotaProbability))
	}

	if len(out.DataQuality.Warnings) > 0 {
		fmt.Printf("\nData quality warnings:\n")
		for _, warning := range out.DataQuality.Warnings {
			fmt.Printf("  - %s\n", warning)
		}
	}

	if len(drivers) > 0 {
		fmt.Printf("\n--- Variance drivers ---\n")
		fmt.Printf("Driver                   | Upside       | Downside     | Skew\n")
		fmt.Printf("______________________   | ____________ | ____________ | ____\n")
		for _, driver := range drivers {
			fmt.Printf("%-24s | %12s | %12s | %s\n",
				driver.Label,
				format.CompactCurrency(driver.UpsideImpact),
				format.CompactCurrency(driver.DownsideImpact),
				driver.Assumption.Skew,
			)
		}
		fmt.Printf("\n")
		for _, driver := range drivers {
			fmt.Printf("%s (%s): %s\n", driver.Label, assumptionBand(driver.Assumption), driver.Assumption.Narrative)
		}
	}
}

// assumptionBand renders the perturbed assumption's current value and range
// in its natural unit.
func assumptionBand(a variance.Assumption) string {
	render := func(v float64) string {
		switch a.Unit {
		case "days":
			return format.Days(v)
		case "dollars":
			return format.CompactCurrency(v)
		case "probability":
			return format.Percent(v)
		default:
			return fmt.Sprintf("%.1f", v)
		}
	}
	return fmt.Sprintf("now %s, range %s to %s", render(a.CurrentValue), render(a.LowBound), render(a.HighBound))
}

// PrettyHistogram renders the outcome distribution as a horizontal bar chart,
// one row per bucket, scaled so the fullest bucket spans histogramBarWidth.
func PrettyHistogram(h simulation.Histogram) {
	peak := 0
	for _, count := range h.Counts {
		if count > peak {
			peak = count
		}
	}
	if peak == 0 {
		return
	}

	fmt.Printf("\n--- Outcome distribution ---\n")
	for i, count := range h.Counts {
		low := h.Min + float64(i)*h.Width
		bar := strings.Repeat("#", count*histogramBarWidth/peak)
		fmt.Printf("%14s | %-*s %d\n", format.CompactCurrency(low), histogramBarWidth, bar, count)
	}
}

const histogramBarWidth = 50

// CsvFormat outputs in comma-separated value format.
func CsvFormat(out *simulation.Outputs, drivers []variance.Driver) {
	fmt.Printf("\"metric\",\"value\"\n")
	fmt.Printf("\"p10\",\"%.2f\"\n", out.P10)
	fmt.Printf("\"p25\",\"%.2f\"\n", out.P25)
	fmt.Printf("\"p50\",\"%.2f\"\n", out.P50)
	fmt.Printf("\"p75\",\"%.2f\"\n", out.P75)
	fmt.Printf("\"p90\",\"%.2f\"\n", out.P90)
	fmt.Printf("\"mean\",\"%.2f\"\n", out.Mean)
	fmt.Printf("\"existing_p50\",\"%.2f\"\n", out.ExistingPipelineP50)
	fmt.Printf("\"projected_p50\",\"%.2f\"\n", out.ProjectedPipelineP50)
	fmt.Printf("\"quota_probability\",\"%.4f\"\n", out.QuotaProbability)
	if len(out.DataQuality.Warnings) > 0 {
		fmt.Printf("\"data_quality_warnings\",\"%s\"\n", strings.Join(out.DataQuality.Warnings, "; "))
	}

	if len(drivers) > 0 {
		fmt.Printf("\"driver\",\"upside\",\"downside\",\"skew\"\n")
		for _, driver := range drivers {
			fmt.Printf("\"%s\",\"%.2f\",\"%.2f\",\"%s\"\n",
				driver.Key, driver.UpsideImpact, driver.DownsideImpact, driver.Assumption.Skew)
		}
	}
}
