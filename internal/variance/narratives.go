package variance

// narrativeTemplates maps driver key -> skew -> narrative. Text is fixed so
// the reporting layer can rely on stable phrasing.
var narrativeTemplates = map[string]map[string]string{
	"win_rate": {
		SkewUpsideHeavy:   "Win rates are the biggest lever on the upside: closing even modestly better than history would lift the median forecast disproportionately.",
		SkewDownsideHeavy: "The forecast is exposed to win-rate erosion: a modest drop below historical close rates costs more than an equivalent improvement would gain.",
		SkewBalanced:      "Win rates move the forecast symmetrically; improving or slipping against historical close rates shifts the median by a similar amount.",
	},
	"deal_size": {
		SkewUpsideHeavy:   "Larger-than-usual deals carry outsized upside; a shift toward bigger contracts would raise the median forecast more than smaller deals would lower it.",
		SkewDownsideHeavy: "Deal-size compression is a real risk: smaller average contracts pull the median forecast down faster than larger ones push it up.",
		SkewBalanced:      "Average deal size moves the forecast proportionally in both directions around the current fitted size.",
	},
	"cycle_length": {
		SkewUpsideHeavy:   "Faster sales cycles would pull meaningful revenue into the window; acceleration matters more here than slowdown.",
		SkewDownsideHeavy: "Cycle slowdown pushes deals past the window edge: lengthening sales cycles costs more revenue than faster cycles would add.",
		SkewBalanced:      "Sales-cycle speed shifts revenue into or out of the window roughly evenly in both directions.",
	},
	"slippage": {
		SkewUpsideHeavy:   "Tightening close-date discipline has more to give than slippage has to take; deals closing on time land inside the window.",
		SkewDownsideHeavy: "Close-date slippage is a material downside: a week of additional slip pushes deals out of the window faster than a week of discipline pulls them in.",
		SkewBalanced:      "Close-date slippage moves late-window deals in and out of the forecast roughly symmetrically.",
	},
	"pipeline_creation": {
		SkewUpsideHeavy:   "Pipeline generation is the growth lever: reps creating pipeline above their fitted rate would lift the median materially.",
		SkewDownsideHeavy: "A pipeline-generation slowdown is the larger risk: fewer new deals created this window costs more than extra creation would add.",
		SkewBalanced:      "Pipeline creation shifts projected revenue proportionally with the rate at which reps source new deals.",
	},
	"renewal_count": {
		SkewUpsideHeavy:   "Additional renewals surfacing in-window represent meaningful upside beyond the known renewal book.",
		SkewDownsideHeavy: "Renewals slipping out of the window are the dominant risk: losing a fifth of the book costs more than finding extra renewals would gain.",
		SkewBalanced:      "The renewal book scales the forecast near-linearly; each renewal in or out moves the median by roughly its contract value.",
	},
	"expansion_rate": {
		SkewUpsideHeavy:   "Expansion appetite above the fitted rate would compound across the installed base into significant upside.",
		SkewDownsideHeavy: "Soft expansion demand is the larger exposure: a below-average expansion rate across the base drags the median down sharply.",
		SkewBalanced:      "The expansion rate scales projected revenue evenly with how much of the base expands this window.",
	},
	"customer_base_arr": {
		SkewUpsideHeavy:   "A larger addressable base would amplify expansion revenue; ARR growth feeds directly into the upside.",
		SkewDownsideHeavy: "Churn in the customer base is the bigger threat: a smaller ARR base shrinks expansion revenue faster than base growth adds it.",
		SkewBalanced:      "Expansion revenue tracks the size of the customer base near-linearly in both directions.",
	},
}

// narrative returns the template for a driver and skew, falling back to the
// balanced phrasing for any unknown combination.
func narrative(key, skew string) string {
	bySkew, ok := narrativeTemplates[key]
	if !ok {
		return ""
	}
	if text, ok := bySkew[skew]; ok {
		return text
	}
	return bySkew[SkewBalanced]
}
