// Package constants provides shared constants for the revenue-forecast engine.
package constants

// DateTimeLayout is the date format expected in config files and is also the
// output date format.
const DateTimeLayout = "2006-01-02"

// Simulation defaults
const (
	// DefaultIterations is the iteration count used when a scenario file does
	// not specify one.
	DefaultIterations = 10000

	// DriverIterations is the reduced iteration count used for each perturbed
	// simulation during variance driver analysis.
	DriverIterations = 2000

	// DefaultHistogramBuckets is the bucket count used when none is given.
	DefaultHistogramBuckets = 100

	// MinReliableSampleCount is the minimum number of historical closed deals
	// a fitted distribution must be backed by to be considered reliable.
	MinReliableSampleCount = 20

	// DaysPerMonth is the month length used for cycle and window conversions.
	DaysPerMonth = 30.0
)

// Risk signal multipliers. These weights are uncalibrated heuristics carried
// over from production; do not adjust without product sign-off.
const (
	PastCloseDateMultiplier     = 0.80
	SingleThreadedMultiplier    = 0.75
	StaleEngagementMultiplier   = 0.70
	CompetitorMentionMultiplier = 0.85
	ActiveChampionMultiplier    = 1.15
	OversizedDealMultiplier     = 0.90

	// RiskMultiplierMin and RiskMultiplierMax bound the combined multiplier.
	RiskMultiplierMin = 0.05
	RiskMultiplierMax = 2.0

	// OversizedDealRatio flags deals larger than this multiple of the owner's
	// trailing average closed-won size.
	OversizedDealRatio = 2.0

	// EvidenceMaxAgeDays is how far back evidence blobs are considered.
	EvidenceMaxAgeDays = 7
)

// Fallback distribution parameters, used whenever a fitted entry is missing.
const (
	FallbackStageAlpha = 2.0
	FallbackStageBeta  = 6.0

	FallbackRenewalAlpha = 7.0
	FallbackRenewalBeta  = 3.0

	FallbackExpansionAlpha = 6.0
	FallbackExpansionBeta  = 4.0

	FallbackSlippageMean  = 14.0
	FallbackSlippageSigma = 21.0
)

// Revenue model tunables
const (
	// WinProbMin and WinProbMax bound the risk-adjusted win probability for
	// deals already in the pipeline.
	WinProbMin = 0.05
	WinProbMax = 0.95

	// AmountMultiplierMin and AmountMultiplierMax clip the sampled amount
	// multiplier applied to the CRM-stated deal amount.
	AmountMultiplierMin = 0.5
	AmountMultiplierMax = 2.0

	// DealSizeSigmaScale scales the fitted deal-size sigma for existing-deal
	// amount noise.
	DealSizeSigmaScale = 0.3

	// RenewalSigmaScale scales the fitted deal-size sigma for renewal amounts.
	RenewalSigmaScale = 0.15

	// ExpansionCycleScale shortens the sampled sales cycle for expansion
	// motions, which close faster than net-new deals.
	ExpansionCycleScale = 0.7

	// PipelineRateSigmaScale dampens monthly deal-count noise.
	PipelineRateSigmaScale = 0.5

	// MinCycleDays floors sampled sales-cycle lengths.
	MinCycleDays = 14.0

	// MinNewDealAmount floors sampled amounts for not-yet-created deals.
	MinNewDealAmount = 1000.0
)

// Variance driver analysis
const (
	// DriverTopCount is how many ranked drivers are returned.
	DriverTopCount = 5

	// SkewUpsideRatio and SkewDownsideRatio classify a driver's skew from the
	// ratio of upside to downside impact.
	SkewUpsideRatio   = 1.15
	SkewDownsideRatio = 0.85

	// BandZScore is the z-score used for analytic low/high assumption bands
	// (roughly the 10th/90th percentile).
	BandZScore = 1.28

	// LogNormalBandFactor is the fixed multiplicative band applied around
	// exp(mu) for log-normal assumptions.
	LogNormalBandFactor = 1.5
)

// Numeric comparison constants
const (
	// DecimalPrecision is the precision for currency rounding.
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent).
	CurrencyTolerance = 0.01
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format.
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format.
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default scenario file name.
	DefaultConfigFile = "config.yaml"
)
