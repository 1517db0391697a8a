// Package simulation implements the Monte Carlo revenue forecasting engine:
// sampling primitives, the per-iteration revenue model, and the orchestrator
// that aggregates thousands of iterations into percentile outcomes.
package simulation

import (
	"fmt"
	"time"

	"github.com/salesops/revenue-forecast/pkg/constants"
)

// PipelineType selects which revenue-generation model applies to the
// projected portion of a forecast.
type PipelineType string

const (
	PipelineNewBusiness PipelineType = "new_business"
	PipelineRenewal     PipelineType = "renewal"
	PipelineExpansion   PipelineType = "expansion"
)

// Stage names with dedicated fitted win-rate entries.
const (
	StageRenewal   = "renewal"
	StageExpansion = "expansion"
)

// LogNormalParams holds fitted log-normal parameters.
type LogNormalParams struct {
	Mu          float64
	Sigma       float64
	Reliable    bool
	SampleCount int
}

// BetaParams holds fitted beta parameters for a stage win rate.
type BetaParams struct {
	Alpha       float64
	Beta        float64
	Reliable    bool
	SampleCount int
}

// NormalParams holds fitted normal parameters for close-date slippage, in days.
type NormalParams struct {
	Mean  float64
	Sigma float64
}

// PipelineRateParams holds a rep's fitted monthly pipeline-creation rate.
type PipelineRateParams struct {
	Mean       float64
	Sigma      float64
	RampFactor float64
}

// FittedDistributions carries every fitted parameter the simulation consumes.
// Fitting happens upstream; the engine only reads these values and falls back
// to documented constants for anything missing.
type FittedDistributions struct {
	DealSize      LogNormalParams
	CycleLength   LogNormalParams
	StageWinRates map[string]BetaParams
	Slippage      map[string]NormalParams
	PipelineRates map[string]PipelineRateParams
}

// StageWinRate returns the fitted win-rate parameters for a stage, or the
// provided fallback when the stage was never fitted.
func (d FittedDistributions) StageWinRate(stage string, fallbackAlpha, fallbackBeta float64) BetaParams {
	if params, ok := d.StageWinRates[stage]; ok {
		return params
	}
	return BetaParams{Alpha: fallbackAlpha, Beta: fallbackBeta}
}

// StageSlippage returns the fitted slippage parameters for a stage, or the
// documented fallback (mean 14, sigma 21 days).
func (d FittedDistributions) StageSlippage(stage string) NormalParams {
	if params, ok := d.Slippage[stage]; ok {
		return params
	}
	return NormalParams{Mean: constants.FallbackSlippageMean, Sigma: constants.FallbackSlippageSigma}
}

// OpenDeal is a deal currently in the pipeline, as reported by the CRM.
type OpenDeal struct {
	ID                string
	Name              string
	Amount            float64
	Stage             string
	CloseDate         time.Time
	Owner             string
	StatedProbability float64
}

// RiskAdjustment is a per-deal win-probability multiplier derived from
// behavioral signals, always within [0.05, 2.0]. AppliedSignals lists the
// signal names in application order.
type RiskAdjustment struct {
	DealID         string
	Multiplier     float64
	AppliedSignals []string
}

// UpcomingRenewal is a contract expected to renew inside or near the window.
type UpcomingRenewal struct {
	DealID            string
	Name              string
	ContractValue     float64
	ExpectedCloseDate time.Time
	Owner             string
}

// ExpansionRate holds the fitted expansion-rate parameters for the customer
// base, as a fraction of ARR.
type ExpansionRate struct {
	Mean  float64
	Sigma float64
}

// Inputs is everything one simulation run needs. All fields are plain values
// so a run is a pure function of its Inputs; Clone produces an independent
// copy for scenario perturbation.
type Inputs struct {
	OpenDeals        []OpenDeal
	Distributions    FittedDistributions
	RiskAdjustments  map[string]RiskAdjustment
	WindowEnd        time.Time
	Today            time.Time
	Iterations       int
	PipelineType     PipelineType
	UpcomingRenewals []UpcomingRenewal
	CustomerBaseARR  float64
	ExpansionRate    ExpansionRate

	// TargetQuota, when positive, adds a quota-attainment probability to the
	// outputs.
	TargetQuota float64

	// Seed drives per-worker random streams; 0 means seed from the clock.
	Seed int64

	// Workers bounds the iteration worker pool; 0 means one per CPU.
	Workers int

	// KeepIterations retains per-iteration detail on the outputs. Off by
	// default to bound memory at 10k+ iterations.
	KeepIterations bool
}

// Validate rejects inputs that would previously have produced NaN or
// degenerate output: non-positive iteration counts, an inverted forecast
// window, an unknown pipeline type, or a scenario with no revenue source at
// all.
func (in *Inputs) Validate() error {
	if in.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", in.Iterations)
	}
	if in.WindowEnd.Before(in.Today) {
		return fmt.Errorf("forecast window end %s precedes today %s",
			in.WindowEnd.Format(constants.DateTimeLayout), in.Today.Format(constants.DateTimeLayout))
	}

	switch in.PipelineType {
	case PipelineNewBusiness, PipelineRenewal, PipelineExpansion:
	case "":
		// Normalized to new_business by Run.
	default:
		return fmt.Errorf("unknown pipeline type %q", in.PipelineType)
	}

	if len(in.OpenDeals) > 0 {
		return nil
	}
	switch in.PipelineType {
	case PipelineRenewal:
		if len(in.UpcomingRenewals) > 0 {
			return nil
		}
	case PipelineExpansion:
		if in.CustomerBaseARR > 0 {
			return nil
		}
	default:
		if len(in.Distributions.PipelineRates) > 0 {
			return nil
		}
	}
	return fmt.Errorf("no revenue sources: no open deals and no projected pipeline for type %q", in.EffectivePipelineType())
}

// EffectivePipelineType returns the pipeline type with the empty value
// normalized to new_business.
func (in *Inputs) EffectivePipelineType() PipelineType {
	if in.PipelineType == "" {
		return PipelineNewBusiness
	}
	return in.PipelineType
}

// Clone returns a structurally independent copy of the inputs: slices and
// maps are reallocated so a perturbed clone never aliases the original.
func (in Inputs) Clone() Inputs {
	out := in

	out.OpenDeals = append([]OpenDeal(nil), in.OpenDeals...)
	out.UpcomingRenewals = append([]UpcomingRenewal(nil), in.UpcomingRenewals...)

	if in.RiskAdjustments != nil {
		out.RiskAdjustments = make(map[string]RiskAdjustment, len(in.RiskAdjustments))
		for id, adj := range in.RiskAdjustments {
			adj.AppliedSignals = append([]string(nil), adj.AppliedSignals...)
			out.RiskAdjustments[id] = adj
		}
	}

	out.Distributions = in.Distributions.clone()
	return out
}

func (d FittedDistributions) clone() FittedDistributions {
	out := d
	if d.StageWinRates != nil {
		out.StageWinRates = make(map[string]BetaParams, len(d.StageWinRates))
		for stage, params := range d.StageWinRates {
			out.StageWinRates[stage] = params
		}
	}
	if d.Slippage != nil {
		out.Slippage = make(map[string]NormalParams, len(d.Slippage))
		for stage, params := range d.Slippage {
			out.Slippage[stage] = params
		}
	}
	if d.PipelineRates != nil {
		out.PipelineRates = make(map[string]PipelineRateParams, len(d.PipelineRates))
		for rep, params := range d.PipelineRates {
			out.PipelineRates[rep] = params
		}
	}
	return out
}

// IterationRecord captures one trial's outcome. Records are discarded after
// aggregation unless Inputs.KeepIterations is set.
type IterationRecord struct {
	Total           float64
	Existing        float64
	Projected       float64
	WinningDealIDs  []string
	NewDealsCreated int
	RevenueByRep    map[string]float64
}

// DataQualityReport flags fitted distributions that are not backed by enough
// historical closed deals to trust.
type DataQualityReport struct {
	DealSizeReliable    bool
	CycleLengthReliable bool
	UnreliableStages    []string
	Warnings            []string
}

// Outputs is the aggregated result of a simulation run.
type Outputs struct {
	RunID string

	P10  float64
	P25  float64
	P50  float64
	P75  float64
	P90  float64
	Mean float64

	// QuotaProbability is the fraction of iterations meeting TargetQuota;
	// zero when no quota was given.
	QuotaProbability float64

	ExistingPipelineP50 float64

	// ProjectedPipelineP50 is totalP50 minus existingP50, an approximation
	// of the projected-only median rather than its true marginal P50.
	ProjectedPipelineP50 float64

	// Outcomes holds every iteration total, sorted ascending.
	Outcomes []float64

	DataQuality DataQualityReport

	// IterationDetail is populated only when Inputs.KeepIterations is set.
	IterationDetail []IterationRecord
}
