// Package variance implements the tornado analysis that ranks which input
// assumption most affects the forecast's median outcome. Each driver perturbs
// one fitted parameter up and down on structural clones of the inputs and
// reruns a reduced simulation for each direction.
package variance

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/pkg/constants"
	"github.com/salesops/revenue-forecast/pkg/mathutil"
)

// Skew classifications for a driver's impact profile.
const (
	SkewUpsideHeavy   = "upside_heavy"
	SkewDownsideHeavy = "downside_heavy"
	SkewBalanced      = "balanced"
)

// Assumption describes the perturbed input in human terms.
type Assumption struct {
	CurrentValue float64
	LowBound     float64
	HighBound    float64
	Unit         string
	Skew         string
	Narrative    string
}

// Driver is one ranked sensitivity result. Impacts are P50 deltas against
// the baseline and are never negative.
type Driver struct {
	Key            string
	Label          string
	UpsideImpact   float64
	DownsideImpact float64
	TotalVariance  float64
	Assumption     Assumption
}

// Analyzer runs the driver analysis. The zero iterations value means
// constants.DriverIterations per perturbed run.
type Analyzer struct {
	logger     *zap.Logger
	iterations int
}

// NewAnalyzer constructs an Analyzer with the standard reduced iteration
// count.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return NewAnalyzerWithIterations(logger, constants.DriverIterations)
}

// NewAnalyzerWithIterations constructs an Analyzer with an explicit per-run
// iteration count. Intended for tests that need fast runs.
func NewAnalyzerWithIterations(logger *zap.Logger, iterations int) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if iterations < 1 {
		iterations = constants.DriverIterations
	}
	return &Analyzer{logger: logger, iterations: iterations}
}

// Analyze perturbs every driver relevant to the active pipeline mode and
// returns the top drivers ranked by total variance descending. baselineP50
// comes from a full-size run of the same inputs.
func (a *Analyzer) Analyze(ctx context.Context, in simulation.Inputs, baselineP50 float64) ([]Driver, error) {
	var drivers []Driver

	for i, def := range driverDefs {
		if !def.applies(in.EffectivePipelineType()) {
			continue
		}

		up := in.Clone()
		down := in.Clone()
		def.perturb(&up, +1)
		def.perturb(&down, -1)

		a.prepare(&up, in.Seed, int64(i)*2+1)
		a.prepare(&down, in.Seed, int64(i)*2+2)

		upOut, err := simulation.Run(ctx, a.logger, up)
		if err != nil {
			return nil, fmt.Errorf("driver %s upside run: %w", def.key, err)
		}
		downOut, err := simulation.Run(ctx, a.logger, down)
		if err != nil {
			return nil, fmt.Errorf("driver %s downside run: %w", def.key, err)
		}

		upside := mathutil.Max(0, upOut.P50-baselineP50)
		downside := mathutil.Max(0, baselineP50-downOut.P50)
		skew := classifySkew(upside, downside)

		current, low, high := def.describe(&in)
		drivers = append(drivers, Driver{
			Key:            def.key,
			Label:          def.label,
			UpsideImpact:   upside,
			DownsideImpact: downside,
			TotalVariance:  upside + downside,
			Assumption: Assumption{
				CurrentValue: current,
				LowBound:     low,
				HighBound:    high,
				Unit:         def.unit,
				Skew:         skew,
				Narrative:    narrative(def.key, skew),
			},
		})

		a.logger.Debug("driver evaluated",
			zap.String("op", "variance.Analyze"),
			zap.String("driver", def.key),
			zap.Float64("upside", upside),
			zap.Float64("downside", downside),
			zap.String("skew", skew),
		)
	}

	// Stable sort keeps driver-table order on ties.
	sort.SliceStable(drivers, func(i, j int) bool {
		return drivers[i].TotalVariance > drivers[j].TotalVariance
	})
	if len(drivers) > constants.DriverTopCount {
		drivers = drivers[:constants.DriverTopCount]
	}
	return drivers, nil
}

func (a *Analyzer) prepare(in *simulation.Inputs, baseSeed, offset int64) {
	in.Iterations = a.iterations
	in.KeepIterations = false
	if baseSeed != 0 {
		in.Seed = baseSeed + offset
	}
}

// classifySkew compares upside to downside impact. A zero downside with any
// upside is upside heavy (and vice versa); two zeros are balanced.
func classifySkew(upside, downside float64) string {
	if downside == 0 {
		if upside == 0 {
			return SkewBalanced
		}
		return SkewUpsideHeavy
	}
	ratio := upside / downside
	if ratio > constants.SkewUpsideRatio {
		return SkewUpsideHeavy
	}
	if ratio < constants.SkewDownsideRatio {
		return SkewDownsideHeavy
	}
	return SkewBalanced
}

type driverDef struct {
	key      string
	label    string
	unit     string
	applies  func(simulation.PipelineType) bool
	perturb  func(*simulation.Inputs, float64)
	describe func(*simulation.Inputs) (current, low, high float64)
}

func allModes(simulation.PipelineType) bool { return true }

var driverDefs = []driverDef{
	{
		key:     "win_rate",
		label:   "Stage win rates",
		unit:    "probability",
		applies: allModes,
		perturb: func(in *simulation.Inputs, dir float64) {
			factor := 1.20
			if dir < 0 {
				factor = 0.80
			}
			for stage, params := range in.Distributions.StageWinRates {
				params.Alpha *= factor
				in.Distributions.StageWinRates[stage] = params
			}
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			mean, stddev := blendedBetaStats(in.Distributions.StageWinRates)
			low := mathutil.Clamp(mean-constants.BandZScore*stddev, 0, 1)
			high := mathutil.Clamp(mean+constants.BandZScore*stddev, 0, 1)
			return mean, low, high
		},
	},
	{
		key:     "deal_size",
		label:   "Typical deal size",
		unit:    "dollars",
		applies: allModes,
		perturb: func(in *simulation.Inputs, dir float64) {
			in.Distributions.DealSize.Mu += 0.2 * dir
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			median := math.Exp(in.Distributions.DealSize.Mu)
			return median, median / constants.LogNormalBandFactor, median * constants.LogNormalBandFactor
		},
	},
	{
		key:   "cycle_length",
		label: "Sales cycle length",
		unit:  "days",
		applies: func(pt simulation.PipelineType) bool {
			return pt != simulation.PipelineRenewal
		},
		// A shorter cycle is the upside direction: more deals close in-window.
		perturb: func(in *simulation.Inputs, dir float64) {
			in.Distributions.CycleLength.Mu -= 0.2 * dir
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			median := math.Exp(in.Distributions.CycleLength.Mu)
			return median, median / constants.LogNormalBandFactor, median * constants.LogNormalBandFactor
		},
	},
	{
		key:   "slippage",
		label: "Close-date slippage",
		unit:  "days",
		applies: func(pt simulation.PipelineType) bool {
			return pt != simulation.PipelineExpansion
		},
		// Less slippage is the upside direction.
		perturb: func(in *simulation.Inputs, dir float64) {
			for stage, params := range in.Distributions.Slippage {
				params.Mean -= 7 * dir
				in.Distributions.Slippage[stage] = params
			}
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			mean, sigma := blendedNormalStats(in.Distributions.Slippage)
			return mean, mean - constants.BandZScore*sigma, mean + constants.BandZScore*sigma
		},
	},
	{
		key:   "pipeline_creation",
		label: "Pipeline creation rate",
		unit:  "deals per month",
		applies: func(pt simulation.PipelineType) bool {
			return pt == simulation.PipelineNewBusiness
		},
		perturb: func(in *simulation.Inputs, dir float64) {
			factor := 1.20
			if dir < 0 {
				factor = 0.80
			}
			for rep, params := range in.Distributions.PipelineRates {
				params.Mean *= factor
				in.Distributions.PipelineRates[rep] = params
			}
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			mean, sigma := blendedRateStats(in.Distributions.PipelineRates)
			low := mathutil.Max(0, mean-constants.BandZScore*sigma)
			return mean, low, mean + constants.BandZScore*sigma
		},
	},
	{
		key:   "renewal_count",
		label: "Renewal count",
		unit:  "renewals",
		applies: func(pt simulation.PipelineType) bool {
			return pt == simulation.PipelineRenewal
		},
		perturb: func(in *simulation.Inputs, dir float64) {
			delta := int(math.Ceil(0.20 * float64(len(in.UpcomingRenewals))))
			if delta == 0 {
				return
			}
			if dir > 0 {
				for i := 0; i < delta; i++ {
					extra := in.UpcomingRenewals[i%len(in.UpcomingRenewals)]
					extra.DealID = fmt.Sprintf("%s-proj%d", extra.DealID, i)
					in.UpcomingRenewals = append(in.UpcomingRenewals, extra)
				}
				return
			}
			keep := len(in.UpcomingRenewals) - delta
			if keep < 0 {
				keep = 0
			}
			in.UpcomingRenewals = in.UpcomingRenewals[:keep]
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			count := float64(len(in.UpcomingRenewals))
			return count, math.Floor(count * 0.80), math.Ceil(count * 1.20)
		},
	},
	{
		key:   "expansion_rate",
		label: "Expansion rate",
		unit:  "fraction of ARR",
		applies: func(pt simulation.PipelineType) bool {
			return pt == simulation.PipelineExpansion
		},
		perturb: func(in *simulation.Inputs, dir float64) {
			in.ExpansionRate.Mean += in.ExpansionRate.Sigma * dir
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			mean := in.ExpansionRate.Mean
			sigma := in.ExpansionRate.Sigma
			return mean, mathutil.Max(0, mean-sigma), mean + sigma
		},
	},
	{
		key:   "customer_base_arr",
		label: "Customer base ARR",
		unit:  "dollars",
		applies: func(pt simulation.PipelineType) bool {
			return pt == simulation.PipelineExpansion
		},
		perturb: func(in *simulation.Inputs, dir float64) {
			factor := 1.20
			if dir < 0 {
				factor = 0.80
			}
			in.CustomerBaseARR *= factor
		},
		describe: func(in *simulation.Inputs) (float64, float64, float64) {
			arr := in.CustomerBaseARR
			return arr, arr * 0.80, arr * 1.20
		},
	},
}

// blendedBetaStats averages the mean and standard deviation across all fitted
// stage win rates; the analytic band describes the fitted book as a whole.
func blendedBetaStats(stages map[string]simulation.BetaParams) (float64, float64) {
	if len(stages) == 0 {
		return 0, 0
	}
	var meanSum, stddevSum float64
	for _, params := range stages {
		total := params.Alpha + params.Beta
		if total <= 0 {
			continue
		}
		mean := params.Alpha / total
		variance := (params.Alpha * params.Beta) / (total * total * (total + 1))
		meanSum += mean
		stddevSum += math.Sqrt(variance)
	}
	n := float64(len(stages))
	return meanSum / n, stddevSum / n
}

func blendedNormalStats(stages map[string]simulation.NormalParams) (float64, float64) {
	if len(stages) == 0 {
		return constants.FallbackSlippageMean, constants.FallbackSlippageSigma
	}
	var meanSum, sigmaSum float64
	for _, params := range stages {
		meanSum += params.Mean
		sigmaSum += params.Sigma
	}
	n := float64(len(stages))
	return meanSum / n, sigmaSum / n
}

func blendedRateStats(rates map[string]simulation.PipelineRateParams) (float64, float64) {
	if len(rates) == 0 {
		return 0, 0
	}
	var meanSum, sigmaSum float64
	for _, params := range rates {
		meanSum += params.Mean * params.RampFactor
		sigmaSum += params.Sigma
	}
	n := float64(len(rates))
	return meanSum / n, sigmaSum / n
}
