package simulation

import (
	"math"
	"sort"
	"time"

	"github.com/salesops/revenue-forecast/pkg/constants"
	"github.com/salesops/revenue-forecast/pkg/mathutil"
)

// simulateIteration produces one full stochastic revenue outcome. It is a
// pure function of its inputs and sampler, so iterations can run on any
// worker without coordination.
func simulateIteration(in *Inputs, s *Sampler) IterationRecord {
	rec := IterationRecord{RevenueByRep: make(map[string]float64)}

	rec.Existing = simulateExistingPipeline(in, s, &rec)

	switch in.EffectivePipelineType() {
	case PipelineRenewal:
		rec.Projected = simulateRenewals(in, s, &rec)
	case PipelineExpansion:
		rec.Projected = simulateExpansion(in, s)
	default:
		rec.Projected = simulateNewBusiness(in, s, &rec)
	}

	rec.Total = rec.Existing + rec.Projected
	return rec
}

// simulateExistingPipeline walks every open deal: draw a stage win rate,
// apply the deal's risk multiplier, and on a win check whether the slipped
// close date still lands inside the forecast window.
func simulateExistingPipeline(in *Inputs, s *Sampler, rec *IterationRecord) float64 {
	revenue := 0.0
	for i := range in.OpenDeals {
		deal := &in.OpenDeals[i]

		winRate := in.Distributions.StageWinRate(deal.Stage, constants.FallbackStageAlpha, constants.FallbackStageBeta)
		p := s.Beta(winRate.Alpha, winRate.Beta)
		if adj, ok := in.RiskAdjustments[deal.ID]; ok {
			p *= adj.Multiplier
		}
		p = mathutil.Clamp(p, constants.WinProbMin, constants.WinProbMax)
		if !s.Bernoulli(p) {
			continue
		}

		slippage := in.Distributions.StageSlippage(deal.Stage)
		slipDays := s.Normal(slippage.Mean, slippage.Sigma)
		closed := deal.CloseDate.Add(daysToDuration(slipDays))
		if closed.After(in.WindowEnd) {
			// Won, but not in time to count.
			continue
		}

		multiplier := s.LogNormal(0, in.Distributions.DealSize.Sigma*constants.DealSizeSigmaScale)
		multiplier = mathutil.Clamp(multiplier, constants.AmountMultiplierMin, constants.AmountMultiplierMax)
		amount := mathutil.Round(deal.Amount * multiplier)

		revenue += amount
		rec.WinningDealIDs = append(rec.WinningDealIDs, deal.ID)
		rec.RevenueByRep[deal.Owner] += amount
	}
	return revenue
}

// simulateRenewals models the renewal book: each in-window renewal wins with
// the fitted renewal-stage rate and renews near its current contract value.
func simulateRenewals(in *Inputs, s *Sampler, rec *IterationRecord) float64 {
	winRate := in.Distributions.StageWinRate(StageRenewal, constants.FallbackRenewalAlpha, constants.FallbackRenewalBeta)
	sigma := in.Distributions.DealSize.Sigma * constants.RenewalSigmaScale

	revenue := 0.0
	for i := range in.UpcomingRenewals {
		renewal := &in.UpcomingRenewals[i]
		if renewal.ExpectedCloseDate.Before(in.Today) || renewal.ExpectedCloseDate.After(in.WindowEnd) {
			continue
		}
		if renewal.ContractValue <= 0 {
			continue
		}

		p := s.Beta(winRate.Alpha, winRate.Beta)
		if !s.Bernoulli(p) {
			continue
		}

		amount := mathutil.Round(s.LogNormal(math.Log(renewal.ContractValue), sigma))
		revenue += amount
		rec.WinningDealIDs = append(rec.WinningDealIDs, renewal.DealID)
		rec.RevenueByRep[renewal.Owner] += amount
	}
	return revenue
}

// simulateExpansion models upsell into the installed base as a single
// product of three stochastic draws: an expansion rate, a window fraction
// derived from a sampled sales cycle, and a win probability. There is no
// per-deal loop because expansion pipeline does not exist yet.
func simulateExpansion(in *Inputs, s *Sampler) float64 {
	if in.CustomerBaseARR <= 0 {
		return 0
	}

	rate := mathutil.Max(0, s.Normal(in.ExpansionRate.Mean, in.ExpansionRate.Sigma))

	cycleDays := s.LogNormal(in.Distributions.CycleLength.Mu, in.Distributions.CycleLength.Sigma) * constants.ExpansionCycleScale
	cycleMonths := cycleDays / constants.DaysPerMonth
	remainingMonths := remainingWindowDays(in) / constants.DaysPerMonth

	windowFraction := 1.0
	if cycleMonths > 0 {
		windowFraction = mathutil.Min(1, remainingMonths/cycleMonths)
	}

	winRate := in.Distributions.StageWinRate(StageExpansion, constants.FallbackExpansionAlpha, constants.FallbackExpansionBeta)
	p := s.Beta(winRate.Alpha, winRate.Beta)

	return mathutil.Round(in.CustomerBaseARR * rate * windowFraction * p)
}

// simulateNewBusiness projects pipeline that does not exist yet: for each rep
// with a fitted creation rate, walk the remaining window month by month,
// create a noisy count of deals, and give each one a sampled cycle length and
// a fixed Beta(2,6) conversion rate (the odds of not-yet-created pipeline are
// deliberately not fitted).
func simulateNewBusiness(in *Inputs, s *Sampler, rec *IterationRecord) float64 {
	if len(in.Distributions.PipelineRates) == 0 {
		return 0
	}

	remainingDays := remainingWindowDays(in)
	if remainingDays <= 0 {
		return 0
	}

	// Iterate reps in sorted order so a seeded run is reproducible.
	reps := make([]string, 0, len(in.Distributions.PipelineRates))
	for rep := range in.Distributions.PipelineRates {
		reps = append(reps, rep)
	}
	sort.Strings(reps)

	revenue := 0.0
	for _, rep := range reps {
		rate := in.Distributions.PipelineRates[rep]

		for monthStart := 0.0; monthStart < remainingDays; monthStart += constants.DaysPerMonth {
			monthFraction := mathutil.Min(1, (remainingDays-monthStart)/constants.DaysPerMonth)

			count := int(math.Round(s.Normal(
				rate.Mean*rate.RampFactor*monthFraction,
				rate.Sigma*constants.PipelineRateSigmaScale,
			)))
			if count < 0 {
				count = 0
			}
			rec.NewDealsCreated += count

			for i := 0; i < count; i++ {
				cycleDays := mathutil.Max(constants.MinCycleDays,
					s.LogNormal(in.Distributions.CycleLength.Mu, in.Distributions.CycleLength.Sigma))
				createdAt := monthStart + s.Uniform()*constants.DaysPerMonth*monthFraction
				closeOffset := createdAt + cycleDays
				if closeOffset > remainingDays {
					continue
				}

				p := s.Beta(constants.FallbackStageAlpha, constants.FallbackStageBeta)
				if !s.Bernoulli(p) {
					continue
				}

				amount := mathutil.Round(mathutil.Max(constants.MinNewDealAmount,
					s.LogNormal(in.Distributions.DealSize.Mu, in.Distributions.DealSize.Sigma)))
				revenue += amount
				rec.RevenueByRep[rep] += amount
			}
		}
	}
	return revenue
}

func remainingWindowDays(in *Inputs) float64 {
	return in.WindowEnd.Sub(in.Today).Hours() / 24
}

func daysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
