package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salesops/revenue-forecast/pkg/constants"
	"github.com/salesops/revenue-forecast/pkg/mathutil"
)

// workerSeedStride separates per-worker seeds so adjacent streams do not
// overlap for typical iteration counts. The value exceeds MaxInt64, so the
// seed arithmetic wraps through uint64.
const workerSeedStride uint64 = 0x9E3779B97F4A7C15

// Run executes inputs.Iterations independent trials and aggregates them into
// percentile outcomes. Iterations are fanned out across a worker pool, each
// worker sampling from its own seeded stream; cancellation via ctx is honored
// between iterations.
func Run(ctx context.Context, logger *zap.Logger, in Inputs) (*Outputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation inputs: %w", err)
	}
	in.PipelineType = in.EffectivePipelineType()

	workers := in.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > in.Iterations {
		workers = in.Iterations
	}

	seed := in.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	totals := make([]float64, in.Iterations)
	existing := make([]float64, in.Iterations)
	var records []IterationRecord
	if in.KeepIterations {
		records = make([]IterationRecord, in.Iterations)
	}

	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	chunk := (in.Iterations + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > in.Iterations {
			end = in.Iterations
		}
		if start >= end {
			break
		}

		sampler := NewSampler(seed + int64(uint64(w)*workerSeedStride))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := simulateIteration(&in, sampler)
				totals[i] = rec.Total
				existing[i] = rec.Existing
				if records != nil {
					records[i] = rec
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	sort.Float64s(totals)
	sort.Float64s(existing)

	out := &Outputs{
		RunID:               uuid.NewString(),
		P10:                 mathutil.Percentile(totals, 0.10),
		P25:                 mathutil.Percentile(totals, 0.25),
		P50:                 mathutil.Percentile(totals, 0.50),
		P75:                 mathutil.Percentile(totals, 0.75),
		P90:                 mathutil.Percentile(totals, 0.90),
		Mean:                mathutil.Mean(totals),
		ExistingPipelineP50: mathutil.Percentile(existing, 0.50),
		Outcomes:            totals,
		DataQuality:         buildDataQualityReport(in.Distributions),
		IterationDetail:     records,
	}
	out.ProjectedPipelineP50 = out.P50 - out.ExistingPipelineP50

	if in.TargetQuota > 0 {
		idx := sort.SearchFloat64s(totals, in.TargetQuota)
		out.QuotaProbability = float64(len(totals)-idx) / float64(len(totals))
	}

	logger.Debug("simulation run complete",
		zap.String("op", "simulation.Run"),
		zap.String("runId", out.RunID),
		zap.String("pipelineType", string(in.PipelineType)),
		zap.Int("iterations", in.Iterations),
		zap.Int("workers", workers),
		zap.Float64("p50", out.P50),
		zap.Duration("elapsed", time.Since(started)),
	)

	return out, nil
}

// buildDataQualityReport flags every fitted distribution backed by too few
// historical closed deals to be statistically trustworthy.
func buildDataQualityReport(d FittedDistributions) DataQualityReport {
	report := DataQualityReport{
		DealSizeReliable:    reliableSample(d.DealSize.Reliable, d.DealSize.SampleCount),
		CycleLengthReliable: reliableSample(d.CycleLength.Reliable, d.CycleLength.SampleCount),
	}

	if !report.DealSizeReliable {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("deal size distribution is backed by %d closed deals (minimum %d)",
				d.DealSize.SampleCount, constants.MinReliableSampleCount))
	}
	if !report.CycleLengthReliable {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("cycle length distribution is backed by %d closed deals (minimum %d)",
				d.CycleLength.SampleCount, constants.MinReliableSampleCount))
	}

	stages := make([]string, 0, len(d.StageWinRates))
	for stage := range d.StageWinRates {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		params := d.StageWinRates[stage]
		if !reliableSample(params.Reliable, params.SampleCount) {
			report.UnreliableStages = append(report.UnreliableStages, stage)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("win rate for stage %q is backed by %d closed deals (minimum %d)",
					stage, params.SampleCount, constants.MinReliableSampleCount))
		}
	}

	return report
}

func reliableSample(flagged bool, sampleCount int) bool {
	return flagged && sampleCount >= constants.MinReliableSampleCount
}
