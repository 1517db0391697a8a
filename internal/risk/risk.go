// Package risk turns per-deal behavioral signals into win-probability
// multipliers. Evidence lookups happen once, up front; a forecast never fails
// because a secondary signal lookup failed.
package risk

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/pkg/constants"
	"github.com/salesops/revenue-forecast/pkg/mathutil"
)

// Signal names, in application order.
const (
	SignalPastCloseDate     = "close_date_past"
	SignalSingleThreaded    = "single_threaded"
	SignalStaleEngagement   = "stale_engagement"
	SignalCompetitorMention = "competitor_mention"
	SignalActiveChampion    = "active_champion"
	SignalOversizedDeal     = "oversized_deal"
)

// evidenceSignals are the signals sourced from skill-evidence blobs; the
// remaining two derive from the deal record itself.
var evidenceSignals = []string{
	SignalSingleThreaded,
	SignalStaleEngagement,
	SignalCompetitorMention,
	SignalActiveChampion,
}

// Evidence is one payload produced by the skill-execution subsystem. When the
// producer supplies an explicit DealIDs list it is trusted; otherwise the raw
// payload is scanned for deal identifiers, a best-effort match.
type Evidence struct {
	Signal  string
	Payload string
	DealIDs []string
}

// EvidenceSource supplies recent skill evidence and per-owner historical
// baselines. Implementations live outside the simulation loop; errors are
// degraded to "no signal" by the Calculator.
type EvidenceSource interface {
	// RecentEvidence returns evidence for one signal no older than maxAge.
	RecentEvidence(ctx context.Context, workspaceID, signal string, maxAge time.Duration) ([]Evidence, error)

	// OwnerAverageClosedWon returns the owner's trailing 24-month average
	// closed-won deal size, or 0 when unknown.
	OwnerAverageClosedWon(ctx context.Context, workspaceID, owner string) (float64, error)
}

// Calculator computes per-deal risk adjustments.
type Calculator struct {
	logger *zap.Logger
	source EvidenceSource
}

// NewCalculator constructs a Calculator. A nil source disables all
// evidence-based signals; a nil logger is replaced with a no-op logger.
func NewCalculator(logger *zap.Logger, source EvidenceSource) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger, source: source}
}

// Adjustments computes a multiplier for every open deal. Each applicable
// signal multiplies independently and the result is clamped to
// [RiskMultiplierMin, RiskMultiplierMax]. Any evidence failure logs a warning
// and leaves the affected signal unset.
func (c *Calculator) Adjustments(ctx context.Context, workspaceID string, deals []simulation.OpenDeal, today time.Time) map[string]simulation.RiskAdjustment {
	flagged := make(map[string]map[string]bool, len(evidenceSignals))
	for _, signal := range evidenceSignals {
		flagged[signal] = c.flaggedDeals(ctx, workspaceID, signal, deals)
	}

	ownerAverages := c.ownerAverages(ctx, workspaceID, deals)

	adjustments := make(map[string]simulation.RiskAdjustment, len(deals))
	for i := range deals {
		deal := &deals[i]
		multiplier := 1.0
		var applied []string

		apply := func(signal string, factor float64) {
			multiplier *= factor
			applied = append(applied, signal)
		}

		if !deal.CloseDate.IsZero() && deal.CloseDate.Before(today) {
			apply(SignalPastCloseDate, constants.PastCloseDateMultiplier)
		}
		if flagged[SignalSingleThreaded][deal.ID] {
			apply(SignalSingleThreaded, constants.SingleThreadedMultiplier)
		}
		if flagged[SignalStaleEngagement][deal.ID] {
			apply(SignalStaleEngagement, constants.StaleEngagementMultiplier)
		}
		if flagged[SignalCompetitorMention][deal.ID] {
			apply(SignalCompetitorMention, constants.CompetitorMentionMultiplier)
		}
		if flagged[SignalActiveChampion][deal.ID] {
			apply(SignalActiveChampion, constants.ActiveChampionMultiplier)
		}
		if avg := ownerAverages[deal.Owner]; avg > 0 && deal.Amount > constants.OversizedDealRatio*avg {
			apply(SignalOversizedDeal, constants.OversizedDealMultiplier)
		}

		adjustments[deal.ID] = simulation.RiskAdjustment{
			DealID:         deal.ID,
			Multiplier:     mathutil.Clamp(multiplier, constants.RiskMultiplierMin, constants.RiskMultiplierMax),
			AppliedSignals: applied,
		}
	}
	return adjustments
}

// flaggedDeals resolves which deals a signal applies to. Explicit deal-id
// lists from the producer win; otherwise the payload is scanned for each
// deal's identifier. The scan is a known false-positive risk and the producer
// contract should move to explicit lists.
func (c *Calculator) flaggedDeals(ctx context.Context, workspaceID, signal string, deals []simulation.OpenDeal) map[string]bool {
	set := make(map[string]bool)
	if c.source == nil {
		return set
	}

	maxAge := constants.EvidenceMaxAgeDays * 24 * time.Hour
	evidence, err := c.source.RecentEvidence(ctx, workspaceID, signal, maxAge)
	if err != nil {
		c.logger.Warn("evidence lookup failed, treating as no signal",
			zap.String("op", "risk.Adjustments"),
			zap.String("workspaceId", workspaceID),
			zap.String("signal", signal),
			zap.Error(err),
		)
		return set
	}

	for _, ev := range evidence {
		if len(ev.DealIDs) > 0 {
			for _, id := range ev.DealIDs {
				set[id] = true
			}
			continue
		}
		for i := range deals {
			id := deals[i].ID
			if id != "" && strings.Contains(ev.Payload, id) {
				set[id] = true
			}
		}
	}
	return set
}

func (c *Calculator) ownerAverages(ctx context.Context, workspaceID string, deals []simulation.OpenDeal) map[string]float64 {
	averages := make(map[string]float64)
	if c.source == nil {
		return averages
	}

	for i := range deals {
		owner := deals[i].Owner
		if owner == "" {
			continue
		}
		if _, ok := averages[owner]; ok {
			continue
		}
		avg, err := c.source.OwnerAverageClosedWon(ctx, workspaceID, owner)
		if err != nil {
			c.logger.Warn("owner baseline lookup failed, treating as no signal",
				zap.String("op", "risk.Adjustments"),
				zap.String("workspaceId", workspaceID),
				zap.String("owner", owner),
				zap.Error(err),
			)
			averages[owner] = 0
			continue
		}
		averages[owner] = avg
	}
	return averages
}
