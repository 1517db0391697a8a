// Package config defines the scenario-file data structures and includes
// functions for loading, parsing, and converting them into simulation inputs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/salesops/revenue-forecast/internal/simulation"
	"github.com/salesops/revenue-forecast/pkg/constants"
)

// DateTimeLayout is the format expected in scenario files and is also the
// output date format.
const DateTimeLayout = constants.DateTimeLayout

// Configuration holds a full forecast scenario plus runtime settings.
type Configuration struct {
	Workspace     string
	Simulation    SimulationConfig
	Deals         []DealConfig
	Renewals      []RenewalConfig
	Distributions DistributionsConfig
	Evidence      EvidenceConfig `yaml:"evidence,omitempty"`
	Logging       LoggingConfig  `yaml:"logging,omitempty"`
	Output        OutputConfig   `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// EvidenceConfig points at the skill-evidence database; empty disables risk
// adjustments.
type EvidenceConfig struct {
	SQLitePath string `yaml:"sqlitePath,omitempty"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	Iterations         int
	PipelineType       string
	WindowEnd          string
	Today              string
	TargetQuota        float64
	CustomerBaseARR    float64
	ExpansionRateMean  float64
	ExpansionRateSigma float64
	Seed               int64
	Workers            int
	KeepIterations     bool
	HistogramBuckets   int
}

// DealConfig is one open deal from the CRM export.
type DealConfig struct {
	ID          string
	Name        string
	Amount      float64
	Stage       string
	CloseDate   string
	Owner       string
	Probability float64
}

// RenewalConfig is one upcoming renewal.
type RenewalConfig struct {
	DealID            string
	Name              string
	ContractValue     float64
	ExpectedCloseDate string
	Owner             string
}

// DistributionsConfig carries the fitted parameters supplied by the
// distribution-fitting pipeline.
type DistributionsConfig struct {
	DealSize      LogNormalConfig
	CycleLength   LogNormalConfig
	StageWinRates map[string]BetaConfig
	Slippage      map[string]NormalConfig
	PipelineRates map[string]RateConfig
}

// LogNormalConfig mirrors simulation.LogNormalParams.
type LogNormalConfig struct {
	Mu          float64
	Sigma       float64
	Reliable    bool
	SampleCount int
}

// BetaConfig mirrors simulation.BetaParams.
type BetaConfig struct {
	Alpha       float64
	Beta        float64
	Reliable    bool
	SampleCount int
}

// NormalConfig mirrors simulation.NormalParams.
type NormalConfig struct {
	Mean  float64
	Sigma float64
}

// RateConfig mirrors simulation.PipelineRateParams.
type RateConfig struct {
	Mean       float64
	Sigma      float64
	RampFactor float64
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// scenario there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// SimulationInputs converts the scenario into engine inputs, applying
// defaults for anything unset.
func (c *Configuration) SimulationInputs() (simulation.Inputs, error) {
	var in simulation.Inputs

	today := time.Now().Truncate(24 * time.Hour)
	if c.Simulation.Today != "" {
		parsed, err := time.Parse(DateTimeLayout, c.Simulation.Today)
		if err != nil {
			return in, fmt.Errorf("invalid today date %q: %w", c.Simulation.Today, err)
		}
		today = parsed
	}

	if c.Simulation.WindowEnd == "" {
		return in, fmt.Errorf("simulation.windowEnd is required")
	}
	windowEnd, err := time.Parse(DateTimeLayout, c.Simulation.WindowEnd)
	if err != nil {
		return in, fmt.Errorf("invalid window end date %q: %w", c.Simulation.WindowEnd, err)
	}

	deals := make([]simulation.OpenDeal, 0, len(c.Deals))
	for _, deal := range c.Deals {
		closeDate, err := time.Parse(DateTimeLayout, deal.CloseDate)
		if err != nil {
			return in, fmt.Errorf("deal %s: invalid close date %q: %w", deal.ID, deal.CloseDate, err)
		}
		deals = append(deals, simulation.OpenDeal{
			ID:                deal.ID,
			Name:              deal.Name,
			Amount:            deal.Amount,
			Stage:             deal.Stage,
			CloseDate:         closeDate,
			Owner:             deal.Owner,
			StatedProbability: deal.Probability,
		})
	}

	renewals := make([]simulation.UpcomingRenewal, 0, len(c.Renewals))
	for _, renewal := range c.Renewals {
		closeDate, err := time.Parse(DateTimeLayout, renewal.ExpectedCloseDate)
		if err != nil {
			return in, fmt.Errorf("renewal %s: invalid expected close date %q: %w", renewal.DealID, renewal.ExpectedCloseDate, err)
		}
		renewals = append(renewals, simulation.UpcomingRenewal{
			DealID:            renewal.DealID,
			Name:              renewal.Name,
			ContractValue:     renewal.ContractValue,
			ExpectedCloseDate: closeDate,
			Owner:             renewal.Owner,
		})
	}

	iterations := c.Simulation.Iterations
	if iterations <= 0 {
		iterations = constants.DefaultIterations
	}

	in = simulation.Inputs{
		OpenDeals:        deals,
		Distributions:    c.Distributions.toSimulation(),
		WindowEnd:        windowEnd,
		Today:            today,
		Iterations:       iterations,
		PipelineType:     simulation.PipelineType(c.Simulation.PipelineType),
		UpcomingRenewals: renewals,
		CustomerBaseARR:  c.Simulation.CustomerBaseARR,
		ExpansionRate: simulation.ExpansionRate{
			Mean:  c.Simulation.ExpansionRateMean,
			Sigma: c.Simulation.ExpansionRateSigma,
		},
		TargetQuota:    c.Simulation.TargetQuota,
		Seed:           c.Simulation.Seed,
		Workers:        c.Simulation.Workers,
		KeepIterations: c.Simulation.KeepIterations,
	}
	return in, nil
}

func (d DistributionsConfig) toSimulation() simulation.FittedDistributions {
	out := simulation.FittedDistributions{
		DealSize: simulation.LogNormalParams{
			Mu: d.DealSize.Mu, Sigma: d.DealSize.Sigma,
			Reliable: d.DealSize.Reliable, SampleCount: d.DealSize.SampleCount,
		},
		CycleLength: simulation.LogNormalParams{
			Mu: d.CycleLength.Mu, Sigma: d.CycleLength.Sigma,
			Reliable: d.CycleLength.Reliable, SampleCount: d.CycleLength.SampleCount,
		},
	}

	if len(d.StageWinRates) > 0 {
		out.StageWinRates = make(map[string]simulation.BetaParams, len(d.StageWinRates))
		for stage, params := range d.StageWinRates {
			out.StageWinRates[stage] = simulation.BetaParams{
				Alpha: params.Alpha, Beta: params.Beta,
				Reliable: params.Reliable, SampleCount: params.SampleCount,
			}
		}
	}
	if len(d.Slippage) > 0 {
		out.Slippage = make(map[string]simulation.NormalParams, len(d.Slippage))
		for stage, params := range d.Slippage {
			out.Slippage[stage] = simulation.NormalParams{Mean: params.Mean, Sigma: params.Sigma}
		}
	}
	if len(d.PipelineRates) > 0 {
		out.PipelineRates = make(map[string]simulation.PipelineRateParams, len(d.PipelineRates))
		for rep, params := range d.PipelineRates {
			out.PipelineRates[rep] = simulation.PipelineRateParams{
				Mean: params.Mean, Sigma: params.Sigma, RampFactor: params.RampFactor,
			}
		}
	}
	return out
}

// ValidateConfiguration performs general validation of the scenario and
// returns warnings for anything suspicious but survivable.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.Deals) == 0 && len(c.Renewals) == 0 &&
		len(c.Distributions.PipelineRates) == 0 && c.Simulation.CustomerBaseARR == 0 {
		warnings = append(warnings, "scenario has no deals, renewals, pipeline rates, or customer base ARR")
	}

	switch c.Simulation.PipelineType {
	case "", string(simulation.PipelineNewBusiness), string(simulation.PipelineRenewal), string(simulation.PipelineExpansion):
	default:
		warnings = append(warnings, fmt.Sprintf("unknown pipeline type %q, simulation will reject it", c.Simulation.PipelineType))
	}

	for _, deal := range c.Deals {
		if deal.ID == "" {
			warnings = append(warnings, fmt.Sprintf("deal %q has no ID; risk adjustments cannot apply to it", deal.Name))
		}
		if deal.Amount <= 0 {
			warnings = append(warnings, fmt.Sprintf("deal %s has non-positive amount %.2f", deal.ID, deal.Amount))
		}
		if deal.Stage != "" {
			if _, ok := c.Distributions.StageWinRates[deal.Stage]; !ok {
				warnings = append(warnings, fmt.Sprintf("deal %s stage %q has no fitted win rate, fallback Beta will be used", deal.ID, deal.Stage))
			}
		}
	}

	for _, renewal := range c.Renewals {
		if renewal.ContractValue <= 0 {
			warnings = append(warnings, fmt.Sprintf("renewal %s has non-positive contract value %.2f", renewal.DealID, renewal.ContractValue))
		}
	}

	if c.Simulation.PipelineType == string(simulation.PipelineExpansion) &&
		c.Simulation.ExpansionRateMean == 0 {
		warnings = append(warnings, "expansion pipeline with zero expansion rate mean will project no revenue")
	}

	return warnings
}
