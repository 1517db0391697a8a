package config

import (
	"testing"
	"time"

	"github.com/salesops/revenue-forecast/internal/simulation"
)

func loadTestScenario(t *testing.T) *Configuration {
	t.Helper()
	cfg, err := LoadConfiguration("testdata/scenario.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	return cfg
}

func TestLoadConfiguration(t *testing.T) {
	cfg := loadTestScenario(t)

	if cfg.Workspace != "acme-west" {
		t.Errorf("workspace = %q, want acme-west", cfg.Workspace)
	}
	if cfg.Simulation.Iterations != 2500 {
		t.Errorf("iterations = %d, want 2500", cfg.Simulation.Iterations)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Simulation.Seed)
	}
	if len(cfg.Deals) != 2 {
		t.Fatalf("got %d deals, want 2", len(cfg.Deals))
	}
	if cfg.Deals[0].ID != "deal-001" || cfg.Deals[0].Amount != 120000 {
		t.Errorf("first deal = %+v", cfg.Deals[0])
	}
	if len(cfg.Renewals) != 1 || cfg.Renewals[0].ContractValue != 80000 {
		t.Errorf("renewals = %+v", cfg.Renewals)
	}
	if got := cfg.Distributions.StageWinRates["negotiation"]; got.Alpha != 7 || got.SampleCount != 31 {
		t.Errorf("negotiation win rate = %+v", got)
	}
	if got := cfg.Distributions.PipelineRates["bob"]; got.RampFactor != 0.75 {
		t.Errorf("bob ramp factor = %v, want 0.75", got.RampFactor)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Output.Format != "pretty" {
		t.Errorf("output format = %q, want pretty", cfg.Output.Format)
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration("testdata/no-such-scenario.yaml"); err == nil {
		t.Errorf("expected an error for a missing scenario file")
	}
}

func TestSimulationInputs(t *testing.T) {
	cfg := loadTestScenario(t)

	in, err := cfg.SimulationInputs()
	if err != nil {
		t.Fatalf("SimulationInputs() error = %v", err)
	}

	wantToday := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !in.Today.Equal(wantToday) {
		t.Errorf("today = %v, want %v", in.Today, wantToday)
	}
	wantWindowEnd := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	if !in.WindowEnd.Equal(wantWindowEnd) {
		t.Errorf("window end = %v, want %v", in.WindowEnd, wantWindowEnd)
	}

	if in.PipelineType != simulation.PipelineNewBusiness {
		t.Errorf("pipeline type = %q", in.PipelineType)
	}
	if len(in.OpenDeals) != 2 {
		t.Fatalf("got %d open deals, want 2", len(in.OpenDeals))
	}
	wantClose := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	if !in.OpenDeals[0].CloseDate.Equal(wantClose) {
		t.Errorf("deal close date = %v, want %v", in.OpenDeals[0].CloseDate, wantClose)
	}
	if in.OpenDeals[1].StatedProbability != 0.8 {
		t.Errorf("stated probability = %v, want 0.8", in.OpenDeals[1].StatedProbability)
	}
	if len(in.UpcomingRenewals) != 1 {
		t.Fatalf("got %d renewals, want 1", len(in.UpcomingRenewals))
	}
	if in.TargetQuota != 500000 {
		t.Errorf("target quota = %v, want 500000", in.TargetQuota)
	}
	if in.Distributions.DealSize.Mu != 10.8 || !in.Distributions.DealSize.Reliable {
		t.Errorf("deal size distribution = %+v", in.Distributions.DealSize)
	}
	if got := in.Distributions.Slippage["proposal"]; got.Mean != 12 || got.Sigma != 15 {
		t.Errorf("proposal slippage = %+v", got)
	}

	if err := in.Validate(); err != nil {
		t.Errorf("converted inputs failed validation: %v", err)
	}
}

func TestSimulationInputsDefaultsAndErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		check   func(*testing.T, simulation.Inputs)
		wantErr bool
	}{
		{
			name:   "zero iterations defaults to ten thousand",
			mutate: func(c *Configuration) { c.Simulation.Iterations = 0 },
			check: func(t *testing.T, in simulation.Inputs) {
				if in.Iterations != 10000 {
					t.Errorf("iterations = %d, want default 10000", in.Iterations)
				}
			},
		},
		{
			name:    "missing window end is an error",
			mutate:  func(c *Configuration) { c.Simulation.WindowEnd = "" },
			wantErr: true,
		},
		{
			name:    "malformed window end is an error",
			mutate:  func(c *Configuration) { c.Simulation.WindowEnd = "Oct 31 2026" },
			wantErr: true,
		},
		{
			name:    "malformed deal close date is an error",
			mutate:  func(c *Configuration) { c.Deals[0].CloseDate = "soon" },
			wantErr: true,
		},
		{
			name:    "malformed renewal date is an error",
			mutate:  func(c *Configuration) { c.Renewals[0].ExpectedCloseDate = "2026/09/30" },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadTestScenario(t)
			tc.mutate(cfg)

			in, err := cfg.SimulationInputs()
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SimulationInputs() error = %v", err)
			}
			tc.check(t, in)
		})
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Configuration)
		wantWarnings int
	}{
		{
			name:         "clean scenario has no warnings",
			mutate:       func(c *Configuration) {},
			wantWarnings: 0,
		},
		{
			name: "empty scenario warns once",
			mutate: func(c *Configuration) {
				c.Deals = nil
				c.Renewals = nil
				c.Distributions.PipelineRates = nil
				c.Simulation.CustomerBaseARR = 0
			},
			wantWarnings: 1,
		},
		{
			name:         "unknown pipeline type warns",
			mutate:       func(c *Configuration) { c.Simulation.PipelineType = "upsell" },
			wantWarnings: 1,
		},
		{
			name:         "deal without an ID warns",
			mutate:       func(c *Configuration) { c.Deals[0].ID = "" },
			wantWarnings: 1,
		},
		{
			name:         "non-positive deal amount warns",
			mutate:       func(c *Configuration) { c.Deals[1].Amount = 0 },
			wantWarnings: 1,
		},
		{
			name:         "stage without a fitted win rate warns",
			mutate:       func(c *Configuration) { c.Deals[0].Stage = "discovery" },
			wantWarnings: 1,
		},
		{
			name:         "non-positive contract value warns",
			mutate:       func(c *Configuration) { c.Renewals[0].ContractValue = -1 },
			wantWarnings: 1,
		},
		{
			name: "expansion with zero rate warns",
			mutate: func(c *Configuration) {
				c.Simulation.PipelineType = string(simulation.PipelineExpansion)
				c.Simulation.ExpansionRateMean = 0
			},
			wantWarnings: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadTestScenario(t)
			tc.mutate(cfg)

			warnings := cfg.ValidateConfiguration()
			if len(warnings) != tc.wantWarnings {
				t.Errorf("got %d warnings %v, want %d", len(warnings), warnings, tc.wantWarnings)
			}
		})
	}
}
