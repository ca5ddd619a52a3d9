package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/franchisewars/internal/geo"
	"github.com/mcdev12/franchisewars/internal/placement"
	"github.com/mcdev12/franchisewars/internal/session"
	"gopkg.in/yaml.v3"
)

// Config is the game-rules file. Everything tunable about the economy, the
// simulated timeline, and the playable map lives here; transport and
// database settings come from the environment.
type Config struct {
	Game struct {
		StartingBalance      int   `yaml:"starting_balance"`
		AnnualIncome         int   `yaml:"annual_income"`
		BaseYear             int   `yaml:"base_year"`
		EndYear              int   `yaml:"end_year"`
		DefaultDurationHours int   `yaml:"default_duration_hours"`
		TickPeriodMs         int   `yaml:"tick_period_ms"`
		TickIncrementMs      int64 `yaml:"tick_increment_ms"`
		PersistEveryTicks    int   `yaml:"persist_every_ticks"`
	} `yaml:"game"`
	Costs  placement.CostSchedule `yaml:"costs"`
	Bounds *geo.Bounds            `yaml:"bounds"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// sessionConfig maps the file onto the session package's clock settings,
// filling defaults for anything unset.
func (c *Config) sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.Game.TickPeriodMs > 0 {
		cfg.TickPeriod = time.Duration(c.Game.TickPeriodMs) * time.Millisecond
	}
	if c.Game.TickIncrementMs > 0 {
		cfg.TickIncrementMs = c.Game.TickIncrementMs
	}
	if c.Game.PersistEveryTicks > 0 {
		cfg.PersistEveryTicks = c.Game.PersistEveryTicks
	}
	if c.Game.BaseYear > 0 {
		cfg.BaseYear = c.Game.BaseYear
	}
	if c.Game.EndYear > 0 {
		cfg.EndYear = c.Game.EndYear
	}
	if c.Game.AnnualIncome > 0 {
		cfg.AnnualIncome = c.Game.AnnualIncome
	}
	if c.Game.DefaultDurationHours > 0 {
		cfg.DefaultDurationHours = c.Game.DefaultDurationHours
	}
	return cfg
}

func (c *Config) costSchedule() placement.CostSchedule {
	if c.Costs.FranchiseCap == 0 && len(c.Costs.DistributionCenterCosts) == 0 {
		return placement.DefaultCostSchedule()
	}
	return c.Costs
}

func (c *Config) bounds() geo.Bounds {
	if c.Bounds == nil {
		return geo.ContinentalUS
	}
	return *c.Bounds
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
