// Package scenario loads run configurations from YAML files, keeping file
// parsing and environment plumbing out of the engine. Every key can be
// overridden with a FACTORYTOWN_* environment variable.
package scenario

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tanukai/factorytown/internal/engine"
	"github.com/tanukai/factorytown/internal/labor"
)

// Load reads a scenario file into a validated engine config. An empty
// path yields the default scenario, still subject to environment
// overrides.
func Load(path string) (engine.Config, error) {
	v := viper.New()
	setDefaults(v, engine.DefaultConfig())

	v.SetEnvPrefix("FACTORYTOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return engine.Config{}, fmt.Errorf("read scenario %s: %w", path, err)
		}
	}

	policy, err := ParseWagePolicy(v.GetString("wage_policy"))
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		PopulationSize: v.GetInt("population_size"),
		Seed:           v.GetInt64("seed"),
		TotalTicks:     v.GetInt("total_ticks"),

		DayTicks: v.GetInt("day_ticks"),
		TermDays: v.GetInt("term_days"),

		InitialWage:      v.GetFloat64("initial_wage"),
		InitialPrice:     v.GetFloat64("initial_price"),
		InitialJobSlots:  v.GetInt("initial_job_slots"),
		InitialInventory: v.GetFloat64("initial_inventory"),
		InitialWealthMax: v.GetInt("initial_wealth_max"),

		SubsistenceWage:   v.GetFloat64("subsistence_wage"),
		MinProductionCost: v.GetFloat64("min_production_cost"),

		TravelTicks:       v.GetInt("travel_ticks"),
		BaseHours:         v.GetFloat64("base_hours"),
		WealthSensitivity: v.GetFloat64("wealth_sensitivity"),
		MinShiftHours:     v.GetFloat64("min_shift_hours"),
		MaxShiftHours:     v.GetFloat64("max_shift_hours"),
		RichWealth:        v.GetFloat64("rich_wealth"),
		SubsistenceWealth: v.GetFloat64("subsistence_wealth"),

		Productivity:    v.GetFloat64("productivity"),
		WageStep:        v.GetFloat64("wage_step"),
		HeadcountStep:   v.GetInt("headcount_step"),
		CutCoefficient:  v.GetFloat64("cut_coefficient"),
		MaxCutFraction:  v.GetFloat64("max_cut_fraction"),
		CriticalBacklog: v.GetFloat64("critical_backlog"),

		WagePolicy: policy,
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// ParseWagePolicy maps the scenario-file spelling to the ledger policy.
func ParseWagePolicy(s string) (labor.WagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "refresh":
		return labor.WageRefresh, nil
	case "locked":
		return labor.WageLocked, nil
	default:
		return 0, fmt.Errorf("unknown wage_policy %q (use refresh or locked)", s)
	}
}

func setDefaults(v *viper.Viper, d engine.Config) {
	v.SetDefault("population_size", d.PopulationSize)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("total_ticks", d.TotalTicks)
	v.SetDefault("day_ticks", d.DayTicks)
	v.SetDefault("term_days", d.TermDays)
	v.SetDefault("initial_wage", d.InitialWage)
	v.SetDefault("initial_price", d.InitialPrice)
	v.SetDefault("initial_job_slots", d.InitialJobSlots)
	v.SetDefault("initial_inventory", d.InitialInventory)
	v.SetDefault("initial_wealth_max", d.InitialWealthMax)
	v.SetDefault("subsistence_wage", d.SubsistenceWage)
	v.SetDefault("min_production_cost", d.MinProductionCost)
	v.SetDefault("travel_ticks", d.TravelTicks)
	v.SetDefault("base_hours", d.BaseHours)
	v.SetDefault("wealth_sensitivity", d.WealthSensitivity)
	v.SetDefault("min_shift_hours", d.MinShiftHours)
	v.SetDefault("max_shift_hours", d.MaxShiftHours)
	v.SetDefault("rich_wealth", d.RichWealth)
	v.SetDefault("subsistence_wealth", d.SubsistenceWealth)
	v.SetDefault("productivity", d.Productivity)
	v.SetDefault("wage_step", d.WageStep)
	v.SetDefault("headcount_step", d.HeadcountStep)
	v.SetDefault("cut_coefficient", d.CutCoefficient)
	v.SetDefault("max_cut_fraction", d.MaxCutFraction)
	v.SetDefault("critical_backlog", d.CriticalBacklog)
	v.SetDefault("wage_policy", "refresh")
}
