package engine

import (
	"math"

	"github.com/tanukai/factorytown/internal/labor"
)

// Config holds every initialization parameter of a run. Identical seed
// and config produce an identical tick-by-tick trajectory.
type Config struct {
	PopulationSize int   `json:"population_size"`
	Seed           int64 `json:"seed"`
	TotalTicks     int   `json:"total_ticks"`

	// Calendar.
	DayTicks int `json:"day_ticks"` // ticks per day (default 24)
	TermDays int `json:"term_days"` // contract term length (default 30)

	// Opening state.
	InitialWage      float64 `json:"initial_wage"`
	InitialPrice     float64 `json:"initial_price"`
	InitialJobSlots  int     `json:"initial_job_slots"`
	InitialInventory float64 `json:"initial_inventory"`
	InitialWealthMax int     `json:"initial_wealth_max"` // seeded uniform [0, max]

	// Floors.
	SubsistenceWage   float64 `json:"subsistence_wage"`
	MinProductionCost float64 `json:"min_production_cost"`

	// Worker behavior.
	TravelTicks       int     `json:"travel_ticks"` // fixed commute cost per day
	BaseHours         float64 `json:"base_hours"`
	WealthSensitivity float64 `json:"wealth_sensitivity"`
	MinShiftHours     float64 `json:"min_shift_hours"`
	MaxShiftHours     float64 `json:"max_shift_hours"`
	RichWealth        float64 `json:"rich_wealth"`        // opt-out threshold
	SubsistenceWealth float64 `json:"subsistence_wealth"` // happiness wealth scale

	// Factory feedback.
	Productivity    float64 `json:"productivity"`
	WageStep        float64 `json:"wage_step"`
	HeadcountStep   int     `json:"headcount_step"`
	CutCoefficient  float64 `json:"cut_coefficient"`
	MaxCutFraction  float64 `json:"max_cut_fraction"`
	CriticalBacklog float64 `json:"critical_backlog"`

	// Contract wage policy at renewal.
	WagePolicy labor.WagePolicy `json:"wage_policy"`
}

// DefaultConfig returns the reference scenario: 100 workers, opening wage
// 10, subsistence floor 5, 30-day terms, 90 simulated days.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 100,
		Seed:           42,
		TotalTicks:     90 * 24,

		DayTicks: 24,
		TermDays: 30,

		InitialWage:      10,
		InitialPrice:     12,
		InitialJobSlots:  50,
		InitialInventory: 100,
		InitialWealthMax: 10,

		SubsistenceWage:   5,
		MinProductionCost: 6,

		TravelTicks:       2,
		BaseHours:         10,
		WealthSensitivity: 2,
		MinShiftHours:     6,
		MaxShiftHours:     16,
		RichWealth:        900,
		SubsistenceWealth: 50,

		Productivity:    0.5,
		WageStep:        0.5,
		HeadcountStep:   2,
		CutCoefficient:  0.25,
		MaxCutFraction:  0.4,
		CriticalBacklog: 3,

		WagePolicy: labor.WageRefresh,
	}
}

// Validate rejects configurations that cannot initialize a run.
func (c Config) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return &ConfigError{Field: "population_size", Reason: "must be positive"}
	case c.TotalTicks <= 0:
		return &ConfigError{Field: "total_ticks", Reason: "must be positive"}
	case c.DayTicks <= 0:
		return &ConfigError{Field: "day_ticks", Reason: "must be positive"}
	case c.TermDays <= 0:
		return &ConfigError{Field: "term_days", Reason: "must be positive"}
	case c.InitialWage <= 0:
		return &ConfigError{Field: "initial_wage", Reason: "must be positive"}
	case c.MinProductionCost <= 0:
		return &ConfigError{Field: "min_production_cost", Reason: "must be positive"}
	case c.SubsistenceWage <= 0:
		return &ConfigError{Field: "subsistence_wage", Reason: "must be positive"}
	case c.Productivity <= 0:
		return &ConfigError{Field: "productivity", Reason: "must be positive"}
	case c.InitialPrice < math.Max(c.MinProductionCost, c.InitialWage):
		return &ConfigError{Field: "initial_price", Reason: "below max(min_production_cost, initial_wage)"}
	case c.InitialJobSlots < 0 || c.InitialJobSlots > c.PopulationSize:
		return &ConfigError{Field: "initial_job_slots", Reason: "must be within [0, population_size]"}
	case c.InitialInventory < 0:
		return &ConfigError{Field: "initial_inventory", Reason: "must not be negative"}
	case c.InitialWealthMax < 0:
		return &ConfigError{Field: "initial_wealth_max", Reason: "must not be negative"}
	case c.TravelTicks < 0 || c.TravelTicks >= c.DayTicks:
		return &ConfigError{Field: "travel_ticks", Reason: "must be within [0, day_ticks)"}
	case c.MinShiftHours <= 0 || c.MaxShiftHours < c.MinShiftHours:
		return &ConfigError{Field: "shift_hours", Reason: "need 0 < min_shift_hours <= max_shift_hours"}
	case c.MaxShiftHours > float64(c.DayTicks):
		return &ConfigError{Field: "max_shift_hours", Reason: "cannot exceed day_ticks"}
	case c.BaseHours <= 0:
		return &ConfigError{Field: "base_hours", Reason: "must be positive"}
	case c.WealthSensitivity < 0:
		return &ConfigError{Field: "wealth_sensitivity", Reason: "must not be negative"}
	case c.RichWealth <= 0:
		return &ConfigError{Field: "rich_wealth", Reason: "must be positive"}
	case c.SubsistenceWealth <= 0:
		return &ConfigError{Field: "subsistence_wealth", Reason: "must be positive"}
	case c.WageStep < 0:
		return &ConfigError{Field: "wage_step", Reason: "must not be negative"}
	case c.HeadcountStep < 0:
		return &ConfigError{Field: "headcount_step", Reason: "must not be negative"}
	case c.CutCoefficient < 0:
		return &ConfigError{Field: "cut_coefficient", Reason: "must not be negative"}
	case c.MaxCutFraction < 0 || c.MaxCutFraction > 1:
		return &ConfigError{Field: "max_cut_fraction", Reason: "must be within [0, 1]"}
	case c.CriticalBacklog <= 0:
		return &ConfigError{Field: "critical_backlog", Reason: "must be positive"}
	}
	return nil
}
