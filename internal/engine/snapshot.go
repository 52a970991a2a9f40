package engine

// Snapshot is the per-tick state emitted across the core boundary for
// observers (recorders, dashboards, charts). The core defines no wire
// protocol or file format; consumers serialize it however they like.
type Snapshot struct {
	Tick uint64 `json:"tick"`
	Day  int    `json:"day"`

	Unemployed       int     `json:"unemployed"`
	Headcount        int     `json:"headcount"`
	AverageWage      float64 `json:"average_wage"`
	AverageHappiness float64 `json:"average_happiness"`
	AverageWealth    float64 `json:"average_wealth"`

	Inventory float64 `json:"inventory"`
	Price     float64 `json:"price"`
	Demand    float64 `json:"demand"` // today's aggregate requested units
	Supply    float64 `json:"supply"` // inventory offered at today's clearing
	Sold      float64 `json:"sold"`

	// Phase classifies the day by the employment shortfall against the
	// opening job slots: expansion, recession, or crisis.
	Phase string `json:"phase"`
}

// Result is the terminal outcome of a run.
type Result struct {
	Collapsed    bool    `json:"collapsed"`
	CollapseTick *uint64 `json:"collapse_tick,omitempty"`
	FinalTick    uint64  `json:"final_tick"`
	Days         int     `json:"days"`
}

// Observer consumes per-tick snapshots. Observers run synchronously
// inside the step and must not mutate simulation state.
type Observer interface {
	OnSnapshot(Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnSnapshot(s Snapshot) { f(s) }

// Event is a notable occurrence: a monthly review, an intervention, a
// collapse.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "factory", "intervention", "collapse"
}
