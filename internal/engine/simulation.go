// Package engine drives the closed-economy simulation: a deterministic
// tick loop over the worker population, the singleton factory, and the
// daily market clearing, with lagged monthly re-planning at contract
// term boundaries.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/tanukai/factorytown/internal/agents"
	"github.com/tanukai/factorytown/internal/economy"
	"github.com/tanukai/factorytown/internal/labor"
	"github.com/tanukai/factorytown/internal/town"
)

// Simulation holds the complete run state and wires the agents together.
// It is single-threaded and fully synchronous: each phase owns its own
// state exclusively, and the per-day phase order (workers decide, factory
// produces, market clears, metrics) is a correctness invariant, not a
// scheduling choice.
type Simulation struct {
	cfg  Config
	rng  *rand.Rand
	plan *town.Plan

	workers []*agents.Worker
	ledger  *labor.Ledger
	factory *economy.Factory
	market  *economy.Market

	happiness agents.HappinessFunc
	priceRule economy.PriceFunc
	shift     agents.HoursParams

	observers []Observer
	events    []Event
	reviews   []economy.MonthlyReview

	tick         uint64
	collapsed    bool
	collapseTick *uint64

	lastRequests []int
	lastClearing economy.ClearingResult
	lastSnapshot Snapshot
}

// Option customizes a Simulation at construction.
type Option func(*Simulation)

// WithHappiness replaces the default happiness curve. The replacement
// must honor the HappinessFunc contract.
func WithHappiness(fn agents.HappinessFunc) Option {
	return func(s *Simulation) { s.happiness = fn }
}

// WithPriceRule replaces the market's default price formation rule.
func WithPriceRule(fn economy.PriceFunc) Option {
	return func(s *Simulation) { s.priceRule = fn }
}

// WithObserver registers a snapshot consumer.
func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, o) }
}

// New validates the configuration and builds the opening state:
// deterministic town layout, seeded worker wealth, and the initial round
// of hiring at day zero.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
		plan: town.NewPlan(cfg.Seed, cfg.PopulationSize),
		shift: agents.HoursParams{
			Base:        cfg.BaseHours,
			Sensitivity: cfg.WealthSensitivity,
			Min:         cfg.MinShiftHours,
			Max:         cfg.MaxShiftHours,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.happiness == nil {
		s.happiness = agents.DefaultHappiness(cfg.SubsistenceWealth)
	}

	s.workers = make([]*agents.Worker, cfg.PopulationSize)
	for i := range s.workers {
		s.workers[i] = &agents.Worker{
			ID:     agents.WorkerID(i + 1),
			Home:   s.plan.Homes[i],
			Wealth: float64(s.rng.Intn(cfg.InitialWealthMax + 1)),
		}
	}

	s.ledger = labor.NewLedger(cfg.TermDays, cfg.WagePolicy)
	s.factory = economy.NewFactory(cfg.InitialWage, cfg.InitialJobSlots, cfg.InitialInventory, economy.FactoryParams{
		Productivity:    cfg.Productivity,
		WageStep:        cfg.WageStep,
		HeadcountStep:   cfg.HeadcountStep,
		CutCoefficient:  cfg.CutCoefficient,
		MaxCutFraction:  cfg.MaxCutFraction,
		CriticalBacklog: cfg.CriticalBacklog,
		SubsistenceWage: cfg.SubsistenceWage,
		MaxHeadcount:    cfg.PopulationSize,
	})
	s.market = economy.NewMarket(cfg.InitialPrice, cfg.MinProductionCost, s.priceRule)

	s.hireToTarget(0)
	for _, w := range s.workers {
		w.Happiness = s.happiness(0, w.Wealth)
	}
	s.lastSnapshot = s.composeSnapshot(0)

	slog.Info("simulation ready",
		"population", cfg.PopulationSize,
		"employed", s.ledger.Headcount(),
		"wage", cfg.InitialWage,
		"price", cfg.InitialPrice,
		"seed", cfg.Seed,
	)
	return s, nil
}

// AddObserver registers a snapshot consumer after construction.
func (s *Simulation) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Config returns the run configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Tick returns the most recently completed tick.
func (s *Simulation) Tick() uint64 { return s.tick }

// Day returns the number of fully resolved days.
func (s *Simulation) Day() int { return int(s.tick) / s.cfg.DayTicks }

// Done reports whether the run has terminated: tick limit reached or
// unrecovered collapse.
func (s *Simulation) Done() bool {
	return s.collapsed || s.tick >= uint64(s.cfg.TotalTicks)
}

// Snapshot returns the most recent per-tick snapshot.
func (s *Simulation) Snapshot() Snapshot { return s.lastSnapshot }

// Events returns notable occurrences so far.
func (s *Simulation) Events() []Event { return s.events }

// Reviews returns the factory's monthly review history.
func (s *Simulation) Reviews() []economy.MonthlyReview { return s.reviews }

// Headcount returns the number of active contracts.
func (s *Simulation) Headcount() int { return s.ledger.Headcount() }

// Workers returns a copy of the worker states for external consumers.
func (s *Simulation) Workers() []agents.Worker {
	out := make([]agents.Worker, len(s.workers))
	for i, w := range s.workers {
		out[i] = *w
	}
	return out
}

// Town returns the deterministic town layout.
func (s *Simulation) Town() *town.Plan { return s.plan }

// Result returns the run outcome so far.
func (s *Simulation) Result() Result {
	return Result{
		Collapsed:    s.collapsed,
		CollapseTick: s.collapseTick,
		FinalTick:    s.tick,
		Days:         s.Day(),
	}
}

// InjectWealth grants every worker the given amount. This is the external
// stimulus lever: it exists for observers and operators, not for any
// agent rule, and it is the documented path to recovery after a collapse
// of the workforce.
func (s *Simulation) InjectWealth(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("inject wealth: amount must be positive, got %v", amount)
	}
	for _, w := range s.workers {
		w.Wealth += amount
	}
	s.recordEvent("intervention", fmt.Sprintf("stimulus of %.1f granted to each of %d workers", amount, len(s.workers)))
	slog.Info("wealth injection", "tick", s.tick, "amount", amount, "workers", len(s.workers))
	return nil
}

// Step advances the simulation by exactly one tick. Day phases resolve on
// the last tick of each day; the monthly review runs after clearing on
// the last tick of each term. Every tick emits one snapshot.
func (s *Simulation) Step() error {
	if s.Done() {
		return nil
	}
	s.tick++

	if s.tick%uint64(s.cfg.DayTicks) == 0 {
		day := int(s.tick) / s.cfg.DayTicks
		s.runDay(day)
		if day%s.cfg.TermDays == 0 {
			s.runMonth(day)
		}
		s.checkCollapse()
		if err := s.checkInvariants(); err != nil {
			return err
		}
	}

	s.lastSnapshot.Tick = s.tick
	for _, o := range s.observers {
		o.OnSnapshot(s.lastSnapshot)
	}
	return nil
}

// Run steps until termination. On an invariant violation the run aborts
// immediately with the partial result and the diagnostic.
func (s *Simulation) Run() (Result, error) {
	for !s.Done() {
		if err := s.Step(); err != nil {
			return s.Result(), err
		}
	}
	res := s.Result()
	slog.Info("run finished",
		"ticks", res.FinalTick,
		"days", res.Days,
		"collapsed", res.Collapsed,
	)
	return res, nil
}

// runDay resolves one day in the fixed phase order.
func (s *Simulation) runDay(day int) {
	// (a) Worker decisions. Every input here (wealth average, published
	// price, posted wage) predates this tick, so no worker observes
	// another worker's same-day decision.
	avgWealth := s.averageWealth()
	requests := make([]int, len(s.workers))
	hoursSum := 0.0
	worked := 0
	for i, w := range s.workers {
		w.Hours = agents.DecideHours(w, avgWealth, s.shift)
		if w.Employed() {
			w.Wealth += w.Hours * w.Wage
			hoursSum += w.Hours
			worked++
		}
		requests[i] = agents.PlanPurchase(w, s.market.Price, s.cfg.DayTicks, s.cfg.TravelTicks)
	}

	// (b) Factory production at this month's headcount and wage.
	avgHours := 0.0
	if worked > 0 {
		avgHours = hoursSum / float64(worked)
	}
	output := s.factory.Produce(s.ledger.Headcount(), avgHours)

	// (c) Market clearing; sales settle against factory stock and worker
	// wallets. Fills never exceed what the request's wealth affords.
	res := s.market.Clear(requests, s.factory.Wage, s.factory.Inventory)
	s.factory.Sell(res.Sold)
	for i, fill := range res.Fills {
		if fill == 0 {
			continue
		}
		w := s.workers[i]
		w.Wealth -= float64(fill) * res.Price
		if w.Wealth < 0 && w.Wealth > -1e-9 {
			w.Wealth = 0 // float dust from a fully funded fill
		}
	}
	s.lastRequests = requests
	s.lastClearing = res

	// (d) Daily happiness update and metrics.
	for _, w := range s.workers {
		w.Happiness = s.happiness(w.Hours, w.Wealth)
	}
	s.lastSnapshot = s.composeSnapshot(day)

	slog.Debug("daily clearing",
		"day", day,
		"output", fmt.Sprintf("%.1f", output),
		"demand", res.Requested,
		"sold", res.Sold,
		"price", fmt.Sprintf("%.2f", s.market.Price),
		"inventory", fmt.Sprintf("%.1f", s.factory.Inventory),
		"unemployed", s.lastSnapshot.Unemployed,
		"phase", s.lastSnapshot.Phase,
	)
}

// runMonth resolves a term boundary: roll the monthly windows, run the
// factory's lagged review against the completed month, then churn
// contracts to the new target.
func (s *Simulation) runMonth(day int) {
	s.market.RollMonth()
	s.factory.RollMonth()

	review := s.factory.ReviewMonth(day, s.market.DemandMonth.Last)
	s.market.ReFloor(s.factory.Wage)
	s.reviews = append(s.reviews, review)

	switch {
	case review.MassLayoff:
		s.recordEvent("factory", fmt.Sprintf("day %d: backlog %.1fx at the wage floor, mass layoff", day, review.BacklogRatio))
	case review.Regrowth:
		s.recordEvent("factory", fmt.Sprintf("day %d: demand recovered, factory reopens %d slots", day, review.TargetAfter))
	}

	// Contract churn. Expired contracts renew unless the worker opts
	// out; then slots shrink (newest first) or open to the unemployed.
	for _, c := range append([]*labor.Contract(nil), s.ledger.Active()...) {
		if !c.Expired(day) {
			continue
		}
		w := s.workers[int(c.Worker)-1]
		if w.Wealth > s.cfg.RichWealth {
			s.ledger.Release(c.Worker)
			w.ContractID = 0
			w.Wage = 0
			continue
		}
		renewed := s.ledger.Renew(c, day, s.factory.Wage)
		w.ContractID = uint64(renewed.ID)
		w.Wage = renewed.Wage
	}

	if over := s.ledger.Headcount() - s.factory.TargetHeadcount; over > 0 {
		for _, c := range s.ledger.LayOff(over) {
			w := s.workers[int(c.Worker)-1]
			w.ContractID = 0
			w.Wage = 0
		}
	}
	s.hireToTarget(day)

	slog.Info("monthly review",
		"day", day,
		"demand", fmt.Sprintf("%.1f", review.Demand),
		"output", fmt.Sprintf("%.1f", review.Output),
		"backlog", fmt.Sprintf("%.2f", review.BacklogRatio),
		"wage", fmt.Sprintf("%.2f -> %.2f", review.WageBefore, review.WageAfter),
		"target", fmt.Sprintf("%d -> %d", review.TargetBefore, review.TargetAfter),
		"employed", s.ledger.Headcount(),
		"mass_layoff", review.MassLayoff,
		"regrowth", review.Regrowth,
	)
}

// hireToTarget signs unemployed workers, in ID order, until the factory's
// target headcount is met. Workers above the wealth threshold decline.
func (s *Simulation) hireToTarget(day int) {
	for _, w := range s.workers {
		if s.ledger.Headcount() >= s.factory.TargetHeadcount {
			return
		}
		if w.Employed() || w.Wealth > s.cfg.RichWealth {
			continue
		}
		c := s.ledger.Hire(w.ID, day, s.factory.Wage)
		w.ContractID = uint64(c.ID)
		w.Wage = c.Wage
	}
}

// checkCollapse detects the terminal state: nobody employed, nothing left
// to sell, no slots to refill.
func (s *Simulation) checkCollapse() {
	if s.collapsed {
		return
	}
	if s.ledger.Headcount() == 0 && s.factory.TargetHeadcount == 0 && s.factory.Inventory < 1 {
		s.collapsed = true
		tick := s.tick
		s.collapseTick = &tick
		s.recordEvent("collapse", fmt.Sprintf("economy collapsed at tick %d (day %d)", tick, s.Day()))
		slog.Warn("economy collapsed", "tick", tick, "day", s.Day())
	}
}

// checkInvariants guards the state contracts after each resolved day.
// A failure here is a logic defect and aborts the run.
func (s *Simulation) checkInvariants() error {
	for _, w := range s.workers {
		if w.Wealth < 0 {
			return &InvariantError{
				Invariant: "worker wealth >= 0",
				Tick:      s.tick,
				Detail:    fmt.Sprintf("worker %d wealth %v", w.ID, w.Wealth),
			}
		}
		if w.Hours != 0 && (w.Hours < s.cfg.MinShiftHours || w.Hours > s.cfg.MaxShiftHours) {
			return &InvariantError{
				Invariant: "hours in {0} or [min, max]",
				Tick:      s.tick,
				Detail:    fmt.Sprintf("worker %d hours %v", w.ID, w.Hours),
			}
		}
	}
	if floor := s.market.PriceFloor(s.factory.Wage); s.market.Price < floor {
		return &InvariantError{
			Invariant: "price >= max(minProductionCost, wage)",
			Tick:      s.tick,
			Detail:    fmt.Sprintf("price %v below floor %v", s.market.Price, floor),
		}
	}
	if s.factory.Inventory < -1e-9 {
		return &InvariantError{
			Invariant: "inventory >= 0",
			Tick:      s.tick,
			Detail:    fmt.Sprintf("inventory %v", s.factory.Inventory),
		}
	}
	return nil
}

func (s *Simulation) averageWealth() float64 {
	if len(s.workers) == 0 {
		return 0
	}
	total := 0.0
	for _, w := range s.workers {
		total += w.Wealth
	}
	return total / float64(len(s.workers))
}

func (s *Simulation) composeSnapshot(day int) Snapshot {
	unemployed := 0
	happiness := 0.0
	for _, w := range s.workers {
		if !w.Employed() {
			unemployed++
		}
		happiness += w.Happiness
	}

	avgWage := s.ledger.AverageWage()
	if s.ledger.Headcount() == 0 {
		avgWage = s.factory.Wage
	}
	avgHappiness := 0.0
	if len(s.workers) > 0 {
		avgHappiness = happiness / float64(len(s.workers))
	}

	phase := "expansion"
	if base := s.cfg.InitialJobSlots; base > 0 {
		shortfall := 1 - float64(s.ledger.Headcount())/float64(base)
		switch {
		case shortfall >= 0.2:
			phase = "crisis"
		case shortfall >= 0.05:
			phase = "recession"
		}
	} else if s.ledger.Headcount() == 0 {
		phase = "crisis"
	}

	return Snapshot{
		Tick:             s.tick,
		Day:              day,
		Unemployed:       unemployed,
		Headcount:        s.ledger.Headcount(),
		AverageWage:      avgWage,
		AverageHappiness: avgHappiness,
		AverageWealth:    s.averageWealth(),
		Inventory:        s.factory.Inventory,
		Price:            s.market.Price,
		Demand:           s.market.LastDemand,
		Supply:           s.market.LastSupply,
		Sold:             s.market.LastSold,
		Phase:            phase,
	}
}

func (s *Simulation) recordEvent(category, description string) {
	s.events = append(s.events, Event{
		Tick:        s.tick,
		Description: description,
		Category:    category,
	})
}
