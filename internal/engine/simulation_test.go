package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanukai/factorytown/internal/labor"
)

func stepTicks(t *testing.T, s *Simulation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Step())
	}
}

func stepDays(t *testing.T, s *Simulation, days int) {
	t.Helper()
	stepTicks(t, s, days*s.Config().DayTicks)
}

func collectSnapshots(dst *[]Snapshot) Option {
	return WithObserver(ObserverFunc(func(snap Snapshot) {
		*dst = append(*dst, snap)
	}))
}

func TestDeterministicReplay(t *testing.T) {
	cfg := DefaultConfig()

	var first, second []Snapshot
	a, err := New(cfg, collectSnapshots(&first))
	require.NoError(t, err)
	b, err := New(cfg, collectSnapshots(&second))
	require.NoError(t, err)

	resA, err := a.Run()
	require.NoError(t, err)
	resB, err := b.Run()
	require.NoError(t, err)

	assert.Equal(t, resA, resB)
	assert.Equal(t, a.Events(), b.Events())
	assert.Equal(t, a.Reviews(), b.Reviews())
	require.Equal(t, len(first), len(second))
	assert.Equal(t, first, second)
	assert.Equal(t, a.Workers(), b.Workers())
}

func TestRunHoldsStateInvariants(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	day := 0
	for !s.Done() {
		require.NoError(t, s.Step())

		floor := s.market.PriceFloor(s.factory.Wage)
		require.GreaterOrEqual(t, s.market.Price, floor, "tick %d", s.Tick())
		require.GreaterOrEqual(t, s.factory.Inventory, -1e-9, "tick %d", s.Tick())

		if s.Day() == day {
			continue
		}
		day = s.Day()
		snap := s.Snapshot()

		// Stock conservation: what is left is what was offered minus
		// what was sold.
		require.InDelta(t, snap.Supply-snap.Sold, snap.Inventory, 1e-9, "day %d", day)
		require.LessOrEqual(t, snap.Sold, snap.Supply, "day %d", day)
		require.LessOrEqual(t, snap.Sold, snap.Demand, "day %d", day)

		for _, w := range s.workers {
			require.GreaterOrEqual(t, w.Wealth, 0.0, "day %d worker %d", day, w.ID)
			if w.Hours != 0 {
				require.GreaterOrEqual(t, w.Hours, cfg.MinShiftHours, "day %d worker %d", day, w.ID)
				require.LessOrEqual(t, w.Hours, cfg.MaxShiftHours, "day %d worker %d", day, w.ID)
			}
			if w.Employed() {
				require.Greater(t, w.Wage, 0.0, "day %d worker %d", day, w.ID)
			}
		}
	}
	assert.Equal(t, uint64(cfg.TotalTicks), s.Tick())
}

func TestStepAfterDoneIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalTicks = 2 * 24
	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.Run()
	require.NoError(t, err)
	require.True(t, s.Done())
	require.Equal(t, uint64(48), s.Tick())

	require.NoError(t, s.Step())
	assert.Equal(t, uint64(48), s.Tick())
}

func TestCollapseWhenNothingLeft(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialJobSlots = 0
	cfg.InitialInventory = 0
	cfg.InitialWealthMax = 0
	s, err := New(cfg)
	require.NoError(t, err)

	res, err := s.Run()
	require.NoError(t, err)

	assert.True(t, res.Collapsed)
	require.NotNil(t, res.CollapseTick)
	assert.Equal(t, uint64(cfg.DayTicks), *res.CollapseTick)
	assert.Equal(t, uint64(cfg.DayTicks), res.FinalTick)
	assert.Equal(t, "crisis", s.Snapshot().Phase)

	found := false
	for _, ev := range s.Events() {
		if ev.Category == "collapse" {
			found = true
		}
	}
	assert.True(t, found, "collapse event missing")
}

func TestInvariantViolationAbortsRun(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)

	// Corrupt a wallet past anything a day of wages can repair.
	s.workers[0].Wealth = -1e6

	var stepErr error
	for i := 0; i < s.Config().DayTicks; i++ {
		if stepErr = s.Step(); stepErr != nil {
			break
		}
	}
	require.Error(t, stepErr)

	var ie *InvariantError
	require.ErrorAs(t, stepErr, &ie)
	assert.Equal(t, uint64(s.Config().DayTicks), ie.Tick)
	assert.Contains(t, ie.Invariant, "wealth")
}

func TestInjectWealthRejectsNonPositive(t *testing.T) {
	s, err := New(DefaultConfig())
	require.NoError(t, err)

	assert.Error(t, s.InjectWealth(0))
	assert.Error(t, s.InjectWealth(-10))
}

func TestRationingIsProRata(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Productivity = 0.001 // a trickle, so opening stock is all there is
	cfg.InitialInventory = 40
	cfg.TotalTicks = 24
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.InjectWealth(100))

	stepDays(t, s, 1)

	res := s.lastClearing
	require.Greater(t, res.Requested, res.Sold)
	assert.Equal(t, 40, res.Sold)

	sum := 0
	for i, fill := range res.Fills {
		req := s.lastRequests[i]
		require.LessOrEqual(t, fill, req, "worker %d", i)
		quota := float64(req) * float64(res.Sold) / float64(res.Requested)
		assert.InDelta(t, quota, float64(fill), 1.0, "worker %d", i)
		sum += fill
	}
	assert.Equal(t, res.Sold, sum)
}

func TestRenewalRefreshesToPostedWage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalTicks = 40 * 24
	cfg.RichWealth = 1e9
	s, err := New(cfg)
	require.NoError(t, err)

	stepTicks(t, s, 30*cfg.DayTicks-1)
	s.factory.Wage = 20 // guarantee the posted wage moved before renewal
	require.NoError(t, s.Step())

	require.NotEqual(t, cfg.InitialWage, s.factory.Wage)
	require.NotZero(t, s.Headcount())
	for _, c := range s.ledger.Active() {
		assert.Equal(t, s.factory.Wage, c.Wage)
		assert.Equal(t, c.Wage, s.workers[int(c.Worker)-1].Wage)
	}
}

func TestRenewalKeepsLockedWage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TotalTicks = 40 * 24
	cfg.RichWealth = 1e9
	cfg.WagePolicy = labor.WageLocked
	s, err := New(cfg)
	require.NoError(t, err)

	stepTicks(t, s, 30*cfg.DayTicks-1)
	s.factory.Wage = 20
	require.NoError(t, s.Step())

	require.NotEqual(t, cfg.InitialWage, s.factory.Wage)
	require.NotZero(t, s.Headcount())

	locked := 0
	for _, c := range s.ledger.Active() {
		if c.Wage == cfg.InitialWage {
			locked++
		}
	}
	assert.NotZero(t, locked, "no renewed contract kept its original wage")
}
