package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearSupplyCoversDemand(t *testing.T) {
	m := NewMarket(10, 3, nil)
	res := m.Clear([]int{2, 0, 3}, 8, 100)

	assert.Equal(t, 10.0, res.Price, "trades execute at the published price")
	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 5, res.Sold)
	assert.Equal(t, []int{2, 0, 3}, res.Fills)
	assert.Equal(t, 100.0, res.Supply)
}

func TestClearRationsProRata(t *testing.T) {
	m := NewMarket(10, 3, nil)
	res := m.Clear([]int{10, 20, 30}, 8, 30.9)

	assert.Equal(t, 60, res.Requested)
	assert.Equal(t, 30, res.Sold, "sold = min(demand, whole units in inventory)")
	assert.Equal(t, []int{5, 10, 15}, res.Fills)

	sum := 0
	for i, f := range res.Fills {
		require.LessOrEqual(t, f, []int{10, 20, 30}[i])
		sum += f
	}
	assert.Equal(t, res.Sold, sum)
}

func TestClearRecordsWindows(t *testing.T) {
	m := NewMarket(10, 3, nil)
	m.Clear([]int{4}, 8, 100)
	m.Clear([]int{6}, 8, 100)

	assert.Equal(t, 10.0, m.DemandMonth.Current)
	assert.Equal(t, 10.0, m.SoldMonth.Current)
	assert.Equal(t, 6.0, m.LastDemand)

	m.RollMonth()
	assert.Equal(t, 10.0, m.DemandMonth.Last)
	assert.Zero(t, m.DemandMonth.Current)
}

func TestPriceNeverBelowFloor(t *testing.T) {
	m := NewMarket(10, 6, nil)
	// Massive oversupply, no demand: the rule wants to cut the price hard.
	for i := 0; i < 50; i++ {
		m.Clear([]int{0}, 5, 1e6)
		require.GreaterOrEqual(t, m.Price, m.PriceFloor(5))
	}
	assert.Equal(t, 6.0, m.Price, "floor is max(minProductionCost, wage)")

	// With a wage above production cost the wage passes through.
	m2 := NewMarket(10, 6, nil)
	for i := 0; i < 50; i++ {
		m2.Clear([]int{0}, 9, 1e6)
	}
	assert.Equal(t, 9.0, m2.Price)
}

func TestPriceIncreasingInScarcity(t *testing.T) {
	tight := NewMarket(10, 1, nil)
	slack := NewMarket(10, 1, nil)

	tight.Clear([]int{90}, 1, 100)
	slack.Clear([]int{10}, 1, 100)
	assert.Greater(t, tight.Price, slack.Price, "scarcity raises the published price")
}

func TestPriceDoublesOnBareShelves(t *testing.T) {
	m := NewMarket(10, 1, nil)
	m.Clear([]int{500}, 1, 20) // sells out: 20 left = 0
	assert.Equal(t, 20.0, m.Price)
}

func TestReFloorAfterWageRaise(t *testing.T) {
	m := NewMarket(10, 3, nil)
	m.ReFloor(15)
	assert.Equal(t, 15.0, m.Price)
	m.ReFloor(12) // already above: untouched
	assert.Equal(t, 15.0, m.Price)
}

func TestCustomPriceRule(t *testing.T) {
	calls := 0
	rule := func(s PriceState) float64 {
		calls++
		return s.Floor - 100 // rule output below floor must be clamped
	}
	m := NewMarket(10, 3, rule)
	m.Clear([]int{1}, 7, 50)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 7.0, m.Price)
}
