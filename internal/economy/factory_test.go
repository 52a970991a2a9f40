package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() FactoryParams {
	return FactoryParams{
		Productivity:    0.5,
		WageStep:        1,
		HeadcountStep:   2,
		CutCoefficient:  0.2,
		MaxCutFraction:  0.5,
		CriticalBacklog: 3,
		SubsistenceWage: 5,
		MaxHeadcount:    100,
	}
}

func TestProduceConservation(t *testing.T) {
	f := NewFactory(10, 40, 100, testParams())

	out := f.Produce(40, 8)
	assert.Equal(t, 160.0, out, "headcount × avgHours × productivity")
	assert.Equal(t, 260.0, f.Inventory)

	f.Sell(60)
	assert.Equal(t, 200.0, f.Inventory, "inventory = previous + output − sold, exactly")
	assert.Equal(t, 160.0, f.OutputMonth.Current)
}

func TestProduceIdle(t *testing.T) {
	f := NewFactory(10, 0, 50, testParams())
	assert.Zero(t, f.Produce(0, 8))
	assert.Zero(t, f.Produce(10, 0))
	assert.Equal(t, 50.0, f.Inventory)
}

func TestReviewDemandLeadsOutput(t *testing.T) {
	f := NewFactory(10, 40, 10, testParams())
	f.OutputMonth.Last = 100

	r := f.ReviewMonth(30, 150)
	assert.Equal(t, 42, f.TargetHeadcount, "bounded headcount raise")
	assert.Equal(t, 11.0, f.Wage, "bounded wage raise")
	assert.False(t, r.MassLayoff)
	assert.False(t, r.Regrowth)
}

func TestReviewHeadcountCappedAtPopulation(t *testing.T) {
	f := NewFactory(10, 99, 0, testParams())
	f.OutputMonth.Last = 1
	f.ReviewMonth(30, 100)
	assert.Equal(t, 100, f.TargetHeadcount)
}

func TestReviewCutProportionalToBacklog(t *testing.T) {
	small := NewFactory(20, 40, 50, testParams())
	small.OutputMonth.Last = 100
	rSmall := small.ReviewMonth(30, 10)

	big := NewFactory(20, 40, 200, testParams())
	big.OutputMonth.Last = 100
	rBig := big.ReviewMonth(30, 10)

	assert.Less(t, big.Wage, small.Wage, "larger backlog, deeper wage cut")
	assert.Less(t, big.TargetHeadcount, small.TargetHeadcount, "larger backlog, deeper headcount cut")
	assert.Greater(t, rBig.BacklogRatio, rSmall.BacklogRatio)
	require.GreaterOrEqual(t, big.Wage, testParams().SubsistenceWage)
}

func TestReviewCutCappedByMaxFraction(t *testing.T) {
	f := NewFactory(20, 40, 1e9, testParams())
	f.OutputMonth.Last = 100
	f.ReviewMonth(30, 10)
	assert.Equal(t, 10.0, f.Wage, "cut capped at MaxCutFraction")
	assert.Equal(t, 20, f.TargetHeadcount)
}

func TestReviewWageFloor(t *testing.T) {
	f := NewFactory(5.5, 40, 120, testParams())
	f.OutputMonth.Last = 100
	f.ReviewMonth(30, 10)
	assert.Equal(t, 5.0, f.Wage, "wage never drops below subsistence")
}

func TestReviewMassLayoffAtFloorWithCriticalBacklog(t *testing.T) {
	f := NewFactory(5, 40, 400, testParams()) // backlog ratio 4 > critical 3, wage at floor
	f.OutputMonth.Last = 100

	r := f.ReviewMonth(60, 10)
	require.True(t, r.MassLayoff)
	assert.Zero(t, f.TargetHeadcount)
	assert.Equal(t, 5.0, f.Wage)
}

func TestReviewNoMassLayoffAboveFloor(t *testing.T) {
	f := NewFactory(12, 40, 400, testParams())
	f.OutputMonth.Last = 100

	r := f.ReviewMonth(60, 10)
	assert.False(t, r.MassLayoff, "critical backlog alone is not enough, the wage must already be at the floor")
	assert.Positive(t, f.TargetHeadcount)
}

func TestReviewRegrowthAfterCollapse(t *testing.T) {
	f := NewFactory(5, 0, 50, testParams())
	f.OutputMonth.Last = 0

	quiet := f.ReviewMonth(90, 0)
	assert.False(t, quiet.Regrowth, "no demand, no reopening")
	assert.Zero(t, f.TargetHeadcount)

	r := f.ReviewMonth(120, 30)
	require.True(t, r.Regrowth)
	assert.Equal(t, testParams().HeadcountStep, f.TargetHeadcount)
	assert.GreaterOrEqual(t, f.Wage, testParams().SubsistenceWage)
}

func TestRollMonth(t *testing.T) {
	f := NewFactory(10, 10, 0, testParams())
	f.Produce(10, 8) // 40 units
	f.RollMonth()
	assert.Equal(t, 40.0, f.OutputMonth.Last)
	assert.Zero(t, f.OutputMonth.Current)
}
