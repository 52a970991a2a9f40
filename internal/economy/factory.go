package economy

import (
	"math"

	"github.com/tanukai/factorytown/internal/econmath"
)

// FactoryParams tunes the factory's feedback rules.
type FactoryParams struct {
	Productivity    float64 // units per worker-hour
	WageStep        float64 // absolute monthly raise when demand leads output
	HeadcountStep   int     // slots added per month when demand leads output
	CutCoefficient  float64 // proportional cut strength per unit of backlog ratio
	MaxCutFraction  float64 // cap on a single month's proportional cut
	CriticalBacklog float64 // backlog ratio that triggers mass layoff at the wage floor
	SubsistenceWage float64 // hard wage floor
	MaxHeadcount    int     // population size
}

// Factory is the singleton producer. It owns wage, target headcount, and
// inventory exclusively; production mutates them daily, the monthly
// review mutates them at term boundaries, and sales are applied in the
// clearing phase through Sell.
type Factory struct {
	Wage            float64 `json:"wage"`
	TargetHeadcount int     `json:"target_headcount"`
	Inventory       float64 `json:"inventory"`

	// OutputMonth is the rolling production window read by the lagged
	// monthly review.
	OutputMonth Window `json:"output_month"`

	params FactoryParams
}

// NewFactory creates the producer with its opening wage, hiring target,
// and stock.
func NewFactory(wage float64, targetHeadcount int, inventory float64, p FactoryParams) *Factory {
	return &Factory{
		Wage:            wage,
		TargetHeadcount: targetHeadcount,
		Inventory:       inventory,
		params:          p,
	}
}

// Produce runs one day of production: headcount times the average hours
// actually worked, times productivity. Output lands in inventory and the
// monthly window. Returns the day's output.
func (f *Factory) Produce(headcount int, avgHours float64) float64 {
	if headcount <= 0 || avgHours <= 0 {
		return 0
	}
	out := float64(headcount) * avgHours * f.params.Productivity
	f.Inventory += out
	f.OutputMonth.Add(out)
	return out
}

// Sell removes units sold at clearing from inventory.
func (f *Factory) Sell(units int) {
	f.Inventory -= float64(units)
}

// MonthlyReview reports what the lagged monthly decision did.
type MonthlyReview struct {
	Day          int     `json:"day"`
	Demand       float64 `json:"demand"` // last month's realized aggregate demand
	Output       float64 `json:"output"` // last month's realized output
	BacklogRatio float64 `json:"backlog_ratio"`
	WageBefore   float64 `json:"wage_before"`
	WageAfter    float64 `json:"wage_after"`
	TargetBefore int     `json:"target_before"`
	TargetAfter  int     `json:"target_after"`
	MassLayoff   bool    `json:"mass_layoff"`
	Regrowth     bool    `json:"regrowth"`
}

// ReviewMonth runs the lagged planning decision from the prior completed
// month. lastDemand is the month's realized aggregate demand in units;
// the factory's own OutputMonth window must already be rolled.
//
// Demand above output attracts labor with bounded wage/headcount raises.
// Demand below output cuts wage and headcount proportionally to the
// accumulated inventory backlog: the larger the backlog, the deeper the
// cut. This proportional response is the destabilizing feedback that
// produces overshoot. If the backlog passes the critical ratio while the
// wage already sits at the subsistence floor, the factory sheds its whole
// workforce; it may regrow in a later month if realized demand recovers.
func (f *Factory) ReviewMonth(day int, lastDemand float64) MonthlyReview {
	out := f.OutputMonth.Last
	backlog := econmath.Ratio(f.Inventory, out, f.Inventory)

	r := MonthlyReview{
		Day:          day,
		Demand:       lastDemand,
		Output:       out,
		BacklogRatio: backlog,
		WageBefore:   f.Wage,
		TargetBefore: f.TargetHeadcount,
	}

	atFloor := f.Wage <= f.params.SubsistenceWage

	switch {
	case f.TargetHeadcount == 0:
		// Shuttered. Reopen a restructured line when demand comes back.
		if lastDemand > out {
			step := f.params.HeadcountStep
			if step < 1 {
				step = 1
			}
			f.TargetHeadcount = step
			if f.Wage < f.params.SubsistenceWage {
				f.Wage = f.params.SubsistenceWage
			}
			r.Regrowth = true
		}

	case lastDemand > out:
		f.TargetHeadcount += f.params.HeadcountStep
		if f.TargetHeadcount > f.params.MaxHeadcount {
			f.TargetHeadcount = f.params.MaxHeadcount
		}
		f.Wage += f.params.WageStep

	case lastDemand < out:
		if atFloor && backlog > f.params.CriticalBacklog {
			f.TargetHeadcount = 0
			r.MassLayoff = true
			break
		}
		cut := math.Min(f.params.MaxCutFraction, f.params.CutCoefficient*backlog)
		f.Wage = math.Max(f.params.SubsistenceWage, f.Wage*(1-cut))
		heads := int(math.Ceil(float64(f.TargetHeadcount) * cut))
		f.TargetHeadcount -= heads
		if f.TargetHeadcount < 0 {
			f.TargetHeadcount = 0
		}
	}

	r.WageAfter = f.Wage
	r.TargetAfter = f.TargetHeadcount
	return r
}

// RollMonth completes the in-progress output month. Runs at term
// boundaries before ReviewMonth.
func (f *Factory) RollMonth() {
	f.OutputMonth.Roll()
}
