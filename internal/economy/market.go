package economy

import (
	"math"

	"github.com/tanukai/factorytown/internal/econmath"
)

// PriceState is the input to a price rule: the previously published
// price, the factory's posted wage, today's aggregate demand in units,
// the inventory left after clearing, and the hard floor.
type PriceState struct {
	Prev      float64
	Wage      float64
	Demand    float64
	Inventory float64
	Floor     float64
}

// PriceFunc computes the next published price. Implementations must be
// increasing in the demand/inventory ratio; the market clamps the result
// to the floor, so rules may return values below it.
type PriceFunc func(PriceState) float64

// DefaultPrice nudges the price multiplicatively by the demand/supply
// balance, doubling when the shelves are bare.
func DefaultPrice(s PriceState) float64 {
	if s.Inventory < 1 {
		return s.Prev * 2
	}
	balance := s.Demand / s.Inventory
	return s.Prev * (0.95 + 0.05*balance)
}

// ClearingResult is one day's clearing outcome.
type ClearingResult struct {
	Price     float64 `json:"price"`     // price trades executed at
	Requested int     `json:"requested"` // aggregate demand, units
	Sold      int     `json:"sold"`      // units actually traded
	Supply    float64 `json:"supply"`    // inventory offered at clearing
	Fills     []int   `json:"fills"`     // per-request allocation
}

// Market clears aggregate worker demand against factory supply once a
// day. It owns the published price and the demand/sold records
// exclusively.
type Market struct {
	Price   float64 `json:"price"`
	minCost float64
	priceFn PriceFunc

	// Daily records from the most recent clearing.
	LastDemand float64 `json:"last_demand"`
	LastSold   float64 `json:"last_sold"`
	LastSupply float64 `json:"last_supply"`

	// Monthly windows feeding the factory's lagged decision.
	DemandMonth Window `json:"demand_month"`
	SoldMonth   Window `json:"sold_month"`
}

// NewMarket creates a market publishing initialPrice. priceFn may be nil
// to use DefaultPrice.
func NewMarket(initialPrice, minProductionCost float64, priceFn PriceFunc) *Market {
	if priceFn == nil {
		priceFn = DefaultPrice
	}
	return &Market{
		Price:   initialPrice,
		minCost: minProductionCost,
		priceFn: priceFn,
	}
}

// PriceFloor is the hard lower bound on the published price: production
// cost, with the wage passed through when it is higher.
func (m *Market) PriceFloor(wage float64) float64 {
	return math.Max(m.minCost, wage)
}

// Clear executes one day of trading. Requests are whole units, indexed by
// worker; each requester is assumed able to pay for its full request at
// the current price (workers cap their own requests to affordability).
//
// sold = min(aggregate request, whole units in inventory). When demand
// exceeds supply, fills are rationed pro-rata by requested quantity with
// largest-remainder rounding, so the fills sum to exactly sold and no
// fill exceeds its request. After executing at the published price, the
// market publishes the next day's price from today's demand and the
// post-clearing inventory.
func (m *Market) Clear(requests []int, wage, inventory float64) ClearingResult {
	total := 0
	for _, r := range requests {
		if r > 0 {
			total += r
		}
	}

	available := int(inventory)
	sold := total
	if sold > available {
		sold = available
	}
	fills := econmath.Apportion(requests, sold)

	res := ClearingResult{
		Price:     m.Price,
		Requested: total,
		Sold:      sold,
		Supply:    inventory,
		Fills:     fills,
	}

	m.LastDemand = float64(total)
	m.LastSold = float64(sold)
	m.LastSupply = inventory
	m.DemandMonth.Add(float64(total))
	m.SoldMonth.Add(float64(sold))

	next := m.priceFn(PriceState{
		Prev:      m.Price,
		Wage:      wage,
		Demand:    float64(total),
		Inventory: inventory - float64(sold),
		Floor:     m.PriceFloor(wage),
	})
	m.Price = math.Max(next, m.PriceFloor(wage))

	return res
}

// RollMonth completes the in-progress demand/sold month. Runs at term
// boundaries before the factory's monthly review reads the windows.
func (m *Market) RollMonth() {
	m.DemandMonth.Roll()
	m.SoldMonth.Roll()
}

// ReFloor re-clamps the published price after a wage change, keeping the
// price-floor invariant true on every tick.
func (m *Market) ReFloor(wage float64) {
	if floor := m.PriceFloor(wage); m.Price < floor {
		m.Price = floor
	}
}
