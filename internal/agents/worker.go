// Package agents provides the worker data model and the daily decision
// rules: work hours, purchase planning, and the happiness curve.
package agents

import (
	"github.com/tanukai/factorytown/internal/econmath"
	"github.com/tanukai/factorytown/internal/town"
)

// WorkerID is a unique identifier for a worker.
type WorkerID uint64

// Worker is one household in the closed economy. The worker owns its
// wealth, happiness, and hours exclusively; the contract link is a
// lookup-only reference by ID.
type Worker struct {
	ID   WorkerID   `json:"id"`
	Home town.Coord `json:"home"`

	Wealth    float64 `json:"wealth"`    // never negative
	Happiness float64 `json:"happiness"` // 0.0–1.0

	// Employment. ContractID names the active labor contract, 0 when
	// unemployed. Wage is the hourly wage copied from that contract at
	// signing or renewal.
	ContractID uint64  `json:"contract_id,omitempty"`
	Wage       float64 `json:"wage,omitempty"`

	// Hours is today's work block: 0, or within the shift bounds.
	Hours float64 `json:"hours"`
}

// Employed reports whether the worker holds an active contract.
func (w *Worker) Employed() bool {
	return w.ContractID != 0
}

// HoursParams bounds the daily hours decision.
type HoursParams struct {
	Base        float64 // target shift length for a worker of average wealth
	Sensitivity float64 // hours shed per unit of relative wealth
	Min         float64 // shortest legal shift
	Max         float64 // longest legal shift
}

// DecideHours returns today's work block: zero when unemployed, otherwise
// base hours reduced by relative wealth and clamped to the shift bounds.
// A wealthy worker works the minimum shift, never a partial one.
func DecideHours(w *Worker, populationAvgWealth float64, p HoursParams) float64 {
	if !w.Employed() {
		return 0
	}
	rel := econmath.Ratio(w.Wealth, populationAvgWealth, 1)
	return econmath.Clamp(p.Base-p.Sensitivity*rel, p.Min, p.Max)
}

// PlanPurchase returns the whole units the worker asks the market for
// today. Non-work ticks minus the fixed travel cost are shopping time; a
// worker with no shopping time requests nothing. The request is capped to
// what the worker's wealth affords at the published price, so a fully
// honored request can never drive wealth negative.
func PlanPurchase(w *Worker, price float64, dayTicks, travelTicks int) int {
	shopping := float64(dayTicks) - w.Hours - float64(travelTicks)
	if shopping <= 0 || price <= 0 {
		return 0
	}
	if w.Wealth < price {
		return 0
	}
	return int(w.Wealth / price)
}
