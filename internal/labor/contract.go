// Package labor holds employment contracts and the hiring ledger. A
// contract is the shared-reference record between exactly one worker and
// the factory: both sides link to it by ID, neither owns the other.
package labor

import (
	"github.com/tanukai/factorytown/internal/agents"
)

// ContractID is a unique identifier for an employment contract.
type ContractID uint64

// WagePolicy decides what wage a renewed contract carries.
type WagePolicy uint8

const (
	// WageRefresh re-signs renewals at the factory's current posted wage.
	WageRefresh WagePolicy = iota
	// WageLocked carries the originally signed wage across renewals.
	WageLocked
)

// Contract is a fixed-term employment agreement. The wage is locked for
// the whole term; contracts are created and destroyed only at term
// boundaries.
type Contract struct {
	ID       ContractID      `json:"id"`
	Worker   agents.WorkerID `json:"worker"`
	StartDay int             `json:"start_day"`
	TermDays int             `json:"term_days"`
	Wage     float64         `json:"wage"`
}

// EndDay is the first day on which the contract is no longer in force.
func (c *Contract) EndDay() int {
	return c.StartDay + c.TermDays
}

// Expired reports whether the contract's term has completed by day.
func (c *Contract) Expired(day int) bool {
	return day >= c.EndDay()
}
