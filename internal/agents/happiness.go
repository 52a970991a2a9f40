package agents

import "github.com/tanukai/factorytown/internal/econmath"

// HappinessFunc maps (hours worked today, wealth) to a bounded score in
// [0, 1]. Implementations must be total (defined at hours = wealth = 0),
// strictly decreasing in hours once hours exceed the overwork threshold
// (continuously: a slope change, not a jump), and strictly decreasing as
// wealth falls toward the subsistence floor.
type HappinessFunc func(hours, wealth float64) float64

// Shape constants for the default curve. The overwork threshold is where
// the hours penalty steepens.
const (
	overworkThreshold = 10.0
	baseHourSlope     = 1.0 / 32.0 // gentle fatigue below the threshold
	overworkSlope     = 0.06      // additional slope past it
)

// DefaultHappiness builds the stock curve: a weighted blend of work
// comfort and wealth security. subsistenceWealth sets where the wealth
// term starts to bite; it must be positive so the curve never divides by
// zero, even for a broke, idle worker.
func DefaultHappiness(subsistenceWealth float64) HappinessFunc {
	if subsistenceWealth <= 0 {
		subsistenceWealth = 1
	}
	return func(hours, wealth float64) float64 {
		if hours < 0 {
			hours = 0
		}
		if wealth < 0 {
			wealth = 0
		}

		comfort := 1 - hours*baseHourSlope
		if hours > overworkThreshold {
			comfort -= (hours - overworkThreshold) * overworkSlope
		}

		// wealth/(wealth+floor) rises smoothly from 0 toward 1; at the
		// subsistence floor itself it sits at one half.
		security := wealth / (wealth + subsistenceWealth)

		return econmath.Clamp(0.6*comfort+0.4*security, 0, 1)
	}
}
