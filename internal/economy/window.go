// Package economy provides the factory (producer) and market (clearing)
// agents, plus the rolling monthly accumulators that feed the factory's
// lagged planning decision.
package economy

// Window is a fixed-size rolling accumulator over one contract term: the
// in-progress month plus the most recent completed one. Monthly decisions
// read Last in O(1) instead of replaying daily history.
type Window struct {
	Current float64 `json:"current"`
	Last    float64 `json:"last"`
}

// Add accumulates into the in-progress month.
func (w *Window) Add(v float64) {
	w.Current += v
}

// Roll completes the in-progress month.
func (w *Window) Roll() {
	w.Last = w.Current
	w.Current = 0
}
