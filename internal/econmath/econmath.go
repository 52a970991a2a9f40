// Package econmath provides the shared numeric helpers used by the
// agent, factory, and market feedback rules. Everything here is a pure
// function: no state, no randomness, total over its domain.
package econmath

import "sort"

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Ratio returns num/den, or fallback when den is zero or negative.
// Degenerate denominators are expected states (empty month, zero output),
// never errors.
func Ratio(num, den, fallback float64) float64 {
	if den <= 0 {
		return fallback
	}
	return num / den
}

// Apportion splits total units across claims proportionally to each claim,
// rounding by largest remainder. The result sums to exactly
// min(total, sum(claims)) and no share exceeds its claim.
//
// This is the market's rationing rule: when demand outstrips supply every
// buyer receives a share proportional to what it asked for.
func Apportion(claims []int, total int) []int {
	shares := make([]int, len(claims))
	sum := 0
	for _, c := range claims {
		if c > 0 {
			sum += c
		}
	}
	if sum == 0 || total <= 0 {
		return shares
	}
	if total >= sum {
		for i, c := range claims {
			if c > 0 {
				shares[i] = c
			}
		}
		return shares
	}

	type frac struct {
		idx int
		rem float64
	}
	remainders := make([]frac, 0, len(claims))
	allocated := 0
	for i, c := range claims {
		if c <= 0 {
			continue
		}
		quota := float64(c) * float64(total) / float64(sum)
		base := int(quota)
		shares[i] = base
		allocated += base
		remainders = append(remainders, frac{idx: i, rem: quota - float64(base)})
	}

	// Hand out the leftover units to the largest remainders. Ties break on
	// the lower index so the split is deterministic.
	sort.Slice(remainders, func(a, b int) bool {
		if remainders[a].rem != remainders[b].rem {
			return remainders[a].rem > remainders[b].rem
		}
		return remainders[a].idx < remainders[b].idx
	})
	for i := 0; i < len(remainders) && allocated < total; i++ {
		shares[remainders[i].idx]++
		allocated++
	}
	return shares
}
