// Package town lays out the abstract home grid. Travel inside the
// simulation is a fixed time cost, so the grid carries no terrain or
// pathfinding: it exists so observers can place workers and the factory
// on a map, and so commute distances are stable across replays.
package town

import (
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Coord is a cell on the town grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Manhattan returns the grid distance between two cells.
func Manhattan(a, b Coord) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Plan is the deterministic town layout for one run.
type Plan struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Factory Coord   `json:"factory"`
	Homes   []Coord `json:"homes"`
}

// NewPlan places one home per worker on a square grid around a central
// factory site. Placement follows a simplex density field seeded from the
// run seed, so the same seed always yields the same town.
func NewPlan(seed int64, population int) *Plan {
	if population < 0 {
		population = 0
	}
	side := 20
	if need := int(math.Ceil(math.Sqrt(float64(population * 4)))); need > side {
		side = need
	}

	p := &Plan{
		Width:   side,
		Height:  side,
		Factory: Coord{X: side / 2, Y: side / 2},
	}

	noise := opensimplex.NewNormalized(seed)

	type cell struct {
		at      Coord
		density float64
	}
	cells := make([]cell, 0, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			at := Coord{X: x, Y: y}
			if at == p.Factory {
				continue
			}
			cells = append(cells, cell{
				at:      at,
				density: noise.Eval2(float64(x)*0.08, float64(y)*0.08),
			})
		}
	}

	// Densest cells fill first; ties resolve in row-major order so the
	// layout is identical on every run with the same seed.
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].density != cells[b].density {
			return cells[a].density > cells[b].density
		}
		if cells[a].at.Y != cells[b].at.Y {
			return cells[a].at.Y < cells[b].at.Y
		}
		return cells[a].at.X < cells[b].at.X
	})

	if population > len(cells) {
		population = len(cells)
	}
	p.Homes = make([]Coord, population)
	for i := 0; i < population; i++ {
		p.Homes[i] = cells[i].at
	}
	return p
}

// Commute returns the Manhattan distance from a worker's home to the
// factory. Purely informational: the decision rules charge the configured
// fixed travel cost instead.
func (p *Plan) Commute(worker int) int {
	if worker < 0 || worker >= len(p.Homes) {
		return 0
	}
	return Manhattan(p.Homes[worker], p.Factory)
}
