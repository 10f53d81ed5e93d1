package engine

import (
	"math"

	"github.com/talgya/tycoon-sim/internal/state"
)

// DefaultMarketWage is the monthly real wage assumed for cities without data.
const DefaultMarketWage = 300000

// marketWages maps each city with economic data to its real wage.
func marketWages(st *state.Store) map[state.EntityID]int64 {
	wages := make(map[state.EntityID]int64, len(st.Cities))
	for id, c := range st.Cities {
		if c.Economy == nil {
			continue
		}
		w := c.Economy.RealWage
		if w <= 0 {
			w = DefaultMarketWage
		}
		wages[id] = w
	}
	return wages
}

func wageFor(wages map[state.EntityID]int64, cityID state.EntityID) int64 {
	if w, ok := wages[cityID]; ok {
		return w
	}
	return DefaultMarketWage
}

// talentMultiplier scales research speed by the local talent pool:
// min(1.5, population/1M × 0.3 + (unemployment > 3 ? 0.1 : 0) + 0.7).
// Unknown cities, or cities without data, yield 1.0.
func talentMultiplier(st *state.Store, cityID state.EntityID) float64 {
	c, ok := st.Cities[cityID]
	if !ok || c.Economy == nil {
		return 1.0
	}
	m := float64(c.Economy.Population)/1_000_000*0.3 + 0.7
	if c.Economy.Unemployment > 3 {
		m += 0.1
	}
	return math.Min(1.5, m)
}
