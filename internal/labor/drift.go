// Package labor perturbs city labor markets over time. It stands in for the
// external city simulation: the economic engines only ever read its output.
package labor

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/tycoon-sim/internal/state"
)

// Drift moves each city's real wage and unemployment around the values it
// had when first seen, following smooth 2-D simplex noise over (city, month).
type Drift struct {
	Amplitude float64 // Max relative wage swing; unemployment swings twice as far
	Frequency float64 // Noise steps per month

	wageNoise opensimplex.Noise
	jobsNoise opensimplex.Noise
	baseline  map[state.EntityID]state.CityEconomy
}

// NewDrift returns a drift generator. The same seed yields the same history.
func NewDrift(seed int64, amplitude, frequency float64) *Drift {
	return &Drift{
		Amplitude: amplitude,
		Frequency: frequency,
		wageNoise: opensimplex.NewNormalized(seed),
		jobsNoise: opensimplex.NewNormalized(seed + 1),
		baseline:  make(map[state.EntityID]state.CityEconomy),
	}
}

// Apply sets every city's economy for the given month and returns how many
// cities were updated. Cities without economic data are left alone.
func (d *Drift) Apply(st *state.Store, month uint64) int {
	updated := 0
	for _, id := range st.CityIDs() {
		c := st.Cities[id]
		if c.Economy == nil {
			continue
		}
		base, ok := d.baseline[id]
		if !ok {
			base = *c.Economy
			d.baseline[id] = base
		}

		x := float64(id) * 7.31
		y := float64(month) * d.Frequency
		wageShift := centered(octaveNoise(d.wageNoise, x, y, 3, 1, 0.5))
		jobsShift := centered(octaveNoise(d.jobsNoise, x, y, 3, 1, 0.5))

		c.Economy.RealWage = int64(math.Round(float64(base.RealWage) * (1 + d.Amplitude*wageShift)))
		c.Economy.Unemployment = math.Max(0, math.Min(100, base.Unemployment*(1+2*d.Amplitude*jobsShift)))
		updated++
	}
	return updated
}

// Baseline returns a copy of the values each city drifts around.
func (d *Drift) Baseline() map[state.EntityID]state.CityEconomy {
	out := make(map[state.EntityID]state.CityEconomy, len(d.baseline))
	for id, e := range d.baseline {
		out[id] = e
	}
	return out
}

// RestoreBaseline replaces the baseline with one saved by an earlier run, so a
// resumed world keeps drifting around its original values.
func (d *Drift) RestoreBaseline(baseline map[state.EntityID]state.CityEconomy) {
	d.baseline = make(map[state.EntityID]state.CityEconomy, len(baseline))
	for id, e := range baseline {
		d.baseline[id] = e
	}
}

// centered maps a normalized [0, 1] sample onto [-1, 1].
func centered(v float64) float64 {
	return math.Max(-1, math.Min(1, 2*v-1))
}

// octaveNoise layers several frequencies of the same noise field.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
