package labor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tycoon-sim/internal/state"
)

func newStore() *state.Store {
	st := state.NewStore()
	st.PutCity(state.City{ID: 1, Economy: &state.CityEconomy{RealWage: 300000, Unemployment: 5, Population: 1_000_000}})
	st.PutCity(state.City{ID: 2, Economy: &state.CityEconomy{RealWage: 450000, Unemployment: 2, Population: 4_000_000}})
	st.PutCity(state.City{ID: 3})
	return st
}

func TestDrift_StaysWithinAmplitude(t *testing.T) {
	st := newStore()
	d := NewDrift(7, 0.1, 0.2)
	for month := uint64(0); month < 120; month++ {
		require.Equal(t, 2, d.Apply(st, month))
		e := st.Cities[1].Economy
		assert.GreaterOrEqual(t, e.RealWage, int64(270000))
		assert.LessOrEqual(t, e.RealWage, int64(330000))
		assert.GreaterOrEqual(t, e.Unemployment, 4.0-1e-9)
		assert.LessOrEqual(t, e.Unemployment, 6.0+1e-9)
		assert.Equal(t, int64(1_000_000), e.Population)
	}
	assert.Nil(t, st.Cities[3].Economy)
}

func TestDrift_DoesNotCompound(t *testing.T) {
	st := newStore()
	d := NewDrift(7, 0.1, 0.2)
	d.Apply(st, 12)
	first := *st.Cities[2].Economy
	d.Apply(st, 12)
	assert.Equal(t, first, *st.Cities[2].Economy)
}

func TestDrift_Deterministic(t *testing.T) {
	a, b := newStore(), newStore()
	da, db := NewDrift(99, 0.1, 0.2), NewDrift(99, 0.1, 0.2)
	for month := uint64(0); month < 24; month++ {
		da.Apply(a, month)
		db.Apply(b, month)
	}
	assert.Equal(t, *a.Cities[1].Economy, *b.Cities[1].Economy)
	assert.Equal(t, *a.Cities[2].Economy, *b.Cities[2].Economy)
}

func TestDrift_ZeroAmplitudeIsIdentity(t *testing.T) {
	st := newStore()
	d := NewDrift(1, 0, 0.2)
	d.Apply(st, 30)
	assert.Equal(t, int64(300000), st.Cities[1].Economy.RealWage)
	assert.Equal(t, 5.0, st.Cities[1].Economy.Unemployment)
}

func TestDrift_RestoredBaselineMatchesUninterruptedRun(t *testing.T) {
	straight, resumed := newStore(), newStore()
	d := NewDrift(42, 0.1, 0.2)
	for month := uint64(0); month < 12; month++ {
		d.Apply(straight, month)
	}

	before := NewDrift(42, 0.1, 0.2)
	for month := uint64(0); month < 6; month++ {
		before.Apply(resumed, month)
	}
	saved := before.Baseline()
	assert.Equal(t, int64(300000), saved[1].RealWage)

	after := NewDrift(42, 0.1, 0.2)
	after.RestoreBaseline(saved)
	for month := uint64(6); month < 12; month++ {
		after.Apply(resumed, month)
	}
	assert.Equal(t, *straight.Cities[1].Economy, *resumed.Cities[1].Economy)
	assert.Equal(t, *straight.Cities[2].Economy, *resumed.Cities[2].Economy)
}
