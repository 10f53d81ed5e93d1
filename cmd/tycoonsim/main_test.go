package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tycoon-sim/internal/config"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/persistence"
	"github.com/talgya/tycoon-sim/internal/state"
)

func sampleConfig() config.Config {
	cfg := config.Default()
	cfg.Paths.Catalog = "../../data/catalog"
	cfg.Paths.Scenario = "../../data/scenario.yaml"
	return cfg
}

func TestSampleCatalogIsValid(t *testing.T) {
	assert.NoError(t, checkCatalog("../../data/catalog"))
}

func TestSampleScenarioRunsAYear(t *testing.T) {
	cfg := sampleConfig()
	cat, rep, err := loadCatalog(cfg.Paths.Catalog)
	require.NoError(t, err)
	require.True(t, rep.OK(), rep.Errors())

	st, ctx, err := openWorld(cfg, cat, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ctx.PlayerCompanyID)

	sim := newSimulation(cfg, cat, st, ctx)
	drift := newDrift(cfg)
	require.NotNil(t, drift)

	eng := engine.NewEngine()
	eng.OnTick = sim.TickDay
	eng.OnMonth = func(tick uint64) {
		sim.TickMonth(tick)
		applyDrift(sim, drift, tick)
	}
	eng.OnYear = sim.TickYear
	eng.RunTicks(engine.TicksPerYear)

	sim.View(func(st *state.Store, ctx state.TickContext) {
		assert.Equal(t, uint64(engine.TicksPerYear), ctx.Tick)
		assert.NoError(t, st.Validate())
		assert.Positive(t, st.Production[3].ActualOutput+st.Inventories[3].Output.Amount)
		assert.Positive(t, totalBreakthroughs(st))
	})
	assert.Equal(t, uint64(engine.TicksPerYear), sim.Report().Tick)
}

func TestSaveAndResumeRun(t *testing.T) {
	cfg := sampleConfig()
	cat, _, err := loadCatalog(cfg.Paths.Catalog)
	require.NoError(t, err)
	db, err := persistence.Open(filepath.Join(t.TempDir(), "tycoon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st, ctx, err := openWorld(cfg, cat, db)
	require.NoError(t, err)
	sim := newSimulation(cfg, cat, st, ctx)
	drift := newDrift(cfg)
	require.NoError(t, resumeRun(sim, drift, db, false))

	eng := engine.NewEngine()
	eng.OnTick = sim.TickDay
	eng.OnMonth = func(tick uint64) {
		sim.TickMonth(tick)
		applyDrift(sim, drift, tick)
	}
	eng.RunTicks(2 * engine.TicksPerMonth)
	require.NoError(t, saveRun(db, sim, drift))
	require.NotEmpty(t, drift.Baseline())

	st2, ctx2, err := openWorld(cfg, cat, db)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*engine.TicksPerMonth), ctx2.Tick)
	sim2 := newSimulation(cfg, cat, st2, ctx2)
	drift2 := newDrift(cfg)
	require.NoError(t, resumeRun(sim2, drift2, db, true))

	assert.Equal(t, sim.EventSeq, sim2.EventSeq)
	assert.Equal(t, drift.Baseline(), drift2.Baseline())
}

func TestPlayerOverrideFromConfig(t *testing.T) {
	cfg := sampleConfig()
	cfg.Sim.PlayerCompanyID = 2
	cat, _, err := loadCatalog(cfg.Paths.Catalog)
	require.NoError(t, err)

	_, ctx, err := openWorld(cfg, cat, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ctx.PlayerCompanyID)
}

func TestAutosaveDue(t *testing.T) {
	cfg := config.Default()
	cfg.Sim.AutosaveMonths = 3
	assert.False(t, autosaveDue(cfg, 30))
	assert.False(t, autosaveDue(cfg, 60))
	assert.True(t, autosaveDue(cfg, 90))

	cfg.Sim.AutosaveMonths = 0
	assert.False(t, autosaveDue(cfg, 90))
}
