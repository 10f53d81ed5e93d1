package main

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/config"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/entropy"
	"github.com/talgya/tycoon-sim/internal/labor"
	"github.com/talgya/tycoon-sim/internal/persistence"
	"github.com/talgya/tycoon-sim/internal/scenario"
	"github.com/talgya/tycoon-sim/internal/state"
)

// loadCatalog reads the game data and logs every rejected record.
func loadCatalog(dir string) (*catalog.Catalog, catalog.Report, error) {
	cat, rep, err := catalog.Load(dir)
	if err != nil {
		return nil, rep, fmt.Errorf("load catalog: %w", err)
	}
	for _, e := range rep.Errors() {
		slog.Warn("catalog record rejected", "error", e)
	}
	b, p, r := cat.Counts()
	slog.Info("catalog loaded", "dir", dir, "buildings", b, "products", p, "recipes", r)
	return cat, rep, nil
}

// openWorld restores the saved world from db, or seeds a fresh one from the
// scenario file when db is nil or empty.
func openWorld(cfg config.Config, cat catalog.Lookup, db *persistence.DB) (*state.Store, state.TickContext, error) {
	if db != nil && db.HasWorldState() {
		st, ctx, err := db.LoadWorldState()
		if err != nil {
			return nil, ctx, fmt.Errorf("load world state: %w", err)
		}
		slog.Info("world state restored",
			"tick", ctx.Tick,
			"date", engine.SimDate(ctx.Tick),
			"companies", len(st.Companies),
			"facilities", len(st.Facilities),
		)
		return st, ctx, nil
	}

	st, player, err := scenario.Load(cfg.Paths.Scenario, cat)
	if err != nil {
		return nil, state.TickContext{}, err
	}
	if cfg.Sim.PlayerCompanyID != 0 {
		player = cfg.Sim.PlayerCompanyID
	}
	slog.Info("scenario loaded",
		"path", cfg.Paths.Scenario,
		"companies", len(st.Companies),
		"cities", len(st.Cities),
		"facilities", len(st.Facilities),
		"player", player,
	)
	return st, state.TickContext{PlayerCompanyID: player}, nil
}

// newSimulation wires the store to an entropy source and resumes at ctx.Tick.
func newSimulation(cfg config.Config, cat catalog.Lookup, st *state.Store, ctx state.TickContext) *engine.Simulation {
	var rng entropy.Source = entropy.NewSeeded(cfg.Sim.Seed)
	if client := entropy.NewClient(cfg.Entropy.RandomOrgKey); client != nil {
		slog.Info("random.org entropy enabled")
		rng = client
	}
	sim := engine.NewSimulation(st, cat, rng, ctx.PlayerCompanyID)
	sim.Update(func(_ *state.Store, c *state.TickContext) {
		c.Tick = ctx.Tick
	})
	return sim
}

// newDrift returns the labor-market drift, or nil when disabled.
func newDrift(cfg config.Config) *labor.Drift {
	if !cfg.Labor.Enabled {
		return nil
	}
	return labor.NewDrift(cfg.Sim.Seed, cfg.Labor.Amplitude, cfg.Labor.Frequency)
}

// applyDrift moves city labor markets for the month ending at tick.
func applyDrift(sim *engine.Simulation, drift *labor.Drift, tick uint64) {
	if drift == nil {
		return
	}
	sim.Update(func(st *state.Store, _ *state.TickContext) {
		n := drift.Apply(st, tick/engine.TicksPerMonth)
		slog.Debug("labor markets drifted", "tick", tick, "cities", n)
	})
}

// resumeRun continues event numbering after the last event saved to db and,
// for a restored world, puts drift back on its original labor baseline.
func resumeRun(sim *engine.Simulation, drift *labor.Drift, db *persistence.DB, restored bool) error {
	seq, err := db.EventSeq()
	if err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	sim.ResumeEvents(seq)

	if drift == nil || !restored {
		return nil
	}
	baseline, err := db.LoadLaborBaseline()
	if err != nil {
		return fmt.Errorf("load labor baseline: %w", err)
	}
	if baseline != nil {
		drift.RestoreBaseline(baseline)
		slog.Info("labor baseline restored", "cities", len(baseline))
	}
	return nil
}

// saveRun writes the world, the events raised since the last save and the
// drift baseline.
func saveRun(db *persistence.DB, sim *engine.Simulation, drift *labor.Drift) error {
	if err := db.SaveSimulation(sim); err != nil {
		return err
	}
	if drift == nil {
		return nil
	}
	var baseline map[state.EntityID]state.CityEconomy
	sim.View(func(*state.Store, state.TickContext) {
		baseline = drift.Baseline()
	})
	if err := db.SaveLaborBaseline(baseline); err != nil {
		return fmt.Errorf("save labor baseline: %w", err)
	}
	return nil
}
