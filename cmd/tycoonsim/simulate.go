package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talgya/tycoon-sim/internal/config"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/persistence"
	"github.com/talgya/tycoon-sim/internal/state"
)

func newSimulateCmd() *cobra.Command {
	var (
		ticks  int
		resume bool
		save   bool
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Advance the economy offline as fast as possible and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks < 0 {
				return fmt.Errorf("--ticks must not be negative")
			}
			return runSimulate(ticks, resume, save, quiet)
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "t", engine.TicksPerYear, "Sim-days to advance")
	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "Start from the saved database instead of the scenario")
	cmd.Flags().BoolVarP(&save, "save", "s", false, "Persist the final state to the database")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary line")
	return cmd
}

func runSimulate(ticks int, resume, save, quiet bool) error {
	titleColor := color.New(color.FgCyan, color.Bold)
	successColor := color.New(color.FgGreen, color.Bold)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cat, _, err := loadCatalog(cfg.Paths.Catalog)
	if err != nil {
		return err
	}

	var db *persistence.DB
	if resume || save {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.DB), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(cfg.Paths.DB)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	source := db
	if !resume {
		source = nil
	}
	st, ctx, err := openWorld(cfg, cat, source)
	if err != nil {
		return err
	}
	sim := newSimulation(cfg, cat, st, ctx)
	drift := newDrift(cfg)
	if db != nil {
		if err := resumeRun(sim, drift, db, resume && source.HasWorldState()); err != nil {
			return err
		}
	}

	eng := engine.NewEngine()
	eng.Tick = ctx.Tick
	eng.OnTick = sim.TickDay
	eng.OnMonth = func(tick uint64) {
		sim.TickMonth(tick)
		applyDrift(sim, drift, tick)
	}
	eng.OnYear = sim.TickYear

	if !quiet {
		titleColor.Printf("\nSimulating %d days from %s\n\n", ticks, engine.SimDate(ctx.Tick))
	}
	eng.RunTicks(ticks)

	if save {
		if err := saveRun(db, sim, drift); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	sim.View(func(st *state.Store, ctx state.TickContext) {
		if !quiet {
			printCompanies(st, ctx)
			printFacilities(st, cat)
			printTechnology(st, cat)
		}
		successColor.Printf("✓ %s reached: %d breakthroughs, %d events\n",
			engine.SimDate(ctx.Tick), totalBreakthroughs(st), len(sim.Events))
	})
	if save {
		successColor.Printf("✓ Saved to %s\n", cfg.Paths.DB)
	}
	return nil
}

func totalBreakthroughs(st *state.Store) int {
	n := 0
	for _, e := range st.Tech.Entries() {
		n += e.Breakthroughs
	}
	return n
}
