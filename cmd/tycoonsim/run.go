package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/tycoon-sim/internal/api"
	"github.com/talgya/tycoon-sim/internal/config"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/journal"
	"github.com/talgya/tycoon-sim/internal/persistence"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the economy in real time and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cat, _, err := loadCatalog(cfg.Paths.Catalog)
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DB), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.Paths.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	runID, err := db.RunID()
	if err != nil {
		return err
	}
	slog.Info("database opened", "path", cfg.Paths.DB, "run_id", runID)

	// ── World ─────────────────────────────────────────────────────────
	restored := db.HasWorldState()
	st, ctx, err := openWorld(cfg, cat, db)
	if err != nil {
		return err
	}
	sim := newSimulation(cfg, cat, st, ctx)
	drift := newDrift(cfg)
	if err := resumeRun(sim, drift, db, restored); err != nil {
		return err
	}

	// Save on fresh seeding only (restored worlds are already saved).
	if !restored {
		if err := saveRun(db, sim, drift); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	var jw *journal.Writer
	if cfg.Paths.Journal != "" {
		jw = journal.NewWriter(cfg.Paths.Journal, "events")
		defer func() {
			if err := jw.Close(); err != nil {
				slog.Error("journal close failed", "error", err)
			}
		}()
		sim.Journal = jw
		slog.Info("event journal enabled", "dir", cfg.Paths.Journal)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = ctx.Tick
	eng.SetSpeed(cfg.Sim.Speed)
	eng.Interval = cfg.Sim.TickInterval

	eng.OnTick = sim.TickDay
	eng.OnMonth = func(tick uint64) {
		sim.TickMonth(tick)
		applyDrift(sim, drift, tick)
		if jw != nil {
			if err := jw.Flush(); err != nil {
				slog.Error("journal flush failed", "error", err)
			}
		}
		if autosaveDue(cfg, tick) {
			if err := saveRun(db, sim, drift); err != nil {
				slog.Error("autosave failed", "tick", tick, "error", err)
			}
		}
	}
	eng.OnYear = sim.TickYear

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn(config.EnvAdminKey + " not set, admin POST endpoints disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Catalog:  cat,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nEconomy running: %d companies, %d facilities.\n", len(st.Companies), len(st.Facilities))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if ctx.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", ctx.Tick, engine.SimDate(ctx.Tick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	slog.Info("final save...")
	if err := saveRun(db, sim, drift); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Simulation stopped. World state saved.")
	return nil
}

// autosaveDue reports whether the month ending at tick is an autosave month.
func autosaveDue(cfg config.Config, tick uint64) bool {
	n := uint64(cfg.Sim.AutosaveMonths)
	return n > 0 && (tick/engine.TicksPerMonth)%n == 0
}
