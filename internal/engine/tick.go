// Package engine provides the tick-based simulation loop and the per-tick
// economic systems: human resources, research, production and building aging.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// TickSchedule defines when each layer runs relative to the tick counter.
// One tick is one simulated day.
const (
	TicksPerMonth   = 30
	TicksPerQuarter = 90  // 3 months
	TicksPerYear    = 360 // 12 months
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Base tick interval (default 1 second)

	// Speed and run state are read by the loop and written by the API.
	speed   atomic.Uint64 // math.Float64bits of the multiplier: 1.0 = real-time, 0 = paused
	running atomic.Bool

	// Callbacks for each tick layer, populated during setup.
	OnTick    func(tick uint64) // Every tick (sim-day)
	OnMonth   func(tick uint64) // Every 30 ticks
	OnQuarter func(tick uint64) // Every 90 ticks
	OnYear    func(tick uint64) // Every 360 ticks

	stop chan struct{}
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	e := &Engine{
		Tick:     0,
		Interval: time.Second,
		stop:     make(chan struct{}),
	}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the speed multiplier. Zero pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	e.speed.Store(math.Float64bits(v))
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed())

	for {
		select {
		case <-e.stop:
			e.running.Store(false)
			slog.Info("simulation engine stopped", "tick", e.Tick)
			return
		default:
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
}

// RunTicks advances the simulation n ticks without sleeping.
func (e *Engine) RunTicks(n int) {
	for i := 0; i < n; i++ {
		e.step()
	}
}

// Stop halts the simulation loop. Safe to call more than once.
func (e *Engine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.Tick++

	// Every tick: HR, research, production, aging.
	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	// Every sim-month: reports, autosave, labor-market drift.
	if e.Tick%TicksPerMonth == 0 && e.OnMonth != nil {
		e.OnMonth(e.Tick)
	}

	if e.Tick%TicksPerQuarter == 0 && e.OnQuarter != nil {
		e.OnQuarter(e.Tick)
	}

	if e.Tick%TicksPerYear == 0 && e.OnYear != nil {
		e.OnYear(e.Tick)
	}
}

// SimDate returns a human-readable simulation date from a tick number.
func SimDate(tick uint64) string {
	days := tick % TicksPerMonth
	months := tick / TicksPerMonth
	month := months%12 + 1
	year := months/12 + 1
	return fmt.Sprintf("Year %d Month %d Day %d", year, month, days+1)
}
