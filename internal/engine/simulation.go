// Simulation ties together all economic systems and runs them each tick.
package engine

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/entropy"
	"github.com/talgya/tycoon-sim/internal/state"
)

// EventSink receives every emitted event (e.g. the compressed journal).
type EventSink interface {
	Write(tick uint64, v any) error
}

// Simulation holds the world state and wires the systems together.
type Simulation struct {
	Store   *state.Store
	Catalog catalog.Lookup
	Rand    entropy.Source
	Ctx     state.TickContext

	Events   []Event   // Recent events, trimmed yearly
	EventSeq uint64    // Seq of the last emitted event
	Journal  EventSink // Optional

	// Statistics refreshed every sim-month.
	Stats SimStats

	mu sync.RWMutex

	subMu   sync.Mutex
	subs    map[int]chan SimStats
	nextSub int
}

// Event is a notable occurrence in the economy.
type Event struct {
	Seq         uint64         `json:"seq" db:"seq"` // Emission order, never reused within a world
	Tick        uint64         `json:"tick" db:"tick"`
	Description string         `json:"description" db:"description"`
	Category    string         `json:"category" db:"category"` // "research", "billing", "aging"
	Meta        map[string]any `json:"meta,omitempty" db:"-"`
}

// NewSimulation creates a Simulation over an existing store. The player cash
// mirror is initialised from the player company's finances.
func NewSimulation(store *state.Store, cat catalog.Lookup, rng entropy.Source, playerCompany state.EntityID) *Simulation {
	if rng == nil {
		rng = (*entropy.Client)(nil)
	}
	sim := &Simulation{
		Store:   store,
		Catalog: cat,
		Rand:    rng,
		Ctx:     state.TickContext{PlayerCompanyID: playerCompany},
	}
	sim.Ctx.SyncPlayerCash(store)
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ctx.Tick
}

// TickDay runs every tick in fixed order: HR writes efficiency, research
// writes tech levels, production reads both.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Ctx.Tick = tick
	s.ProcessHR(&s.Ctx)
	s.ProcessResearch(&s.Ctx)
	s.ProcessProduction(&s.Ctx)
	s.ProcessAging(&s.Ctx)
}

// TickMonth runs every sim-month: statistics and the monthly report.
func (s *Simulation) TickMonth(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateStats()
	s.publish(s.Stats)

	slog.Info("monthly report",
		"tick", tick,
		"date", SimDate(tick),
		"companies", len(s.Stats.Companies),
		"facilities", s.Stats.Facilities,
		"output", s.Stats.TotalOutput,
		"upkeep", humanize.Comma(s.Stats.TotalUpkeep),
		"player_cash", humanize.Comma(s.Ctx.PlayerCash),
		"breakthroughs", s.Stats.Breakthroughs,
	)
	for _, c := range s.Stats.Companies {
		slog.Debug("company",
			"id", c.ID,
			"name", c.Name,
			"cash", humanize.Comma(c.Cash),
			"reputation", c.Reputation,
			"expenses", humanize.Comma(c.MonthlyExpenses),
		)
	}
}

// TickYear runs every sim-year: yearly summary and event trimming.
func (s *Simulation) TickYear(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, e := range s.Events {
		counts[e.Category]++
	}
	slog.Info("yearly summary",
		"tick", tick,
		"date", SimDate(tick),
		"events_research", counts[CategoryResearch],
		"events_aging", counts[CategoryAging],
		"events_billing", counts[CategoryBilling],
		"ledger_entries", s.Store.Tech.Len(),
	)

	// Trim old events to prevent unbounded growth (keep last 1000).
	if len(s.Events) > 1000 {
		s.Events = s.Events[len(s.Events)-1000:]
	}
}

// View runs fn with read access to the state. fn must not retain the store.
func (s *Simulation) View(fn func(store *state.Store, ctx state.TickContext)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.Store, s.Ctx)
}

// Update runs fn with write access between ticks. Outside systems such as
// the labor-market drift mutate city data through it.
func (s *Simulation) Update(fn func(store *state.Store, ctx *state.TickContext)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Store, &s.Ctx)
}

// Report returns a copy of the latest statistics.
func (s *Simulation) Report() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats.clone()
}

// Subscribe registers a listener for monthly reports. Slow listeners miss
// reports rather than stalling the tick.
func (s *Simulation) Subscribe() (int, <-chan SimStats) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan SimStats)
	}
	s.nextSub++
	ch := make(chan SimStats, 4)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Simulation) publish(stats SimStats) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- stats.clone():
		default:
			slog.Debug("report subscriber lagging, dropped", "sub_id", id, "tick", stats.Tick)
		}
	}
}

// RecentEvents returns up to limit of the most recent events, newest last.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	return append([]Event(nil), s.Events[start:]...)
}
