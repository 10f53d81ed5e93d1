package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tycoon-sim/internal/state"
)

// Event categories.
const (
	CategoryResearch = "research"
	CategoryAging    = "aging"
	CategoryBilling  = "billing"
)

// EmitEvent records an event and forwards it to the journal when one is set.
func (s *Simulation) EmitEvent(e Event) {
	s.EventSeq++
	e.Seq = s.EventSeq
	s.Events = append(s.Events, e)
	if s.Journal != nil {
		if err := s.Journal.Write(e.Tick, e); err != nil {
			slog.Warn("journal write failed", "tick", e.Tick, "error", err)
		}
	}
}

// ResumeEvents continues event numbering after seq, the last sequence
// number already stored elsewhere. It never moves the counter backwards.
func (s *Simulation) ResumeEvents(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EventSeq = max(s.EventSeq, seq)
}

// CompanyStats is one row of the monthly report.
type CompanyStats struct {
	ID              state.EntityID `json:"id"`
	Name            string         `json:"name"`
	Cash            int64          `json:"cash"`
	Reputation      int            `json:"reputation"`
	MonthlyExpenses int64          `json:"monthly_expenses"`
	Facilities      int            `json:"facilities"`
	Output          int            `json:"output"`
	Upkeep          int64          `json:"upkeep"`
}

// SimStats tracks aggregate economy statistics.
type SimStats struct {
	Tick          uint64         `json:"tick"`
	Date          string         `json:"date"`
	Facilities    int            `json:"facilities"`
	Operational   int            `json:"operational"`
	TotalOutput   int            `json:"total_output"`
	TotalUpkeep   int64          `json:"total_upkeep"`
	Breakthroughs int            `json:"breakthroughs"`
	PlayerCash    int64          `json:"player_cash"`
	Companies     []CompanyStats `json:"companies"`
}

func (st SimStats) clone() SimStats {
	st.Companies = append([]CompanyStats(nil), st.Companies...)
	return st
}

func (s *Simulation) updateStats() {
	st := s.Store
	byCompany := make(map[state.EntityID]*CompanyStats, len(st.Companies))
	rows := make([]CompanyStats, 0, len(st.Companies))
	for _, id := range st.CompanyIDs() {
		c := st.Companies[id]
		cash, _ := st.Cash(id)
		rows = append(rows, CompanyStats{
			ID:              id,
			Name:            c.Name,
			Cash:            cash,
			Reputation:      c.Reputation,
			MonthlyExpenses: c.MonthlyExpenses,
		})
	}
	for i := range rows {
		byCompany[rows[i].ID] = &rows[i]
	}

	stats := SimStats{
		Tick:       s.Ctx.Tick,
		Date:       SimDate(s.Ctx.Tick),
		PlayerCash: s.Ctx.PlayerCash,
	}
	for _, id := range st.FacilityIDs() {
		f := st.Facilities[id]
		stats.Facilities++
		if f.Operational {
			stats.Operational++
		}
		output := 0
		if p, ok := st.Production[id]; ok {
			output = p.ActualOutput
		}
		var upkeep int64
		if m, ok := st.Maintenance[id]; ok {
			upkeep = m.MonthlyUpkeep
		}
		stats.TotalOutput += output
		stats.TotalUpkeep += upkeep
		if row, ok := byCompany[f.CompanyID]; ok {
			row.Facilities++
			row.Output += output
			row.Upkeep += upkeep
		}
	}
	for _, e := range st.Tech.Entries() {
		stats.Breakthroughs += e.Breakthroughs
	}
	stats.Companies = rows
	s.Stats = stats
}

// emitBilling records one billing event per charged company, in id order.
func (s *Simulation) emitBilling(tick uint64, kind string, billed map[state.EntityID]int64) {
	if len(billed) == 0 {
		return
	}
	ids := make([]state.EntityID, 0, len(billed))
	for id := range billed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		name := fmt.Sprintf("company %d", id)
		if c, ok := s.Store.Companies[id]; ok && c.Name != "" {
			name = c.Name
		}
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("%s charged %s %s", name, humanize.Comma(billed[id]), kind),
			Category:    CategoryBilling,
			Meta: map[string]any{
				"company_id": id,
				"kind":       kind,
				"amount":     billed[id],
			},
		})
	}
}
