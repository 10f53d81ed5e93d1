// Research: advances per-(company, product) technology toward tiered
// breakthroughs and bills R&D monthly.
package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

const (
	reputationGain    = 2
	reputationCeiling = 95 // No gain at or above this
	maxSpillover      = 0.25
	spilloverPerProj  = 0.05
	minResearchFactor = 0.3
)

// ProcessResearch advances every operational facility with an active project.
// Each facility is an independent progress track; all tracks of one company
// share the company's ledger entry for the product.
func (s *Simulation) ProcessResearch(ctx *state.TickContext) {
	st := s.Store
	projects := s.activeProjects()
	billed := make(map[state.EntityID]int64)

	for _, id := range st.FacilityIDs() {
		f := st.Facilities[id]
		r, ok := st.Research[id]
		if !ok || !f.Operational || r.ProductID == 0 || f.CompanyID == 0 {
			continue
		}

		entry, created := st.Tech.FindOrCreate(f.CompanyID, r.ProductID)
		if created {
			slog.Debug("technology ledger opened",
				"company", f.CompanyID,
				"product", r.ProductID,
				"level", entry.TechLevel,
			)
		}
		tier := tech.Tier(entry.TechLevel)

		if ctx.IsMonthStart() {
			cost := tech.MonthlyCost(tier) / state.TicksPerMonth
			if ctx.Charge(st, f.CompanyID, cost) {
				billed[f.CompanyID] += cost
			}
			if c, ok := st.Companies[f.CompanyID]; ok {
				c.MonthlyExpenses += cost
			}
		}

		r.InnovationPoints += ResearchSpeed(r.Efficiency, talentMultiplier(st, f.CityID), projects[f.CompanyID], entry.TechLevel)

		threshold := tech.Threshold(tier)
		if r.InnovationPoints >= threshold {
			r.InnovationPoints = 0
			s.breakthrough(ctx.Tick, f, entry, tier)
		}

		r.Progress = int(math.Floor(r.InnovationPoints / tech.Threshold(tech.Tier(entry.TechLevel)) * 100))
	}

	s.emitBilling(ctx.Tick, "research", billed)
}

// activeProjects counts distinct products under active research per company.
func (s *Simulation) activeProjects() map[state.EntityID]int {
	st := s.Store
	seen := make(map[state.EntityID]map[catalog.ProductID]bool)
	for id, r := range st.Research {
		f, ok := st.Facilities[id]
		if !ok || !f.Operational || r.ProductID == 0 || f.CompanyID == 0 {
			continue
		}
		if seen[f.CompanyID] == nil {
			seen[f.CompanyID] = make(map[catalog.ProductID]bool)
		}
		seen[f.CompanyID][r.ProductID] = true
	}
	counts := make(map[state.EntityID]int, len(seen))
	for company, products := range seen {
		counts[company] = len(products)
	}
	return counts
}

// ResearchSpeed is the innovation points gained per tick:
// base(efficiency) × talent × spillover(projects) × diminishing(techLevel).
func ResearchSpeed(efficiency, talent float64, activeProjects, techLevel int) float64 {
	base := 3 + efficiency/10
	return base * talent * spilloverMultiplier(activeProjects) * diminishingReturns(techLevel)
}

func spilloverMultiplier(activeProjects int) float64 {
	if activeProjects < 1 {
		activeProjects = 1
	}
	return 1 + math.Min(maxSpillover, float64(activeProjects-1)*spilloverPerProj)
}

// diminishingReturns slows research as tech rises, floored at 30% speed.
func diminishingReturns(techLevel int) float64 {
	ratio := math.Max(1, float64(techLevel)/tech.StartingLevel)
	return math.Max(minResearchFactor, 1/math.Sqrt(ratio))
}

func (s *Simulation) breakthrough(tick uint64, f *state.Facility, entry *tech.Entry, tier int) {
	before := entry.TechLevel
	entry.TechLevel += tech.BreakthroughGain(tier)
	entry.Breakthroughs++
	entry.LastBreakthroughTick = tick

	name := fmt.Sprintf("company %d", f.CompanyID)
	if c, ok := s.Store.Companies[f.CompanyID]; ok {
		if c.Reputation < reputationCeiling {
			c.Reputation = min(100, c.Reputation+reputationGain)
		}
		if c.Name != "" {
			name = c.Name
		}
	}

	product := fmt.Sprintf("product %d", entry.ProductID)
	if p, ok := s.Catalog.Product(entry.ProductID); ok {
		product = p.Name
	}

	s.EmitEvent(Event{
		Tick:        tick,
		Description: fmt.Sprintf("%s achieved a breakthrough in %s (tech %d → %d)", name, product, before, entry.TechLevel),
		Category:    CategoryResearch,
		Meta: map[string]any{
			"company_id":  f.CompanyID,
			"product_id":  entry.ProductID,
			"facility_id": f.ID,
			"tier":        tier,
			"tech_level":  entry.TechLevel,
		},
	})
}
