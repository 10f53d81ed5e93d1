package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

// addLab places a research facility working on pChip+offset, so tests can
// open several distinct projects.
func addLab(sim *Simulation, id, company, city state.EntityID, offset catalog.ProductID, efficiency float64) {
	sim.Store.PutFacility(state.FacilityRecord{
		Facility: state.Facility{ID: id, BuildingID: bLab, Level: 1, Operational: true, CompanyID: company, CityID: city},
		Research: &state.Research{ProductID: pChip + offset, Efficiency: efficiency},
	})
}

func countResearchEvents(sim *Simulation) int {
	n := 0
	for _, e := range sim.Events {
		if e.Category == CategoryResearch {
			n++
		}
	}
	return n
}

func TestProcessResearch_OpensLedgerLazily(t *testing.T) {
	sim := newTestSim(t)
	addLab(sim, 1, companyA, citySmall, 0, 100)
	require.Equal(t, 0, sim.Store.Tech.Len())

	assert.Equal(t, tech.StartingLevel, sim.Store.Tech.Lookup(companyA, pChip))
	assert.Equal(t, 0, sim.Store.Tech.Len(), "lookup must not create entries")

	sim.ProcessResearch(&state.TickContext{Tick: 1})
	e, ok := sim.Store.Tech.Get(companyA, pChip)
	require.True(t, ok)
	assert.Equal(t, tech.StartingLevel, e.TechLevel)
	assert.Equal(t, 1, sim.Store.Tech.Len())
}

func TestProcessResearch_IdleFacilityDoesNothing(t *testing.T) {
	sim := newTestSim(t)
	sim.Store.PutFacility(state.FacilityRecord{
		Facility: state.Facility{ID: 1, BuildingID: bLab, Level: 1, Operational: true, CompanyID: companyA},
		Research: &state.Research{Efficiency: 100},
	})
	sim.ProcessResearch(&state.TickContext{Tick: 30})
	assert.Equal(t, 0, sim.Store.Tech.Len())
	assert.Equal(t, 0.0, sim.Store.Research[1].InnovationPoints)
	assert.Equal(t, int64(10_000_000), sim.Ctx.PlayerCash)
}

func TestProcessResearch_OneBreakthroughPerThresholdCrossing(t *testing.T) {
	sim := newTestSim(t)
	sim.Store.Tech.Restore(tech.Entry{CompanyID: companyA, ProductID: pChip, TechLevel: 0})
	addLab(sim, 1, companyA, citySmall, 0, 100) // speed 13/tick, threshold 800

	for tick := uint64(1); tick <= 61; tick++ {
		sim.ProcessResearch(&state.TickContext{Tick: tick})
	}
	assert.Equal(t, 0, countResearchEvents(sim))
	assert.InDelta(t, 793.0, sim.Store.Research[1].InnovationPoints, 1e-9)
	assert.Equal(t, 99, sim.Store.Research[1].Progress)

	sim.ProcessResearch(&state.TickContext{Tick: 62})
	assert.Equal(t, 1, countResearchEvents(sim))
	assert.Equal(t, 0.0, sim.Store.Research[1].InnovationPoints)
	assert.Equal(t, 0, sim.Store.Research[1].Progress)
	e, _ := sim.Store.Tech.Get(companyA, pChip)
	assert.Equal(t, 10, e.TechLevel)
	assert.Equal(t, 1, e.Breakthroughs)
	assert.Equal(t, uint64(62), e.LastBreakthroughTick)

	for tick := uint64(63); tick <= 124; tick++ {
		sim.ProcessResearch(&state.TickContext{Tick: tick})
	}
	assert.Equal(t, 2, countResearchEvents(sim))
	e, _ = sim.Store.Tech.Get(companyA, pChip)
	assert.Equal(t, 20, e.TechLevel)
}

func TestProcessResearch_NeverDoubleFires(t *testing.T) {
	sim := newTestSim(t)
	sim.Store.Tech.Restore(tech.Entry{CompanyID: companyA, ProductID: pChip, TechLevel: 0})
	addLab(sim, 1, companyA, citySmall, 0, 20000) // speed 2003 ≥ 2 × 800

	for tick := uint64(1); tick <= 3; tick++ {
		sim.ProcessResearch(&state.TickContext{Tick: tick})
		assert.Equal(t, int(tick), countResearchEvents(sim))
		assert.Equal(t, 0.0, sim.Store.Research[1].InnovationPoints)
	}
	e, _ := sim.Store.Tech.Get(companyA, pChip)
	assert.Equal(t, 30, e.TechLevel)
}

func TestProcessResearch_BreakthroughGainByTier(t *testing.T) {
	cases := []struct {
		level, want int
	}{
		{0, 10}, {45, 55}, {75, 85}, {95, 103}, {130, 135}, {400, 405},
	}
	for _, tc := range cases {
		sim := newTestSim(t)
		sim.Store.Tech.Restore(tech.Entry{CompanyID: companyA, ProductID: pChip, TechLevel: tc.level})
		addLab(sim, 1, companyA, citySmall, 0, 100)
		sim.Store.Research[1].InnovationPoints = 5000
		sim.ProcessResearch(&state.TickContext{Tick: 1})
		e, _ := sim.Store.Tech.Get(companyA, pChip)
		assert.Equal(t, tc.want, e.TechLevel, "from level %d", tc.level)
	}
}

func TestProcessResearch_ReputationGainCapped(t *testing.T) {
	cases := []struct {
		before, after int
	}{
		{50, 52}, {94, 96}, {95, 95}, {99, 99},
	}
	for _, tc := range cases {
		sim := newTestSim(t)
		sim.Store.Companies[companyA].Reputation = tc.before
		addLab(sim, 1, companyA, citySmall, 0, 100)
		sim.Store.Research[1].InnovationPoints = 5000
		sim.ProcessResearch(&state.TickContext{Tick: 1})
		assert.Equal(t, tc.after, sim.Store.Companies[companyA].Reputation, "from %d", tc.before)
	}
}

func TestProcessResearch_MonthlyCost(t *testing.T) {
	sim := newTestSim(t)
	addLab(sim, 1, companyA, citySmall, 0, 100) // level 40 ⇒ tier 1 ⇒ 800000/month

	sim.ProcessResearch(&state.TickContext{Tick: 29})
	assert.Equal(t, int64(10_000_000), sim.Store.Finances[companyA].Cash)

	ctx := sim.Ctx
	ctx.Tick = 30
	sim.ProcessResearch(&ctx)
	assert.Equal(t, int64(10_000_000-26666), sim.Store.Finances[companyA].Cash)
	assert.Equal(t, int64(10_000_000-26666), ctx.PlayerCash)
	assert.Equal(t, int64(26666), sim.Store.Companies[companyA].MonthlyExpenses)
}

func TestResearchSpeed_DiminishingReturns(t *testing.T) {
	low := ResearchSpeed(100, 1, 1, 80)
	high := ResearchSpeed(100, 1, 1, 160)
	assert.Greater(t, low, high)
	assert.InDelta(t, 13/math.Sqrt(2), low, 1e-9)
	assert.InDelta(t, 6.5, high, 1e-9)

	// Floor at 30% speed.
	assert.InDelta(t, 13*0.3, ResearchSpeed(100, 1, 1, 4000), 1e-9)
	// No penalty at or below the starting level.
	assert.InDelta(t, 13.0, ResearchSpeed(100, 1, 1, 10), 1e-9)
}

func TestProcessResearch_HigherTechAccumulatesSlower(t *testing.T) {
	sim := newTestSim(t)
	sim.Store.Tech.Restore(tech.Entry{CompanyID: companyA, ProductID: pChip, TechLevel: 60})
	sim.Store.Tech.Restore(tech.Entry{CompanyID: companyB, ProductID: pChip, TechLevel: 70})
	addLab(sim, 1, companyA, citySmall, 0, 80)
	addLab(sim, 2, companyB, citySmall, 0, 80)

	for tick := uint64(1); tick <= 5; tick++ {
		sim.ProcessResearch(&state.TickContext{Tick: tick})
	}
	assert.Greater(t, sim.Store.Research[1].InnovationPoints, sim.Store.Research[2].InnovationPoints)
}

func TestProcessResearch_SpilloverAndTalent(t *testing.T) {
	sim := newTestSim(t)
	addLab(sim, 1, companyA, cityBig, 0, 100)
	addLab(sim, 2, companyA, citySmall, 1, 100)
	addLab(sim, 3, companyA, citySmall, 2, 100)
	addLab(sim, 4, companyA, citySmall, 2, 100) // Same product, not a new project

	assert.Equal(t, 3, sim.activeProjects()[companyA])
	sim.ProcessResearch(&state.TickContext{Tick: 1})

	// 13 × talent 1.4 (2M pop, 5% unemployment) × spillover 1.1
	assert.InDelta(t, 13*1.4*1.1, sim.Store.Research[1].InnovationPoints, 1e-9)
	assert.InDelta(t, 13*1.0*1.1, sim.Store.Research[2].InnovationPoints, 1e-9)
}

func TestSpilloverMultiplierCapped(t *testing.T) {
	assert.Equal(t, 1.0, spilloverMultiplier(0))
	assert.Equal(t, 1.0, spilloverMultiplier(1))
	assert.InDelta(t, 1.2, spilloverMultiplier(5), 1e-9)
	assert.InDelta(t, 1.25, spilloverMultiplier(20), 1e-9)
}

func TestTalentMultiplier(t *testing.T) {
	sim := newTestSim(t)
	assert.InDelta(t, 1.4, talentMultiplier(sim.Store, cityBig), 1e-9)
	assert.Equal(t, 1.0, talentMultiplier(sim.Store, citySmall))
	assert.Equal(t, 1.0, talentMultiplier(sim.Store, 12345))

	sim.Store.PutCity(state.City{ID: 600, Economy: &state.CityEconomy{Population: 10_000_000, Unemployment: 1}})
	assert.Equal(t, 1.5, talentMultiplier(sim.Store, 600))
	sim.Store.PutCity(state.City{ID: 601, Economy: &state.CityEconomy{Population: 100_000, Unemployment: 3}})
	assert.InDelta(t, 0.73, talentMultiplier(sim.Store, 601), 1e-9)
}
