package engine

import (
	"fmt"

	"github.com/talgya/tycoon-sim/internal/state"
)

// AgingUpgradePoints is the innovation needed for one building generation.
const AgingUpgradePoints = 1000

// ProcessAging accumulates one innovation point per tick on every operational
// facility with an aging track and upgrades its generation at 1000 points.
// The track is independent of product research and has no effect on output yet.
func (s *Simulation) ProcessAging(ctx *state.TickContext) {
	st := s.Store
	for _, id := range st.FacilityIDs() {
		a, ok := st.Aging[id]
		if !ok || !st.Facilities[id].Operational {
			continue
		}

		a.InnovationPoints++
		if a.InnovationPoints < AgingUpgradePoints {
			continue
		}
		if a.Level >= a.MaxLevel {
			a.InnovationPoints = AgingUpgradePoints
			continue
		}

		a.Level++
		a.InnovationPoints = 0
		s.EmitEvent(Event{
			Tick:        ctx.Tick,
			Description: fmt.Sprintf("facility %d upgraded to generation %d", id, a.Level),
			Category:    CategoryAging,
			Meta: map[string]any{
				"facility_id": id,
				"level":       a.Level,
			},
		})
	}
}
