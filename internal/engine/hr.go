// Human resources: payroll, morale and training trends, and the
// effectiveness score every co-located capability reads.
package engine

import (
	"math"

	"github.com/talgya/tycoon-sim/internal/state"
)

const (
	trainingSpendPerLevel = 500 // Monthly spend per head for one training level
	trainingAdvanceDraw   = 0.5 // Advance when a draw exceeds this
	trainingDecayDraw     = 0.8 // Decay when a draw exceeds this
)

// ProcessHR updates every operational facility with staff: monthly payroll,
// morale and training trends, then broadcasts the effectiveness score.
func (s *Simulation) ProcessHR(ctx *state.TickContext) {
	st := s.Store
	wages := marketWages(st)
	billed := make(map[state.EntityID]int64)

	for _, id := range st.FacilityIDs() {
		f := st.Facilities[id]
		staff, ok := st.Staff[id]
		if !ok || !f.Operational {
			continue
		}

		if ctx.IsMonthStart() && f.CompanyID != 0 {
			totalCost := staff.Salary*int64(staff.Headcount) + staff.TrainingBudget
			installment := totalCost / state.TicksPerMonth
			if ctx.Charge(st, f.CompanyID, installment) {
				billed[f.CompanyID] += installment
			}
		}

		staff.Morale = stepToward(staff.Morale, moraleTarget(staff.Salary, wageFor(wages, f.CityID)))
		staff.TrainingLevel = s.trainingStep(staff.TrainingLevel, trainingTarget(staff))

		s.broadcastEffectiveness(id, Effectiveness(staff.Morale, staff.TrainingLevel))
	}

	s.emitBilling(ctx.Tick, "payroll", billed)
}

// moraleTarget maps the salary-to-market ratio onto [0, 100]; paying the
// market wage targets 50.
func moraleTarget(salary, marketWage int64) float64 {
	if marketWage <= 0 {
		marketWage = DefaultMarketWage
	}
	ratio := float64(salary) / float64(marketWage)
	var target float64
	if ratio > 1 {
		target = 50 + (ratio-1)*50
	} else {
		target = 50 * ratio
	}
	return clamp(target, 0, 100)
}

// stepToward moves v by at most 1 toward target without overshooting.
func stepToward(v, target float64) float64 {
	switch {
	case v < target:
		return math.Min(target, v+1)
	case v > target:
		return math.Max(target, v-1)
	}
	return v
}

func trainingTarget(staff *state.Staff) int {
	spendPerHead := 0.0
	if staff.Headcount > 0 {
		spendPerHead = float64(staff.TrainingBudget) / float64(staff.Headcount)
	}
	target := int(math.Floor(spendPerHead / trainingSpendPerLevel))
	return clamp(target, 0, 100)
}

// trainingStep ramps up slowly and decays faster: below target it advances on
// a draw above 0.5, above target it decays on a draw above 0.8.
func (s *Simulation) trainingStep(level, target int) int {
	switch {
	case level < target:
		if s.Rand.Float() > trainingAdvanceDraw {
			level++
		}
	case level > target:
		if s.Rand.Float() > trainingDecayDraw {
			level--
		}
	}
	return level
}

// Effectiveness is floor(morale×0.4 + trainingLevel×0.6).
func Effectiveness(morale float64, trainingLevel int) float64 {
	return math.Floor(morale*0.4 + float64(trainingLevel)*0.6)
}

// broadcastEffectiveness writes the same score to every capability on the
// facility that declares an efficiency field.
func (s *Simulation) broadcastEffectiveness(id state.EntityID, score float64) {
	st := s.Store
	if fac, ok := st.Factories[id]; ok {
		fac.Efficiency = score
	}
	if r, ok := st.Research[id]; ok {
		r.Efficiency = score
	}
	if m, ok := st.Marketing[id]; ok {
		m.Efficiency = score
	}
	if r, ok := st.Retail[id]; ok {
		r.Apparel = score
		r.Electronics = score
		r.Food = score
		r.Luxury = score
	}
}
