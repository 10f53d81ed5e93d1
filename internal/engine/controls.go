package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
)

// CategoryControl marks events raised by operator controls.
const CategoryControl = "control"

// SetUtilization sets the target utilization percent of a producing facility.
// Values above 100 run the facility past its rated capacity.
func (s *Simulation) SetUtilization(facilityID state.EntityID, percent float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if percent < 0 {
		return "", fmt.Errorf("utilization %.1f must not be negative", percent)
	}
	p, ok := s.Store.Production[facilityID]
	if !ok {
		return "", fmt.Errorf("facility %d has no production", facilityID)
	}
	p.Utilization = percent

	desc := fmt.Sprintf("facility %d utilization set to %.0f%%", facilityID, percent)
	s.emitControl(desc, map[string]any{"facility_id": facilityID, "utilization": percent})
	slog.Info("utilization control", "facility", facilityID, "utilization", percent)
	return desc, nil
}

// SetOperational opens or closes a facility.
func (s *Simulation) SetOperational(facilityID state.EntityID, operational bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.Store.Facilities[facilityID]
	if !ok {
		return "", fmt.Errorf("facility %d not found", facilityID)
	}
	f.Operational = operational

	verb := "closed"
	if operational {
		verb = "opened"
	}
	desc := fmt.Sprintf("facility %d %s", facilityID, verb)
	s.emitControl(desc, map[string]any{"facility_id": facilityID, "operational": operational})
	slog.Info("operational control", "facility", facilityID, "operational", operational)
	return desc, nil
}

// AssignResearch points a research facility at a product; 0 idles it.
// Accumulated points are kept only when the product does not change.
func (s *Simulation) AssignResearch(facilityID state.EntityID, product catalog.ProductID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.Store.Research[facilityID]
	if !ok {
		return "", fmt.Errorf("facility %d has no research", facilityID)
	}
	name := "nothing"
	if product != 0 {
		p, ok := s.Catalog.Product(product)
		if !ok {
			return "", fmt.Errorf("unknown product %d", product)
		}
		name = p.Name
	}
	if r.ProductID != product {
		r.ProductID = product
		r.InnovationPoints = 0
		r.Progress = 0
	}

	desc := fmt.Sprintf("facility %d now researching %s", facilityID, name)
	s.emitControl(desc, map[string]any{"facility_id": facilityID, "product_id": product})
	slog.Info("research control", "facility", facilityID, "product", product)
	return desc, nil
}

// AssignRecipe switches the recipe a manufacturing facility runs.
func (s *Simulation) AssignRecipe(facilityID state.EntityID, recipe catalog.RecipeID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fac, ok := s.Store.Factories[facilityID]
	if !ok {
		return "", fmt.Errorf("facility %d has no factory", facilityID)
	}
	def, ok := s.Catalog.Recipe(recipe)
	if !ok {
		return "", fmt.Errorf("unknown recipe %d", recipe)
	}
	fac.RecipeID = recipe

	desc := fmt.Sprintf("facility %d switched to recipe %s", facilityID, def.Name)
	s.emitControl(desc, map[string]any{"facility_id": facilityID, "recipe_id": recipe})
	slog.Info("recipe control", "facility", facilityID, "recipe", recipe)
	return desc, nil
}

// SetPayroll changes salary per head and the monthly training budget.
func (s *Simulation) SetPayroll(facilityID state.EntityID, salary, trainingBudget int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if salary < 0 || trainingBudget < 0 {
		return "", fmt.Errorf("payroll amounts must not be negative")
	}
	staff, ok := s.Store.Staff[facilityID]
	if !ok {
		return "", fmt.Errorf("facility %d has no staff", facilityID)
	}
	staff.Salary = salary
	staff.TrainingBudget = trainingBudget

	desc := fmt.Sprintf("facility %d payroll set to %d per head, %d training", facilityID, salary, trainingBudget)
	s.emitControl(desc, map[string]any{"facility_id": facilityID, "salary": salary, "training_budget": trainingBudget})
	slog.Info("payroll control", "facility", facilityID, "salary", salary, "training_budget", trainingBudget)
	return desc, nil
}

func (s *Simulation) emitControl(desc string, meta map[string]any) {
	s.EmitEvent(Event{
		Tick:        s.Ctx.Tick,
		Description: desc,
		Category:    CategoryControl,
		Meta:        meta,
	})
}
