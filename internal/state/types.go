// Package state provides the world state store: attribute records keyed by
// entity id, companies, finances, cities and the technology ledger.
package state

import (
	"github.com/talgya/tycoon-sim/internal/catalog"
)

// EntityID is a unique identifier for any entity. 0 means "none".
type EntityID = uint64

// InputSlots is the number of input slots on a facility inventory.
const InputSlots = 3

// DefaultHeadcount is the staff size assumed when none is configured.
const DefaultHeadcount = 10

// Facility is a constructed building instance.
type Facility struct {
	ID          EntityID           `json:"id" yaml:"id"`
	BuildingID  catalog.BuildingID `json:"building_id" yaml:"building_id"`
	Level       int                `json:"level" yaml:"level"` // ≥ 1
	Operational bool               `json:"operational" yaml:"operational"`
	CompanyID   EntityID           `json:"company_id" yaml:"company_id"` // 0 = unowned
	CityID      EntityID           `json:"city_id" yaml:"city_id"`
}

// Production holds derived output figures, recomputed every tick.
type Production struct {
	Capacity     int     `json:"capacity" yaml:"capacity"`
	Utilization  float64 `json:"utilization" yaml:"utilization"` // Percent, externally set
	ActualOutput int     `json:"actual_output" yaml:"actual_output"`
}

// Factory holds the active recipe and the HR-written efficiency score.
type Factory struct {
	RecipeID   catalog.RecipeID `json:"recipe_id" yaml:"recipe_id"`
	Efficiency float64          `json:"efficiency" yaml:"efficiency"` // 0–200, 100 = neutral
}

// Slot is one input stockpile.
type Slot struct {
	ProductID catalog.ProductID `json:"product_id" yaml:"product_id"`
	Quantity  int               `json:"quantity" yaml:"quantity"`
	Quality   int               `json:"quality" yaml:"quality"` // 0–100
}

// OutputSlot is the finished-goods stockpile.
type OutputSlot struct {
	ProductID catalog.ProductID `json:"product_id" yaml:"product_id"`
	Amount    int               `json:"amount" yaml:"amount"`
	Capacity  int               `json:"capacity" yaml:"capacity"`
	Quality   int               `json:"quality" yaml:"quality"` // 0–100
}

// Inventory holds up to three input slots and one output slot.
type Inventory struct {
	Inputs [InputSlots]Slot `json:"inputs" yaml:"inputs"`
	Output OutputSlot       `json:"output" yaml:"output"`
}

// FindInput returns the index of the slot holding product, or -1.
func (inv *Inventory) FindInput(product catalog.ProductID) int {
	for i := range inv.Inputs {
		if inv.Inputs[i].ProductID == product && product != 0 {
			return i
		}
	}
	return -1
}

// Maintenance holds the derived monthly upkeep.
type Maintenance struct {
	MonthlyUpkeep int64 `json:"monthly_upkeep" yaml:"monthly_upkeep"`
}

// Staff holds human-resources attributes. Morale and TrainingLevel trend
// toward their targets rather than jumping.
type Staff struct {
	Headcount      int     `json:"headcount" yaml:"headcount"`
	Salary         int64   `json:"salary" yaml:"salary"` // Per head, monthly
	TrainingBudget int64   `json:"training_budget" yaml:"training_budget"`
	Morale         float64 `json:"morale" yaml:"morale"`                 // 0–100
	TrainingLevel  int     `json:"training_level" yaml:"training_level"` // 0–100
}

// Research holds one facility's progress track toward a breakthrough.
type Research struct {
	ProductID        catalog.ProductID `json:"product_id" yaml:"product_id"` // 0 = idle
	Efficiency       float64           `json:"efficiency" yaml:"efficiency"`
	InnovationPoints float64           `json:"innovation_points" yaml:"innovation_points"`
	Progress         int               `json:"progress" yaml:"progress"` // 0–100
}

// Marketing is a capability record carrying an HR-written efficiency.
type Marketing struct {
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`
}

// Retail holds per-category retail expertise. All categories currently
// receive the same HR effectiveness score.
type Retail struct {
	Apparel     float64 `json:"apparel" yaml:"apparel"`
	Electronics float64 `json:"electronics" yaml:"electronics"`
	Food        float64 `json:"food" yaml:"food"`
	Luxury      float64 `json:"luxury" yaml:"luxury"`
}

// Aging tracks the generation level of the physical building.
type Aging struct {
	Level            int `json:"level" yaml:"level"`
	MaxLevel         int `json:"max_level" yaml:"max_level"`
	InnovationPoints int `json:"innovation_points" yaml:"innovation_points"`
}

// Company is a business entity owning facilities.
type Company struct {
	ID              EntityID `json:"id" yaml:"id" db:"id"`
	Name            string   `json:"name" yaml:"name" db:"name"`
	Reputation      int      `json:"reputation" yaml:"reputation" db:"reputation"` // 0–100
	MonthlyExpenses int64    `json:"monthly_expenses" yaml:"monthly_expenses" db:"monthly_expenses"`
}

// Finances is a company's cash position in minor currency units.
type Finances struct {
	CompanyID EntityID `json:"company_id" yaml:"company_id" db:"company_id"`
	Cash      int64    `json:"cash" yaml:"cash" db:"cash"`
}

// CityEconomy is read-only input from the city simulation.
type CityEconomy struct {
	RealWage     int64   `json:"real_wage" yaml:"real_wage"`
	Unemployment float64 `json:"unemployment" yaml:"unemployment"` // Percent
	Population   int64   `json:"population" yaml:"population"`
}

// City is a location facilities are built in.
type City struct {
	ID      EntityID     `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Economy *CityEconomy `json:"economy,omitempty" yaml:"economy,omitempty"` // nil = no data
}
