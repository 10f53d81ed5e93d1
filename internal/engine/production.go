// Recipe-based production: capacity, input consumption, quality blending
// and upkeep for every facility.
package engine

import (
	"log/slog"
	"math"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

const (
	capacityCostDivisor   = 10000
	fallbackBaseCapacity  = 100
	capacityGrowth        = 1.5 // Per level above 1
	fallbackBaseUpkeep    = 1000
	upkeepPerLevel        = 0.5
	idleUpkeepFactor      = 0.1
	maxTechUpkeepDiscount = 0.20
	neutralEfficiency     = 100
	defaultInputQuality   = 50
)

// techCache memoises ledger lookups for one production pass. It is built
// fresh every tick and dropped at the end of ProcessProduction.
type techCache struct {
	ledger *tech.Ledger
	levels map[tech.Key]int
}

func newTechCache(l *tech.Ledger) *techCache {
	return &techCache{ledger: l, levels: make(map[tech.Key]int)}
}

func (c *techCache) level(companyID state.EntityID, product catalog.ProductID) int {
	k := tech.Key{CompanyID: companyID, ProductID: product}
	if lvl, ok := c.levels[k]; ok {
		return lvl
	}
	lvl := c.ledger.Lookup(companyID, product)
	c.levels[k] = lvl
	return lvl
}

// ProcessProduction computes capacity and output for every facility with
// production attributes and upkeep for every facility with maintenance
// attributes. Facilities whose building type is unknown are skipped entirely.
func (s *Simulation) ProcessProduction(ctx *state.TickContext) {
	st := s.Store
	cache := newTechCache(st.Tech)

	for _, id := range st.FacilityIDs() {
		f := st.Facilities[id]
		def, ok := s.Catalog.Building(f.BuildingID)
		if !ok {
			slog.Debug("unknown building type, skipping", "facility", id, "building", f.BuildingID, "tick", ctx.Tick)
			continue
		}

		if p, ok := st.Production[id]; ok {
			p.Capacity = Capacity(def.BaseCost, f.Level)
			p.ActualOutput = 0
			if f.Operational {
				p.ActualOutput = s.produce(f, def, p, cache)
			}
		}

		if m, ok := st.Maintenance[id]; ok {
			techLevel := cache.level(f.CompanyID, catalog.ProductionTechnology)
			m.MonthlyUpkeep = Upkeep(def.PowerConsumption, f.Level, f.Operational, techLevel)
		}
	}
}

// Capacity is floor(baseCapacity × 1.5^(level−1)), where baseCapacity is
// floor(baseCost/10000), or 100 when the building has no cost.
func Capacity(baseCost int64, level int) int {
	base := int(baseCost / capacityCostDivisor)
	if baseCost <= 0 {
		base = fallbackBaseCapacity
	}
	if level < 1 {
		level = 1
	}
	return int(math.Floor(float64(base) * math.Pow(capacityGrowth, float64(level-1))))
}

// Upkeep is the monthly maintenance cost after level, idle and technology
// adjustments.
func Upkeep(powerConsumption int64, level int, operational bool, techLevel int) int64 {
	base := float64(powerConsumption)
	if powerConsumption <= 0 {
		base = fallbackBaseUpkeep
	}
	multiplier := 1 + float64(level-1)*upkeepPerLevel
	factor := 1.0
	if !operational {
		factor = idleUpkeepFactor
	}
	reduction := math.Min(maxTechUpkeepDiscount, float64(techLevel)/1000)
	return int64(math.Floor(base * multiplier * factor * (1 - reduction)))
}

// potentialOutput applies utilization and the factory efficiency multiplier
// (100 ⇒ 1.0×, 0 ⇒ 0.5×, 200 ⇒ 1.5×) to capacity.
func potentialOutput(capacity int, utilization, efficiency float64) int {
	multiplier := 1 + (efficiency-neutralEfficiency)/200
	out := math.Floor(float64(capacity) * utilization / 100 * multiplier)
	if out < 0 {
		return 0
	}
	return int(out)
}

// produce resolves one operational facility and returns the amount produced.
func (s *Simulation) produce(f *state.Facility, def catalog.BuildingDef, p *state.Production, cache *techCache) int {
	st := s.Store
	fac := st.Factories[f.ID]
	efficiency := float64(neutralEfficiency)
	var recipeID catalog.RecipeID
	if fac != nil {
		efficiency = fac.Efficiency
		recipeID = fac.RecipeID
	}
	potential := potentialOutput(p.Capacity, p.Utilization, efficiency)
	inv := st.Inventories[f.ID]

	var (
		product    catalog.ProductID
		produced   int
		avgQuality = float64(defaultInputQuality)
	)

	switch def.Kind {
	case catalog.KindExtraction:
		product = def.Produces
		if recipe, ok := s.Catalog.Recipe(recipeID); ok {
			product = recipe.OutputProduct
		}
		produced = potential

	case catalog.KindManufacturing:
		recipe, ok := s.Catalog.Recipe(recipeID)
		if !ok {
			return 0
		}
		product = recipe.OutputProduct
		batches, quality, ok := consumeInputs(inv, recipe, potential)
		if !ok {
			return 0
		}
		avgQuality = quality
		produced = batches * max(1, recipe.OutputQuantity)

	default:
		return 0
	}

	if produced <= 0 || product == 0 {
		return 0
	}

	quality := OutputQuality(avgQuality, cache.level(f.CompanyID, product))
	if inv != nil {
		storeOutput(&inv.Output, product, produced, quality)
	}
	return produced
}

// consumeInputs caps batches by the binding ingredient, deducts exactly
// batches × required from each matching slot and returns the quantity-weighted
// mean quality of what was consumed. ok is false when a required ingredient
// is missing. Remainders below one batch stay in their slots.
func consumeInputs(inv *state.Inventory, recipe catalog.RecipeDef, potential int) (batches int, avgQuality float64, ok bool) {
	if len(recipe.Inputs) == 0 {
		return potential, defaultInputQuality, true
	}
	if inv == nil {
		return 0, 0, false
	}

	// Per-batch demand by slot. Ingredients naming the same product share a slot.
	var need [state.InputSlots]int
	for _, in := range recipe.Inputs {
		idx := inv.FindInput(in.ProductID)
		if idx < 0 || in.Quantity <= 0 {
			return 0, 0, false
		}
		need[idx] += in.Quantity
	}

	batches = potential
	for idx, q := range need {
		if q > 0 {
			batches = min(batches, inv.Inputs[idx].Quantity/q)
		}
	}
	if batches <= 0 {
		return 0, defaultInputQuality, true
	}

	var consumed, weighted float64
	for idx, q := range need {
		if q == 0 {
			continue
		}
		slot := &inv.Inputs[idx]
		qty := batches * q
		slot.Quantity -= qty
		consumed += float64(qty)
		weighted += float64(qty) * float64(slot.Quality)
	}
	avgQuality = defaultInputQuality
	if consumed > 0 {
		avgQuality = weighted / consumed
	}
	return batches, avgQuality, true
}

// OutputQuality is clamp(floor(avgInput×0.6 + min(100, tech/10)×0.4), 1, 100).
func OutputQuality(avgInputQuality float64, techLevel int) int {
	normalizedTech := math.Min(100, float64(techLevel)/10)
	q := int(math.Floor(avgInputQuality*0.6 + normalizedTech*0.4))
	return clamp(q, 1, 100)
}

// BlendQuality weights existing stock and a new batch by quantity.
func BlendQuality(oldAmount, oldQuality, newAmount, newQuality int) int {
	if oldAmount <= 0 {
		return newQuality
	}
	if newAmount <= 0 {
		return oldQuality
	}
	return (oldAmount*oldQuality + newAmount*newQuality) / (oldAmount + newAmount)
}

// storeOutput adds up to the remaining capacity; overflow is lost. A slot
// holding a different product with stock accepts nothing.
func storeOutput(out *state.OutputSlot, product catalog.ProductID, amount, quality int) int {
	if out.Amount > 0 && out.ProductID != product {
		return 0
	}
	room := out.Capacity - out.Amount
	stored := min(amount, room)
	if stored <= 0 {
		return 0
	}
	out.Quality = BlendQuality(out.Amount, out.Quality, stored, quality)
	out.ProductID = product
	out.Amount += stored
	return stored
}
