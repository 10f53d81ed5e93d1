package engine

import (
	"testing"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/entropy"
	"github.com/talgya/tycoon-sim/internal/state"
)

const (
	bMine     catalog.BuildingID = 1
	bFactory  catalog.BuildingID = 2
	bLab      catalog.BuildingID = 3
	bNoCost   catalog.BuildingID = 4
	bShop     catalog.BuildingID = 5
	bUnknown  catalog.BuildingID = 77
	pOre      catalog.ProductID  = 10
	pCoal     catalog.ProductID  = 11
	pSteel    catalog.ProductID  = 20
	pChip     catalog.ProductID  = 30
	rSteel    catalog.RecipeID   = 100
	rMissing  catalog.RecipeID   = 404
	companyA  state.EntityID     = 1
	companyB  state.EntityID     = 2
	cityBig   state.EntityID     = 500
	citySmall state.EntityID     = 501
)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		[]catalog.BuildingDef{
			{ID: bMine, Name: "Iron Mine", Kind: catalog.KindExtraction, BaseCost: 1_000_000, PowerConsumption: 2000, Produces: pOre},
			{ID: bFactory, Name: "Steel Mill", Kind: catalog.KindManufacturing, BaseCost: 2_000_000, PowerConsumption: 4000},
			{ID: bLab, Name: "Lab", Kind: catalog.KindResearch, BaseCost: 3_000_000, PowerConsumption: 3000},
			{ID: bNoCost, Name: "Shed", Kind: catalog.KindWarehouse},
			{ID: bShop, Name: "Shop", Kind: catalog.KindRetail, BaseCost: 500_000, PowerConsumption: 1500},
		},
		[]catalog.ProductDef{
			{ID: pOre, Name: "Iron Ore"},
			{ID: pCoal, Name: "Coal"},
			{ID: pSteel, Name: "Steel"},
			{ID: pChip, Name: "Microchip"},
		},
		[]catalog.RecipeDef{
			{ID: rSteel, Name: "Steel", Inputs: []catalog.Ingredient{{ProductID: pOre, Quantity: 2}, {ProductID: pCoal, Quantity: 3}}, OutputProduct: pSteel, OutputQuantity: 1},
		},
	)
}

// newTestSim builds a two-company world with two cities and no facilities.
func newTestSim(t *testing.T, draws ...float64) *Simulation {
	t.Helper()
	st := state.NewStore()
	st.PutCompany(state.Company{ID: companyA, Name: "Acme", Reputation: 50})
	st.PutCompany(state.Company{ID: companyB, Name: "Globex", Reputation: 50})
	st.PutFinances(state.Finances{CompanyID: companyA, Cash: 10_000_000})
	st.PutFinances(state.Finances{CompanyID: companyB, Cash: 10_000_000})
	st.PutCity(state.City{ID: cityBig, Name: "Metropolis", Economy: &state.CityEconomy{RealWage: 400000, Unemployment: 5, Population: 2_000_000}})
	st.PutCity(state.City{ID: citySmall, Name: "Smallville"})
	return NewSimulation(st, testCatalog(), entropy.NewSequence(draws...), companyA)
}

func ptr[T any](v T) *T { return &v }
