// Package catalog provides the read-only game-data lookup: building, product
// and recipe definitions keyed by integer id.
package catalog

// BuildingID identifies a building definition.
type BuildingID int

// ProductID identifies a product definition. 0 means "no product".
type ProductID int

// RecipeID identifies a recipe definition. 0 means "no recipe".
type RecipeID int

// ProductionTechnology is the internal product id whose technology level
// discounts facility upkeep. Companies may research it like any product.
const ProductionTechnology ProductID = 999

// BuildingKind classifies what a building does each tick.
type BuildingKind string

const (
	KindExtraction    BuildingKind = "extraction"    // Raw-material producer, no inputs
	KindManufacturing BuildingKind = "manufacturing" // Consumes a recipe
	KindRetail        BuildingKind = "retail"
	KindResearch      BuildingKind = "research"
	KindOffice        BuildingKind = "office"
	KindWarehouse     BuildingKind = "warehouse"
)

// BuildingDef describes a constructible building type.
type BuildingDef struct {
	ID               BuildingID   `json:"id"`
	Name             string       `json:"name"`
	Kind             BuildingKind `json:"kind"`
	BaseCost         int64        `json:"base_cost"`         // Minor currency units
	PowerConsumption int64        `json:"power_consumption"` // Doubles as base monthly upkeep
	Produces         ProductID    `json:"produces,omitempty"`
	MaxLevel         int          `json:"max_level,omitempty"`
}

// ProductDef describes a tradeable product.
type ProductDef struct {
	ID       ProductID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

// Ingredient is one recipe input: product and quantity per output batch.
type Ingredient struct {
	ProductID ProductID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// RecipeDef turns up to three ingredients into one output product.
type RecipeDef struct {
	ID             RecipeID     `json:"id"`
	Name           string       `json:"name"`
	Inputs         []Ingredient `json:"inputs"`
	OutputProduct  ProductID    `json:"output_product"`
	OutputQuantity int          `json:"output_quantity"`
}

// Lookup is the read-only view the simulation engines consume.
// A missing definition is reported as ok == false, never as an error.
type Lookup interface {
	Building(id BuildingID) (BuildingDef, bool)
	Product(id ProductID) (ProductDef, bool)
	Recipe(id RecipeID) (RecipeDef, bool)
}

// Catalog is the in-memory Lookup implementation.
type Catalog struct {
	buildings map[BuildingID]BuildingDef
	products  map[ProductID]ProductDef
	recipes   map[RecipeID]RecipeDef
}

// New builds a catalog from already-parsed definitions. Later duplicates are ignored.
func New(buildings []BuildingDef, products []ProductDef, recipes []RecipeDef) *Catalog {
	c := &Catalog{
		buildings: make(map[BuildingID]BuildingDef, len(buildings)),
		products:  make(map[ProductID]ProductDef, len(products)),
		recipes:   make(map[RecipeID]RecipeDef, len(recipes)),
	}
	for _, b := range buildings {
		if _, dup := c.buildings[b.ID]; !dup {
			c.buildings[b.ID] = b
		}
	}
	for _, p := range products {
		if _, dup := c.products[p.ID]; !dup {
			c.products[p.ID] = p
		}
	}
	for _, r := range recipes {
		if _, dup := c.recipes[r.ID]; !dup {
			c.recipes[r.ID] = r
		}
	}
	return c
}

func (c *Catalog) Building(id BuildingID) (BuildingDef, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

func (c *Catalog) Product(id ProductID) (ProductDef, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Recipe(id RecipeID) (RecipeDef, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// Counts returns the number of buildings, products and recipes.
func (c *Catalog) Counts() (buildings, products, recipes int) {
	return len(c.buildings), len(c.products), len(c.recipes)
}
