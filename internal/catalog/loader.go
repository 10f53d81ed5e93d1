package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ParseResult is the structured outcome of parsing one definition file.
// Invalid records are dropped and described in Errors; parsing never panics.
type ParseResult[T any] struct {
	OK      bool     `json:"ok"`
	Records []T      `json:"records"`
	Errors  []string `json:"errors,omitempty"`
}

// Report aggregates the parse results of a catalog directory.
type Report struct {
	Buildings ParseResult[BuildingDef]
	Products  ParseResult[ProductDef]
	Recipes   ParseResult[RecipeDef]
}

// OK reports whether every file parsed without record errors.
func (r Report) OK() bool {
	return r.Buildings.OK && r.Products.OK && r.Recipes.OK
}

// Errors returns all record errors prefixed with their file name.
func (r Report) Errors() []string {
	var out []string
	for _, e := range r.Buildings.Errors {
		out = append(out, "buildings.json: "+e)
	}
	for _, e := range r.Products.Errors {
		out = append(out, "products.json: "+e)
	}
	for _, e := range r.Recipes.Errors {
		out = append(out, "recipes.json: "+e)
	}
	return out
}

const buildingSchema = `{
  "type": "object",
  "required": ["id", "name", "kind"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "name": {"type": "string", "minLength": 1},
    "kind": {"enum": ["extraction", "manufacturing", "retail", "research", "office", "warehouse"]},
    "base_cost": {"type": "integer", "minimum": 0},
    "power_consumption": {"type": "integer", "minimum": 0},
    "produces": {"type": "integer", "minimum": 0},
    "max_level": {"type": "integer", "minimum": 1}
  }
}`

const productSchema = `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "name": {"type": "string", "minLength": 1},
    "category": {"type": "string"}
  }
}`

const recipeSchema = `{
  "type": "object",
  "required": ["id", "inputs", "output_product"],
  "properties": {
    "id": {"type": "integer", "minimum": 1},
    "name": {"type": "string"},
    "inputs": {
      "type": "array",
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["product_id", "quantity"],
        "properties": {
          "product_id": {"type": "integer", "minimum": 1},
          "quantity": {"type": "integer", "minimum": 1}
        }
      }
    },
    "output_product": {"type": "integer", "minimum": 1},
    "output_quantity": {"type": "integer", "minimum": 0}
  }
}`

var (
	buildingValidator = jsonschema.MustCompileString("buildings.schema.json", buildingSchema)
	productValidator  = jsonschema.MustCompileString("products.schema.json", productSchema)
	recipeValidator   = jsonschema.MustCompileString("recipes.schema.json", recipeSchema)
)

// Load reads buildings.json, products.json and recipes.json from dir.
// Only I/O failures are returned as errors; bad records end up in the Report.
func Load(dir string) (*Catalog, Report, error) {
	var rep Report

	raw, err := os.ReadFile(filepath.Join(dir, "buildings.json"))
	if err != nil {
		return nil, rep, fmt.Errorf("read buildings: %w", err)
	}
	rep.Buildings = ParseBuildings(raw)

	raw, err = os.ReadFile(filepath.Join(dir, "products.json"))
	if err != nil {
		return nil, rep, fmt.Errorf("read products: %w", err)
	}
	rep.Products = ParseProducts(raw)

	raw, err = os.ReadFile(filepath.Join(dir, "recipes.json"))
	if err != nil {
		return nil, rep, fmt.Errorf("read recipes: %w", err)
	}
	rep.Recipes = ParseRecipes(raw)

	c := New(rep.Buildings.Records, rep.Products.Records, rep.Recipes.Records)
	return c, rep, nil
}

// ParseBuildings decodes a JSON array of building definitions.
func ParseBuildings(raw []byte) ParseResult[BuildingDef] {
	return parseRecords(raw, buildingValidator, func(b BuildingDef) int { return int(b.ID) }, nil)
}

// ParseProducts decodes a JSON array of product definitions.
func ParseProducts(raw []byte) ParseResult[ProductDef] {
	return parseRecords(raw, productValidator, func(p ProductDef) int { return int(p.ID) }, nil)
}

// ParseRecipes decodes a JSON array of recipe definitions. A recipe may name
// each input product once, since ingredients map onto inventory slots by product.
func ParseRecipes(raw []byte) ParseResult[RecipeDef] {
	res := parseRecords(raw, recipeValidator, func(r RecipeDef) int { return int(r.ID) }, checkRecipeInputs)
	for i := range res.Records {
		if res.Records[i].OutputQuantity <= 0 {
			res.Records[i].OutputQuantity = 1
		}
	}
	return res
}

func checkRecipeInputs(r RecipeDef) error {
	seen := make(map[ProductID]bool, len(r.Inputs))
	for _, in := range r.Inputs {
		if seen[in.ProductID] {
			return fmt.Errorf("duplicate input product %d", in.ProductID)
		}
		seen[in.ProductID] = true
	}
	return nil
}

func parseRecords[T any](raw []byte, schema *jsonschema.Schema, idOf func(T) int, check func(T) error) ParseResult[T] {
	var res ParseResult[T]

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("not a JSON array: %v", err))
		return res
	}

	seen := make(map[int]bool, len(items))
	for i, item := range items {
		var generic any
		if err := json.Unmarshal(item, &generic); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if err := schema.Validate(generic); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		var rec T
		if err := json.Unmarshal(item, &rec); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if check != nil {
			if err := check(rec); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("record %d: %v", i, err))
				continue
			}
		}
		id := idOf(rec)
		if seen[id] {
			res.Errors = append(res.Errors, fmt.Sprintf("record %d: duplicate id %d", i, id))
			continue
		}
		seen[id] = true
		res.Records = append(res.Records, rec)
	}

	res.OK = len(res.Errors) == 0
	return res
}
