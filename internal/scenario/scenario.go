// Package scenario seeds a world state store from a YAML description of
// companies, cities, facilities and starting technology.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

// Defaults applied to facilities that leave fields unset.
const (
	DefaultLevel          = 1
	DefaultOutputCapacity = 1000
	DefaultMaxGeneration  = 5
)

// Scenario is the on-disk world description.
type Scenario struct {
	Name          string                 `yaml:"name"`
	PlayerCompany uint64                 `yaml:"player_company"`
	Companies     []Company              `yaml:"companies"`
	Cities        []state.City           `yaml:"cities"`
	Facilities    []state.FacilityRecord `yaml:"facilities"`
	Technology    []Technology           `yaml:"technology"`
}

// Company is a company plus its opening cash.
type Company struct {
	state.Company `yaml:",inline"`
	Cash          int64 `yaml:"cash"`
}

// Technology seeds a ledger entry above the starting level.
type Technology struct {
	CompanyID uint64            `yaml:"company_id"`
	ProductID catalog.ProductID `yaml:"product_id"`
	TechLevel int               `yaml:"tech_level"`
}

// Load reads and builds the scenario at path. cat may be nil; when set it
// supplies each building's generation cap.
func Load(path string, cat catalog.Lookup) (*state.Store, state.EntityID, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	st, err := sc.Build(cat)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return st, sc.PlayerCompany, nil
}

// Parse decodes a scenario document. Unknown keys are rejected.
func Parse(raw []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &sc, nil
}

// Build applies defaults and returns a populated, validated store.
func (sc *Scenario) Build(cat catalog.Lookup) (*state.Store, error) {
	st := state.NewStore()
	var errs []error

	for _, c := range sc.Companies {
		if c.ID == 0 {
			errs = append(errs, errors.New("company with id 0"))
			continue
		}
		if _, dup := st.Companies[c.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate company %d", c.ID))
			continue
		}
		st.PutCompany(c.Company)
		st.PutFinances(state.Finances{CompanyID: c.ID, Cash: c.Cash})
	}
	if sc.PlayerCompany != 0 {
		if _, ok := st.Companies[sc.PlayerCompany]; !ok {
			errs = append(errs, fmt.Errorf("player company %d not defined", sc.PlayerCompany))
		}
	}

	for _, city := range sc.Cities {
		if _, dup := st.Cities[city.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate city %d", city.ID))
			continue
		}
		st.PutCity(city)
	}

	for _, rec := range sc.Facilities {
		if rec.ID == 0 {
			errs = append(errs, errors.New("facility with id 0"))
			continue
		}
		if _, dup := st.Facilities[rec.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate facility %d", rec.ID))
			continue
		}
		if rec.CityID != 0 {
			if _, ok := st.Cities[rec.CityID]; !ok {
				errs = append(errs, fmt.Errorf("facility %d: unknown city %d", rec.ID, rec.CityID))
			}
		}
		applyDefaults(&rec, cat)
		st.PutFacility(rec)
	}

	for _, t := range sc.Technology {
		if _, ok := st.Companies[t.CompanyID]; !ok {
			errs = append(errs, fmt.Errorf("technology: unknown company %d", t.CompanyID))
			continue
		}
		st.Tech.Restore(tech.Entry{CompanyID: t.CompanyID, ProductID: t.ProductID, TechLevel: t.TechLevel})
	}

	if err := st.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return st, nil
}

func applyDefaults(rec *state.FacilityRecord, cat catalog.Lookup) {
	if rec.Level == 0 {
		rec.Level = DefaultLevel
	}
	if rec.Staff != nil && rec.Staff.Headcount == 0 {
		rec.Staff.Headcount = state.DefaultHeadcount
	}
	if rec.Inventory != nil && rec.Inventory.Output.Capacity == 0 {
		rec.Inventory.Output.Capacity = DefaultOutputCapacity
	}
	if rec.Aging != nil {
		if rec.Aging.Level == 0 {
			rec.Aging.Level = 1
		}
		if rec.Aging.MaxLevel == 0 {
			rec.Aging.MaxLevel = DefaultMaxGeneration
			if cat != nil {
				if def, ok := cat.Building(rec.BuildingID); ok && def.MaxLevel > 0 {
					rec.Aging.MaxLevel = def.MaxLevel
				}
			}
		}
	}
}
