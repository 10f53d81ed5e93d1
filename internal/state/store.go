package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/tycoon-sim/internal/tech"
)

// Store owns every attribute record. Engines read and write through it and
// keep no private copies across ticks.
type Store struct {
	Facilities  map[EntityID]*Facility
	Production  map[EntityID]*Production
	Factories   map[EntityID]*Factory
	Inventories map[EntityID]*Inventory
	Maintenance map[EntityID]*Maintenance
	Staff       map[EntityID]*Staff
	Research    map[EntityID]*Research
	Marketing   map[EntityID]*Marketing
	Retail      map[EntityID]*Retail
	Aging       map[EntityID]*Aging

	Companies map[EntityID]*Company
	Finances  map[EntityID]*Finances // Keyed by company id
	Cities    map[EntityID]*City

	Tech *tech.Ledger
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Facilities:  make(map[EntityID]*Facility),
		Production:  make(map[EntityID]*Production),
		Factories:   make(map[EntityID]*Factory),
		Inventories: make(map[EntityID]*Inventory),
		Maintenance: make(map[EntityID]*Maintenance),
		Staff:       make(map[EntityID]*Staff),
		Research:    make(map[EntityID]*Research),
		Marketing:   make(map[EntityID]*Marketing),
		Retail:      make(map[EntityID]*Retail),
		Aging:       make(map[EntityID]*Aging),
		Companies:   make(map[EntityID]*Company),
		Finances:    make(map[EntityID]*Finances),
		Cities:      make(map[EntityID]*City),
		Tech:        tech.NewLedger(),
	}
}

// FacilityRecord bundles a facility with whichever attribute sets it carries.
// It is the unit used for seeding, saving and reporting.
type FacilityRecord struct {
	Facility    `yaml:",inline"`
	Production  *Production  `json:"production,omitempty" yaml:"production,omitempty"`
	Factory     *Factory     `json:"factory,omitempty" yaml:"factory,omitempty"`
	Inventory   *Inventory   `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Maintenance *Maintenance `json:"maintenance,omitempty" yaml:"maintenance,omitempty"`
	Staff       *Staff       `json:"staff,omitempty" yaml:"staff,omitempty"`
	Research    *Research    `json:"research,omitempty" yaml:"research,omitempty"`
	Marketing   *Marketing   `json:"marketing,omitempty" yaml:"marketing,omitempty"`
	Retail      *Retail      `json:"retail,omitempty" yaml:"retail,omitempty"`
	Aging       *Aging       `json:"aging,omitempty" yaml:"aging,omitempty"`
}

// PutFacility inserts or replaces a facility and its attribute sets.
// Attribute sets absent from rec are removed.
func (s *Store) PutFacility(rec FacilityRecord) {
	id := rec.ID
	f := rec.Facility
	s.Facilities[id] = &f
	putAttr(s.Production, id, rec.Production)
	putAttr(s.Factories, id, rec.Factory)
	putAttr(s.Inventories, id, rec.Inventory)
	putAttr(s.Maintenance, id, rec.Maintenance)
	putAttr(s.Staff, id, rec.Staff)
	putAttr(s.Research, id, rec.Research)
	putAttr(s.Marketing, id, rec.Marketing)
	putAttr(s.Retail, id, rec.Retail)
	putAttr(s.Aging, id, rec.Aging)
}

func putAttr[T any](m map[EntityID]*T, id EntityID, v *T) {
	if v == nil {
		delete(m, id)
		return
	}
	cp := *v
	m[id] = &cp
}

func getAttr[T any](m map[EntityID]*T, id EntityID) *T {
	v, ok := m[id]
	if !ok {
		return nil
	}
	cp := *v
	return &cp
}

// FacilityRecord returns a copy of a facility and its attribute sets.
func (s *Store) FacilityRecord(id EntityID) (FacilityRecord, bool) {
	f, ok := s.Facilities[id]
	if !ok {
		return FacilityRecord{}, false
	}
	return FacilityRecord{
		Facility:    *f,
		Production:  getAttr(s.Production, id),
		Factory:     getAttr(s.Factories, id),
		Inventory:   getAttr(s.Inventories, id),
		Maintenance: getAttr(s.Maintenance, id),
		Staff:       getAttr(s.Staff, id),
		Research:    getAttr(s.Research, id),
		Marketing:   getAttr(s.Marketing, id),
		Retail:      getAttr(s.Retail, id),
		Aging:       getAttr(s.Aging, id),
	}, true
}

// PutCompany inserts or replaces a company.
func (s *Store) PutCompany(c Company) {
	s.Companies[c.ID] = &c
}

// PutFinances inserts or replaces a company's cash record.
func (s *Store) PutFinances(f Finances) {
	s.Finances[f.CompanyID] = &f
}

// PutCity inserts or replaces a city.
func (s *Store) PutCity(c City) {
	if c.Economy != nil {
		econ := *c.Economy
		c.Economy = &econ
	}
	s.Cities[c.ID] = &c
}

// Cash returns the company's cash and whether it has a finances record.
func (s *Store) Cash(companyID EntityID) (int64, bool) {
	f, ok := s.Finances[companyID]
	if !ok {
		return 0, false
	}
	return f.Cash, true
}

// FacilityIDs returns all facility ids in ascending order.
func (s *Store) FacilityIDs() []EntityID {
	return sortedKeys(s.Facilities)
}

// CompanyIDs returns all company ids in ascending order.
func (s *Store) CompanyIDs() []EntityID {
	return sortedKeys(s.Companies)
}

// CityIDs returns all city ids in ascending order.
func (s *Store) CityIDs() []EntityID {
	return sortedKeys(s.Cities)
}

func sortedKeys[T any](m map[EntityID]*T) []EntityID {
	ids := make([]EntityID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks the store invariants and returns every violation joined.
func (s *Store) Validate() error {
	var errs []error
	for _, id := range s.FacilityIDs() {
		f := s.Facilities[id]
		if f.Level < 1 {
			errs = append(errs, fmt.Errorf("facility %d: level %d below 1", id, f.Level))
		}
		if f.CompanyID != 0 {
			if _, ok := s.Companies[f.CompanyID]; !ok {
				errs = append(errs, fmt.Errorf("facility %d: unknown company %d", id, f.CompanyID))
			}
		}
		if inv, ok := s.Inventories[id]; ok {
			for i, slot := range inv.Inputs {
				if slot.Quantity < 0 {
					errs = append(errs, fmt.Errorf("facility %d: input slot %d quantity %d is negative", id, i, slot.Quantity))
				}
			}
			if inv.Output.Amount < 0 || inv.Output.Amount > inv.Output.Capacity {
				errs = append(errs, fmt.Errorf("facility %d: output amount %d outside [0, %d]", id, inv.Output.Amount, inv.Output.Capacity))
			}
		}
		if st, ok := s.Staff[id]; ok {
			if st.Morale < 0 || st.Morale > 100 {
				errs = append(errs, fmt.Errorf("facility %d: morale %.1f outside [0, 100]", id, st.Morale))
			}
			if st.TrainingLevel < 0 || st.TrainingLevel > 100 {
				errs = append(errs, fmt.Errorf("facility %d: training level %d outside [0, 100]", id, st.TrainingLevel))
			}
		}
	}
	return errors.Join(errs...)
}
