// Package tech provides the per-(company, product) technology ledger and the
// tier tables that drive research cost, breakthrough thresholds and gains.
package tech

import (
	"github.com/talgya/tycoon-sim/internal/catalog"
)

// StartingLevel is the tech level of a freshly opened ledger entry, and the
// level reported for pairs that have no entry yet.
const StartingLevel = 40

// Key identifies one ledger entry.
type Key struct {
	CompanyID uint64
	ProductID catalog.ProductID
}

// Entry is the research state of one company for one product.
type Entry struct {
	CompanyID            uint64            `json:"company_id" db:"company_id"`
	ProductID            catalog.ProductID `json:"product_id" db:"product_id"`
	TechLevel            int               `json:"tech_level" db:"tech_level"`
	Breakthroughs        int               `json:"breakthroughs" db:"breakthroughs"`
	LastBreakthroughTick uint64            `json:"last_breakthrough_tick" db:"last_breakthrough_tick"`
}

// Ledger maps (company, product) pairs to entries. Entries are created
// explicitly through FindOrCreate and never removed.
type Ledger struct {
	entries map[Key]*Entry
	order   []Key // Creation order, for deterministic iteration.
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[Key]*Entry)}
}

// FindOrCreate returns the entry for the pair, opening it at StartingLevel
// if it does not exist yet. created reports whether this call opened it.
func (l *Ledger) FindOrCreate(companyID uint64, productID catalog.ProductID) (e *Entry, created bool) {
	k := Key{CompanyID: companyID, ProductID: productID}
	if e, ok := l.entries[k]; ok {
		return e, false
	}
	e = &Entry{CompanyID: companyID, ProductID: productID, TechLevel: StartingLevel}
	l.entries[k] = e
	l.order = append(l.order, k)
	return e, true
}

// Lookup returns the tech level for the pair, or StartingLevel when no entry
// exists. It never creates an entry.
func (l *Ledger) Lookup(companyID uint64, productID catalog.ProductID) int {
	if e, ok := l.entries[Key{CompanyID: companyID, ProductID: productID}]; ok {
		return e.TechLevel
	}
	return StartingLevel
}

// Get returns the entry for the pair if it exists.
func (l *Ledger) Get(companyID uint64, productID catalog.ProductID) (*Entry, bool) {
	e, ok := l.entries[Key{CompanyID: companyID, ProductID: productID}]
	return e, ok
}

// Restore inserts a previously saved entry, replacing any existing one.
func (l *Ledger) Restore(e Entry) {
	k := Key{CompanyID: e.CompanyID, ProductID: e.ProductID}
	if _, ok := l.entries[k]; !ok {
		l.order = append(l.order, k)
	}
	cp := e
	l.entries[k] = &cp
}

// Entries returns all entries in creation order.
func (l *Ledger) Entries() []*Entry {
	out := make([]*Entry, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.entries[k])
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}
