package state

// TicksPerMonth is the billing cadence: monthly charges land on ticks where
// tick % TicksPerMonth == 0.
const TicksPerMonth = 30

// TickContext is the process-wide simulation context threaded into every
// engine call: the current tick plus the player company and its cash mirror.
// Engines mutate it only through these fields.
type TickContext struct {
	Tick            uint64   `json:"tick"`
	PlayerCompanyID EntityID `json:"player_company_id"`
	PlayerCash      int64    `json:"player_cash"`
}

// IsMonthStart reports whether monthly billing applies on this tick.
func (c *TickContext) IsMonthStart() bool {
	return c.Tick%TicksPerMonth == 0
}

// Charge deducts amount from the company's cash. Companies without a
// finances record (or id 0) are skipped. When the company is the player's,
// the cash mirror is decremented identically. Returns whether cash moved.
func (c *TickContext) Charge(s *Store, companyID EntityID, amount int64) bool {
	if companyID == 0 {
		return false
	}
	fin, ok := s.Finances[companyID]
	if !ok {
		return false
	}
	fin.Cash -= amount
	if companyID == c.PlayerCompanyID {
		c.PlayerCash -= amount
	}
	return true
}

// SyncPlayerCash reloads the mirror from the player company's finances.
func (c *TickContext) SyncPlayerCash(s *Store) {
	if cash, ok := s.Cash(c.PlayerCompanyID); ok {
		c.PlayerCash = cash
	}
}
