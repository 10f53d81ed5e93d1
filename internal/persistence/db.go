// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/state"
	"github.com/talgya/tycoon-sim/internal/tech"
)

// Metadata keys.
const (
	MetaLastTick      = "last_tick"
	MetaPlayerCompany = "player_company"
	MetaPlayerCash    = "player_cash"
	MetaRunID         = "run_id"
	MetaEventSeq      = "event_seq"
	MetaLaborBaseline = "labor_baseline"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		reputation INTEGER NOT NULL,
		monthly_expenses INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS finances (
		company_id INTEGER PRIMARY KEY,
		cash INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		economy_json TEXT
	);

	CREATE TABLE IF NOT EXISTS facilities (
		id INTEGER PRIMARY KEY,
		building_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		operational INTEGER NOT NULL,
		company_id INTEGER NOT NULL,
		city_id INTEGER NOT NULL,
		attrs_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tech_ledger (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		tech_level INTEGER NOT NULL,
		breakthroughs INTEGER NOT NULL,
		last_breakthrough_tick INTEGER NOT NULL,
		UNIQUE (company_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seq INTEGER NOT NULL UNIQUE,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_facilities_company ON facilities(company_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// facilityRow is the flat table shape; attribute sets travel as one JSON blob.
type facilityRow struct {
	ID          uint64             `db:"id"`
	BuildingID  catalog.BuildingID `db:"building_id"`
	Level       int                `db:"level"`
	Operational bool               `db:"operational"`
	CompanyID   uint64             `db:"company_id"`
	CityID      uint64             `db:"city_id"`
	AttrsJSON   string             `db:"attrs_json"`
}

type cityRow struct {
	ID          uint64         `db:"id"`
	Name        string         `db:"name"`
	EconomyJSON sql.NullString `db:"economy_json"`
}

// SaveWorldState performs a full save of all world state.
func (db *DB) SaveWorldState(st *state.Store, ctx state.TickContext) error {
	slog.Info("saving world state", "tick", ctx.Tick, "facilities", len(st.Facilities), "companies", len(st.Companies))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"companies", "finances", "cities", "facilities", "tech_ledger"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, id := range st.CompanyIDs() {
		if _, err := tx.NamedExec(`INSERT INTO companies (id, name, reputation, monthly_expenses)
			VALUES (:id, :name, :reputation, :monthly_expenses)`, st.Companies[id]); err != nil {
			return fmt.Errorf("insert company %d: %w", id, err)
		}
	}
	for _, fin := range st.Finances {
		if _, err := tx.NamedExec(`INSERT INTO finances (company_id, cash) VALUES (:company_id, :cash)`, fin); err != nil {
			return fmt.Errorf("insert finances %d: %w", fin.CompanyID, err)
		}
	}

	for _, id := range st.CityIDs() {
		c := st.Cities[id]
		var econ sql.NullString
		if c.Economy != nil {
			b, _ := json.Marshal(c.Economy)
			econ = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := tx.Exec("INSERT INTO cities (id, name, economy_json) VALUES (?, ?, ?)", c.ID, c.Name, econ); err != nil {
			return fmt.Errorf("insert city %d: %w", id, err)
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO facilities
		(id, building_id, level, operational, company_id, city_id, attrs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range st.FacilityIDs() {
		rec, _ := st.FacilityRecord(id)
		attrs := rec
		attrs.Facility = state.Facility{}
		attrsJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encode facility %d: %w", id, err)
		}
		if _, err := stmt.Exec(rec.ID, rec.BuildingID, rec.Level, rec.Operational, rec.CompanyID, rec.CityID, string(attrsJSON)); err != nil {
			return fmt.Errorf("insert facility %d: %w", id, err)
		}
	}

	for _, e := range st.Tech.Entries() {
		if _, err := tx.NamedExec(`INSERT INTO tech_ledger
			(company_id, product_id, tech_level, breakthroughs, last_breakthrough_tick)
			VALUES (:company_id, :product_id, :tech_level, :breakthroughs, :last_breakthrough_tick)`, e); err != nil {
			return fmt.Errorf("insert tech %d/%d: %w", e.CompanyID, e.ProductID, err)
		}
	}

	meta := map[string]string{
		MetaLastTick:      strconv.FormatUint(ctx.Tick, 10),
		MetaPlayerCompany: strconv.FormatUint(ctx.PlayerCompanyID, 10),
		MetaPlayerCash:    strconv.FormatInt(ctx.PlayerCash, 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved", "tick", ctx.Tick)
	return nil
}

// SaveSimulation saves the store and every event emitted since the last save.
// Events are tracked by sequence number, so events raised at the tick of the
// previous save are still picked up.
func (db *DB) SaveSimulation(sim *engine.Simulation) error {
	var (
		saveErr error
		events  []engine.Event
	)
	saved, err := db.EventSeq()
	if err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	sim.View(func(st *state.Store, ctx state.TickContext) {
		saveErr = db.SaveWorldState(st, ctx)
		if sim.EventSeq < saved {
			slog.Warn("simulation event seq behind database, events not resumed",
				"sim_seq", sim.EventSeq, "saved_seq", saved)
		}
		for _, e := range sim.Events {
			if e.Seq > saved {
				events = append(events, e)
			}
		}
	})
	if saveErr != nil {
		return saveErr
	}
	if err := db.SaveEvents(events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// EventSeq returns the sequence number of the last saved event, or 0 when
// nothing has been saved yet.
func (db *DB) EventSeq() (uint64, error) {
	seq, err := db.metaUint(MetaEventSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}

// HasWorldState reports whether a previous save exists.
func (db *DB) HasWorldState() bool {
	_, err := db.GetMeta(MetaLastTick)
	return err == nil
}

// LoadWorldState rebuilds the store and tick context from the last save.
func (db *DB) LoadWorldState() (*state.Store, state.TickContext, error) {
	var ctx state.TickContext
	if !db.HasWorldState() {
		return nil, ctx, errors.New("no saved world state")
	}
	st := state.NewStore()

	var companies []state.Company
	if err := db.conn.Select(&companies, "SELECT id, name, reputation, monthly_expenses FROM companies ORDER BY id"); err != nil {
		return nil, ctx, fmt.Errorf("load companies: %w", err)
	}
	for _, c := range companies {
		st.PutCompany(c)
	}

	var finances []state.Finances
	if err := db.conn.Select(&finances, "SELECT company_id, cash FROM finances"); err != nil {
		return nil, ctx, fmt.Errorf("load finances: %w", err)
	}
	for _, f := range finances {
		st.PutFinances(f)
	}

	var cities []cityRow
	if err := db.conn.Select(&cities, "SELECT id, name, economy_json FROM cities ORDER BY id"); err != nil {
		return nil, ctx, fmt.Errorf("load cities: %w", err)
	}
	for _, row := range cities {
		c := state.City{ID: row.ID, Name: row.Name}
		if row.EconomyJSON.Valid {
			c.Economy = &state.CityEconomy{}
			if err := json.Unmarshal([]byte(row.EconomyJSON.String), c.Economy); err != nil {
				return nil, ctx, fmt.Errorf("decode city %d: %w", row.ID, err)
			}
		}
		st.PutCity(c)
	}

	var facilities []facilityRow
	if err := db.conn.Select(&facilities, `SELECT id, building_id, level, operational, company_id, city_id, attrs_json
		FROM facilities ORDER BY id`); err != nil {
		return nil, ctx, fmt.Errorf("load facilities: %w", err)
	}
	for _, row := range facilities {
		var rec state.FacilityRecord
		if err := json.Unmarshal([]byte(row.AttrsJSON), &rec); err != nil {
			return nil, ctx, fmt.Errorf("decode facility %d: %w", row.ID, err)
		}
		rec.Facility = state.Facility{
			ID:          row.ID,
			BuildingID:  row.BuildingID,
			Level:       row.Level,
			Operational: row.Operational,
			CompanyID:   row.CompanyID,
			CityID:      row.CityID,
		}
		st.PutFacility(rec)
	}

	var entries []tech.Entry
	if err := db.conn.Select(&entries, `SELECT company_id, product_id, tech_level, breakthroughs, last_breakthrough_tick
		FROM tech_ledger ORDER BY seq`); err != nil {
		return nil, ctx, fmt.Errorf("load tech ledger: %w", err)
	}
	for _, e := range entries {
		st.Tech.Restore(e)
	}

	ctx.Tick, _ = db.metaUint(MetaLastTick)
	ctx.PlayerCompanyID, _ = db.metaUint(MetaPlayerCompany)
	if v, err := db.GetMeta(MetaPlayerCash); err == nil {
		ctx.PlayerCash, _ = strconv.ParseInt(v, 10, 64)
	}

	slog.Info("world state loaded",
		"tick", ctx.Tick,
		"companies", len(st.Companies),
		"facilities", len(st.Facilities),
		"ledger_entries", st.Tech.Len(),
	)
	return st, ctx, nil
}

// SaveEvents appends events to the database and advances the saved event
// sequence in the same transaction.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last uint64
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (seq, tick, description, category) VALUES (?, ?, ?, ?)",
			e.Seq, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
		last = max(last, e.Seq)
	}
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		MetaEventSeq, strconv.FormatUint(last, 10),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT seq, tick, description, category FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveLaborBaseline stores the per-city labor values drift oscillates around.
func (db *DB) SaveLaborBaseline(baseline map[state.EntityID]state.CityEconomy) error {
	data, err := json.Marshal(baseline)
	if err != nil {
		return fmt.Errorf("marshal labor baseline: %w", err)
	}
	return db.SaveMeta(MetaLaborBaseline, string(data))
}

// LoadLaborBaseline returns the saved labor baseline, or nil when none was saved.
func (db *DB) LoadLaborBaseline() (map[state.EntityID]state.CityEconomy, error) {
	raw, err := db.GetMeta(MetaLaborBaseline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var baseline map[state.EntityID]state.CityEconomy
	if err := json.Unmarshal([]byte(raw), &baseline); err != nil {
		return nil, fmt.Errorf("decode labor baseline: %w", err)
	}
	return baseline, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// RunID returns the id of this world's run, minting one on first use.
func (db *DB) RunID() (string, error) {
	id, err := db.GetMeta(MetaRunID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if err := db.SaveMeta(MetaRunID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (db *DB) metaUint(key string) (uint64, error) {
	v, err := db.GetMeta(key)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}
