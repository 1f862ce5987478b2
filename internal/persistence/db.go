// Package persistence provides SQLite storage for the effective-index
// preset catalog, the log of evaluations served by the API, and a small
// key/value metadata table.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/talgya/aoi-shift/internal/optics"
)

// ErrInvalidPreset is returned for presets with an empty name or an index
// that is not a positive finite number.
var ErrInvalidPreset = errors.New("invalid preset")

// ErrPresetExists is returned when a preset with the same name is stored.
var ErrPresetExists = errors.New("preset already exists")

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time keeps SQLite free of SQLITE_BUSY under load.
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
	CREATE TABLE IF NOT EXISTS presets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		neff REAL NOT NULL,
		sort_order INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		design_nm REAL,
		neff REAL,
		theta_deg REAL,
		strictness TEXT NOT NULL,
		shifted_nm REAL,
		delta_nm REAL,
		percent REAL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type presetRow struct {
	Name string  `db:"name"`
	Neff float64 `db:"neff"`
}

// SeedPresets inserts presets only when the catalog is empty. Returns the
// number inserted.
func (db *DB) SeedPresets(presets []optics.Preset) (int, error) {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM presets"); err != nil {
		return 0, fmt.Errorf("count presets: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i, p := range presets {
		if err := validatePreset(p); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(
			"INSERT INTO presets (name, neff, sort_order) VALUES (?, ?, ?)",
			p.Name, p.EffectiveIndex, i,
		); err != nil {
			return 0, fmt.Errorf("insert preset %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("preset catalog seeded", "presets", len(presets))
	return len(presets), nil
}

// ListPresets returns the catalog in display order.
func (db *DB) ListPresets() ([]optics.Preset, error) {
	var rows []presetRow
	if err := db.conn.Select(&rows, "SELECT name, neff FROM presets ORDER BY sort_order, id"); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	presets := make([]optics.Preset, 0, len(rows))
	for _, r := range rows {
		presets = append(presets, optics.Preset{Name: r.Name, EffectiveIndex: r.Neff})
	}
	return presets, nil
}

// AddPreset appends a preset to the end of the catalog.
func (db *DB) AddPreset(p optics.Preset) error {
	if err := validatePreset(p); err != nil {
		return err
	}
	_, err := db.conn.Exec(
		`INSERT INTO presets (name, neff, sort_order)
		 VALUES (?, ?, (SELECT COALESCE(MAX(sort_order), -1) + 1 FROM presets))`,
		p.Name, p.EffectiveIndex,
	)
	if isConstraint(err) {
		return fmt.Errorf("%w: %q", ErrPresetExists, p.Name)
	}
	if err != nil {
		return fmt.Errorf("insert preset %q: %w", p.Name, err)
	}
	return nil
}

// isConstraint reports a constraint violation, basic or extended code.
func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func validatePreset(p optics.Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPreset)
	}
	if math.IsNaN(p.EffectiveIndex) || math.IsInf(p.EffectiveIndex, 0) || p.EffectiveIndex <= 0 {
		return fmt.Errorf("%w: index %v", ErrInvalidPreset, p.EffectiveIndex)
	}
	return nil
}

// Evaluation is one computation served to a client. Inputs that were
// missing or unparsable are invalid values.
type Evaluation struct {
	ID                 string        `json:"id"`
	CreatedAt          time.Time     `json:"created_at"`
	DesignWavelengthNm optics.Value  `json:"design_wavelength_nm"`
	EffectiveIndex     optics.Value  `json:"effective_index"`
	IncidenceAngleDeg  optics.Value  `json:"incidence_angle_deg"`
	Strictness         string        `json:"strictness"`
	Result             optics.Result `json:"result"`
}

// NewEvaluation stamps a computation with a fresh ID and time.
func NewEvaluation(in optics.Inputs, s optics.Strictness, r optics.Result, at time.Time) Evaluation {
	return Evaluation{
		ID:                 uuid.NewString(),
		CreatedAt:          at.UTC(),
		DesignWavelengthNm: optics.Valid(in.DesignWavelengthNm),
		EffectiveIndex:     optics.Valid(in.EffectiveIndex),
		IncidenceAngleDeg:  optics.Valid(in.IncidenceAngleDeg),
		Strictness:         s.String(),
		Result:             r,
	}
}

type evaluationRow struct {
	ID         string          `db:"id"`
	CreatedAt  int64           `db:"created_at"`
	DesignNm   sql.NullFloat64 `db:"design_nm"`
	Neff       sql.NullFloat64 `db:"neff"`
	ThetaDeg   sql.NullFloat64 `db:"theta_deg"`
	Strictness string          `db:"strictness"`
	ShiftedNm  sql.NullFloat64 `db:"shifted_nm"`
	DeltaNm    sql.NullFloat64 `db:"delta_nm"`
	Percent    sql.NullFloat64 `db:"percent"`
}

// RecordEvaluation appends an evaluation to the log.
func (db *DB) RecordEvaluation(e Evaluation) error {
	_, err := db.conn.NamedExec(`INSERT INTO evaluations
		(id, created_at, design_nm, neff, theta_deg, strictness, shifted_nm, delta_nm, percent)
		VALUES (:id, :created_at, :design_nm, :neff, :theta_deg, :strictness, :shifted_nm, :delta_nm, :percent)`,
		evaluationRow{
			ID:         e.ID,
			CreatedAt:  e.CreatedAt.UnixNano(),
			DesignNm:   nullable(e.DesignWavelengthNm),
			Neff:       nullable(e.EffectiveIndex),
			ThetaDeg:   nullable(e.IncidenceAngleDeg),
			Strictness: e.Strictness,
			ShiftedNm:  nullable(e.Result.ShiftedNm),
			DeltaNm:    nullable(e.Result.DeltaNm),
			Percent:    nullable(e.Result.Percent),
		},
	)
	if err != nil {
		return fmt.Errorf("insert evaluation %s: %w", e.ID, err)
	}
	return nil
}

// RecentEvaluations returns the most recent evaluations, newest first.
func (db *DB) RecentEvaluations(limit int) ([]Evaluation, error) {
	var rows []evaluationRow
	err := db.conn.Select(&rows,
		`SELECT id, created_at, design_nm, neff, theta_deg, strictness, shifted_nm, delta_nm, percent
		 FROM evaluations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent evaluations: %w", err)
	}

	out := make([]Evaluation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Evaluation{
			ID:                 r.ID,
			CreatedAt:          time.Unix(0, r.CreatedAt).UTC(),
			DesignWavelengthNm: fromNull(r.DesignNm),
			EffectiveIndex:     fromNull(r.Neff),
			IncidenceAngleDeg:  fromNull(r.ThetaDeg),
			Strictness:         r.Strictness,
			Result: optics.Result{
				ShiftedNm: fromNull(r.ShiftedNm),
				DeltaNm:   fromNull(r.DeltaNm),
				Percent:   fromNull(r.Percent),
			},
		})
	}
	return out, nil
}

// CountEvaluations returns the size of the evaluation log.
func (db *DB) CountEvaluations() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM evaluations")
	return n, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. A missing key returns sql.ErrNoRows.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

func nullable(v optics.Value) sql.NullFloat64 {
	x, ok := v.Get()
	return sql.NullFloat64{Float64: x, Valid: ok}
}

func fromNull(n sql.NullFloat64) optics.Value {
	if !n.Valid {
		return optics.Invalid()
	}
	return optics.Valid(n.Float64)
}
