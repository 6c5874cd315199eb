package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"roverstatus/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS status_records (
  sol INTEGER PRIMARY KEY,
  date TEXT NOT NULL DEFAULT '',
  energyWh INTEGER NOT NULL,
  tauFactor REAL NOT NULL,
  dustFactor REAL NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  runId TEXT NOT NULL DEFAULT '',
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS processed_files (
  hash TEXT PRIMARY KEY,
  path TEXT NOT NULL,
  runId TEXT NOT NULL,
  processedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// SaveRun writes the run row and its records in one transaction. Records are
// keyed by sol; a later report for the same sol wins.
func (d *DB) SaveRun(run internal.RunRow, records []internal.StatusRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertRun(tx, run); err != nil {
		return err
	}
	if err := upsertRecords(tx, records, run.Source, run.ID); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	return tx.Commit()
}

func upsertRecords(tx *sql.Tx, records []internal.StatusRecord, source, runID string) error {
	stmt, err := tx.Prepare(`
INSERT INTO status_records (sol, date, energyWh, tauFactor, dustFactor, source, runId, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(sol) DO UPDATE SET
  date=excluded.date,
  energyWh=excluded.energyWh,
  tauFactor=excluded.tauFactor,
  dustFactor=excluded.dustFactor,
  source=excluded.source,
  runId=excluded.runId,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Sol, r.Date, r.EnergyWh, r.TauFactor, r.DustFactor, source, runID); err != nil {
			return err
		}
	}
	return nil
}

// ListRecords returns stored records ordered by sol. A zero bound is open.
func (d *DB) ListRecords(fromSol, toSol int) ([]internal.StoredRecord, error) {
	query := `
SELECT sol, date, energyWh, tauFactor, dustFactor, source, runId, updatedAt
FROM status_records
WHERE (? = 0 OR sol >= ?) AND (? = 0 OR sol <= ?)
ORDER BY sol ASC`
	rows, err := d.conn.Query(query, fromSol, fromSol, toSol, toSol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.StoredRecord
	for rows.Next() {
		var r internal.StoredRecord
		if err := rows.Scan(&r.Sol, &r.Date, &r.EnergyWh, &r.TauFactor, &r.DustFactor, &r.Source, &r.RunID, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) CountRecords() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM status_records`).Scan(&n)
	return n, err
}

func insertRun(tx *sql.Tx, run internal.RunRow) error {
	countsJSON, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("encode run counts: %w", err)
	}
	timingsJSON, err := json.Marshal(run.Timings)
	if err != nil {
		return fmt.Errorf("encode run timings: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO runs (id, source, countsJson, timingsJson) VALUES (?, ?, ?, ?)`, run.ID, run.Source, string(countsJSON), string(timingsJSON)); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, source, countsJson, timingsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var countsJSON, timingsJSON string
		if err := rows.Scan(&row.ID, &row.Source, &countsJSON, &timingsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(countsJSON), &row.Counts); err != nil {
			return nil, fmt.Errorf("decode counts of run %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(timingsJSON), &row.Timings); err != nil {
			return nil, fmt.Errorf("decode timings of run %s: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) IsFileProcessed(hash string) (bool, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM processed_files WHERE hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) MarkFileProcessed(hash, path, runID string) error {
	_, err := d.conn.Exec(`
INSERT INTO processed_files (hash, path, runId) VALUES (?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET path = excluded.path, runId = excluded.runId, processedAt = CURRENT_TIMESTAMP
`, hash, path, runID)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func Records(stored []internal.StoredRecord) []internal.StatusRecord {
	out := make([]internal.StatusRecord, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.StatusRecord)
	}
	return out
}
