// Package store persists battery snapshots in SQLite so history survives
// daemon restarts.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/battdrain/battdrain/pkg/powerinfo"
)

// DB is a snapshot store backed by a single SQLite file.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database file at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create directory for %s", path)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open %s", path)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrapf(err, "failed to ping %s", path)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "failed to migrate")
	}

	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			captured_at        INTEGER NOT NULL,
			current_ua         INTEGER NOT NULL,
			current_ma         REAL NOT NULL,
			current_source     TEXT NOT NULL,
			capacity_percent   INTEGER NOT NULL,
			remaining_mah      REAL NOT NULL,
			design_mah         INTEGER NOT NULL,
			charging           BOOLEAN NOT NULL DEFAULT 0,
			voltage_mv         INTEGER NOT NULL,
			temperature_dc     INTEGER NOT NULL,
			estimate           TEXT NOT NULL,
			power_w            REAL NOT NULL,
			degraded           BOOLEAN NOT NULL DEFAULT 0,
			error              TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_captured ON snapshots(captured_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return pkgerrors.Wrapf(err, "failed to execute %q", m)
		}
	}
	return nil
}

// Insert stores one snapshot.
func (d *DB) Insert(s powerinfo.Snapshot) error {
	_, err := d.db.Exec(`INSERT INTO snapshots (
			captured_at, current_ua, current_ma, current_source, capacity_percent,
			remaining_mah, design_mah, charging, voltage_mv, temperature_dc,
			estimate, power_w, degraded, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.CapturedAt.UnixMilli(), s.CurrentMicroAmps, s.CurrentMilliAmps, string(s.CurrentSource), s.CapacityPercent,
		s.RemainingCapacityMah, s.DesignCapacityMah, s.IsCharging, s.VoltageMillivolts, s.TemperatureDecidegrees,
		s.EstimatedTimeRemaining, s.PowerDrawWatts, s.Degraded, s.Error,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to insert snapshot")
	}
	return nil
}

// Recent returns up to limit snapshots, newest first.
func (d *DB) Recent(limit int) ([]powerinfo.Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.Query(`SELECT
			captured_at, current_ua, current_ma, current_source, capacity_percent,
			remaining_mah, design_mah, charging, voltage_mv, temperature_dc,
			estimate, power_w, degraded, error
		FROM snapshots ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to query snapshots")
	}
	defer rows.Close()

	var out []powerinfo.Snapshot
	for rows.Next() {
		var (
			s        powerinfo.Snapshot
			captured int64
			source   string
		)
		if err := rows.Scan(
			&captured, &s.CurrentMicroAmps, &s.CurrentMilliAmps, &source, &s.CapacityPercent,
			&s.RemainingCapacityMah, &s.DesignCapacityMah, &s.IsCharging, &s.VoltageMillivolts, &s.TemperatureDecidegrees,
			&s.EstimatedTimeRemaining, &s.PowerDrawWatts, &s.Degraded, &s.Error,
		); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to scan snapshot")
		}
		s.CapturedAt = time.UnixMilli(captured).UTC()
		s.CurrentSource = powerinfo.CurrentSource(source)
		out = append(out, s)
	}
	return out, pkgerrors.Wrap(rows.Err(), "failed to iterate snapshots")
}

// Count returns the number of stored snapshots.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count snapshots")
	}
	return n, nil
}

// Prune deletes snapshots captured before the given time and returns how
// many were removed.
func (d *DB) Prune(before time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM snapshots WHERE captured_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to prune snapshots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count pruned snapshots")
	}
	return n, nil
}
