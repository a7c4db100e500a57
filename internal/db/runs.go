package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is the stored summary of one monitoring run
type Run struct {
	ID            string
	StartedAt     time.Time
	Hostname      string
	TotalDisks    int
	LowSpace      int
	SmartFailing  int
	SmartUnknown  int
	RAIDPresent   bool
	Virtualized   bool
	Forced        bool
	ReportSent    bool
	Delivered     bool
	DeliveryError string
	Alerts        []string
}

// RecordRun stores a run and its alert strings. An empty ID is filled with a
// new UUID.
func (d *DB) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, hostname, total_disks, low_space, smart_failing, smart_unknown,
			raid_present, virtualized, forced, report_sent, delivered, delivery_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixMilli(), run.Hostname, run.TotalDisks, run.LowSpace, run.SmartFailing,
		run.SmartUnknown, run.RAIDPresent, run.Virtualized, run.Forced, run.ReportSent, run.Delivered,
		nullString(run.DeliveryError))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, msg := range run.Alerts {
		if _, err := tx.Exec("INSERT INTO run_alerts (run_id, message) VALUES (?, ?)", run.ID, msg); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record run alert: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the newest runs first
func (d *DB) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.conn.Query(`
		SELECT id, started_at, hostname, total_disks, low_space, smart_failing, smart_unknown,
			raid_present, virtualized, forced, report_sent, delivered, delivery_error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs, err := scanRuns(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, r := range runs {
		if r.Alerts, err = d.runAlerts(r.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// PruneBefore deletes runs older than cutoff and returns how many were removed
func (d *DB) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := d.conn.Exec("DELETE FROM runs WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (d *DB) runAlerts(runID string) ([]string, error) {
	rows, err := d.conn.Query("SELECT message FROM run_alerts WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run alerts: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		var r Run
		var startedAt int64
		var deliveryError sql.NullString
		err := rows.Scan(&r.ID, &startedAt, &r.Hostname, &r.TotalDisks, &r.LowSpace, &r.SmartFailing,
			&r.SmartUnknown, &r.RAIDPresent, &r.Virtualized, &r.Forced, &r.ReportSent, &r.Delivered,
			&deliveryError)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		r.DeliveryError = deliveryError.String
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
