package store

import (
	"fmt"
	"time"
)

// MaintenanceOptions controls one self-maintenance pass.
type MaintenanceOptions struct {
	// SkipThreshold: a play followed by another play within this duration is
	// judged a skip, not a genuine listen, and the later event is removed.
	SkipThreshold time.Duration

	// RetentionDays prunes plays older than this many days.
	RetentionDays int

	// ChartRetentionDays prunes snapshots older than this many days.
	// Zero keeps snapshots forever.
	ChartRetentionDays int

	// DryRun reports what would be deleted without mutating anything.
	DryRun bool

	// Compact runs VACUUM after a committed pass.
	Compact bool

	Now time.Time
}

// MaintenanceReport tallies one pass.
type MaintenanceReport struct {
	SkipsDeleted    int64
	PlaysPruned     int64
	SnapshotsPruned int64
	DryRun          bool
}

// RunMaintenance performs skip-detection and retention pruning in a single
// transaction, so a mid-pass failure commits nothing. Any error aborts the
// remaining steps; the caller logs it and the pass is retried on the next
// scheduled invocation, never immediately. VACUUM runs after commit, outside
// the transaction.
func (s *Store) RunMaintenance(opts MaintenanceOptions) (MaintenanceReport, error) {
	report := MaintenanceReport{DryRun: opts.DryRun}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return report, fmt.Errorf("beginning maintenance transaction: %w", err)
	}
	defer tx.Rollback()

	// Skip-detection: scan the log in timestamp order and mark the later
	// event of every consecutive pair closer together than the threshold.
	if opts.SkipThreshold > 0 {
		rows, err := tx.Query("SELECT id, timestamp FROM PlayEvent ORDER BY timestamp ASC, id ASC")
		if err != nil {
			return report, fmt.Errorf("scanning for skips: %w", err)
		}

		var skipIDs []int64
		var prevTS int64
		first := true
		for rows.Next() {
			var id, ts int64
			if err := rows.Scan(&id, &ts); err != nil {
				rows.Close()
				return report, fmt.Errorf("scanning for skips: %w", err)
			}
			if !first {
				delta := ts - prevTS
				if delta >= 0 && delta < int64(opts.SkipThreshold/time.Second) {
					skipIDs = append(skipIDs, id)
				}
			}
			prevTS = ts
			first = false
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return report, fmt.Errorf("scanning for skips: %w", err)
		}

		report.SkipsDeleted = int64(len(skipIDs))
		if !opts.DryRun && len(skipIDs) > 0 {
			stmt, err := tx.Prepare("DELETE FROM PlayEvent WHERE id = ?")
			if err != nil {
				return report, fmt.Errorf("deleting skips: %w", err)
			}
			for _, id := range skipIDs {
				if _, err := stmt.Exec(id); err != nil {
					stmt.Close()
					return report, fmt.Errorf("deleting skip %d: %w", id, err)
				}
			}
			stmt.Close()
		}
	}

	// Retention pruning.
	if opts.RetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -opts.RetentionDays).Unix()
		if err := tx.QueryRow("SELECT COUNT(*) FROM PlayEvent WHERE timestamp < ?", cutoff).Scan(&report.PlaysPruned); err != nil {
			return report, fmt.Errorf("counting prunable plays: %w", err)
		}
		if !opts.DryRun {
			if _, err := tx.Exec("DELETE FROM PlayEvent WHERE timestamp < ?", cutoff); err != nil {
				return report, fmt.Errorf("pruning plays: %w", err)
			}
		}
	}

	if opts.ChartRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -opts.ChartRetentionDays).Unix()
		if err := tx.QueryRow("SELECT COUNT(*) FROM ChartSnapshot WHERE timestamp < ?", cutoff).Scan(&report.SnapshotsPruned); err != nil {
			return report, fmt.Errorf("counting prunable snapshots: %w", err)
		}
		if !opts.DryRun {
			if _, err := tx.Exec("DELETE FROM ChartSnapshot WHERE timestamp < ?", cutoff); err != nil {
				return report, fmt.Errorf("pruning snapshots: %w", err)
			}
		}
	}

	if opts.DryRun {
		// Nothing was mutated; let the deferred rollback discard the
		// transaction.
		return report, nil
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("committing maintenance: %w", err)
	}

	if opts.Compact {
		if _, err := s.db.Exec("VACUUM"); err != nil {
			return report, fmt.Errorf("compacting database: %w", err)
		}
	}

	return report, nil
}
