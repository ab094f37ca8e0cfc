package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health aggregates queue state for badge counts and diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var health HealthSummary

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM offline_reports`)
	if err := row.Scan(&health.Reports); err != nil {
		return HealthSummary{}, fmt.Errorf("count reports: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM worker_resolutions GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("count resolutions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status ResolutionStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		switch status {
		case StatusPending:
			health.PendingResolutions += count
		case StatusSynced:
			health.SyncedResolutions += count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, err
	}

	health.Total = health.Reports + health.PendingResolutions + health.SyncedResolutions
	return health, nil
}

// ClearReports removes all queued reports.
func (s *Store) ClearReports(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_reports`)
	if err != nil {
		return 0, fmt.Errorf("clear reports: %w", err)
	}
	return res.RowsAffected()
}

// ClearResolutions removes all queued resolutions.
func (s *Store) ClearResolutions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worker_resolutions`)
	if err != nil {
		return 0, fmt.Errorf("clear resolutions: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every queued record from both collections.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	reports, err := s.ClearReports(ctx)
	if err != nil {
		return 0, err
	}
	resolutions, err := s.ClearResolutions(ctx)
	if err != nil {
		return reports, err
	}
	return reports + resolutions, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	expected := []string{"offline_reports", "worker_resolutions"}
	for _, table := range expected {
		var name string
		row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err := row.Scan(&name); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				health.MissingTables = append(health.MissingTables, table)
				continue
			}
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
		health.TablesPresent = append(health.TablesPresent, name)
	}

	if len(health.MissingTables) == 0 {
		row := s.db.QueryRowContext(connCtx,
			"SELECT (SELECT COUNT(1) FROM offline_reports) + (SELECT COUNT(1) FROM worker_resolutions)")
		if err := row.Scan(&health.TotalRecords); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count queue records: %w", err)
		}
	}

	row := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
