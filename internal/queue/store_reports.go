package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const reportColumns = "id, category_id, lat, lng, reporter_email, photo, description, idempotency_key, created_at, claimed_at"

// EnqueueReport inserts a new citizen report awaiting first delivery.
func (s *Store) EnqueueReport(ctx context.Context, report NewReport) (*Report, error) {
	if strings.TrimSpace(report.CategoryID) == "" {
		return nil, errors.New("category id is required")
	}
	if len(report.Photo) == 0 {
		return nil, errors.New("photo is required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO offline_reports (
            category_id, lat, lng, reporter_email, photo, description,
            idempotency_key, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.CategoryID,
		report.Lat,
		report.Lng,
		report.ReporterEmail,
		report.Photo,
		nullableString(report.Description),
		uuid.NewString(),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetReport(ctx, id)
}

// GetReport fetches a queued report by local identifier. Returns nil when the
// record is absent.
func (s *Store) GetReport(ctx context.Context, id int64) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM offline_reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// ListReports returns all currently queued reports. Insertion order is not
// guaranteed to callers, though rows come back in creation order.
func (s *Store) ListReports(ctx context.Context) ([]*Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM offline_reports ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// RemoveReport deletes a report. Idempotent: removing an absent record is not
// an error, the boolean reports whether a row was deleted.
func (s *Store) RemoveReport(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_reports WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClaimReport takes a short-lived delivery lease on a report. It succeeds only
// when the record is unclaimed or the prior claim is older than ttl, so two
// coordinators racing on the same record cannot both submit it while a lease
// is live.
func (s *Store) ClaimReport(ctx context.Context, id int64, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-ttl)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE offline_reports SET claimed_at = ?
         WHERE id = ? AND (claimed_at IS NULL OR claimed_at < ?)`,
		formatTime(now),
		id,
		formatTime(cutoff),
	)
	if err != nil {
		return false, fmt.Errorf("claim report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseReport clears a delivery lease so the next flush pass can retry the
// record immediately.
func (s *Store) ReleaseReport(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE offline_reports SET claimed_at = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("release report: %w", err)
	}
	return nil
}

func scanReport(scanner interface{ Scan(dest ...any) error }) (*Report, error) {
	var (
		id           int64
		categoryID   string
		lat          float64
		lng          float64
		email        string
		photo        []byte
		description  sql.NullString
		idempotency  string
		createdRaw   string
		claimedAtRaw sql.NullString
	)
	if err := scanner.Scan(&id, &categoryID, &lat, &lng, &email, &photo, &description, &idempotency, &createdRaw, &claimedAtRaw); err != nil {
		return nil, err
	}

	report := &Report{
		ID:             id,
		CategoryID:     categoryID,
		Lat:            lat,
		Lng:            lng,
		ReporterEmail:  email,
		Photo:          photo,
		Description:    description.String,
		IdempotencyKey: idempotency,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		report.CreatedAt = created
	}
	if claimedAtRaw.Valid {
		if claimed, err := parseTimeString(claimedAtRaw.String); err == nil {
			report.ClaimedAt = &claimed
		}
	}
	return report, nil
}
