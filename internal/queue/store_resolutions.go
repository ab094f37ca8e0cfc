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

const resolutionColumns = "id, issue_id, photo, status, category_name, priority, idempotency_key, created_at, updated_at, claimed_at"

// EnqueueResolution inserts a worker resolution with status pending and the
// current timestamp.
func (s *Store) EnqueueResolution(ctx context.Context, issueID string, photo []byte, snapshot TaskSnapshot) (*Resolution, error) {
	if strings.TrimSpace(issueID) == "" {
		return nil, errors.New("issue id is required")
	}
	if len(photo) == 0 {
		return nil, errors.New("photo is required")
	}

	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO worker_resolutions (
            issue_id, photo, status, category_name, priority,
            idempotency_key, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		issueID,
		photo,
		StatusPending,
		nullableString(snapshot.CategoryName),
		nullableString(snapshot.Priority),
		uuid.NewString(),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert resolution: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetResolution(ctx, id)
}

// GetResolution fetches a queued resolution by local identifier. Returns nil
// when the record is absent.
func (s *Store) GetResolution(ctx context.Context, id int64) (*Resolution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resolutionColumns+` FROM worker_resolutions WHERE id = ?`, id)
	resolution, err := scanResolution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resolution: %w", err)
	}
	return resolution, nil
}

// ListResolutions returns resolutions filtered by status set, or all
// resolutions when no status is provided.
func (s *Store) ListResolutions(ctx context.Context, statuses ...ResolutionStatus) ([]*Resolution, error) {
	baseQuery := `SELECT ` + resolutionColumns + ` FROM worker_resolutions`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list resolutions: %w", err)
	}
	defer rows.Close()

	var resolutions []*Resolution
	for rows.Next() {
		resolution, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		resolutions = append(resolutions, resolution)
	}
	return resolutions, rows.Err()
}

// PendingResolutions returns resolutions still awaiting delivery.
func (s *Store) PendingResolutions(ctx context.Context) ([]*Resolution, error) {
	return s.ListResolutions(ctx, StatusPending)
}

// HasPendingResolution reports whether an issue already has a queued
// resolution, so the resolve surface can reflect optimistic completion.
func (s *Store) HasPendingResolution(ctx context.Context, issueID string) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM worker_resolutions WHERE issue_id = ? AND status = ?`,
		issueID,
		StatusPending,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count pending resolutions: %w", err)
	}
	return count > 0, nil
}

// MarkResolutionSynced flips a resolution to synced. No-op when the record was
// already removed by a concurrent delete.
func (s *Store) MarkResolutionSynced(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE worker_resolutions SET status = ?, updated_at = ? WHERE id = ?`,
		StatusSynced,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark resolution synced: %w", err)
	}
	return nil
}

// RemoveResolution deletes a resolution. Idempotent.
func (s *Store) RemoveResolution(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worker_resolutions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete resolution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClaimResolution takes a short-lived delivery lease on a resolution. See
// ClaimReport for the lease semantics.
func (s *Store) ClaimResolution(ctx context.Context, id int64, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-ttl)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE worker_resolutions SET claimed_at = ?
         WHERE id = ? AND (claimed_at IS NULL OR claimed_at < ?)`,
		formatTime(now),
		id,
		formatTime(cutoff),
	)
	if err != nil {
		return false, fmt.Errorf("claim resolution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReleaseResolution clears a delivery lease.
func (s *Store) ReleaseResolution(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE worker_resolutions SET claimed_at = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("release resolution: %w", err)
	}
	return nil
}

func scanResolution(scanner interface{ Scan(dest ...any) error }) (*Resolution, error) {
	var (
		id           int64
		issueID      string
		photo        []byte
		statusStr    string
		categoryName sql.NullString
		priority     sql.NullString
		idempotency  string
		createdRaw   string
		updatedRaw   string
		claimedAtRaw sql.NullString
	)
	if err := scanner.Scan(&id, &issueID, &photo, &statusStr, &categoryName, &priority, &idempotency, &createdRaw, &updatedRaw, &claimedAtRaw); err != nil {
		return nil, err
	}

	resolution := &Resolution{
		ID:      id,
		IssueID: issueID,
		Photo:   photo,
		Status:  ResolutionStatus(statusStr),
		Snapshot: TaskSnapshot{
			CategoryName: categoryName.String,
			Priority:     priority.String,
		},
		IdempotencyKey: idempotency,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		resolution.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		resolution.UpdatedAt = updated
	}
	if claimedAtRaw.Valid {
		if claimed, err := parseTimeString(claimedAtRaw.String); err == nil {
			resolution.ClaimedAt = &claimed
		}
	}
	return resolution, nil
}
