package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/lotsched/internal/scheduler"
)

// ListScheduleChanges returns a lot's audit trail in the order it was recorded.
// Returns an empty slice (not nil) when there is none.
func (s *SQLiteStore) ListScheduleChanges(ctx context.Context, lotID string) ([]scheduler.ScheduleChange, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// recorded_at then rowid keeps entries from the same instant in insert order
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, old_start, new_start, shift, reason, notes, notified, recorded_at
		FROM schedule_changes
		WHERE lot_id = ?
		ORDER BY recorded_at ASC, rowid ASC
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule changes: %w", err)
	}
	defer rows.Close()

	changes := []scheduler.ScheduleChange{}
	for rows.Next() {
		var (
			c                  scheduler.ScheduleChange
			oldStart, newStart sql.NullString
			recordedAt         sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &oldStart, &newStart, &c.Shift, &c.Reason, &c.Notes, &c.Notified, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule change: %w", err)
		}
		c.LotID = lotID
		if c.OldStart, err = parseDate(oldStart); err != nil {
			return nil, err
		}
		if c.NewStart, err = parseDate(newStart); err != nil {
			return nil, err
		}
		if c.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule changes: %w", err)
	}
	return changes, nil
}

// MarkNotified flags an audit entry as communicated to the affected parties.
func (s *SQLiteStore) MarkNotified(ctx context.Context, changeID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE schedule_changes SET notified = 1 WHERE id = ?`, changeID)
	if err != nil {
		return fmt.Errorf("failed to mark change notified: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrChangeNotFound, changeID)
	}
	return nil
}

// SaveInspection records an inspection against a lot's task.
// Uses ON CONFLICT so a re-inspection with the same ID updates the result.
func (s *SQLiteStore) SaveInspection(ctx context.Context, lotID string, insp scheduler.Inspection) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inspections (id, lot_id, task_id, result, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result = excluded.result,
			status = excluded.status,
			recorded_at = excluded.recorded_at
	`, insp.ID, lotID, insp.TaskID, string(insp.Result), insp.Status, timeValue(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save inspection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListInspections returns every inspection recorded for a lot.
func (s *SQLiteStore) ListInspections(ctx context.Context, lotID string) ([]scheduler.Inspection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, result, status
		FROM inspections
		WHERE lot_id = ?
		ORDER BY recorded_at ASC, rowid ASC
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inspections: %w", err)
	}
	defer rows.Close()

	inspections := []scheduler.Inspection{}
	for rows.Next() {
		var (
			insp   scheduler.Inspection
			result string
		)
		if err := rows.Scan(&insp.ID, &insp.TaskID, &result, &insp.Status); err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		insp.Result = scheduler.InspectionResult(result)
		inspections = append(inspections, insp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inspections: %w", err)
	}
	return inspections, nil
}

// SaveSubcontractor inserts or updates a subcontractor row.
func (s *SQLiteStore) SaveSubcontractor(ctx context.Context, sub scheduler.Subcontractor) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subcontractors (id, name, trade, max_concurrent_lots)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			trade = excluded.trade,
			max_concurrent_lots = excluded.max_concurrent_lots
	`, sub.ID, sub.Name, sub.Trade, sub.MaxConcurrentLots)
	if err != nil {
		return fmt.Errorf("failed to save subcontractor: %w", err)
	}
	return nil
}

// ListSubcontractors returns all subcontractors ordered by ID.
func (s *SQLiteStore) ListSubcontractors(ctx context.Context) ([]scheduler.Subcontractor, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, trade, max_concurrent_lots
		FROM subcontractors
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcontractors: %w", err)
	}
	defer rows.Close()

	subs := []scheduler.Subcontractor{}
	for rows.Next() {
		var sub scheduler.Subcontractor
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Trade, &sub.MaxConcurrentLots); err != nil {
			return nil, fmt.Errorf("failed to scan subcontractor: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcontractors: %w", err)
	}
	return subs, nil
}
