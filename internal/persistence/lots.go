package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/lotsched/internal/scheduler"
)

// SaveLot writes a full lot snapshot in one transaction: the lot row, its
// tasks and dependency edges (replaced wholesale) and any history entries
// not yet stored. Saving the same snapshot twice is a no-op.
func (s *SQLiteStore) SaveLot(ctx context.Context, lot *scheduler.Lot) error {
	milestones := lot.ManualMilestones
	if milestones == nil {
		milestones = map[string]bool{}
	}
	manual, err := json.Marshal(milestones)
	if err != nil {
		return fmt.Errorf("failed to encode manual milestones: %w", err)
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lots (id, name, start_date, target_completion_date, manual_milestones, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			target_completion_date = excluded.target_completion_date,
			manual_milestones = excluded.manual_milestones,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, lot.ID, lot.Name, dateValue(lot.StartDate), dateValue(lot.TargetCompletionDate), string(manual), int(lot.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert lot: %w", err)
	}

	// Edges first; the task delete would cascade, but only with foreign keys on
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE lot_id = ?`, lot.ID); err != nil {
		return fmt.Errorf("failed to delete old dependencies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE lot_id = ?`, lot.ID); err != nil {
		return fmt.Errorf("failed to delete old tasks: %w", err)
	}

	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (
				lot_id, id, position, name, trade, subcontractor_id, duration_days,
				scheduled_start, scheduled_end, actual_start, actual_end, pinned_start,
				track, sort_order, status, blocks_final, is_critical_path, requires_inspection,
				delay_days, delay_reason, delay_notes, delay_logged_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, lot.ID, t.ID, i, t.Name, t.Trade, t.SubcontractorID, t.DurationDays,
			dateValue(t.ScheduledStart), dateValue(t.ScheduledEnd), dateValue(t.ActualStart), dateValue(t.ActualEnd), dateValue(t.PinnedStart),
			string(t.Track), t.SortOrder, int(t.Status), t.BlocksFinal, t.IsCriticalPath, t.RequiresInspection,
			t.Delay.Days, t.Delay.Reason, t.Delay.Notes, timeValue(t.Delay.LoggedAt))
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}

	for i := range lot.Tasks {
		t := &lot.Tasks[i]
		for j, dep := range t.Dependencies {
			relation := dep.Relation
			if relation == "" {
				relation = scheduler.FinishToStart
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO task_dependencies (lot_id, task_id, position, predecessor_id, relation, lag_days)
				VALUES (?, ?, ?, ?, ?, ?)
			`, lot.ID, t.ID, j, dep.PredecessorID, string(relation), dep.LagDays)
			if err != nil {
				return fmt.Errorf("failed to insert dependency %s -> %s: %w", t.ID, dep.PredecessorID, err)
			}
		}
	}

	for _, change := range lot.History {
		if change.ID == "" {
			return fmt.Errorf("schedule change for task %s has no ID", change.TaskID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO schedule_changes (id, lot_id, task_id, old_start, new_start, shift, reason, notes, notified, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, change.ID, lot.ID, change.TaskID, dateValue(change.OldStart), dateValue(change.NewStart),
			change.Shift, change.Reason, change.Notes, change.Notified, timeValue(change.RecordedAt))
		if err != nil {
			return fmt.Errorf("failed to insert schedule change %s: %w", change.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetLot loads a full lot snapshot. Returns ErrLotNotFound (wrapped) when
// no lot has the ID.
func (s *SQLiteStore) GetLot(ctx context.Context, lotID string) (*scheduler.Lot, error) {
	lot := &scheduler.Lot{ID: lotID}

	var (
		start, target sql.NullString
		manual        string
		status        int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, start_date, target_completion_date, manual_milestones, status
		FROM lots
		WHERE id = ?
	`, lotID).Scan(&lot.Name, &start, &target, &manual, &status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrLotNotFound, lotID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lot: %w", err)
	}

	lot.Status = scheduler.LotStatus(status)
	if lot.StartDate, err = parseDate(start); err != nil {
		return nil, err
	}
	if lot.TargetCompletionDate, err = parseDate(target); err != nil {
		return nil, err
	}
	lot.ManualMilestones = map[string]bool{}
	if err := json.Unmarshal([]byte(manual), &lot.ManualMilestones); err != nil {
		return nil, fmt.Errorf("failed to decode manual milestones: %w", err)
	}

	if lot.Tasks, err = s.loadTasks(ctx, lotID); err != nil {
		return nil, err
	}
	if err := s.loadDependencies(ctx, lot); err != nil {
		return nil, err
	}
	if lot.History, err = s.ListScheduleChanges(ctx, lotID); err != nil {
		return nil, err
	}

	return lot, nil
}

func (s *SQLiteStore) loadTasks(ctx context.Context, lotID string) ([]scheduler.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, trade, subcontractor_id, duration_days,
			scheduled_start, scheduled_end, actual_start, actual_end, pinned_start,
			track, sort_order, status, blocks_final, is_critical_path, requires_inspection,
			delay_days, delay_reason, delay_notes, delay_logged_at
		FROM tasks
		WHERE lot_id = ?
		ORDER BY position
	`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []scheduler.Task{}
	for rows.Next() {
		var (
			t                                      scheduler.Task
			schedStart, schedEnd, actStart, actEnd sql.NullString
			pinned, loggedAt                       sql.NullString
			track                                  string
			status                                 int
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Trade, &t.SubcontractorID, &t.DurationDays,
			&schedStart, &schedEnd, &actStart, &actEnd, &pinned,
			&track, &t.SortOrder, &status, &t.BlocksFinal, &t.IsCriticalPath, &t.RequiresInspection,
			&t.Delay.Days, &t.Delay.Reason, &t.Delay.Notes, &loggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		t.Track = scheduler.Track(track)
		t.Status = scheduler.TaskStatus(status)
		if t.ScheduledStart, err = parseDate(schedStart); err != nil {
			return nil, err
		}
		if t.ScheduledEnd, err = parseDate(schedEnd); err != nil {
			return nil, err
		}
		if t.ActualStart, err = parseDate(actStart); err != nil {
			return nil, err
		}
		if t.ActualEnd, err = parseDate(actEnd); err != nil {
			return nil, err
		}
		if t.PinnedStart, err = parseDate(pinned); err != nil {
			return nil, err
		}
		if t.Delay.LoggedAt, err = parseTime(loggedAt); err != nil {
			return nil, err
		}

		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteStore) loadDependencies(ctx context.Context, lot *scheduler.Lot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, predecessor_id, relation, lag_days
		FROM task_dependencies
		WHERE lot_id = ?
		ORDER BY task_id, position
	`, lot.ID)
	if err != nil {
		return fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, relation string
			dep              scheduler.Dependency
		)
		if err := rows.Scan(&taskID, &dep.PredecessorID, &relation, &dep.LagDays); err != nil {
			return fmt.Errorf("failed to scan dependency: %w", err)
		}
		dep.Relation = scheduler.Relation(relation)

		task := lot.Task(taskID)
		if task == nil {
			return fmt.Errorf("dependency references missing task %s", taskID)
		}
		task.Dependencies = append(task.Dependencies, dep)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating dependencies: %w", err)
	}
	return nil
}

// ListLots returns every lot row in creation order, without tasks.
func (s *SQLiteStore) ListLots(ctx context.Context) ([]LotSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, target_completion_date, status
		FROM lots
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	lots := []LotSummary{}
	for rows.Next() {
		var (
			sum           LotSummary
			start, target sql.NullString
			status        int
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &start, &target, &status); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		sum.Status = scheduler.LotStatus(status)
		if sum.StartDate, err = parseDate(start); err != nil {
			return nil, err
		}
		if sum.TargetCompletionDate, err = parseDate(target); err != nil {
			return nil, err
		}
		lots = append(lots, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}
	return lots, nil
}

// ListLotIDs returns lot IDs in creation order. With activeOnly, complete
// lots are skipped.
func (s *SQLiteStore) ListLotIDs(ctx context.Context, activeOnly bool) ([]string, error) {
	query := `SELECT id FROM lots ORDER BY created_at, id`
	args := []any{}
	if activeOnly {
		query = `SELECT id FROM lots WHERE status != ? ORDER BY created_at, id`
		args = append(args, int(scheduler.LotComplete))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lot ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lot id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lot ids: %w", err)
	}
	return ids, nil
}

// DeleteLot removes a lot and everything stored under it.
func (s *SQLiteStore) DeleteLot(ctx context.Context, lotID string) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"task_dependencies", "tasks", "schedule_changes", "inspections"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE lot_id = ?`, lotID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE id = ?`, lotID)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrLotNotFound, lotID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
