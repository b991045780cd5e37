package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
// Dates are stored as YYYY-MM-DD text, timestamps as RFC 3339 text.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS lots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		target_completion_date TEXT,
		manual_milestones TEXT NOT NULL DEFAULT '{}',
		status INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tasks (
		lot_id TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		trade TEXT NOT NULL DEFAULT '',
		subcontractor_id TEXT NOT NULL DEFAULT '',
		duration_days INTEGER NOT NULL,
		scheduled_start TEXT,
		scheduled_end TEXT,
		actual_start TEXT,
		actual_end TEXT,
		pinned_start TEXT,
		track TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		status INTEGER NOT NULL,
		blocks_final INTEGER NOT NULL DEFAULT 0,
		is_critical_path INTEGER NOT NULL DEFAULT 0,
		requires_inspection INTEGER NOT NULL DEFAULT 0,
		delay_days INTEGER NOT NULL DEFAULT 0,
		delay_reason TEXT NOT NULL DEFAULT '',
		delay_notes TEXT NOT NULL DEFAULT '',
		delay_logged_at TEXT,
		PRIMARY KEY (lot_id, id),
		FOREIGN KEY (lot_id) REFERENCES lots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_subcontractor ON tasks(subcontractor_id);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		lot_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		predecessor_id TEXT NOT NULL,
		relation TEXT NOT NULL DEFAULT 'FS',
		lag_days INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (lot_id, task_id, position),
		FOREIGN KEY (lot_id, task_id) REFERENCES tasks(lot_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task ON task_dependencies(lot_id, task_id);

	CREATE TABLE IF NOT EXISTS schedule_changes (
		id TEXT PRIMARY KEY,
		lot_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		old_start TEXT,
		new_start TEXT,
		shift INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		notified INTEGER NOT NULL DEFAULT 0,
		recorded_at TEXT NOT NULL,
		FOREIGN KEY (lot_id) REFERENCES lots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_schedule_changes_lot_recorded
		ON schedule_changes(lot_id, recorded_at);

	CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		lot_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		result TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL,
		FOREIGN KEY (lot_id) REFERENCES lots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_inspections_lot ON inspections(lot_id);

	CREATE TABLE IF NOT EXISTS subcontractors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		trade TEXT NOT NULL,
		max_concurrent_lots INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
