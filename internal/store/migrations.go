package store

import "fmt"

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		client_name TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		archived_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		is_deliverable INTEGER NOT NULL DEFAULT 0,
		due_date INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_deliverable ON tasks(project_id, is_deliverable);

	CREATE TABLE IF NOT EXISTS task_status_history (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id),
		status TEXT NOT NULL,
		context TEXT,
		note TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_task ON task_status_history(task_id, created_at);

	CREATE TABLE IF NOT EXISTS checklist_items (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		label TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checklist_project ON checklist_items(project_id);

	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		approval_status TEXT NOT NULL DEFAULT 'PENDING',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		amount_cents INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_project ON invoices(project_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run v1 migration: %w", err)
	}
	return nil
}
