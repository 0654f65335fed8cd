package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatchpoint/clienthub/internal/model"
)

// SaveTask inserts or updates a task.
func (s *Store) SaveTask(t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}
	t.UpdatedAt = time.Now().UnixMilli()

	var due sql.NullInt64
	if t.DueDate != nil {
		due = sql.NullInt64{Int64: t.DueDate.UnixMilli(), Valid: true}
	}

	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO tasks (id, project_id, title, status, is_deliverable, due_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, string(t.Status), t.IsDeliverable, due, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// AppendStatusHistory records one status-history entry for a task. History
// is append-only; entries are never updated or deleted.
func (s *Store) AppendStatusHistory(taskID string, entry model.StatusHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT INTO task_status_history (id, task_id, status, context, note, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), taskID, string(entry.Status),
		sql.NullString{String: entry.Context, Valid: entry.Context != ""},
		sql.NullString{String: entry.Note, Valid: entry.Note != ""},
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// GetTask retrieves a task with its status history. Returns nil when not
// found.
func (s *Store) GetTask(id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := &model.Task{}
	var due sql.NullInt64
	err := s.db.QueryRow(`
	SELECT id, project_id, title, status, is_deliverable, due_date, created_at, updated_at
	FROM tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.IsDeliverable, &due, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if due.Valid {
		d := time.UnixMilli(due.Int64).UTC()
		t.DueDate = &d
	}

	history, err := s.listHistory(t.ID)
	if err != nil {
		return nil, err
	}
	t.StatusHistory = history
	return t, nil
}

// ListDeliverables returns a project's deliverable tasks with their status
// history loaded, newest history entry first.
func (s *Store) ListDeliverables(projectID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, title, status, is_deliverable, due_date, created_at, updated_at
	FROM tasks WHERE project_id = ? AND is_deliverable = 1
	ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliverables: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var due sql.NullInt64
		if err := rows.Scan(
			&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.IsDeliverable, &due, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if due.Valid {
			d := time.UnixMilli(due.Int64).UTC()
			t.DueDate = &d
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	for i := range tasks {
		history, err := s.listHistory(tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].StatusHistory = history
	}
	return tasks, nil
}

func (s *Store) listHistory(taskID string) ([]model.StatusHistoryEntry, error) {
	rows, err := s.db.Query(`
	SELECT status, context, note, created_at
	FROM task_status_history WHERE task_id = ?
	ORDER BY created_at DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusHistoryEntry
	for rows.Next() {
		var h model.StatusHistoryEntry
		var context, note sql.NullString
		if err := rows.Scan(&h.Status, &context, &note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if context.Valid {
			h.Context = context.String
		}
		if note.Valid {
			h.Note = note.String
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
