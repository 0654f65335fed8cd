package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatchpoint/clienthub/internal/model"
)

// SaveChecklistItem inserts or updates a checklist item.
func (s *Store) SaveChecklistItem(item *model.ChecklistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt == 0 {
		item.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO checklist_items (id, project_id, label, completed, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.Label, item.Completed, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checklist item: %w", err)
	}
	return nil
}

// SetChecklistCompleted flips a checklist item's completion flag.
func (s *Store) SetChecklistCompleted(id string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE checklist_items SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return fmt.Errorf("failed to update checklist item: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("checklist item not found: %s", id)
	}
	return nil
}

// ListChecklistItems returns a project's checklist items in creation order.
func (s *Store) ListChecklistItems(projectID string) ([]model.ChecklistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, label, completed, created_at
	FROM checklist_items WHERE project_id = ? ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Label, &item.Completed, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveFile inserts or updates a project file record.
func (s *Store) SaveFile(f *model.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt == 0 {
		f.CreatedAt = time.Now().UnixMilli()
	}
	if f.ApprovalStatus == "" {
		f.ApprovalStatus = model.FileApprovalPending
	}

	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO files (id, project_id, name, approval_status, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.Name, string(f.ApprovalStatus), f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// SetFileApproval updates a file's approval state.
func (s *Store) SetFileApproval(id string, status model.FileApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE files SET approval_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update file approval: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("file not found: %s", id)
	}
	return nil
}

// ListFiles returns a project's files in creation order.
func (s *Store) ListFiles(projectID string) ([]model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, name, approval_status, created_at
	FROM files WHERE project_id = ? ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.ApprovalStatus, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
