package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hatchpoint/clienthub/internal/model"
)

var slugRe = regexp.MustCompile(`[^a-z0-9-]+`)

// GenerateSlug converts a project name into a URL-safe slug.
func GenerateSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugRe.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(name, clientName string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := GenerateSlug(name)
	if slug == "" {
		return nil, fmt.Errorf("invalid project name: generates empty slug")
	}

	now := time.Now().UnixMilli()
	p := &model.Project{
		ID:         uuid.New().String(),
		Slug:       slug,
		Name:       name,
		ClientName: clientName,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO projects (id, slug, name, client_name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Name,
		sql.NullString{String: p.ClientName, Valid: p.ClientName != ""},
		p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("project with slug %q already exists", slug)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

const projectColumns = `id, slug, name, client_name, status, created_at, updated_at, archived_at`

// GetProject retrieves a project by slug. Returns nil when not found.
func (s *Store) GetProject(slug string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanProject(`SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
}

// GetProjectByID retrieves a project by ID. Returns nil when not found.
func (s *Store) GetProjectByID(id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanProject(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
}

func (s *Store) scanProject(query string, args ...interface{}) (*model.Project, error) {
	p := &model.Project{}
	var clientName sql.NullString
	var archivedAt sql.NullInt64

	err := s.db.QueryRow(query, args...).Scan(
		&p.ID, &p.Slug, &p.Name, &clientName, &p.Status,
		&p.CreatedAt, &p.UpdatedAt, &archivedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if clientName.Valid {
		p.ClientName = clientName.String
	}
	if archivedAt.Valid {
		p.ArchivedAt = archivedAt.Int64
	}
	return p, nil
}

// ListProjects lists projects, optionally filtered by status.
func (s *Store) ListProjects(status string) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p := &model.Project{}
		var clientName sql.NullString
		var archivedAt sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &clientName, &p.Status,
			&p.CreatedAt, &p.UpdatedAt, &archivedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if clientName.Valid {
			p.ClientName = clientName.String
		}
		if archivedAt.Valid {
			p.ArchivedAt = archivedAt.Int64
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// LoadProjectData assembles the billing-engine input for one project:
// deliverable tasks with history, checklist items and files. Returns nil
// when the project does not exist.
func (s *Store) LoadProjectData(slug string) (*model.ProjectData, error) {
	p, err := s.GetProject(slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	deliverables, err := s.ListDeliverables(p.ID)
	if err != nil {
		return nil, err
	}
	checklists, err := s.ListChecklistItems(p.ID)
	if err != nil {
		return nil, err
	}
	files, err := s.ListFiles(p.ID)
	if err != nil {
		return nil, err
	}

	return &model.ProjectData{
		Deliverables:   deliverables,
		ChecklistItems: checklists,
		Files:          files,
	}, nil
}
