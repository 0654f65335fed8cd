package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hatchpoint/clienthub/internal/model"
)

// SaveInvoice inserts or updates an invoice.
func (s *Store) SaveInvoice(inv *model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt == 0 {
		inv.CreatedAt = time.Now().UnixMilli()
	}
	inv.UpdatedAt = time.Now().UnixMilli()
	if inv.Status == "" {
		inv.Status = "draft"
	}

	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO invoices (id, project_id, number, status, amount_cents, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ProjectID, inv.Number, inv.Status, inv.AmountCts, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// ListInvoices returns a project's invoices, newest first.
func (s *Store) ListInvoices(projectID string) ([]model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, number, status, amount_cents, created_at, updated_at
	FROM invoices WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.Number, &inv.Status, &inv.AmountCts, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
