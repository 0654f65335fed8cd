package model

import "time"

// StatusHistoryEntry is one append-only status-history record on a task.
// History is ordered newest first.
type StatusHistoryEntry struct {
	Status    TaskStatus `json:"status"`
	Context   string     `json:"context,omitempty"` // free-form tag, e.g. BILLING_DEFERMENT
	Note      string     `json:"note,omitempty"`
	CreatedAt int64      `json:"created_at"` // unix ms
}

// Task is the deliverable-relevant subset of a project task.
type Task struct {
	ID            string               `json:"id"`
	ProjectID     string               `json:"project_id"`
	Title         string               `json:"title"`
	Status        TaskStatus           `json:"status"`
	IsDeliverable bool                 `json:"is_deliverable"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	StatusHistory []StatusHistoryEntry `json:"status_history,omitempty"` // newest first
	CreatedAt     int64                `json:"created_at"`               // unix ms
	UpdatedAt     int64                `json:"updated_at"`               // unix ms
}

// ChecklistItem is a per-project pre-invoice checklist entry.
type ChecklistItem struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"created_at"`
}

// File is a client-visible project file with an approval state.
type File struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	Name           string       `json:"name"`
	ApprovalStatus FileApproval `json:"approval_status"`
	CreatedAt      int64        `json:"created_at"`
}

// Approved reports whether the file has been explicitly approved.
func (f File) Approved() bool {
	return f.ApprovalStatus == FileApprovalApproved
}

// Invoice is a billing record owned by a project.
type Invoice struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Number    string `json:"number"`
	Status    string `json:"status"` // draft | sent | paid | void
	AmountCts int64  `json:"amount_cents"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Project is a client engagement owning tasks, checklists, files and invoices.
type Project struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	ClientName string `json:"client_name,omitempty"`
	Status     string `json:"status"` // active | paused | archived
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
	ArchivedAt int64  `json:"archived_at,omitempty"`
}

// ProjectData bundles the already-scoped rows the billing engine derives from.
// Deliverables must be pre-filtered to IsDeliverable tasks of one project.
type ProjectData struct {
	Deliverables   []Task          `json:"deliverables"`
	ChecklistItems []ChecklistItem `json:"checklist_items"`
	Files          []File          `json:"files"`
}
