// Package model defines the record shapes shared across the billing engine:
// tasks and their status history, checklist items, files, and projects.
package model

// TaskStatus is the closed set of deliverable task statuses.
// Transitions happen in the task mutation layer; this package only reads them.
type TaskStatus string

const (
	StatusBacklog        TaskStatus = "BACKLOG"
	StatusInProgress     TaskStatus = "IN_PROGRESS"
	StatusBlocked        TaskStatus = "BLOCKED"
	StatusReadyForReview TaskStatus = "READY_FOR_REVIEW"
	StatusClientApproved TaskStatus = "CLIENT_APPROVED"
	StatusDone           TaskStatus = "DONE"
)

// ContextBillingDeferment is the status-history context tag that exempts a
// deliverable from the billing gate. Deferment is derived from history, never
// stored on the task itself.
const ContextBillingDeferment = "BILLING_DEFERMENT"

// KnownStatuses lists every status this engine recognizes, in workflow order.
var KnownStatuses = []TaskStatus{
	StatusBacklog,
	StatusInProgress,
	StatusBlocked,
	StatusReadyForReview,
	StatusClientApproved,
	StatusDone,
}

// Known reports whether s is a member of the closed status set.
func (s TaskStatus) Known() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusBlocked,
		StatusReadyForReview, StatusClientApproved, StatusDone:
		return true
	}
	return false
}

// FileApproval is the approval state of a project file.
type FileApproval string

const (
	FileApprovalPending  FileApproval = "PENDING"
	FileApprovalApproved FileApproval = "APPROVED"
	FileApprovalRejected FileApproval = "REJECTED"
)
