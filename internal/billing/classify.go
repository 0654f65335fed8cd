// Package billing derives deliverable progress and billing readiness from
// already-loaded project records. Every function here is pure: same inputs,
// same output, no I/O and no shared state.
package billing

import "github.com/hatchpoint/clienthub/internal/model"

// Bucket is a progress category a deliverable task counts toward.
type Bucket int

const (
	BucketApproved Bucket = iota
	BucketReadyForReview
	BucketBlocked
	BucketInProgress
	BucketBacklog
)

// bucketFor maps a task status to its progress bucket. The second return is
// false for statuses outside the closed set; callers that want the fail-open
// behavior fall back to BucketInProgress so new statuses stay visible in the
// summary instead of vanishing.
//
// DONE maps to in-progress, not approved: client approval is a separate gate
// from completion, so a finished-but-unapproved deliverable still counts as
// open work on the client-facing burndown.
func bucketFor(status model.TaskStatus) (Bucket, bool) {
	switch status {
	case model.StatusClientApproved:
		return BucketApproved, true
	case model.StatusReadyForReview:
		return BucketReadyForReview, true
	case model.StatusBlocked:
		return BucketBlocked, true
	case model.StatusInProgress:
		return BucketInProgress, true
	case model.StatusBacklog:
		return BucketBacklog, true
	case model.StatusDone:
		return BucketInProgress, true
	}
	return BucketInProgress, false
}

// HasDeferment reports whether any status-history entry carries the
// BILLING_DEFERMENT context, regardless of the task's current status.
func HasDeferment(t model.Task) bool {
	for _, h := range t.StatusHistory {
		if h.Context == model.ContextBillingDeferment {
			return true
		}
	}
	return false
}

// IsApproved reports whether the task has been client-approved. This is the
// single definition of "approved" shared by the aggregator and the readiness
// evaluator.
func IsApproved(t model.Task) bool {
	return t.Status == model.StatusClientApproved
}
