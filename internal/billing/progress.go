package billing

import (
	"fmt"
	"sort"
	"time"

	errs "github.com/hatchpoint/clienthub/internal/errors"
	"github.com/hatchpoint/clienthub/internal/model"
)

// ProgressSummary is the bucketed burndown of a project's deliverables.
// Each task increments exactly one status bucket; Deferred is additive on
// top (a task can be both blocked and deferred).
type ProgressSummary struct {
	Total          int `json:"total"`
	Approved       int `json:"approved"`
	ReadyForReview int `json:"ready_for_review"`
	Blocked        int `json:"blocked"`
	InProgress     int `json:"in_progress"`
	Backlog        int `json:"backlog"`
	Deferred       int `json:"deferred"`
}

// AggregateProgress reduces deliverable tasks into a ProgressSummary.
// The caller pre-scopes the input to deliverables; no re-filtering happens
// here so the contract composes with arbitrary subsets.
//
// A task with an empty status is a caller bug and rejected; an unrecognized
// non-empty status counts as in-progress.
func AggregateProgress(tasks []model.Task) (ProgressSummary, error) {
	sum := ProgressSummary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == "" {
			return ProgressSummary{}, fmt.Errorf("task %s has no status: %w", t.ID, errs.ErrInvalidInput)
		}
		bucket, _ := bucketFor(t.Status)
		switch bucket {
		case BucketApproved:
			sum.Approved++
		case BucketReadyForReview:
			sum.ReadyForReview++
		case BucketBlocked:
			sum.Blocked++
		case BucketInProgress:
			sum.InProgress++
		case BucketBacklog:
			sum.Backlog++
		}
		if HasDeferment(t) {
			sum.Deferred++
		}
	}
	return sum, nil
}

// UpcomingDeliverable is one row of the upcoming-deliverables projection.
type UpcomingDeliverable struct {
	TaskID           string           `json:"task_id"`
	Title            string           `json:"title"`
	Status           model.TaskStatus `json:"status"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	LatestStatusNote string           `json:"latest_status_note,omitempty"`
}

// SelectUpcoming projects the deliverables due within horizonDays of now,
// plus undated tasks that are ready for review. Dated tasks sort ascending
// by due date and strictly before undated ones; ties keep input order. The
// result is truncated to limit entries.
//
// now is an explicit parameter so the projection is deterministic.
func SelectUpcoming(tasks []model.Task, now time.Time, horizonDays, limit int) []UpcomingDeliverable {
	horizon := now.AddDate(0, 0, horizonDays)

	var out []UpcomingDeliverable
	for _, t := range tasks {
		include := false
		if t.DueDate == nil {
			include = t.Status == model.StatusReadyForReview
		} else {
			include = !t.DueDate.After(horizon)
		}
		if !include {
			continue
		}
		out = append(out, UpcomingDeliverable{
			TaskID:           t.ID,
			Title:            t.Title,
			Status:           t.Status,
			DueDate:          t.DueDate,
			LatestStatusNote: latestNote(t),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// latestNote returns the note of the most recent status-history entry.
// History is stored newest first.
func latestNote(t model.Task) string {
	if len(t.StatusHistory) == 0 {
		return ""
	}
	return t.StatusHistory[0].Note
}
