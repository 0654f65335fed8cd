package billing

import (
	"fmt"

	errs "github.com/hatchpoint/clienthub/internal/errors"
	"github.com/hatchpoint/clienthub/internal/model"
)

// DeliverableState is the per-deliverable classification in a readiness
// result. The two flags use the same rules as the progress aggregator.
type DeliverableState struct {
	TaskID       string `json:"task_id"`
	IsApproved   bool   `json:"is_approved"`
	HasDeferment bool   `json:"has_deferment"`
}

// ReadinessResult is the outcome of the billing gate. It is recomputed fresh
// on every call; there is no persisted readiness state.
type ReadinessResult struct {
	Ready             bool                  `json:"ready"`
	Summary           string                `json:"summary"`
	Deliverables      []DeliverableState    `json:"deliverables"`
	PendingChecklists []model.ChecklistItem `json:"pending_checklists"`
	PendingFiles      []model.File          `json:"pending_files"`
}

// EvaluateReadiness decides whether a project may be invoiced. A project is
// ready iff every deliverable is client-approved or carries a billing
// deferment, every checklist item is completed, and every file is approved.
// Empty lists are vacuously satisfied.
//
// Deferred deliverables are exempted from the gate, not failed: a PM can
// defer a deliverable's billing impact without blocking the whole invoice.
func EvaluateReadiness(p *model.ProjectData) (ReadinessResult, error) {
	if p == nil {
		return ReadinessResult{}, fmt.Errorf("project data is nil: %w", errs.ErrInvalidInput)
	}

	res := ReadinessResult{
		Deliverables:      make([]DeliverableState, 0, len(p.Deliverables)),
		PendingChecklists: []model.ChecklistItem{},
		PendingFiles:      []model.File{},
	}

	unapproved := 0
	for _, t := range p.Deliverables {
		if t.Status == "" {
			return ReadinessResult{}, fmt.Errorf("task %s has no status: %w", t.ID, errs.ErrInvalidInput)
		}
		st := DeliverableState{
			TaskID:       t.ID,
			IsApproved:   IsApproved(t),
			HasDeferment: HasDeferment(t),
		}
		res.Deliverables = append(res.Deliverables, st)
		if !st.IsApproved && !st.HasDeferment {
			unapproved++
		}
	}

	for _, item := range p.ChecklistItems {
		if !item.Completed {
			res.PendingChecklists = append(res.PendingChecklists, item)
		}
	}
	for _, f := range p.Files {
		if !f.Approved() {
			res.PendingFiles = append(res.PendingFiles, f)
		}
	}

	res.Ready = unapproved == 0 && len(res.PendingChecklists) == 0 && len(res.PendingFiles) == 0
	res.Summary = summarize(res.Ready, unapproved, len(res.PendingChecklists), len(res.PendingFiles))
	return res, nil
}

// summarize names the dominant blocker category in priority order:
// unapproved deliverables, then pending checklists, then pending files.
func summarize(ready bool, unapproved, checklists, files int) string {
	if ready {
		return "Ready to invoice"
	}
	switch {
	case unapproved > 0:
		return fmt.Sprintf("%d %s awaiting approval", unapproved, plural(unapproved, "deliverable", "deliverables"))
	case checklists > 0:
		return fmt.Sprintf("%d checklist %s incomplete", checklists, plural(checklists, "item", "items"))
	case files > 0:
		return fmt.Sprintf("%d %s awaiting approval", files, plural(files, "file", "files"))
	}
	// Unreachable: Ready is derived from the three counts above.
	return "Not ready to invoice"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
