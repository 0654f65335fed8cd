package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hatchpoint/clienthub/internal/billing"
	"github.com/hatchpoint/clienthub/internal/model"
)

// ProjectSource provides the project data a reload re-reads.
type ProjectSource interface {
	ListProjects(status string) ([]*model.Project, error)
	LoadProjectData(slug string) (*model.ProjectData, error)
}

// ReadyNotifier is told when a project's billing gate opens.
type ReadyNotifier interface {
	ProjectReady(ctx context.Context, project *model.Project, res billing.ReadinessResult)
}

// Recorder receives reload and evaluation metrics.
type Recorder interface {
	RecordReload(scope string)
	RecordEvaluation(result string, seconds float64)
	RecordError(module, errType string)
}

// Reloader re-reads every active project and re-derives its billing
// readiness. It remembers the last observed readiness per project so a
// not-ready-to-ready transition can be announced exactly once. The first
// observation of a project only primes the state; a project that was
// already ready when the process started is not re-announced.
type Reloader struct {
	scope    string
	source   ProjectSource
	notifier ReadyNotifier
	rec      Recorder
	logger   zerolog.Logger

	mu       sync.Mutex
	wasReady map[string]bool
}

// NewReloader creates a reloader scoped for metrics under the given name.
// notifier and rec may be nil.
func NewReloader(scope string, source ProjectSource, notifier ReadyNotifier, rec Recorder, logger zerolog.Logger) *Reloader {
	return &Reloader{
		scope:    scope,
		source:   source,
		notifier: notifier,
		rec:      rec,
		logger:   logger.With().Str("component", "reloader").Str("scope", scope).Logger(),
		wasReady: make(map[string]bool),
	}
}

// Run performs one full reload pass. A failure on one project is logged and
// skipped; the remaining projects are still evaluated.
func (r *Reloader) Run(ctx context.Context) {
	projects, err := r.source.ListProjects("active")
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list projects")
		if r.rec != nil {
			r.rec.RecordError("refresh", "store")
		}
		return
	}

	for _, p := range projects {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.evaluate(ctx, p)
	}

	if r.rec != nil {
		r.rec.RecordReload(r.scope)
	}
}

func (r *Reloader) evaluate(ctx context.Context, p *model.Project) {
	data, err := r.source.LoadProjectData(p.Slug)
	if err != nil {
		r.logger.Error().Err(err).Str("project", p.Slug).Msg("failed to load project data")
		if r.rec != nil {
			r.rec.RecordError("refresh", "store")
		}
		return
	}

	start := time.Now()
	res, err := billing.EvaluateReadiness(data)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		r.logger.Error().Err(err).Str("project", p.Slug).Msg("readiness evaluation failed")
		if r.rec != nil {
			r.rec.RecordEvaluation("error", elapsed)
		}
		return
	}
	if r.rec != nil {
		result := "not_ready"
		if res.Ready {
			result = "ready"
		}
		r.rec.RecordEvaluation(result, elapsed)
	}

	r.mu.Lock()
	prev, seen := r.wasReady[p.ID]
	r.wasReady[p.ID] = res.Ready
	r.mu.Unlock()

	if res.Ready && seen && !prev {
		r.logger.Info().Str("project", p.Slug).Msg("billing gate opened")
		if r.notifier != nil {
			r.notifier.ProjectReady(ctx, p, res)
		}
	}
}
