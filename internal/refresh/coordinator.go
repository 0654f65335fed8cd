// Package refresh decides when a burst of workflow events should trigger a
// full data reload. The policy is a cooldown floor: the first qualifying
// event fires immediately and later events inside the window are dropped,
// never queued. A delayed trailing reload could fire after the viewer has
// navigated away.
package refresh

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hatchpoint/clienthub/internal/event"
)

// Action is the coordinator's decision for one event.
type Action int

const (
	ActionIgnore Action = iota
	ActionReload
)

func (a Action) String() string {
	if a == ActionReload {
		return "reload"
	}
	return "ignore"
}

// DefaultCooldown is used when a config omits the cooldown. Call sites in
// production run between 3 and 4 seconds.
const DefaultCooldown = 3 * time.Second

// Config scopes a coordinator to one subscription context.
type Config struct {
	// Name labels the coordinator in logs and metrics (e.g. "admin",
	// "project-dashboard").
	Name string

	// Entities is the allow-list of relevant entity kinds. Events for other
	// entities are ignored.
	Entities []string

	// ProjectID, when set, further restricts events to one project.
	ProjectID string

	// Cooldown is the minimum spacing between reloads.
	Cooldown time.Duration
}

// Coordinator holds the cooldown state for one subscription. Each dashboard
// constructs its own instance so independent views never share state.
type Coordinator struct {
	name      string
	allowed   map[string]struct{}
	projectID string
	cooldown  time.Duration
	reload    func()
	logger    zerolog.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

// New creates a coordinator. reload is invoked exactly once per accepted
// event and is fire-and-forget; the coordinator never waits on it.
func New(cfg Config, reload func(), logger zerolog.Logger) *Coordinator {
	allowed := make(map[string]struct{}, len(cfg.Entities))
	for _, e := range cfg.Entities {
		allowed[e] = struct{}{}
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Coordinator{
		name:      cfg.Name,
		allowed:   allowed,
		projectID: cfg.ProjectID,
		cooldown:  cooldown,
		reload:    reload,
		logger:    logger.With().Str("component", "refresh").Str("scope", cfg.Name).Logger(),
	}
}

// Decide classifies one envelope at the given instant and, when it returns
// ActionReload, advances the cooldown window. Separating the decision from
// the side effect keeps the policy testable without a reload stub.
func (c *Coordinator) Decide(env event.Envelope, now time.Time) Action {
	if env.Type != event.TypeWorkflowEvent || env.Event == nil {
		return ActionIgnore
	}
	if _, ok := c.allowed[env.Event.Entity]; !ok {
		return ActionIgnore
	}
	if c.projectID != "" && env.Event.ProjectID != c.projectID {
		return ActionIgnore
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastRefresh.IsZero() && now.Sub(c.lastRefresh) < c.cooldown {
		return ActionIgnore
	}
	c.lastRefresh = now
	return ActionReload
}

// HandleEvent applies Decide to the current clock and runs the reload when
// accepted. It never propagates a fault to the event source.
func (c *Coordinator) HandleEvent(env event.Envelope) Action {
	action := c.Decide(env, time.Now())
	if action != ActionReload {
		return action
	}

	c.logger.Debug().
		Str("entity", env.Event.Entity).
		Str("entity_id", env.Event.EntityID).
		Msg("triggering reload")

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("reload panicked")
		}
	}()
	if c.reload != nil {
		c.reload()
	}
	return action
}

// Name returns the coordinator's scope label.
func (c *Coordinator) Name() string { return c.name }
