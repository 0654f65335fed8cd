package refresh

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchpoint/clienthub/internal/event"
)

func taskEvent(projectID string) event.Envelope {
	return event.Envelope{
		Type:  event.TypeWorkflowEvent,
		Event: &event.WorkflowEvent{Entity: event.EntityTask, EntityID: "t-1", ProjectID: projectID},
	}
}

func adminConfig(cooldown time.Duration) Config {
	return Config{
		Name:     "admin",
		Entities: []string{event.EntityIntake, event.EntityProposal, event.EntityProject, event.EntityInvoice, event.EntityTask},
		Cooldown: cooldown,
	}
}

func TestDecide_CooldownFloor(t *testing.T) {
	// Events at t=0, t=1s, t=3.5s with a 3s cooldown: exactly two reloads.
	c := New(adminConfig(3*time.Second), nil, zerolog.Nop())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), base))
	assert.Equal(t, ActionIgnore, c.Decide(taskEvent(""), base.Add(1*time.Second)))
	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), base.Add(3500*time.Millisecond)))
}

func TestDecide_FirstEventFiresImmediately(t *testing.T) {
	c := New(adminConfig(3*time.Second), nil, zerolog.Nop())
	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDecide_DroppedEventDoesNotExtendWindow(t *testing.T) {
	// Drop, don't delay: a dropped event must not reset the cooldown clock.
	c := New(adminConfig(3*time.Second), nil, zerolog.Nop())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.Equal(t, ActionReload, c.Decide(taskEvent(""), base))
	require.Equal(t, ActionIgnore, c.Decide(taskEvent(""), base.Add(2900*time.Millisecond)))
	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), base.Add(3*time.Second)),
		"window is measured from the last reload, not the last event")
}

func TestDecide_RejectsWrongType(t *testing.T) {
	c := New(adminConfig(time.Second), nil, zerolog.Nop())
	now := time.Now()

	env := taskEvent("")
	env.Type = "presence.ping"
	assert.Equal(t, ActionIgnore, c.Decide(env, now))
}

func TestDecide_RejectsMissingEvent(t *testing.T) {
	c := New(adminConfig(time.Second), nil, zerolog.Nop())
	assert.Equal(t, ActionIgnore, c.Decide(event.Envelope{Type: event.TypeWorkflowEvent}, time.Now()))
}

func TestDecide_EntityAllowList(t *testing.T) {
	c := New(Config{Name: "tasks-only", Entities: []string{event.EntityTask}, Cooldown: time.Second}, nil, zerolog.Nop())
	now := time.Now()

	fileEnv := event.Envelope{
		Type:  event.TypeWorkflowEvent,
		Event: &event.WorkflowEvent{Entity: event.EntityFile, EntityID: "f-1"},
	}
	assert.Equal(t, ActionIgnore, c.Decide(fileEnv, now))
	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), now))
}

func TestDecide_ProjectScope(t *testing.T) {
	c := New(Config{
		Name:      "project-dashboard",
		Entities:  []string{event.EntityTask, event.EntityInvoice},
		ProjectID: "p-1",
		Cooldown:  time.Second,
	}, nil, zerolog.Nop())
	now := time.Now()

	assert.Equal(t, ActionIgnore, c.Decide(taskEvent("p-2"), now))
	assert.Equal(t, ActionReload, c.Decide(taskEvent("p-1"), now))
}

func TestDecide_IgnoredEntityDoesNotConsumeWindow(t *testing.T) {
	c := New(Config{Name: "s", Entities: []string{event.EntityTask}, Cooldown: 3 * time.Second}, nil, zerolog.Nop())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	other := event.Envelope{Type: event.TypeWorkflowEvent, Event: &event.WorkflowEvent{Entity: event.EntityFile}}
	require.Equal(t, ActionIgnore, c.Decide(other, base))
	assert.Equal(t, ActionReload, c.Decide(taskEvent(""), base.Add(time.Millisecond)))
}

func TestHandleEvent_InvokesReloadOncePerAccept(t *testing.T) {
	calls := 0
	c := New(adminConfig(time.Hour), func() { calls++ }, zerolog.Nop())

	assert.Equal(t, ActionReload, c.HandleEvent(taskEvent("")))
	assert.Equal(t, ActionIgnore, c.HandleEvent(taskEvent("")))
	assert.Equal(t, 1, calls)
}

func TestHandleEvent_ReloadPanicContained(t *testing.T) {
	c := New(adminConfig(time.Hour), func() { panic("fetch failed") }, zerolog.Nop())
	assert.NotPanics(t, func() { c.HandleEvent(taskEvent("")) })
}

func TestHandleEvent_NilReload(t *testing.T) {
	c := New(adminConfig(time.Hour), nil, zerolog.Nop())
	assert.NotPanics(t, func() { c.HandleEvent(taskEvent("")) })
}

func TestDecide_ConcurrentEventsSingleReload(t *testing.T) {
	// Two near-simultaneous events must not both pass the cooldown check.
	c := New(adminConfig(time.Hour), nil, zerolog.Nop())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	const n = 32
	var wg sync.WaitGroup
	reloads := make(chan Action, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reloads <- c.Decide(taskEvent(""), now)
		}()
	}
	wg.Wait()
	close(reloads)

	fired := 0
	for a := range reloads {
		if a == ActionReload {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}

func TestIndependentCoordinatorsDoNotShareState(t *testing.T) {
	a := New(adminConfig(time.Hour), nil, zerolog.Nop())
	b := New(adminConfig(time.Hour), nil, zerolog.Nop())
	now := time.Now()

	require.Equal(t, ActionReload, a.Decide(taskEvent(""), now))
	assert.Equal(t, ActionReload, b.Decide(taskEvent(""), now),
		"a reload on one dashboard must not start another dashboard's cooldown")
}
