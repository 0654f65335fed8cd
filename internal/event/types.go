// Package event defines the workflow-event envelope pushed by the realtime
// channel and a small in-process dispatcher that fans events out to
// subscribers.
package event

import "encoding/json"

// TypeWorkflowEvent is the only envelope type this backend acts on.
const TypeWorkflowEvent = "workflow.event"

// Entity identifiers for well-known workflow entities.
const (
	EntityTask     = "task"
	EntityInvoice  = "invoice"
	EntityIntake   = "intake"
	EntityProposal = "proposal"
	EntityProject  = "project"
	EntityFile     = "file"
)

// WorkflowEvent describes a change to one entity.
type WorkflowEvent struct {
	Entity     string `json:"entity"`
	EntityID   string `json:"entityId"`
	ProjectID  string `json:"projectId,omitempty"`
	Action     string `json:"action,omitempty"` // created | updated | deleted
	OccurredAt int64  `json:"occurredAt,omitempty"`
}

// Envelope is the wire shape delivered by the push channel. Anything that is
// not a workflow.event with a body is ignored by consumers.
type Envelope struct {
	Type  string         `json:"type"`
	Event *WorkflowEvent `json:"event,omitempty"`
}

// Decode parses a raw payload into an Envelope. Malformed JSON yields
// ok=false; the event schema is noisy and evolving, so decoding never errors.
func Decode(raw []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}
