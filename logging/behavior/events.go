package behavior

import (
	"context"

	"warband/sim/logging"
)

const (
	// EventStateChanged is emitted when a unit's behavior state transitions.
	EventStateChanged logging.EventType = "behavior.state_changed"
	// EventTargetLost is emitted when a unit's target unit left the registry.
	EventTargetLost logging.EventType = "behavior.target_lost"
)

// StateChangedPayload records an FSM transition.
type StateChangedPayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	TargetID string `json:"targetId,omitempty"`
}

func StateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StateChangedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStateChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBehavior,
		Payload:  payload,
	})
}

func TargetLost(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, targetID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTargetLost,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBehavior,
		Payload:  StateChangedPayload{TargetID: targetID},
	})
}
