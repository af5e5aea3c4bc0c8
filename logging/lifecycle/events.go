package lifecycle

import (
	"context"

	"warband/sim/logging"
)

const (
	// EventUnitSpawned is emitted when the registry creates a unit.
	EventUnitSpawned logging.EventType = "lifecycle.unit_spawned"
	// EventUnitRemoved is emitted when a unit is evicted from the registry.
	EventUnitRemoved logging.EventType = "lifecycle.unit_removed"
	// EventSpawnRejected is emitted when CreateUnit fails admission.
	EventSpawnRejected logging.EventType = "lifecycle.spawn_rejected"
)

// SpawnPayload describes the unit entering or leaving the registry.
type SpawnPayload struct {
	DefinitionID string `json:"definitionId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func UnitSpawned(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, definitionID string) {
	publish(ctx, pub, logging.Event{
		Type:     EventUnitSpawned,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  SpawnPayload{DefinitionID: definitionID},
	})
}

func UnitRemoved(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type:     EventUnitRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
	})
}

func SpawnRejected(ctx context.Context, pub logging.Publisher, tick uint64, definitionID, reason string) {
	publish(ctx, pub, logging.Event{
		Type:     EventSpawnRejected,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Payload:  SpawnPayload{DefinitionID: definitionID, Reason: reason},
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLifecycle
	pub.Publish(ctx, event)
}
