package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindEnemy   EntityKind = "enemy"
	EntityKindNPC     EntityKind = "npc"
	EntityKindWorld   EntityKind = "world"
)

const (
	CategoryBehavior  = "behavior"
	CategoryCombat    = "combat"
	CategoryLifecycle = "lifecycle"
	CategorySystem    = "system"
)

// EntityRef identifies the unit an event concerns without retaining it.
type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Event is the envelope every simulation subsystem publishes through.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher drops every event; it is the default wiring for embedders that
// do not care about simulation telemetry.
func NopPublisher() Publisher {
	return nopPublisher{}
}

// WithFields decorates a publisher so every event carries the extra fields,
// without overwriting values the event already set.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	extra := make(map[string]any, len(p.fields)+len(event.Extra))
	for k, v := range event.Extra {
		extra[k] = v
	}
	for k, v := range p.fields {
		if _, exists := extra[k]; !exists {
			extra[k] = v
		}
	}
	cloned.Extra = extra
	p.next.Publish(ctx, cloned)
}
