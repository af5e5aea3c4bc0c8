package combat

import (
	"context"

	"warband/sim/logging"
)

const (
	// EventAttack is emitted when an attack action is accepted by the gate.
	EventAttack logging.EventType = "combat.attack"
	// EventAttackRejected is emitted when the eligibility gate refuses an attack.
	EventAttackRejected logging.EventType = "combat.attack_rejected"
	// EventHit is emitted per target when a deferred hit resolves.
	EventHit logging.EventType = "combat.hit"
	// EventDefeat is emitted when a hit drops a target's health to zero.
	EventDefeat logging.EventType = "combat.defeat"
	// EventStunApplied is emitted when a hit stuns its target.
	EventStunApplied logging.EventType = "combat.stun_applied"
	// EventStunExpired is emitted when a deferred task clears a stun.
	EventStunExpired logging.EventType = "combat.stun_expired"
)

// AttackPayload records the accepted action and its resource cost.
type AttackPayload struct {
	Kind        string  `json:"kind"`
	StaminaCost float64 `json:"staminaCost"`
	Stamina     float64 `json:"stamina"`
}

// AttackRejectedPayload carries the gate's reason code.
type AttackRejectedPayload struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// HitPayload captures the damage dealt to a single target.
type HitPayload struct {
	Kind         string  `json:"kind"`
	Damage       float64 `json:"damage"`
	Knockback    float64 `json:"knockback"`
	TargetHealth float64 `json:"targetHealth"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	Kind string `json:"kind,omitempty"`
}

// StunPayload records the stun window applied to a target.
type StunPayload struct {
	Kind     string  `json:"kind,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

func Attack(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventAttack,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func AttackRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AttackRejectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventAttackRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

func Hit(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload HitPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventHit,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, kind string) {
	publish(ctx, pub, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Payload:  DefeatPayload{Kind: kind},
	})
}

func StunApplied(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload StunPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventStunApplied,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func StunExpired(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type:     EventStunExpired,
		Tick:     tick,
		Actor:    target,
		Severity: logging.SeverityDebug,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryCombat
	pub.Publish(ctx, event)
}
