package unit

import (
	"warband/sim/internal/geom"
)

// BehaviorState names the single active FSM state of an AI-driven unit.
type BehaviorState string

const (
	StateIdle   BehaviorState = "idle"
	StatePatrol BehaviorState = "patrol"
	StateChase  BehaviorState = "chase"
	StateAttack BehaviorState = "attack"
	StateReturn BehaviorState = "return"
)

// Behavior is the per-unit AI memory. It exists only on non-player units
// whose definition carries an AIConfig.
type Behavior struct {
	State     BehaviorState
	TargetPos geom.Vec3
	// TargetID is a weak reference: lookups must tolerate the unit having
	// left the registry.
	TargetID       string
	ResumeAt       float64
	NextRetargetAt float64
	Home           geom.Vec3
	Attacking      bool
}

// Physics is created lazily the first time a mutator touches a unit, so the
// mutators stay safe no-ops turned into real state on demand.
type Physics struct {
	Velocity      geom.Vec3
	Knockback     geom.Vec3
	PrevPosition  geom.Vec3
	Mass          float64
	Friction      float64
	LinearDamping float64
	Gravity       bool
}

// CombatState tracks attack bookkeeping for a single unit.
type CombatState struct {
	LastLightAttackAt float64
	LastHeavyAttackAt float64
	Attacking         bool
	Stunned           bool
	Stamina           float64
}

// Unit is a live instance owned exclusively by the Registry.
type Unit struct {
	ID  string
	Def *Definition

	Position geom.Vec3
	Rotation float64 // yaw, radians

	Health          float64
	MaxHealth       float64
	Speed           float64
	AttackDamage    float64
	CollisionRadius float64

	Physics  *Physics
	Behavior *Behavior
	Combat   CombatState

	// UserData carries host bookkeeping (scene handles, connection ids).
	// The simulation never reads it.
	UserData any
}

// Kind mirrors the definition type, defaulting to npc when the definition is
// missing.
func (u *Unit) Kind() Type {
	if u == nil || u.Def == nil {
		return TypeNPC
	}
	return u.Def.Type
}

// IsPlayer reports whether the unit is driven by player input.
func (u *Unit) IsPlayer() bool {
	return u.Kind() == TypePlayer
}

// Alive reports whether the unit still has health.
func (u *Unit) Alive() bool {
	return u != nil && u.Health > 0
}

// ApplyDamage subtracts amount from health, clamping into [0, MaxHealth],
// and reports whether the unit died from this application.
func (u *Unit) ApplyDamage(amount float64) bool {
	if u == nil || amount <= 0 {
		return false
	}
	wasAlive := u.Health > 0
	u.Health = geom.Clamp(u.Health-amount, 0, u.MaxHealth)
	return wasAlive && u.Health == 0
}

// Heal raises health, clamped to MaxHealth.
func (u *Unit) Heal(amount float64) {
	if u == nil || amount <= 0 {
		return
	}
	u.Health = geom.Clamp(u.Health+amount, 0, u.MaxHealth)
}

// MaxStamina resolves the configured stamina ceiling, zero when the unit has
// no combat config.
func (u *Unit) MaxStamina() float64 {
	if u == nil || u.Def == nil || u.Def.Combat == nil {
		return 0
	}
	return u.Def.Combat.MaxStamina
}

// SetStamina clamps the value into [0, MaxStamina].
func (u *Unit) SetStamina(value float64) {
	if u == nil {
		return
	}
	u.Combat.Stamina = geom.Clamp(value, 0, u.MaxStamina())
}

// EnsurePhysics returns the unit's physics state, creating it on first use.
func (u *Unit) EnsurePhysics() *Physics {
	if u == nil {
		return nil
	}
	if u.Physics == nil {
		u.Physics = &Physics{
			PrevPosition: u.Position,
			Mass:         1,
		}
	}
	return u.Physics
}

// AttackSpec resolves the configured spec for an attack kind, when present.
func (u *Unit) AttackSpec(kind AttackKind) *AttackSpec {
	if u == nil || u.Def == nil || u.Def.Combat == nil {
		return nil
	}
	switch kind {
	case AttackLight:
		return u.Def.Combat.Light
	case AttackHeavy:
		return u.Def.Combat.Heavy
	}
	return nil
}

// LastAttackAt returns the timestamp bookkeeping slot for an attack kind.
func (u *Unit) LastAttackAt(kind AttackKind) float64 {
	if u == nil {
		return 0
	}
	if kind == AttackHeavy {
		return u.Combat.LastHeavyAttackAt
	}
	return u.Combat.LastLightAttackAt
}

// RecordAttackAt stores the trigger timestamp for an attack kind.
func (u *Unit) RecordAttackAt(kind AttackKind, now float64) {
	if u == nil {
		return
	}
	if kind == AttackHeavy {
		u.Combat.LastHeavyAttackAt = now
		return
	}
	u.Combat.LastLightAttackAt = now
}

// AttackKind selects between the two melee actions.
type AttackKind string

const (
	AttackLight AttackKind = "light"
	AttackHeavy AttackKind = "heavy"
)
