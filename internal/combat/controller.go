// Package combat gates melee actions and resolves their effects. Attacks are
// accepted or rejected synchronously; the hit itself lands later through the
// deferred-task scheduler, against whatever stands in range at that moment.
package combat

import (
	"context"

	"warband/sim/internal/geom"
	"warband/sim/internal/sched"
	"warband/sim/internal/unit"
	"warband/sim/logging"
	loggingcombat "warband/sim/logging/combat"
)

// Host is the narrow capability the controller needs from the unit manager.
// It exists to break the manager↔combat cycle: combat never sees the
// registry, only this surface.
type Host interface {
	UnitsInRange(position geom.Vec3, rangeDist float64, exclude *unit.Unit) []*unit.Unit
	ApplyKnockback(u *unit.Unit, direction geom.Vec3, force float64)
	PlayAnimation(u *unit.Unit, name string, fadeDuration float64)
}

// FailureReason is the structured code gameplay branches on when an attack is
// refused. Refusals are results, never errors.
type FailureReason string

const (
	FailureNone                FailureReason = ""
	FailureNoAttackConfig      FailureReason = "no_attack_config"
	FailureAlreadyAttacking    FailureReason = "already_attacking"
	FailureStunned             FailureReason = "stunned"
	FailureInsufficientStamina FailureReason = "insufficient_stamina"
	FailureCooldown            FailureReason = "cooldown"
)

// Result reports the outcome of an attack attempt.
type Result struct {
	Success bool
	Kind    unit.AttackKind
	Reason  FailureReason
}

// Config wires the controller's collaborators.
type Config struct {
	Host      Host
	Scheduler *sched.Scheduler
	Publisher logging.Publisher
	// TickSource supplies the current frame number for event logs.
	TickSource func() uint64
	// OnDefeat fires when a hit drops a target to zero health. The target is
	// still registered when the hook runs; removal is the host's decision.
	OnDefeat func(attacker, target *unit.Unit)
}

// Controller performs attack gating, stamina bookkeeping, and deferred hit
// resolution for every combat-enabled unit.
type Controller struct {
	host      Host
	scheduler *sched.Scheduler
	pub       logging.Publisher
	tick      func() uint64
	onDefeat  func(attacker, target *unit.Unit)
	stunTasks map[string]sched.Handle
}

func NewController(cfg Config) *Controller {
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	tick := cfg.TickSource
	if tick == nil {
		tick = func() uint64 { return 0 }
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = sched.New()
	}
	return &Controller{
		host:      cfg.Host,
		scheduler: scheduler,
		pub:       pub,
		tick:      tick,
		onDefeat:  cfg.OnDefeat,
		stunTasks: make(map[string]sched.Handle),
	}
}

// CanAttack reports eligibility for one attack kind at the given time. It is
// false iff the unit is already attacking, stunned, short on stamina, or
// still cooling down.
func (c *Controller) CanAttack(u *unit.Unit, kind unit.AttackKind, now float64) bool {
	ok, _ := c.gate(u, kind, now)
	return ok
}

func (c *Controller) gate(u *unit.Unit, kind unit.AttackKind, now float64) (bool, FailureReason) {
	if u == nil {
		return false, FailureNoAttackConfig
	}
	spec := u.AttackSpec(kind)
	if spec == nil {
		return false, FailureNoAttackConfig
	}
	if u.Combat.Attacking {
		return false, FailureAlreadyAttacking
	}
	if u.Combat.Stunned {
		return false, FailureStunned
	}
	if u.Combat.Stamina < spec.StaminaCost {
		return false, FailureInsufficientStamina
	}
	if now < u.LastAttackAt(kind)+spec.Cooldown {
		return false, FailureCooldown
	}
	return true, FailureNone
}

// PerformLightAttack attempts the light action at the given time.
func (c *Controller) PerformLightAttack(attacker *unit.Unit, now float64) Result {
	return c.perform(attacker, unit.AttackLight, now)
}

// PerformHeavyAttack attempts the heavy action at the given time.
func (c *Controller) PerformHeavyAttack(attacker *unit.Unit, now float64) Result {
	return c.perform(attacker, unit.AttackHeavy, now)
}

func (c *Controller) perform(attacker *unit.Unit, kind unit.AttackKind, now float64) Result {
	if c == nil {
		return Result{Kind: kind, Reason: FailureNoAttackConfig}
	}
	ok, reason := c.gate(attacker, kind, now)
	if !ok {
		if attacker != nil {
			loggingcombat.AttackRejected(context.Background(), c.pub, c.tick(), entityRef(attacker), loggingcombat.AttackRejectedPayload{
				Kind:   string(kind),
				Reason: string(reason),
			})
		}
		return Result{Kind: kind, Reason: reason}
	}

	spec := attacker.AttackSpec(kind)
	attacker.Combat.Attacking = true
	attacker.SetStamina(attacker.Combat.Stamina - spec.StaminaCost)
	attacker.RecordAttackAt(kind, now)

	loggingcombat.Attack(context.Background(), c.pub, c.tick(), entityRef(attacker), loggingcombat.AttackPayload{
		Kind:        string(kind),
		StaminaCost: spec.StaminaCost,
		Stamina:     attacker.Combat.Stamina,
	})
	if c.host != nil {
		c.host.PlayAnimation(attacker, animationName(kind), 0.1)
	}

	// The hit consults the world when it lands, not when it was swung.
	c.scheduler.Schedule(attacker.ID, now+spec.ActionDelay, func(at float64) {
		c.resolveHit(attacker, kind, spec, at)
	})

	// Clearing the attacking flag is its own task so a whiffed hit still
	// frees the attacker after the full action window.
	clearAt := now + spec.Duration
	if spec.Duration < spec.ActionDelay {
		clearAt = now + spec.ActionDelay
	}
	c.scheduler.Schedule(attacker.ID, clearAt, func(float64) {
		attacker.Combat.Attacking = false
	})

	return Result{Success: true, Kind: kind}
}

// resolveHit applies knockback, damage, and stun to everything in range of
// the attacker at resolution time.
func (c *Controller) resolveHit(attacker *unit.Unit, kind unit.AttackKind, spec *unit.AttackSpec, now float64) {
	if c.host == nil || attacker == nil || spec == nil {
		return
	}
	targets := c.host.UnitsInRange(attacker.Position, spec.Range, attacker)
	for _, target := range targets {
		if target == nil {
			continue
		}
		direction := target.Position.Sub(attacker.Position).Horizontal().Normalized()
		if direction.IsZero() {
			direction = geom.YawDirection(attacker.Rotation)
		}
		if spec.Knockback > 0 {
			c.host.ApplyKnockback(target, direction, spec.Knockback)
		}
		if spec.Damage > 0 {
			died := target.ApplyDamage(spec.Damage)
			loggingcombat.Hit(context.Background(), c.pub, c.tick(), entityRef(attacker), entityRef(target), loggingcombat.HitPayload{
				Kind:         string(kind),
				Damage:       spec.Damage,
				Knockback:    spec.Knockback,
				TargetHealth: target.Health,
			})
			if died {
				loggingcombat.Defeat(context.Background(), c.pub, c.tick(), entityRef(attacker), entityRef(target), string(kind))
				if c.onDefeat != nil {
					c.onDefeat(attacker, target)
				}
			}
		}
		if spec.StunDuration > 0 && target.Alive() {
			c.applyStun(attacker, target, kind, spec.StunDuration, now)
		}
	}
}

// applyStun flags the target and schedules the deferred clear. Re-stunning
// replaces the pending clear so the newest window wins.
func (c *Controller) applyStun(attacker, target *unit.Unit, kind unit.AttackKind, duration, now float64) {
	if handle, ok := c.stunTasks[target.ID]; ok {
		c.scheduler.Cancel(handle)
	}
	target.Combat.Stunned = true
	loggingcombat.StunApplied(context.Background(), c.pub, c.tick(), entityRef(attacker), entityRef(target), loggingcombat.StunPayload{
		Kind:     string(kind),
		Duration: duration,
	})
	c.stunTasks[target.ID] = c.scheduler.Schedule(target.ID, now+duration, func(float64) {
		delete(c.stunTasks, target.ID)
		target.Combat.Stunned = false
		loggingcombat.StunExpired(context.Background(), c.pub, c.tick(), entityRef(target))
	})
}

// SetStamina clamps and stores a unit's stamina.
func (c *Controller) SetStamina(u *unit.Unit, value float64) {
	u.SetStamina(value)
}

// UpdateCombat regenerates stamina for every combat-enabled unit. Stamina
// only climbs while the unit is not mid-attack and sits below its ceiling.
func (c *Controller) UpdateCombat(units []*unit.Unit, dt float64, _ float64) {
	for _, u := range units {
		if u == nil || u.Def == nil || u.Def.Combat == nil {
			continue
		}
		if u.Combat.Attacking {
			continue
		}
		regen := u.Def.Combat.StaminaRegen
		if regen <= 0 {
			continue
		}
		if u.Combat.Stamina < u.Def.Combat.MaxStamina {
			u.SetStamina(u.Combat.Stamina + regen*dt)
		}
	}
}

// ReleaseUnit drops controller bookkeeping for a removed unit. The scheduler
// cancellation itself happens at the manager, keyed by the unit id.
func (c *Controller) ReleaseUnit(id string) {
	if c == nil {
		return
	}
	delete(c.stunTasks, id)
}

func animationName(kind unit.AttackKind) string {
	if kind == unit.AttackHeavy {
		return "attack_heavy"
	}
	return "attack_light"
}

func entityRef(u *unit.Unit) logging.EntityRef {
	if u == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	kind := logging.EntityKindNPC
	switch u.Kind() {
	case unit.TypePlayer:
		kind = logging.EntityKindPlayer
	case unit.TypeEnemy:
		kind = logging.EntityKindEnemy
	}
	return logging.EntityRef{ID: u.ID, Kind: kind}
}
