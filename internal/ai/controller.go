// Package ai implements the per-unit behavior state machine. Every AI-driven
// unit is always in exactly one of idle, patrol, chase, attack, or return;
// there is no terminal state, units cycle indefinitely.
package ai

import (
	"context"
	"math"
	"math/rand"
	"time"

	"warband/sim/internal/geom"
	"warband/sim/internal/unit"
	"warband/sim/logging"
	loggingbehavior "warband/sim/logging/behavior"
)

const (
	// patrolArriveRadius ends a patrol leg close enough to the random target.
	patrolArriveRadius = 1.5
	// returnArriveRadius ends the walk back home.
	returnArriveRadius = 2.0
	// attackPauseMax bounds the short randomized pause entering attack.
	attackPauseMax = 0.4
	// chaseExitFactor widens the attack exit threshold so units do not flap
	// exactly at the attack range boundary.
	chaseExitFactor = 1.5
)

// Frame carries the per-update context the controller needs: the player unit
// (if any), a registry lookup for weak target references, and the two clocks.
type Frame struct {
	Player  *unit.Unit
	Lookup  func(id string) (*unit.Unit, bool)
	DT      float64
	Elapsed float64
	Tick    uint64
}

// Controller drives behavior for every eligible unit. It owns its RNG so two
// simulations never share random state.
type Controller struct {
	pub logging.Publisher
	rng *rand.Rand
}

func NewController(pub logging.Publisher, rng *rand.Rand) *Controller {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{pub: pub, rng: rng}
}

// InitializeBehavior attaches fresh behavior state to a unit, anchoring home
// to the given position or, when nil, to the unit's current position. Player
// units and units without an AI config are left untouched.
func (c *Controller) InitializeBehavior(u *unit.Unit, home *geom.Vec3) {
	if u == nil || u.IsPlayer() || u.Def == nil || u.Def.AI == nil {
		return
	}
	anchor := u.Position
	if home != nil {
		anchor = *home
	}
	u.Behavior = &unit.Behavior{
		State: unit.StateIdle,
		Home:  anchor,
	}
}

// SetBehaviorState forces a state, clearing flags the state machine would
// have cleared on a natural transition.
func (c *Controller) SetBehaviorState(u *unit.Unit, state unit.BehaviorState) {
	if u == nil || u.Behavior == nil {
		return
	}
	c.transition(u, state, 0)
}

// BehaviorData exposes a unit's behavior state for inspection; nil for units
// without one.
func (c *Controller) BehaviorData(u *unit.Unit) *unit.Behavior {
	if u == nil {
		return nil
	}
	return u.Behavior
}

// Update advances the state machine for every unit in the slice. Callers
// filter eligibility (non-player, behavior present, not stunned, alive)
// before this point.
func (c *Controller) Update(units []*unit.Unit, frame Frame) {
	if c == nil {
		return
	}
	for _, u := range units {
		c.updateUnit(u, frame)
	}
}

func (c *Controller) updateUnit(u *unit.Unit, frame Frame) {
	if u == nil || u.Behavior == nil || u.Def == nil || u.Def.AI == nil {
		return
	}
	b := u.Behavior
	cfg := u.Def.AI

	// Movement and every transition, retargeting included, wait out the
	// thinking pause.
	if frame.Elapsed < b.ResumeAt {
		return
	}

	if frame.Elapsed >= b.NextRetargetAt {
		c.retarget(u, frame)
		b.NextRetargetAt = frame.Elapsed + c.jitteredInterval(cfg.TargetUpdateInterval)
	}

	switch b.State {
	case unit.StateIdle:
		// Waiting for the next retarget tick.
	case unit.StatePatrol:
		c.stepPatrol(u, frame)
	case unit.StateChase:
		c.stepChase(u, frame)
	case unit.StateAttack:
		c.stepAttack(u, frame)
	case unit.StateReturn:
		c.stepReturn(u, frame)
	}
}

// retarget is the rate-limited reassessment of what the unit should care
// about. Chase and attack keep their current target here; leaving attack is
// only decided by the hysteresis check in stepAttack.
func (c *Controller) retarget(u *unit.Unit, frame Frame) {
	b := u.Behavior
	cfg := u.Def.AI

	player := frame.Player
	if player != nil && player.Alive() &&
		geom.HorizontalDistance(u.Position, player.Position) <= cfg.DetectionRange {
		if b.State != unit.StateChase && b.State != unit.StateAttack {
			b.TargetID = player.ID
			b.Attacking = false
			c.transition(u, unit.StateChase, frame.Tick)
		}
		return
	}

	switch b.State {
	case unit.StateChase, unit.StateAttack:
		b.TargetID = ""
		b.Attacking = false
		b.TargetPos = b.Home
		c.transition(u, unit.StateReturn, frame.Tick)
	case unit.StateIdle:
		b.TargetPos = c.randomPatrolPoint(b.Home, cfg.PatrolRadius)
		c.transition(u, unit.StatePatrol, frame.Tick)
	}
}

func (c *Controller) stepPatrol(u *unit.Unit, frame Frame) {
	b := u.Behavior
	if geom.HorizontalDistance(u.Position, b.TargetPos) <= patrolArriveRadius {
		b.ResumeAt = frame.Elapsed + c.pause(u.Def.AI.PauseDurationMax)
		c.transition(u, unit.StateIdle, frame.Tick)
		return
	}
	c.moveToward(u, b.TargetPos, frame.DT)
}

func (c *Controller) stepChase(u *unit.Unit, frame Frame) {
	b := u.Behavior
	target, ok := c.resolveTarget(b.TargetID, frame)
	if !ok {
		c.loseTarget(u, frame)
		return
	}
	cfg := u.Def.AI
	if geom.HorizontalDistance(u.Position, target.Position) <= cfg.AttackRange {
		b.Attacking = true
		b.ResumeAt = frame.Elapsed + c.pause(attackPauseMax)
		c.transition(u, unit.StateAttack, frame.Tick)
		return
	}
	c.moveToward(u, target.Position, frame.DT)
}

func (c *Controller) stepAttack(u *unit.Unit, frame Frame) {
	b := u.Behavior
	target, ok := c.resolveTarget(b.TargetID, frame)
	if !ok {
		c.loseTarget(u, frame)
		return
	}
	cfg := u.Def.AI
	if geom.HorizontalDistance(u.Position, target.Position) > cfg.AttackRange*chaseExitFactor {
		b.Attacking = false
		c.transition(u, unit.StateChase, frame.Tick)
		return
	}
	c.face(u, target.Position, frame.DT)
}

func (c *Controller) stepReturn(u *unit.Unit, frame Frame) {
	b := u.Behavior
	if geom.HorizontalDistance(u.Position, b.Home) <= returnArriveRadius {
		b.ResumeAt = frame.Elapsed + c.pause(u.Def.AI.PauseDurationMax)
		c.transition(u, unit.StateIdle, frame.Tick)
		return
	}
	c.moveToward(u, b.Home, frame.DT)
}

// resolveTarget honors the weak reference rule: a target id whose unit left
// the registry behaves as no target at all.
func (c *Controller) resolveTarget(id string, frame Frame) (*unit.Unit, bool) {
	if id == "" {
		return nil, false
	}
	if frame.Lookup == nil {
		if frame.Player != nil && frame.Player.ID == id && frame.Player.Alive() {
			return frame.Player, true
		}
		return nil, false
	}
	target, ok := frame.Lookup(id)
	if !ok || target == nil || !target.Alive() {
		return nil, false
	}
	return target, true
}

func (c *Controller) loseTarget(u *unit.Unit, frame Frame) {
	b := u.Behavior
	lost := b.TargetID
	b.TargetID = ""
	b.Attacking = false
	b.TargetPos = b.Home
	c.transition(u, unit.StateReturn, frame.Tick)
	loggingbehavior.TargetLost(context.Background(), c.pub, frame.Tick, entityRef(u), lost)
}

// moveToward rotates the unit's facing toward the target on the ground plane
// and translates it along its facing-independent direction vector.
func (c *Controller) moveToward(u *unit.Unit, target geom.Vec3, dt float64) {
	dir := target.Sub(u.Position).Horizontal().Normalized()
	if dir.IsZero() {
		return
	}
	c.rotateToward(u, dir, dt)
	speed := u.Def.AI.Speed
	if speed <= 0 {
		speed = u.Speed
	}
	u.Position = u.Position.Add(dir.Scale(speed * dt))
}

func (c *Controller) face(u *unit.Unit, target geom.Vec3, dt float64) {
	dir := target.Sub(u.Position).Horizontal().Normalized()
	if dir.IsZero() {
		return
	}
	c.rotateToward(u, dir, dt)
}

func (c *Controller) rotateToward(u *unit.Unit, dir geom.Vec3, dt float64) {
	rotationSpeed := u.Def.AI.RotationSpeed
	if rotationSpeed <= 0 {
		u.Rotation = geom.Yaw(dir)
		return
	}
	u.Rotation = geom.RotateYawToward(u.Rotation, geom.Yaw(dir), rotationSpeed*dt)
}

func (c *Controller) transition(u *unit.Unit, next unit.BehaviorState, tick uint64) {
	b := u.Behavior
	if b.State == next {
		return
	}
	prev := b.State
	b.State = next
	loggingbehavior.StateChanged(context.Background(), c.pub, tick, entityRef(u), loggingbehavior.StateChangedPayload{
		From:     string(prev),
		To:       string(next),
		TargetID: b.TargetID,
	})
}

// randomPatrolPoint samples uniformly from the disc around home. The sqrt
// keeps the distribution uniform over area instead of clustering at the
// center.
func (c *Controller) randomPatrolPoint(home geom.Vec3, radius float64) geom.Vec3 {
	if radius <= 0 {
		return home
	}
	angle := c.rng.Float64() * 2 * math.Pi
	dist := radius * math.Sqrt(c.rng.Float64())
	return geom.Vec3{
		X: home.X + math.Cos(angle)*dist,
		Y: home.Y,
		Z: home.Z + math.Sin(angle)*dist,
	}
}

func (c *Controller) pause(max float64) float64 {
	if max <= 0 {
		return 0
	}
	return c.rng.Float64() * max
}

// jitteredInterval spreads retarget ticks so the whole population never
// reassesses in the same frame.
func (c *Controller) jitteredInterval(interval float64) float64 {
	if interval <= 0 {
		return 0
	}
	return interval * (0.75 + c.rng.Float64()*0.5)
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
