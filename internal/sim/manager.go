// Package sim hosts the unit manager: the single orchestrator that owns the
// registry and drives the per-frame pipeline of behavior decisions, animation
// mapping, physics integration, and pairwise collision resolution. Everything
// runs cooperatively inside one Update call; there is no internal locking.
package sim

import (
	"context"
	"math/rand"

	"warband/sim/internal/ai"
	"warband/sim/internal/combat"
	"warband/sim/internal/geom"
	"warband/sim/internal/sched"
	"warband/sim/internal/unit"
	"warband/sim/logging"
	logginglifecycle "warband/sim/logging/lifecycle"
)

// Options bundles the manager's collaborators. Every field is optional;
// zero values get headless defaults.
type Options struct {
	World     WorldConfig
	Sink      AnimationSink
	Ground    HeightSource
	Publisher logging.Publisher
	RNG       *rand.Rand
	// OnDefeat fires when combat drops a unit to zero health.
	OnDefeat func(attacker, target *unit.Unit)
}

var _ combat.Host = (*Manager)(nil)

// Manager is the public surface of the simulation core.
type Manager struct {
	cfg       WorldConfig
	registry  *unit.Registry
	behavior  *ai.Controller
	combat    *combat.Controller
	scheduler *sched.Scheduler
	sink      AnimationSink
	ground    HeightSource
	pub       logging.Publisher

	tick     uint64
	elapsed  float64
	disposed bool
}

func NewManager(opts Options) *Manager {
	cfg := opts.World.normalized()
	pub := opts.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	sink := opts.Sink
	if sink == nil {
		sink = NopAnimationSink()
	}
	ground := opts.Ground
	if ground == nil {
		ground = FlatGround()
	}

	m := &Manager{
		cfg:       cfg,
		registry:  unit.NewRegistry(cfg.MaxUnits),
		scheduler: sched.New(),
		sink:      sink,
		ground:    ground,
		pub:       pub,
	}
	m.behavior = ai.NewController(pub, opts.RNG)
	m.combat = combat.NewController(combat.Config{
		Host:       m,
		Scheduler:  m.scheduler,
		Publisher:  pub,
		TickSource: func() uint64 { return m.tick },
		OnDefeat:   opts.OnDefeat,
	})
	return m
}

// RegisterDefinition adds a unit template; duplicate ids are errors.
func (m *Manager) RegisterDefinition(def *unit.Definition) error {
	return m.registry.RegisterDefinition(def)
}

// CreateUnit spawns a unit from a registered definition. Failures are
// recoverable admission results: the caller decides whether to retry or skip.
func (m *Manager) CreateUnit(definitionID string, position geom.Vec3, opts *unit.CreateOptions) (*unit.Unit, error) {
	u, err := m.registry.CreateUnit(definitionID, position, opts)
	if err != nil {
		logginglifecycle.SpawnRejected(context.Background(), m.pub, m.tick, definitionID, err.Error())
		return nil, err
	}
	u.Position.Y = m.ground.HeightAt(u.Position.X, u.Position.Z)
	logginglifecycle.UnitSpawned(context.Background(), m.pub, m.tick, m.entityRef(u), definitionID)
	return u, nil
}

// RemoveUnit evicts a unit and cancels every deferred task scheduled under
// its id, so no timer ever fires against a dead reference.
func (m *Manager) RemoveUnit(id string) bool {
	u, ok := m.registry.Unit(id)
	if !ok {
		return false
	}
	m.sink.StopAnimations(u)
	m.scheduler.CancelOwner(id)
	m.combat.ReleaseUnit(id)
	m.registry.RemoveUnit(id)
	logginglifecycle.UnitRemoved(context.Background(), m.pub, m.tick, m.entityRef(u))
	return true
}

// GetUnit resolves a unit by id; nil when unknown.
func (m *Manager) GetUnit(id string) *unit.Unit {
	u, ok := m.registry.Unit(id)
	if !ok {
		return nil
	}
	return u
}

// AllUnits returns every live unit in insertion order.
func (m *Manager) AllUnits() []*unit.Unit {
	return m.registry.Units()
}

// UnitsByType filters live units on their definition type.
func (m *Manager) UnitsByType(t unit.Type) []*unit.Unit {
	return m.registry.UnitsByType(t)
}

// UnitsInRange scans for units within range of a position.
func (m *Manager) UnitsInRange(position geom.Vec3, rangeDist float64, exclude *unit.Unit) []*unit.Unit {
	return m.registry.UnitsInRange(position, rangeDist, exclude)
}

// Tick reports the current frame number.
func (m *Manager) Tick() uint64 {
	return m.tick
}

// Update advances one frame. The pipeline order is a contract: deferred
// tasks, then AI decisions against pre-update positions, then animation
// mapping, then physics integration, then the previous-position snapshot,
// then collision resolution.
func (m *Manager) Update(dt, elapsed float64) {
	if m == nil || m.disposed {
		return
	}
	m.tick++
	m.elapsed = elapsed

	m.scheduler.Advance(elapsed)

	player := m.registry.Player()
	units := m.registry.Units()

	eligible := make([]*unit.Unit, 0, len(units))
	for _, u := range units {
		if u.IsPlayer() || u.Behavior == nil {
			continue
		}
		if u.Combat.Stunned || !u.Alive() {
			continue
		}
		eligible = append(eligible, u)
	}
	m.behavior.Update(eligible, ai.Frame{
		Player:  player,
		Lookup:  m.registry.Unit,
		DT:      dt,
		Elapsed: elapsed,
		Tick:    m.tick,
	})

	for _, u := range units {
		if u.IsPlayer() {
			continue
		}
		m.applyAnimation(u)
	}

	for _, u := range units {
		m.integrate(u, dt)
	}
	for _, u := range units {
		if u.Physics != nil {
			u.Physics.PrevPosition = u.Position
		}
	}

	m.resolveCollisions()

	m.combat.UpdateCombat(units, dt, elapsed)
}

func (m *Manager) applyAnimation(u *unit.Unit) {
	name := animationForState(u)
	if name == "" {
		return
	}
	if m.sink.IsAnimationPlaying(u, name) {
		return
	}
	m.sink.PlayAnimation(u, name, animationFade)
}

// Dispose stops every deferred task and clears the registry. The manager is
// unusable afterwards.
func (m *Manager) Dispose() {
	if m == nil || m.disposed {
		return
	}
	for _, u := range m.registry.Units() {
		m.sink.StopAnimations(u)
	}
	m.scheduler.Clear()
	m.registry.Clear()
	m.disposed = true
}

// PlayAnimation forwards to the host animation sink; it completes the
// combat.Host capability.
func (m *Manager) PlayAnimation(u *unit.Unit, name string, fadeDuration float64) {
	if m == nil || u == nil || name == "" {
		return
	}
	m.sink.PlayAnimation(u, name, fadeDuration)
}

// PerformLightAttack attempts a light attack at the given sim time.
func (m *Manager) PerformLightAttack(attacker *unit.Unit, now float64) combat.Result {
	return m.combat.PerformLightAttack(attacker, now)
}

// PerformHeavyAttack attempts a heavy attack at the given sim time.
func (m *Manager) PerformHeavyAttack(attacker *unit.Unit, now float64) combat.Result {
	return m.combat.PerformHeavyAttack(attacker, now)
}

// CanAttack reports attack eligibility without consuming anything.
func (m *Manager) CanAttack(u *unit.Unit, kind unit.AttackKind, now float64) bool {
	return m.combat.CanAttack(u, kind, now)
}

// SetStamina clamps and stores a unit's stamina.
func (m *Manager) SetStamina(u *unit.Unit, value float64) {
	m.combat.SetStamina(u, value)
}

// UpdateCombat runs stamina regeneration over an explicit unit slice, for
// hosts that drive combat on their own cadence.
func (m *Manager) UpdateCombat(units []*unit.Unit, dt, now float64) {
	m.combat.UpdateCombat(units, dt, now)
}

// InitializeBehavior attaches fresh behavior state anchored at home (or the
// unit's position when home is nil).
func (m *Manager) InitializeBehavior(u *unit.Unit, home *geom.Vec3) {
	m.behavior.InitializeBehavior(u, home)
}

// SetBehaviorState forces a unit's FSM state.
func (m *Manager) SetBehaviorState(u *unit.Unit, state unit.BehaviorState) {
	m.behavior.SetBehaviorState(u, state)
}

// GetBehaviorData exposes a unit's behavior state; nil for units without AI.
func (m *Manager) GetBehaviorData(u *unit.Unit) *unit.Behavior {
	return m.behavior.BehaviorData(u)
}

func (m *Manager) entityRef(u *unit.Unit) logging.EntityRef {
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
