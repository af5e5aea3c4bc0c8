package ai

import (
	"math"
	"math/rand"
	"testing"

	"warband/sim/internal/geom"
	"warband/sim/internal/unit"
	"warband/sim/logging"
)

func newTestController() *Controller {
	return NewController(logging.NopPublisher(), rand.New(rand.NewSource(1)))
}

func gruntDefinition() *unit.Definition {
	return &unit.Definition{
		ID:   "grunt",
		Type: unit.TypeEnemy,
		Stats: unit.Stats{
			Speed:           4,
			MaxHealth:       60,
			AttackDamage:    8,
			CollisionRadius: 0.5,
		},
		AI: &unit.AIConfig{
			DetectionRange:       12,
			AttackRange:          2,
			Speed:                4,
			RotationSpeed:        8,
			PatrolRadius:         8,
			PauseDurationMax:     2,
			TargetUpdateInterval: 0.4,
		},
	}
}

func newGrunt(pos geom.Vec3) *unit.Unit {
	def := gruntDefinition()
	return &unit.Unit{
		ID:        "grunt-1",
		Def:       def,
		Position:  pos,
		Health:    def.Stats.MaxHealth,
		MaxHealth: def.Stats.MaxHealth,
		Speed:     def.Stats.Speed,
		Behavior: &unit.Behavior{
			State: unit.StateIdle,
			Home:  pos,
		},
	}
}

func newPlayer(pos geom.Vec3) *unit.Unit {
	return &unit.Unit{
		ID:        "player-1",
		Def:       &unit.Definition{ID: "player", Type: unit.TypePlayer, Stats: unit.Stats{MaxHealth: 100, CollisionRadius: 0.5}},
		Position:  pos,
		Health:    100,
		MaxHealth: 100,
	}
}

func frameFor(player *unit.Unit, dt, elapsed float64) Frame {
	lookup := func(id string) (*unit.Unit, bool) {
		if player != nil && player.ID == id {
			return player, true
		}
		return nil, false
	}
	return Frame{Player: player, Lookup: lookup, DT: dt, Elapsed: elapsed}
}

func TestIdleUnitChasesPlayerInDetectionRange(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: 8})

	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, 0))

	b := grunt.Behavior
	if b.State != unit.StateChase {
		t.Fatalf("expected chase, got %s", b.State)
	}
	if b.TargetID != player.ID {
		t.Fatalf("expected target %s, got %q", player.ID, b.TargetID)
	}
	if b.Attacking {
		t.Fatalf("attacking flag must be cleared on chase entry")
	}
}

func TestIdleUnitPatrolsWhenNoPlayerNearby(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: 100})

	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, 0))

	b := grunt.Behavior
	if b.State != unit.StatePatrol {
		t.Fatalf("expected patrol, got %s", b.State)
	}
	if dist := geom.HorizontalDistance(b.TargetPos, b.Home); dist > grunt.Def.AI.PatrolRadius {
		t.Fatalf("patrol target outside radius: %v", dist)
	}
}

func TestChaseClosesDistanceAndEntersAttack(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: 8})

	dt := 1.0 / 20
	elapsed := 0.0
	entered := false
	for i := 0; i < 400; i++ {
		c.Update([]*unit.Unit{grunt}, frameFor(player, dt, elapsed))
		elapsed += dt
		if grunt.Behavior.State == unit.StateAttack {
			entered = true
			break
		}
	}
	if !entered {
		t.Fatalf("expected grunt to reach attack state, stuck in %s at %v", grunt.Behavior.State, grunt.Position)
	}
	if !grunt.Behavior.Attacking {
		t.Fatalf("attack entry must raise the attacking flag")
	}
	if dist := geom.HorizontalDistance(grunt.Position, player.Position); dist > grunt.Def.AI.AttackRange*1.01 {
		t.Fatalf("attack entered while out of range: %v", dist)
	}
}

func TestAttackHoldsInsideHysteresisBand(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: grunt.Def.AI.AttackRange * 1.5})

	b := grunt.Behavior
	b.State = unit.StateAttack
	b.TargetID = player.ID
	b.Attacking = true
	b.NextRetargetAt = math.MaxFloat64 // isolate the hysteresis check

	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, 1))

	if b.State != unit.StateAttack {
		t.Fatalf("must not leave attack at exactly attackRange*1.5, got %s", b.State)
	}
}

func TestAttackFallsBackToChaseBeyondHysteresis(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: grunt.Def.AI.AttackRange*1.5 + 0.1})

	b := grunt.Behavior
	b.State = unit.StateAttack
	b.TargetID = player.ID
	b.Attacking = true
	b.NextRetargetAt = math.MaxFloat64

	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, 1))

	if b.State != unit.StateChase {
		t.Fatalf("expected chase beyond hysteresis band, got %s", b.State)
	}
	if b.Attacking {
		t.Fatalf("attacking flag must drop when falling back to chase")
	}
}

func TestLostTargetSendsUnitHome(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{X: 30})

	b := grunt.Behavior
	b.State = unit.StateChase
	b.TargetID = "player-gone"
	b.NextRetargetAt = math.MaxFloat64

	c.Update([]*unit.Unit{grunt}, frameFor(nil, 1.0/20, 1))

	if b.State != unit.StateReturn {
		t.Fatalf("expected return after losing target, got %s", b.State)
	}
	if b.TargetID != "" {
		t.Fatalf("target reference must be cleared, got %q", b.TargetID)
	}
}

func TestPatrolArrivalPausesInIdle(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})

	b := grunt.Behavior
	b.State = unit.StatePatrol
	b.TargetPos = geom.Vec3{X: 1.0} // inside the arrive radius
	b.NextRetargetAt = math.MaxFloat64

	c.Update([]*unit.Unit{grunt}, frameFor(nil, 1.0/20, 5))

	if b.State != unit.StateIdle {
		t.Fatalf("expected idle on arrival, got %s", b.State)
	}
	if b.ResumeAt < 5 {
		t.Fatalf("expected a pause at or after arrival, got %v", b.ResumeAt)
	}
}

func TestReturnArrivalPausesInIdle(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	grunt.Position = geom.Vec3{X: 1.5} // within 2.0 of home

	b := grunt.Behavior
	b.State = unit.StateReturn
	b.NextRetargetAt = math.MaxFloat64

	c.Update([]*unit.Unit{grunt}, frameFor(nil, 1.0/20, 5))

	if b.State != unit.StateIdle {
		t.Fatalf("expected idle on returning home, got %s", b.State)
	}
}

func TestPauseGatesMovement(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})

	b := grunt.Behavior
	b.State = unit.StatePatrol
	b.TargetPos = geom.Vec3{X: 10}
	b.ResumeAt = 100
	b.NextRetargetAt = math.MaxFloat64

	before := grunt.Position
	c.Update([]*unit.Unit{grunt}, frameFor(nil, 1.0/20, 5))
	if grunt.Position != before {
		t.Fatalf("paused unit must not move: %+v -> %+v", before, grunt.Position)
	}
}

func TestRetargetIsRateLimited(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: 100})

	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, 0))
	b := grunt.Behavior
	if b.NextRetargetAt <= 0 {
		t.Fatalf("retarget tick must be pushed into the future")
	}
	interval := grunt.Def.AI.TargetUpdateInterval
	if b.NextRetargetAt < interval*0.75 || b.NextRetargetAt > interval*1.25 {
		t.Fatalf("jittered interval out of band: %v", b.NextRetargetAt)
	}

	// Move the player into range before the next retarget tick: no reaction.
	player.Position = geom.Vec3{X: 5}
	c.Update([]*unit.Unit{grunt}, frameFor(player, 1.0/20, b.NextRetargetAt/2))
	if b.State == unit.StateChase {
		t.Fatalf("retarget fired before its scheduled tick")
	}
}

func TestInitializeBehavior(t *testing.T) {
	c := newTestController()
	def := gruntDefinition()
	u := &unit.Unit{ID: "u", Def: def, Position: geom.Vec3{X: 3}}

	c.InitializeBehavior(u, nil)
	if u.Behavior == nil || u.Behavior.Home != u.Position {
		t.Fatalf("expected behavior anchored at current position")
	}

	home := geom.Vec3{X: 9}
	c.InitializeBehavior(u, &home)
	if u.Behavior.Home != home {
		t.Fatalf("expected behavior anchored at explicit home")
	}

	player := newPlayer(geom.Vec3{})
	c.InitializeBehavior(player, nil)
	if player.Behavior != nil {
		t.Fatalf("player units must not get behavior state")
	}
}

func TestSingleActiveState(t *testing.T) {
	c := newTestController()
	grunt := newGrunt(geom.Vec3{})
	player := newPlayer(geom.Vec3{X: 8})

	dt := 1.0 / 20
	elapsed := 0.0
	valid := map[unit.BehaviorState]bool{
		unit.StateIdle: true, unit.StatePatrol: true, unit.StateChase: true,
		unit.StateAttack: true, unit.StateReturn: true,
	}
	for i := 0; i < 200; i++ {
		c.Update([]*unit.Unit{grunt}, frameFor(player, dt, elapsed))
		elapsed += dt
		if !valid[grunt.Behavior.State] {
			t.Fatalf("unknown state %q", grunt.Behavior.State)
		}
	}
}
