package sim

import (
	"testing"

	"warband/sim/internal/geom"
)

func TestApplyKnockbackNormalizesDirection(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})

	m.ApplyKnockback(u, geom.Vec3{X: 3, Y: 7, Z: 4}, 10)

	kb := u.Physics.Knockback
	if kb.Y != 0 {
		t.Fatalf("knockback must stay horizontal, got %+v", kb)
	}
	if !almostEqual(kb.Length(), 10) {
		t.Fatalf("knockback magnitude %v, want 10", kb.Length())
	}
	if !almostEqual(kb.X, 6) || !almostEqual(kb.Z, 8) {
		t.Fatalf("knockback direction %+v, want (6, 0, 8)", kb)
	}
}

func TestApplyKnockbackAccumulates(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})

	m.ApplyKnockback(u, geom.Vec3{X: 1}, 4)
	m.ApplyKnockback(u, geom.Vec3{X: 1}, 2)

	if !almostEqual(u.Physics.Knockback.X, 6) {
		t.Fatalf("stacked knockback %v, want 6", u.Physics.Knockback.X)
	}
}

func TestKnockbackDecaysAndSnapsToZero(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{KnockbackFriction: 0.9, StopThreshold: 0.05}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	m.ApplyKnockback(u, geom.Vec3{X: 1}, 10)

	prevSpeed := u.Physics.Knockback.Length()
	prevX := u.Position.X
	for frame := 1; frame <= 80; frame++ {
		m.Update(0.05, float64(frame)*0.05)
		speed := u.Physics.Knockback.Length()
		if speed > prevSpeed {
			t.Fatalf("frame %d: knockback grew %v -> %v", frame, prevSpeed, speed)
		}
		if u.Position.X < prevX {
			t.Fatalf("frame %d: knockback reversed direction", frame)
		}
		prevSpeed = speed
		prevX = u.Position.X
	}
	if !u.Physics.Knockback.IsZero() {
		t.Fatalf("knockback never snapped to zero: %+v", u.Physics.Knockback)
	}
	if u.Position.X <= 0 {
		t.Fatalf("knockback produced no displacement")
	}
}

func TestVelocityDampingSnapsToZero(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{StopThreshold: 0.05}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	p := u.EnsurePhysics()
	p.LinearDamping = 2
	m.SetUnitVelocity(u, geom.Vec3{X: 5})

	for frame := 1; frame <= 60; frame++ {
		m.Update(0.1, float64(frame)*0.1)
	}
	if !u.Physics.Velocity.IsZero() {
		t.Fatalf("damped velocity never snapped to zero: %+v", u.Physics.Velocity)
	}
	if u.Position.X <= 0 {
		t.Fatalf("velocity produced no displacement")
	}
}

func TestUndampedVelocityPersists(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	m.SetUnitVelocity(u, geom.Vec3{X: 2})

	m.Update(0.5, 0.5)
	m.Update(0.5, 1.0)

	if !almostEqual(u.Position.X, 2) {
		t.Fatalf("expected X=2 after one second at 2 m/s, got %v", u.Position.X)
	}
	if !almostEqual(u.Physics.Velocity.X, 2) {
		t.Fatalf("undamped velocity must persist, got %v", u.Physics.Velocity.X)
	}
}

func TestGravityPullsAirborneUnitToGround(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{Gravity: 9.81}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	u.Position.Y = 5
	u.EnsurePhysics().Gravity = true

	prevY := u.Position.Y
	for frame := 1; frame <= 100; frame++ {
		m.Update(0.05, float64(frame)*0.05)
		if u.Position.Y > prevY+positionEpsilon {
			t.Fatalf("frame %d: airborne unit climbed %v -> %v", frame, prevY, u.Position.Y)
		}
		prevY = u.Position.Y
	}
	if u.Position.Y != 0 {
		t.Fatalf("unit never landed, Y=%v", u.Position.Y)
	}
	if u.Physics.Velocity.Y < 0 {
		t.Fatalf("landing must cancel downward velocity, got %v", u.Physics.Velocity.Y)
	}
}

func TestGroundedUnitFollowsTerrain(t *testing.T) {
	terrain := HeightFunc(func(x, _ float64) float64 { return x / 2 })
	m := NewManager(Options{Ground: terrain})
	if err := m.RegisterDefinition(blockerDefinition(0.5)); err != nil {
		t.Fatalf("register definition: %v", err)
	}
	u := spawnAt(t, m, geom.Vec3{X: 4})
	if !almostEqual(u.Position.Y, 2) {
		t.Fatalf("spawn must snap to terrain, Y=%v", u.Position.Y)
	}

	m.SetUnitVelocity(u, geom.Vec3{X: 2})
	m.Update(1.0, 1.0)
	if !almostEqual(u.Position.Y, 3) {
		t.Fatalf("grounded unit must track terrain, Y=%v", u.Position.Y)
	}
}

func TestMovementMutatorsTolerateMissingPhysics(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	if u.Physics != nil {
		t.Fatalf("physics must be lazy")
	}

	// Stop before any channel exists is a no-op, not a panic, and does not
	// allocate state.
	m.StopUnitMovement(u)
	if u.Physics != nil {
		t.Fatalf("stop must not allocate physics")
	}

	m.ApplyKnockback(u, geom.Vec3{}, 5) // zero direction is dropped
	if u.Physics != nil {
		t.Fatalf("zero-direction knockback must not allocate physics")
	}

	m.AddUnitVelocity(u, geom.Vec3{X: 1})
	if u.Physics == nil || !almostEqual(u.Physics.Velocity.X, 1) {
		t.Fatalf("first mutator must create the channel")
	}
	m.StopUnitMovement(u)
	if !u.Physics.Velocity.IsZero() || !u.Physics.Knockback.IsZero() {
		t.Fatalf("stop must zero both channels")
	}
}

func TestPrevPositionSnapshotsAfterIntegration(t *testing.T) {
	m := newCollisionManager(t, WorldConfig{}, 0.5)
	u := spawnAt(t, m, geom.Vec3{})
	m.SetUnitVelocity(u, geom.Vec3{X: 2})

	m.Update(0.5, 0.5)

	if !almostEqual(u.Physics.PrevPosition.X, u.Position.X) {
		t.Fatalf("prev position %v must match post-frame position %v", u.Physics.PrevPosition.X, u.Position.X)
	}
}
