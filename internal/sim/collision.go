package sim

import (
	"warband/sim/internal/geom"
	"warband/sim/internal/unit"
)

// CheckUnitCollision reports whether two units currently overlap on the
// ground plane.
func (m *Manager) CheckUnitCollision(u1, u2 *unit.Unit) bool {
	if u1 == nil || u2 == nil || u1 == u2 {
		return false
	}
	return geom.HorizontalDistance(u1.Position, u2.Position) < u1.CollisionRadius+u2.CollisionRadius
}

// resolveCollisions runs one relaxation pass over every unordered pair in
// insertion order. Chains of three or more overlapping units can keep
// residual overlap into the next frame; it converges over subsequent passes
// instead of iterating here.
func (m *Manager) resolveCollisions() {
	units := m.registry.Units()
	if len(units) < 2 {
		return
	}
	for i := 0; i < len(units); i++ {
		for j := i + 1; j < len(units); j++ {
			m.resolvePair(units[i], units[j])
		}
	}
}

func (m *Manager) resolvePair(u1, u2 *unit.Unit) {
	required := u1.CollisionRadius + u2.CollisionRadius
	if m.cfg.MinDistance > required {
		required = m.cfg.MinDistance
	}

	delta := u2.Position.Sub(u1.Position).Horizontal()
	dist := delta.Length()
	// Coincident units have no defined separation axis; leave them for a
	// frame in which they differ.
	if dist == 0 || dist >= required {
		return
	}

	overlap := required - dist
	dir := delta.Scale(1 / dist)

	mass1 := unitMass(u1)
	mass2 := unitMass(u2)
	total := mass1 + mass2

	// PushStrength 0.5 resolves an equal-mass pair exactly in one pass; the
	// correction splits by inverse mass so heavy units barely budge.
	correction := overlap * m.cfg.PushStrength * 2
	u1.Position = u1.Position.Sub(dir.Scale(correction * mass2 / total))
	u2.Position = u2.Position.Add(dir.Scale(correction * mass1 / total))
}

func unitMass(u *unit.Unit) float64 {
	if u.Physics != nil && u.Physics.Mass > 0 {
		return u.Physics.Mass
	}
	return 1
}
