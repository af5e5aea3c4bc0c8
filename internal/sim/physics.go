package sim

import (
	"warband/sim/internal/geom"
	"warband/sim/internal/unit"
)

// integrate advances one unit's physics channels: knockback displacement with
// per-call friction decay, linear velocity with optional damping, gravity for
// airborne units, and the terrain snap for grounded ones.
func (m *Manager) integrate(u *unit.Unit, dt float64) {
	if u == nil {
		return
	}
	p := u.Physics
	if p != nil {
		if !p.Knockback.IsZero() {
			u.Position = u.Position.Add(p.Knockback.Scale(dt))
			friction := p.Friction
			if friction <= 0 || friction >= 1 {
				friction = m.cfg.KnockbackFriction
			}
			p.Knockback = p.Knockback.Scale(friction)
			if p.Knockback.Length() < m.cfg.StopThreshold {
				p.Knockback = geom.Vec3{}
			}
		}

		if p.Gravity {
			p.Velocity.Y -= m.cfg.Gravity * dt
		}
		if !p.Velocity.IsZero() {
			u.Position = u.Position.Add(p.Velocity.Scale(dt))
			if p.LinearDamping > 0 {
				factor := 1 - p.LinearDamping*dt
				if factor < 0 {
					factor = 0
				}
				p.Velocity = p.Velocity.Scale(factor)
			}
			if p.Velocity.Length() < m.cfg.StopThreshold {
				p.Velocity = geom.Vec3{}
			}
		}
	}

	ground := m.ground.HeightAt(u.Position.X, u.Position.Z)
	if p != nil && p.Gravity {
		if u.Position.Y <= ground {
			u.Position.Y = ground
			if p.Velocity.Y < 0 {
				p.Velocity.Y = 0
			}
		}
	} else {
		u.Position.Y = ground
	}
}

// ApplyKnockback adds a horizontal impulse. Direction is normalized here so
// callers may pass raw offsets.
func (m *Manager) ApplyKnockback(u *unit.Unit, direction geom.Vec3, force float64) {
	if m == nil || u == nil || force <= 0 {
		return
	}
	dir := direction.Horizontal().Normalized()
	if dir.IsZero() {
		return
	}
	p := u.EnsurePhysics()
	p.Knockback = p.Knockback.Add(dir.Scale(force))
}

// SetUnitVelocity replaces the unit's velocity channel.
func (m *Manager) SetUnitVelocity(u *unit.Unit, velocity geom.Vec3) {
	if m == nil || u == nil {
		return
	}
	u.EnsurePhysics().Velocity = velocity
}

// AddUnitVelocity accumulates onto the velocity channel.
func (m *Manager) AddUnitVelocity(u *unit.Unit, velocity geom.Vec3) {
	if m == nil || u == nil {
		return
	}
	p := u.EnsurePhysics()
	p.Velocity = p.Velocity.Add(velocity)
}

// StopUnitMovement zeroes both physics channels.
func (m *Manager) StopUnitMovement(u *unit.Unit) {
	if m == nil || u == nil || u.Physics == nil {
		return
	}
	u.Physics.Velocity = geom.Vec3{}
	u.Physics.Knockback = geom.Vec3{}
}
