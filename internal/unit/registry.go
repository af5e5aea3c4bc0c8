package unit

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"warband/sim/internal/geom"
)

var (
	// ErrUnknownDefinition is returned when CreateUnit names an unregistered id.
	ErrUnknownDefinition = errors.New("unknown unit definition")
	// ErrDuplicateDefinition is returned when a definition id is registered twice.
	ErrDuplicateDefinition = errors.New("duplicate unit definition")
	// ErrCapacityExceeded is the backpressure signal when the registry is full.
	ErrCapacityExceeded = errors.New("unit capacity exceeded")
)

// DefaultMaxUnits caps the registry when no explicit ceiling is configured.
const DefaultMaxUnits = 100

// CreateOptions carries the optional arguments to CreateUnit.
type CreateOptions struct {
	Rotation float64
	// Stats overrides replace the definition's base stats field-by-field;
	// zero-valued fields keep the definition value.
	Stats    *Stats
	UserData any
}

// Registry owns every live unit and the definition catalog. Iteration order
// of Units() is insertion order, which also fixes collision pair order.
type Registry struct {
	definitions map[string]*Definition
	units       map[string]*Unit
	order       []*Unit
	maxUnits    int
}

func NewRegistry(maxUnits int) *Registry {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	return &Registry{
		definitions: make(map[string]*Definition),
		units:       make(map[string]*Unit),
		order:       make([]*Unit, 0, maxUnits),
		maxUnits:    maxUnits,
	}
}

// RegisterDefinition adds a template to the catalog. Re-registering an id is
// surfaced as an error rather than silently overwriting the existing entry.
func (r *Registry) RegisterDefinition(def *Definition) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.definitions[def.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.ID)
	}
	r.definitions[def.ID] = def
	return nil
}

// Definition resolves a registered template by id.
func (r *Registry) Definition(id string) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.definitions[id]
	return def, ok
}

// CreateUnit instantiates a definition at a spawn position. Unknown
// definitions and a full registry are recoverable failures the caller
// branches on.
func (r *Registry) CreateUnit(definitionID string, position geom.Vec3, opts *CreateOptions) (*Unit, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	def, ok := r.definitions[definitionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, definitionID)
	}
	if len(r.order) >= r.maxUnits {
		return nil, fmt.Errorf("%w: limit %d", ErrCapacityExceeded, r.maxUnits)
	}

	stats := def.Stats
	if opts != nil && opts.Stats != nil {
		if opts.Stats.Speed != 0 {
			stats.Speed = opts.Stats.Speed
		}
		if opts.Stats.MaxHealth != 0 {
			stats.MaxHealth = opts.Stats.MaxHealth
		}
		if opts.Stats.AttackDamage != 0 {
			stats.AttackDamage = opts.Stats.AttackDamage
		}
		if opts.Stats.CollisionRadius > 0 {
			stats.CollisionRadius = opts.Stats.CollisionRadius
		}
	}

	u := &Unit{
		ID:              uuid.NewString(),
		Def:             def,
		Position:        position,
		Health:          stats.MaxHealth,
		MaxHealth:       stats.MaxHealth,
		Speed:           stats.Speed,
		AttackDamage:    stats.AttackDamage,
		CollisionRadius: stats.CollisionRadius,
	}
	if opts != nil {
		u.Rotation = opts.Rotation
		u.UserData = opts.UserData
	}
	if def.Type != TypePlayer && def.AI != nil {
		u.Behavior = &Behavior{
			State: StateIdle,
			Home:  position,
		}
	}
	if def.Combat != nil {
		u.Combat.Stamina = def.Combat.MaxStamina
		// Backdate the attack timestamps so a fresh unit is not stuck in a
		// phantom cooldown at the start of the clock.
		if def.Combat.Light != nil {
			u.Combat.LastLightAttackAt = -def.Combat.Light.Cooldown
		}
		if def.Combat.Heavy != nil {
			u.Combat.LastHeavyAttackAt = -def.Combat.Heavy.Cooldown
		}
	}

	r.units[u.ID] = u
	r.order = append(r.order, u)
	return u, nil
}

// RemoveUnit evicts a unit; false when the id is unknown.
func (r *Registry) RemoveUnit(id string) bool {
	if r == nil {
		return false
	}
	if _, ok := r.units[id]; !ok {
		return false
	}
	delete(r.units, id)
	for i, u := range r.order {
		if u.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Unit resolves a live unit by id.
func (r *Registry) Unit(id string) (*Unit, bool) {
	if r == nil {
		return nil, false
	}
	u, ok := r.units[id]
	return u, ok
}

// Units returns the live units in insertion order. The slice is shared;
// callers must not mutate it.
func (r *Registry) Units() []*Unit {
	if r == nil {
		return nil
	}
	return r.order
}

// UnitsByType filters the live units on their definition type.
func (r *Registry) UnitsByType(t Type) []*Unit {
	if r == nil {
		return nil
	}
	matched := make([]*Unit, 0)
	for _, u := range r.order {
		if u.Kind() == t {
			matched = append(matched, u)
		}
	}
	return matched
}

// UnitsInRange scans linearly for units within range of a position,
// optionally excluding one unit (typically the attacker).
func (r *Registry) UnitsInRange(position geom.Vec3, rangeDist float64, exclude *Unit) []*Unit {
	if r == nil || rangeDist <= 0 {
		return nil
	}
	matched := make([]*Unit, 0)
	for _, u := range r.order {
		if exclude != nil && u.ID == exclude.ID {
			continue
		}
		if geom.Distance(u.Position, position) <= rangeDist {
			matched = append(matched, u)
		}
	}
	return matched
}

// Player returns the first live player unit, if any.
func (r *Registry) Player() *Unit {
	if r == nil {
		return nil
	}
	for _, u := range r.order {
		if u.IsPlayer() {
			return u
		}
	}
	return nil
}

// Len reports the live unit count.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Clear drops every unit. Definitions are kept.
func (r *Registry) Clear() {
	if r == nil {
		return
	}
	r.units = make(map[string]*Unit)
	r.order = r.order[:0]
}
