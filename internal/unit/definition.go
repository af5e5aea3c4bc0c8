package unit

import "fmt"

// Type labels what drives a unit: direct player input, hostile AI, or
// ambient AI.
type Type string

const (
	TypePlayer Type = "player"
	TypeEnemy  Type = "enemy"
	TypeNPC    Type = "npc"
)

func (t Type) Valid() bool {
	switch t {
	case TypePlayer, TypeEnemy, TypeNPC:
		return true
	}
	return false
}

// Stats are the base values stamped onto every unit created from a
// definition. CollisionRadius must stay positive.
type Stats struct {
	Speed           float64 `json:"speed" yaml:"speed"`
	MaxHealth       float64 `json:"maxHealth" yaml:"maxHealth"`
	AttackDamage    float64 `json:"attackDamage" yaml:"attackDamage"`
	CollisionRadius float64 `json:"collisionRadius" yaml:"collisionRadius"`
}

// AIConfig tunes the behavior FSM. A definition without one never gets
// behavior state, regardless of its type.
type AIConfig struct {
	DetectionRange       float64 `json:"detectionRange" yaml:"detectionRange"`
	AttackRange          float64 `json:"attackRange" yaml:"attackRange"`
	Speed                float64 `json:"speed" yaml:"speed"`
	RotationSpeed        float64 `json:"rotationSpeed" yaml:"rotationSpeed"`
	PatrolRadius         float64 `json:"patrolRadius" yaml:"patrolRadius"`
	PauseDurationMax     float64 `json:"pauseDurationMax" yaml:"pauseDurationMax"`
	TargetUpdateInterval float64 `json:"targetUpdateInterval" yaml:"targetUpdateInterval"`
}

// AttackSpec configures one attack kind. All times are seconds on the
// simulation clock.
type AttackSpec struct {
	Damage       float64 `json:"damage" yaml:"damage"`
	Knockback    float64 `json:"knockback" yaml:"knockback"`
	Range        float64 `json:"range" yaml:"range"`
	Cooldown     float64 `json:"cooldown" yaml:"cooldown"`
	StaminaCost  float64 `json:"staminaCost" yaml:"staminaCost"`
	StunDuration float64 `json:"stunDuration" yaml:"stunDuration"`
	// ActionDelay is the wind-up before the hit lands; Duration is the full
	// action window during which the attacker counts as attacking.
	ActionDelay float64 `json:"actionDelay" yaml:"actionDelay"`
	Duration    float64 `json:"duration" yaml:"duration"`
}

// CombatConfig enables the combat controller for units of a definition.
type CombatConfig struct {
	Light        *AttackSpec `json:"light,omitempty" yaml:"light,omitempty"`
	Heavy        *AttackSpec `json:"heavy,omitempty" yaml:"heavy,omitempty"`
	MaxStamina   float64     `json:"maxStamina" yaml:"maxStamina"`
	StaminaRegen float64     `json:"staminaRegen" yaml:"staminaRegen"`
}

// Definition is the immutable template units are created from. Instances keep
// a shared read-only reference back to it.
type Definition struct {
	ID     string        `json:"id" yaml:"id"`
	Type   Type          `json:"type" yaml:"type"`
	Stats  Stats         `json:"stats" yaml:"stats"`
	AI     *AIConfig     `json:"ai,omitempty" yaml:"ai,omitempty"`
	Combat *CombatConfig `json:"combat,omitempty" yaml:"combat,omitempty"`
}

// Validate rejects definitions that would break registry invariants.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("definition is nil")
	}
	if d.ID == "" {
		return fmt.Errorf("definition id is empty")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("definition %q: unknown type %q", d.ID, d.Type)
	}
	if d.Stats.CollisionRadius <= 0 {
		return fmt.Errorf("definition %q: collisionRadius must be positive", d.ID)
	}
	if d.Stats.MaxHealth <= 0 {
		return fmt.Errorf("definition %q: maxHealth must be positive", d.ID)
	}
	if d.AI != nil {
		if d.AI.DetectionRange < 0 || d.AI.AttackRange < 0 {
			return fmt.Errorf("definition %q: ai ranges must not be negative", d.ID)
		}
	}
	if d.Combat != nil {
		for kind, spec := range map[string]*AttackSpec{"light": d.Combat.Light, "heavy": d.Combat.Heavy} {
			if spec == nil {
				continue
			}
			if spec.Range < 0 || spec.Cooldown < 0 || spec.StaminaCost < 0 {
				return fmt.Errorf("definition %q: %s attack has negative tuning", d.ID, kind)
			}
		}
	}
	return nil
}
