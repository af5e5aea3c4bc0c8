package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorldConfig tunes the physics and collision pass. Values are omitted from
// YAML fall back to the documented defaults via normalized().
type WorldConfig struct {
	// MaxUnits is the registry's hard admission ceiling.
	MaxUnits int `yaml:"maxUnits"`
	// KnockbackFriction is the decay factor applied to knockback velocity
	// once per Update call. The reference behavior deliberately does not
	// scale this by dt; preserved as-is.
	KnockbackFriction float64 `yaml:"knockbackFriction"`
	// StopThreshold snaps residual velocities to zero to kill micro-motion.
	StopThreshold float64 `yaml:"stopThreshold"`
	// PushStrength scales pairwise separation; 0.5 fully separates an
	// equal-mass pair in a single pass.
	PushStrength float64 `yaml:"pushStrength"`
	// MinDistance enforces spacing beyond the summed collision radii when
	// larger than them.
	MinDistance float64 `yaml:"minDistance"`
	// Gravity accelerates airborne units toward the ground, m/s².
	Gravity float64 `yaml:"gravity"`
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		MaxUnits:          100,
		KnockbackFriction: 0.9,
		StopThreshold:     0.05,
		PushStrength:      0.5,
		Gravity:           9.81,
	}
}

// normalized fills zero fields with defaults so a sparse YAML file behaves.
func (c WorldConfig) normalized() WorldConfig {
	defaults := DefaultWorldConfig()
	normalized := c
	if normalized.MaxUnits <= 0 {
		normalized.MaxUnits = defaults.MaxUnits
	}
	if normalized.KnockbackFriction <= 0 || normalized.KnockbackFriction >= 1 {
		normalized.KnockbackFriction = defaults.KnockbackFriction
	}
	if normalized.StopThreshold <= 0 {
		normalized.StopThreshold = defaults.StopThreshold
	}
	if normalized.PushStrength <= 0 {
		normalized.PushStrength = defaults.PushStrength
	}
	if normalized.MinDistance < 0 {
		normalized.MinDistance = 0
	}
	if normalized.Gravity <= 0 {
		normalized.Gravity = defaults.Gravity
	}
	return normalized
}

// LoadWorldConfig parses a YAML world config, applying defaults for anything
// the file leaves out.
func LoadWorldConfig(path string) (WorldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WorldConfig{}, fmt.Errorf("read world config: %w", err)
	}
	var cfg WorldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WorldConfig{}, fmt.Errorf("parse world config: %w", err)
	}
	return cfg.normalized(), nil
}
