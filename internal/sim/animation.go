package sim

import "warband/sim/internal/unit"

// AnimationSink is the host-supplied capability mapping simulation state to
// whatever playback system renders it. The core only names animations; it
// knows nothing about blending.
type AnimationSink interface {
	PlayAnimation(u *unit.Unit, animationName string, fadeDuration float64)
	StopAnimations(u *unit.Unit)
	IsAnimationPlaying(u *unit.Unit, animationName string) bool
}

type nopAnimationSink struct{}

func (nopAnimationSink) PlayAnimation(*unit.Unit, string, float64)  {}
func (nopAnimationSink) StopAnimations(*unit.Unit)                  {}
func (nopAnimationSink) IsAnimationPlaying(*unit.Unit, string) bool { return false }

// NopAnimationSink is used when the host renders nothing (tests, headless).
func NopAnimationSink() AnimationSink {
	return nopAnimationSink{}
}

const animationFade = 0.2

// animationForState names the clip for a unit's current behavior state.
func animationForState(u *unit.Unit) string {
	if u == nil {
		return ""
	}
	if !u.Alive() {
		return "death"
	}
	if u.Combat.Stunned {
		return "stunned"
	}
	if u.Behavior == nil {
		return ""
	}
	switch u.Behavior.State {
	case unit.StatePatrol, unit.StateReturn:
		return "walk"
	case unit.StateChase:
		return "run"
	case unit.StateAttack:
		return "attack"
	default:
		return "idle"
	}
}
