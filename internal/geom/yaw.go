package geom

import "math"

// Yaw returns the heading (radians) of a horizontal direction vector. A zero
// vector yields zero.
func Yaw(dir Vec3) float64 {
	if dir.X == 0 && dir.Z == 0 {
		return 0
	}
	return math.Atan2(dir.X, dir.Z)
}

// YawDirection converts a heading back into a horizontal unit vector.
func YawDirection(yaw float64) Vec3 {
	return Vec3{X: math.Sin(yaw), Z: math.Cos(yaw)}
}

// RotateYawToward advances current toward target along the shortest arc,
// moving at most maxDelta radians. It never over-rotates past the target.
func RotateYawToward(current, target, maxDelta float64) float64 {
	diff := NormalizeAngle(target - current)
	if math.Abs(diff) <= maxDelta {
		return target
	}
	if diff > 0 {
		return NormalizeAngle(current + maxDelta)
	}
	return NormalizeAngle(current - maxDelta)
}

// NormalizeAngle wraps an angle into (-π, π].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
