package sim

// HeightSource answers terrain height queries. The host supplies a real
// heightmap; the simulation only ever samples it.
type HeightSource interface {
	HeightAt(x, z float64) float64
}

// HeightFunc adapts a plain function to a HeightSource.
type HeightFunc func(x, z float64) float64

func (f HeightFunc) HeightAt(x, z float64) float64 {
	if f == nil {
		return 0
	}
	return f(x, z)
}

// FlatGround is the default: everything stands at height zero.
func FlatGround() HeightSource {
	return HeightFunc(func(float64, float64) float64 { return 0 })
}
