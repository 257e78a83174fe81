package sweep

// Sweep domain constants. The sweep is 8 equally spaced parameters over
// [0.1, 2.0] inclusive, 1000 shots per circuit.
const (
	DefaultStart  = 0.1
	DefaultEnd    = 2.0
	DefaultPoints = 8
	DefaultShots  = 1000
)

// Params returns count equally spaced values over [start, end], including
// both endpoints, in strictly increasing order.
func Params(start, end float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{start}
	}

	step := (end - start) / float64(count-1)
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = start + step*float64(i)
	}
	// Pin the endpoint exactly; accumulated float steps can drift.
	out[count-1] = end
	return out
}

// DefaultParams returns the standard validation sweep.
func DefaultParams() []float64 {
	return Params(DefaultStart, DefaultEnd, DefaultPoints)
}
