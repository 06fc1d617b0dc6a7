package fitcommon

import "math"

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FromUnit maps u in [0,1] onto [lo,hi]. With log set the mapping is
// geometric, which suits frequency and time ranges.
func FromUnit(u, lo, hi float64, log bool) float64 {
	u = Clamp(u, 0, 1)
	if log {
		return lo * math.Pow(hi/lo, u)
	}
	return lo + (hi-lo)*u
}

// ToUnit inverts FromUnit.
func ToUnit(v, lo, hi float64, log bool) float64 {
	if log {
		return Clamp(math.Log(v/lo)/math.Log(hi/lo), 0, 1)
	}
	return Clamp((v-lo)/(hi-lo), 0, 1)
}

func ToFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

func ToFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// PeakNormalize scales all channels together so the largest magnitude
// equals target, and returns the applied gain. Silent input is left alone.
func PeakNormalize(channels [][]float32, target float32) float32 {
	var peak float32
	for _, ch := range channels {
		for _, v := range ch {
			if a := float32(math.Abs(float64(v))); a > peak {
				peak = a
			}
		}
	}
	if peak <= 0 {
		return 1
	}
	g := target / peak
	for _, ch := range channels {
		for i := range ch {
			ch[i] *= g
		}
	}
	return g
}
