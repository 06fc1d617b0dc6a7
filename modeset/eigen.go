package modeset

import (
	"math"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// EigenRatios returns frequency ratios f_k/f_0 of a fixed 1-D structure
// discretised on n interior grid points. A string (stiff=false) vibrates at
// sqrt(λ) of the Dirichlet Laplacian. A simply supported bar (stiff=true)
// obeys the biharmonic operator whose eigenvalues are λ², so its
// frequencies scale with λ directly.
func EigenRatios(n int, stiff bool) []float64 {
	if n < 1 {
		return nil
	}
	h := 1.0 / float64(n+1)
	lambda := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)
	if len(lambda) == 0 || lambda[0] <= 0 {
		return nil
	}
	out := make([]float64, len(lambda))
	for i, l := range lambda {
		r := l / lambda[0]
		if !stiff {
			r = math.Sqrt(r)
		}
		out[i] = r
	}
	return out
}

// FromEigenvalues builds a mode set whose frequencies follow the
// finite-difference spectrum of a string or bar with fundamental f0.
// Decay shortens with frequency like a material with constant loss
// per cycle: tau_k = tau0 / ratio_k^lossExp. Amplitudes fall as
// 1/ratio_k and alternate sign like a pluck near the boundary.
func FromEigenvalues(sampleRate, f0 float64, modes int, stiff bool, tau0S, lossExp float64) *ModeSet {
	ms := &ModeSet{SampleRate: sampleRate}
	if modes < 1 || f0 <= 0 || sampleRate <= 0 {
		return ms
	}
	ratios := EigenRatios(max(4*modes, 64), stiff)
	nyq := 0.495 * sampleRate
	for k, r := range ratios {
		if len(ms.Freqs) == modes {
			break
		}
		f := f0 * r
		if f >= nyq {
			break
		}
		amp := 1.0 / r
		if k%2 == 1 {
			amp = -amp
		}
		tau := tau0S * sampleRate / math.Pow(r, lossExp)
		ms.Freqs = append(ms.Freqs, float32(f))
		ms.Taus = append(ms.Taus, float32(tau))
		ms.AmpsRe = append(ms.AmpsRe, float32(amp))
		ms.AmpsIm = append(ms.AmpsIm, 0)
	}
	return ms
}
