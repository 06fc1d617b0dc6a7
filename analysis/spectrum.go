package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// hann returns a symmetric Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// spectrumAnalyzer owns an FFT plan and its scratch buffers.
type spectrumAnalyzer struct {
	size   int
	plan   *algofft.PlanRealT[float64, complex128]
	window []float64
	buf    []float64
	spec   []complex128
}

func newSpectrumAnalyzer(size int) (*spectrumAnalyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two >= 2, got %d", size)
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	return &spectrumAnalyzer{
		size:   size,
		plan:   plan,
		window: hann(size),
		buf:    make([]float64, size),
		spec:   make([]complex128, size/2+1),
	}, nil
}

// magnitudes windows x (truncated to size) and writes |X[k]| for k in
// [0, size/2] into dst. Shorter inputs get a window of their own length
// and are zero padded.
func (s *spectrumAnalyzer) magnitudes(dst, x []float64) {
	if len(x) >= s.size {
		for i := range s.buf {
			s.buf[i] = x[i] * s.window[i]
		}
	} else {
		w := hann(len(x))
		for i := range s.buf {
			s.buf[i] = 0
			if i < len(x) {
				s.buf[i] = x[i] * w[i]
			}
		}
	}
	s.plan.Forward(s.spec, s.buf)
	for k := range dst {
		dst[k] = cmplx.Abs(s.spec[k])
	}
}

// MagnitudeSpectrum returns the Hann-windowed magnitude spectrum of the
// first fftSize samples of x (zero padded), fftSize/2+1 bins.
func MagnitudeSpectrum(x []float64, fftSize int) ([]float64, error) {
	s, err := newSpectrumAnalyzer(fftSize)
	if err != nil {
		return nil, err
	}
	out := make([]float64, fftSize/2+1)
	s.magnitudes(out, x)
	return out, nil
}

// PeakFrequency returns the frequency of the strongest spectral peak of x
// above minHz, refined by parabolic interpolation on the dB magnitudes.
func PeakFrequency(x []float64, sampleRate int, minHz float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(x) == 0 {
		return 0, fmt.Errorf("empty signal")
	}
	size := 1
	for size < len(x) && size < 1<<17 {
		size <<= 1
	}
	if size < 1024 {
		size = 1024
	}
	mags, err := MagnitudeSpectrum(x, size)
	if err != nil {
		return 0, err
	}
	binHz := float64(sampleRate) / float64(size)
	start := int(math.Ceil(minHz / binHz))
	if start < 1 {
		start = 1
	}
	best := -1
	for k := start; k < len(mags)-1; k++ {
		if best < 0 || mags[k] > mags[best] {
			best = k
		}
	}
	if best < 0 || mags[best] <= 0 {
		return 0, fmt.Errorf("no spectral peak above %.1f Hz", minHz)
	}

	a := linToDB(mags[best-1])
	b := linToDB(mags[best])
	c := linToDB(mags[best+1])
	offset := 0.0
	if den := a - 2*b + c; den < 0 {
		offset = 0.5 * (a - c) / den
	}
	return (float64(best) + offset) * binHz, nil
}

// EstimateT60 estimates the reverberation time of an impulse response by
// Schroeder backward integration, fitting the -5..-35 dB range of the
// energy decay curve and extrapolating to -60 dB. It returns NaN when the
// decay never spans that range.
func EstimateT60(x []float64, sampleRate int) float64 {
	if sampleRate <= 0 || len(x) < 16 {
		return math.NaN()
	}
	edc := make([]float64, len(x))
	var acc float64
	for i := len(x) - 1; i >= 0; i-- {
		acc += x[i] * x[i]
		edc[i] = acc
	}
	if acc <= 0 {
		return math.NaN()
	}

	start, end := -1, -1
	for i, e := range edc {
		db := 10 * math.Log10(e/acc+1e-300)
		if start < 0 && db <= -5 {
			start = i
		}
		if db <= -35 {
			end = i
			break
		}
	}
	if start < 0 || end < 0 || end-start < 8 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		t := float64(i) / float64(sampleRate)
		y := 10 * math.Log10(edc[i]/acc)
		sx += t
		sy += y
		sxx += t * t
		sxy += t * y
	}
	den := n*sxx - sx*sx
	if den <= 0 {
		return math.NaN()
	}
	slope := (n*sxy - sx*sy) / den
	if slope >= 0 {
		return math.NaN()
	}
	return -60 / slope
}
