package modeset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Shape selects how mode frequencies are placed.
type Shape string

const (
	// ShapeLog spaces modes logarithmically with density-controlled clustering.
	ShapeLog Shape = "log"
	// ShapePlate uses eigenfrequencies of a simply supported orthotropic plate.
	ShapePlate Shape = "plate"
	// ShapeString uses the finite-difference spectrum of a fixed string.
	ShapeString Shape = "string"
	// ShapeBar uses the finite-difference spectrum of a stiff bar.
	ShapeBar Shape = "bar"
)

// Config controls synthetic mode-set generation.
type Config struct {
	SampleRate float64
	Modes      int
	Seed       int64
	Shape      Shape

	MinFreq    float64
	MaxFreq    float64 // 0 means 0.47*SampleRate
	Brightness float64
	Density    float64 // >1 biases log-spaced modes toward low frequencies

	LowDecayS  float64 // e-folding time of the lowest modes
	HighDecayS float64 // e-folding time of modes near MaxFreq

	PlateRatio     float64 // Lx/Ly aspect ratio
	StiffnessRatio float64 // Dx/Dy orthotropic stiffness ratio
	GridPoints     int     // finite-difference grid size for string/bar shapes
}

func DefaultConfig() Config {
	return Config{
		SampleRate:     48000,
		Modes:          128,
		Seed:           1,
		Shape:          ShapeLog,
		MinFreq:        35,
		Brightness:     1.0,
		Density:        2.0,
		LowDecayS:      2.4,
		HighDecayS:     0.35,
		PlateRatio:     1.6,
		StiffnessRatio: 12.0,
		GridPoints:     256,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %g", c.SampleRate)
	}
	if c.Modes < 1 {
		return fmt.Errorf("modes must be >= 1")
	}
	switch c.Shape {
	case ShapeLog, ShapePlate, ShapeString, ShapeBar:
	default:
		return fmt.Errorf("unknown shape %q (use log|plate|string|bar)", c.Shape)
	}
	if c.MinFreq <= 0 {
		return fmt.Errorf("min frequency must be > 0")
	}
	if c.MaxFreq != 0 && c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("max frequency must be > min frequency")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.Density <= 0 {
		return fmt.Errorf("density must be > 0")
	}
	if c.LowDecayS <= 0 || c.HighDecayS <= 0 {
		return fmt.Errorf("decay seconds must be > 0")
	}
	if c.Shape == ShapePlate && (c.PlateRatio <= 0 || c.StiffnessRatio <= 0) {
		return fmt.Errorf("plate and stiffness ratios must be > 0")
	}
	if (c.Shape == ShapeString || c.Shape == ShapeBar) && c.GridPoints < c.Modes {
		return fmt.Errorf("grid points (%d) must be >= modes (%d)", c.GridPoints, c.Modes)
	}
	return nil
}

func (c *Config) maxFreq() float64 {
	if c.MaxFreq > 0 {
		return c.MaxFreq
	}
	return 0.47 * c.SampleRate
}

// Generate builds a deterministic mode set sorted by frequency.
// The seed only affects amplitude jitter and phase.
func Generate(cfg Config) (*ModeSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	minF := cfg.MinFreq
	maxF := cfg.maxFreq()

	var freqs []float64
	switch cfg.Shape {
	case ShapeLog:
		freqs = logSpaced(minF, maxF, cfg.Modes, cfg.Density)
	case ShapePlate:
		freqs = plateEigenfreqs(minF, maxF, cfg.Modes, cfg.PlateRatio, cfg.StiffnessRatio)
	case ShapeString:
		freqs = scaleRatios(EigenRatios(cfg.GridPoints, false), minF, maxF, cfg.Modes)
	case ShapeBar:
		freqs = scaleRatios(EigenRatios(cfg.GridPoints, true), minF, maxF, cfg.Modes)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("no modes between %.1f and %.1f Hz", minF, maxF)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ms := &ModeSet{
		SampleRate: cfg.SampleRate,
		Freqs:      make([]float32, len(freqs)),
		Taus:       make([]float32, len(freqs)),
		AmpsRe:     make([]float32, len(freqs)),
		AmpsIm:     make([]float32, len(freqs)),
	}
	brightnessExp := 0.7 + 0.9*cfg.Brightness
	for i, f := range freqs {
		amp := 0.9 / math.Pow(1.0+f/120.0, brightnessExp)
		amp *= 0.7 + 0.6*rng.Float64()
		phi := rng.Float64() * 2.0 * math.Pi

		tauS := lerp(cfg.LowDecayS, cfg.HighDecayS, math.Sqrt(f/maxF))
		ms.Freqs[i] = float32(f)
		ms.Taus[i] = float32(tauS * cfg.SampleRate)
		ms.AmpsRe[i] = float32(amp * math.Cos(phi))
		ms.AmpsIm[i] = float32(amp * math.Sin(phi))
	}
	ms.SortByFrequency()
	return ms, nil
}

// logSpaced places n modes between minF and maxF. density > 1 clusters
// them toward minF.
func logSpaced(minF, maxF float64, n int, density float64) []float64 {
	out := make([]float64, n)
	for m := 0; m < n; m++ {
		fNorm := math.Pow((float64(m)+0.5)/float64(n), density)
		out[m] = minF * math.Pow(maxF/minF, fNorm)
	}
	return out
}

// plateEigenfreqs computes eigenfrequencies for a simply-supported orthotropic
// rectangular plate and returns up to maxModes frequencies in [f11, maxF].
// R = Lx/Ly (plate ratio), S = Dx/Dy (stiffness ratio):
//
//	f_{mn}/f_{11} = sqrt(S*m^4 + 2*sqrt(S)*m^2*n^2*R^2 + n^4*R^4) / sqrt(S + 2*sqrt(S)*R^2 + R^4)
func plateEigenfreqs(f11, maxF float64, maxModes int, R, S float64) []float64 {
	sqrtS := math.Sqrt(S)
	R2 := R * R
	R4 := R2 * R2
	denom := math.Sqrt(S + 2*sqrtS*R2 + R4)

	mMax := int(math.Sqrt(maxF/f11*denom/sqrtS)) + 2
	nMax := int(math.Sqrt(maxF/f11*denom)) + 2

	freqs := make([]float64, 0, mMax*nMax)
	for m := 1; m <= mMax; m++ {
		m2 := float64(m * m)
		m4 := m2 * m2
		for n := 1; n <= nMax; n++ {
			n2 := float64(n * n)
			f := f11 * math.Sqrt(S*m4+2*sqrtS*m2*n2*R2+n2*n2*R4) / denom
			if f > maxF {
				break
			}
			freqs = append(freqs, f)
		}
	}
	sort.Float64s(freqs)
	if len(freqs) > maxModes {
		freqs = freqs[:maxModes]
	}
	return freqs
}

// scaleRatios maps frequency ratios (first entry 1) onto f0 = minF and
// keeps at most n modes below maxF.
func scaleRatios(ratios []float64, minF, maxF float64, n int) []float64 {
	out := make([]float64, 0, n)
	for _, r := range ratios {
		f := minF * r
		if f > maxF || len(out) == n {
			break
		}
		out = append(out, f)
	}
	return out
}

func lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}
