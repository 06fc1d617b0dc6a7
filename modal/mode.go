package modal

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// ln(0.001): amplitude ratio of a 60 dB decay.
const lnMinus60dB = -6.907755278982137

// Mode is one resonant partial realised as a complex one-pole filter:
//
//	z[n] = pole*z[n-1] + residue*x[n]
//	y[n] = real(z[n])
//
// The pole angle sets the frequency and its magnitude the decay. The
// residue sets the initial amplitude and phase.
type Mode struct {
	freq float32
	t60  float32

	decay        float32
	oscRe, oscIm float32

	poleRe, poleIm float32
	resRe, resIm   float32
	zRe, zIm       float32
}

// oscillator returns e^{i*2*pi*freq/sampleRate}.
func oscillator(freq float32, sampleRate float64) (float32, float32) {
	if sampleRate <= 0 {
		return 1, 0
	}
	w := 2 * math.Pi * float64(freq) / sampleRate
	return float32(math.Cos(w)), float32(math.Sin(w))
}

// decayCoefficient returns the per-sample envelope factor reaching -60 dB
// after t60 seconds. t60 == 0 yields 0 so the mode stays silent.
func decayCoefficient(t60 float32, sampleRate float64) float32 {
	if sampleRate <= 0 {
		return 0
	}
	return float32(math.Exp(lnMinus60dB / (float64(t60) * sampleRate)))
}

// SetFrequency sets the oscillation frequency. Frequencies at or above
// Nyquist alias.
func (m *Mode) SetFrequency(freqHz float32, sampleRate float64) {
	m.freq = freqHz
	m.oscRe, m.oscIm = oscillator(freqHz, sampleRate)
	m.updatePole()
}

// SetDecay sets the 60 dB decay time. t60 must be >= 0; callers clamp.
func (m *Mode) SetDecay(t60 float32, sampleRate float64) {
	m.t60 = t60
	m.decay = decayCoefficient(t60, sampleRate)
	m.updatePole()
}

// SetAmplitude sets the complex residue.
func (m *Mode) SetAmplitude(amp complex64) {
	m.resRe = real(amp)
	m.resIm = imag(amp)
}

// SetAmplitudePolar sets the residue from magnitude and phase in radians.
func (m *Mode) SetAmplitudePolar(magnitude, phase float32) {
	s, c := math.Sincos(float64(phase))
	m.resRe = magnitude * float32(c)
	m.resIm = magnitude * float32(s)
}

func (m *Mode) updatePole() {
	m.poleRe = m.decay * m.oscRe
	m.poleIm = m.decay * m.oscIm
}

// ProcessSample advances the mode by one sample of real excitation x.
func (m *Mode) ProcessSample(x float32) float32 {
	re := m.poleRe*m.zRe - m.poleIm*m.zIm + m.resRe*x
	im := m.poleRe*m.zIm + m.poleIm*m.zRe + m.resIm*x
	m.zRe = re
	m.zIm = im
	return re
}

// ProcessBlock filters buf in place.
func (m *Mode) ProcessBlock(buf []float32) {
	for i, x := range buf {
		buf[i] = m.ProcessSample(x)
	}
	m.zRe = float32(dspcore.FlushDenormals(float64(m.zRe)))
	m.zIm = float32(dspcore.FlushDenormals(float64(m.zIm)))
}

// Reset clears the recursive state and keeps the coefficients.
func (m *Mode) Reset() {
	m.zRe, m.zIm = 0, 0
}

func (m *Mode) Frequency() float32 { return m.freq }
func (m *Mode) T60() float32       { return m.t60 }

func (m *Mode) Pole() complex64 {
	return complex(m.poleRe, m.poleIm)
}

func (m *Mode) Residue() complex64 {
	return complex(m.resRe, m.resIm)
}

// State returns the current complex output z.
func (m *Mode) State() complex64 {
	return complex(m.zRe, m.zIm)
}
