package modal

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestModePoleStableForPositiveDecay(t *testing.T) {
	const fs = 48000.0
	for _, t60 := range []float32{0.001, 0.05, 1, 30} {
		for _, f := range []float32{0, 20, 1000, 23999} {
			var m Mode
			m.SetFrequency(f, fs)
			m.SetDecay(t60, fs)
			if mag := cmplx.Abs(complex128(m.Pole())); mag >= 1 {
				t.Fatalf("expected |pole| < 1 for f=%f t60=%f, got=%f", f, t60, mag)
			}
		}
	}
}

func TestModeImpulseResponseDies(t *testing.T) {
	var m Mode
	m.SetFrequency(440, 48000)
	m.SetDecay(0.05, 48000)
	m.SetAmplitude(1)
	m.ProcessSample(1)
	for i := 0; i < 48000; i++ {
		m.ProcessSample(0)
	}
	if mag := cmplx.Abs(complex128(m.State())); mag > 1e-9 {
		t.Fatalf("expected state to decay toward zero, got=%g", mag)
	}
}

func TestModeZeroDecayIsSilent(t *testing.T) {
	var m Mode
	m.SetFrequency(440, 48000)
	m.SetDecay(0, 48000)
	m.SetAmplitude(1)
	m.ProcessSample(1)
	for i := 0; i < 8; i++ {
		if y := m.ProcessSample(0); y != 0 {
			t.Fatalf("expected silence after impulse with zero decay, got=%f at %d", y, i)
		}
	}
}

func TestModeImpulseMatchesClosedForm(t *testing.T) {
	const (
		fs    = 48000.0
		freq  = 440.0
		t60   = 0.3
		mag   = 0.7
		phase = 0.4
	)
	var m Mode
	m.SetFrequency(freq, fs)
	m.SetDecay(t60, fs)
	m.SetAmplitudePolar(mag, phase)

	r := math.Exp(lnMinus60dB / (t60 * fs))
	theta := 2 * math.Pi * freq / fs
	for n := 0; n < 64; n++ {
		x := float32(0)
		if n == 0 {
			x = 1
		}
		got := float64(m.ProcessSample(x))
		want := mag * math.Pow(r, float64(n)) * math.Cos(float64(n)*theta+phase)
		if math.Abs(got-want) > 1e-5 {
			t.Fatalf("sample %d: expected %f got=%f", n, want, got)
		}
	}
}

func TestModeDecayReachesMinus60dBAtT60(t *testing.T) {
	const fs = 48000
	var m Mode
	m.SetFrequency(100, fs)
	m.SetDecay(0.5, fs)
	m.SetAmplitude(1)
	m.ProcessSample(1)
	for i := 1; i <= fs/2; i++ {
		m.ProcessSample(0)
	}
	// state is pole^(fs/2) * residue
	levelDB := 20 * math.Log10(cmplx.Abs(complex128(m.State())))
	if levelDB > -59 || levelDB < -61 {
		t.Fatalf("expected about -60 dB at t60, got=%f", levelDB)
	}
}

func TestModeInitialPhase(t *testing.T) {
	var m Mode
	m.SetFrequency(1000, 48000)
	m.SetDecay(1, 48000)
	m.SetAmplitudePolar(1, 0.5)
	got := m.ProcessSample(1)
	if math.Abs(float64(got)-math.Cos(0.5)) > 1e-6 {
		t.Fatalf("expected first sample cos(0.5), got=%f", got)
	}
}

func TestModeResonatesAtItsFrequency(t *testing.T) {
	const fs = 48000.0
	drive := func(modeFreq, inFreq float32) float64 {
		var m Mode
		m.SetFrequency(modeFreq, fs)
		m.SetDecay(0.5, fs)
		m.SetAmplitude(complex(0.01, 0))
		buf := make([]float32, int(fs))
		for i := range buf {
			buf[i] = float32(math.Sin(2 * math.Pi * float64(inFreq) * float64(i) / fs))
		}
		m.ProcessBlock(buf)
		var sum float64
		tail := buf[len(buf)/2:]
		for _, v := range tail {
			sum += float64(v) * float64(v)
		}
		return math.Sqrt(sum / float64(len(tail)))
	}
	onRes := drive(100, 100)
	offRes := drive(10000, 100)
	inputRMS := 1 / math.Sqrt2
	if 20*math.Log10(onRes/inputRMS) < 6 {
		t.Fatalf("expected resonance gain > 6 dB, got=%f dB", 20*math.Log10(onRes/inputRMS))
	}
	if 20*math.Log10(offRes/inputRMS) > -24 {
		t.Fatalf("expected off-resonance attenuation < -24 dB, got=%f dB", 20*math.Log10(offRes/inputRMS))
	}
}

func TestModeResetKeepsCoefficients(t *testing.T) {
	var m Mode
	m.SetFrequency(300, 48000)
	m.SetDecay(0.2, 48000)
	m.SetAmplitude(complex(0.3, -0.1))
	pole := m.Pole()
	m.ProcessSample(1)
	m.Reset()
	if m.State() != 0 {
		t.Fatalf("expected zero state after reset, got=%v", m.State())
	}
	if m.Pole() != pole || m.Frequency() != 300 || m.T60() != 0.2 {
		t.Fatalf("expected reset to keep coefficients")
	}
	if y := m.ProcessSample(0); y != 0 {
		t.Fatalf("expected silence after reset, got=%f", y)
	}
}

func TestTauConversionRoundTrip(t *testing.T) {
	tau := T60ToTau(0.5, 48000)
	if got := TauToT60(tau, 48000); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("expected t60 0.5 got=%f", got)
	}
	short := TauToT60(60, 48000)
	if short <= 0 || math.IsInf(float64(short), 0) {
		t.Fatalf("expected finite positive t60 for a short tau, got=%f", short)
	}
	if TauToT60(2000, 48000) <= TauToT60(1000, 48000) {
		t.Fatalf("expected longer tau to give longer t60")
	}
}
