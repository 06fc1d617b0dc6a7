package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-modal/modal"
)

func TestPeakFrequencyFindsSine(t *testing.T) {
	sr := 48000
	for _, freq := range []float64{97.5, 1000.3, 7321.0} {
		x := make([]float64, sr)
		for i := range x {
			x[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sr))
		}
		got, err := PeakFrequency(x, sr, 20)
		if err != nil {
			t.Fatalf("PeakFrequency: %v", err)
		}
		if math.Abs(got-freq) > 0.5 {
			t.Fatalf("expected %f Hz got=%f", freq, got)
		}
	}
}

func TestPeakFrequencyRespectsMinimum(t *testing.T) {
	sr := 48000
	x := make([]float64, 8192)
	for i := range x {
		ti := float64(i) / float64(sr)
		x[i] = math.Sin(2*math.Pi*60*ti) + 0.1*math.Sin(2*math.Pi*3000*ti)
	}
	got, err := PeakFrequency(x, sr, 500)
	if err != nil {
		t.Fatalf("PeakFrequency: %v", err)
	}
	if math.Abs(got-3000) > 5 {
		t.Fatalf("expected the 3 kHz partial above the minimum, got=%f", got)
	}
	if _, err := PeakFrequency(nil, sr, 0); err == nil {
		t.Fatalf("expected error for empty signal")
	}
}

func TestMagnitudeSpectrumRejectsBadSize(t *testing.T) {
	if _, err := MagnitudeSpectrum([]float64{1}, 1000); err == nil {
		t.Fatalf("expected error for non power-of-two size")
	}
	mags, err := MagnitudeSpectrum([]float64{1}, 16)
	if err != nil {
		t.Fatalf("MagnitudeSpectrum: %v", err)
	}
	if len(mags) != 9 {
		t.Fatalf("expected 9 bins got=%d", len(mags))
	}
}

func TestEstimateT60OfDecayingNoise(t *testing.T) {
	const (
		sr  = 48000
		t60 = 0.5
	)
	rng := rand.New(rand.NewSource(5))
	x := make([]float64, int(1.5*sr))
	for i := range x {
		ti := float64(i) / sr
		x[i] = (rng.Float64()*2 - 1) * math.Pow(10, -3*ti/t60)
	}
	got := EstimateT60(x, sr)
	if math.Abs(got-t60) > 0.05*t60 {
		t.Fatalf("expected T60 %f got=%f", t60, got)
	}
	if !math.IsNaN(EstimateT60(make([]float64, 100), sr)) {
		t.Fatalf("expected NaN for silence")
	}
}

func TestEstimateT60MatchesModalDecay(t *testing.T) {
	const sr = 48000.0
	var m modal.Mode
	m.SetFrequency(330, sr)
	m.SetDecay(0.8, sr)
	m.SetAmplitude(1)

	x := make([]float64, int(1.6*sr))
	for i := range x {
		in := float32(0)
		if i == 0 {
			in = 1
		}
		x[i] = float64(m.ProcessSample(in))
	}
	got := EstimateT60(x, int(sr))
	if math.Abs(got-0.8) > 0.04 {
		t.Fatalf("expected mode T60 0.8 s, got=%f", got)
	}
}

func TestRenderConvolvedMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	in := make([]float32, 1000)
	for i := range in {
		in[i] = float32(rng.Float64()*2 - 1)
	}
	ir := make([]float32, 300)
	for i := range ir {
		ir[i] = float32(math.Exp(-float64(i)/40) * (rng.Float64()*2 - 1))
	}
	got, err := RenderConvolved(in, ir, 128)
	if err != nil {
		t.Fatalf("RenderConvolved: %v", err)
	}
	if len(got) != len(in)+len(ir)-1 {
		t.Fatalf("expected %d samples got=%d", len(in)+len(ir)-1, len(got))
	}
	for n := range got {
		var want float64
		for k := range ir {
			if j := n - k; j >= 0 && j < len(in) {
				want += float64(ir[k]) * float64(in[j])
			}
		}
		if math.Abs(float64(got[n])-want) > 1e-4 {
			t.Fatalf("sample %d: expected %f got=%f", n, want, got[n])
		}
	}
	if _, err := RenderConvolved(nil, ir, 128); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
