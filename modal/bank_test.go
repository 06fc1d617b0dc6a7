package modal

import (
	"math"
	"testing"
)

const testSampleRate = 48000

func impulse(n int) [][]float32 {
	buf := make([]float32, n)
	buf[0] = 1
	return [][]float32{buf}
}

func silence(n int) [][]float32 {
	return [][]float32{make([]float32, n)}
}

func assertClose(t *testing.T, what string, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d samples got=%d", what, len(want), len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Fatalf("%s: sample %d expected %g got=%g", what, i, want[i], got[i])
		}
	}
}

func referenceRender(modes []Mode, in []float32) []float32 {
	out := make([]float32, len(in))
	for n, x := range in {
		var sum float32
		for i := range modes {
			sum += modes[i].ProcessSample(x)
		}
		out[n] = sum
	}
	return out
}

func TestGroupMatchesScalarModes(t *testing.T) {
	var g Group
	modes := make([]Mode, LaneWidth)
	for lane := 0; lane < LaneWidth; lane++ {
		f := float32(80 + 170*lane)
		t60 := float32(0.1 + 0.07*float64(lane))
		amp := complex(float32(0.3)/float32(lane+1), float32(0.05*float64(lane)))
		g.SetLaneFrequency(lane, f)
		g.SetLaneDecay(lane, t60)
		g.SetLaneAmplitude(lane, amp)
		modes[lane].SetFrequency(f, testSampleRate)
		modes[lane].SetDecay(t60, testSampleRate)
		modes[lane].SetAmplitude(amp)
	}
	g.Prepare(testSampleRate)

	in := make([]float32, 512)
	in[0] = 1
	in[100] = -0.5
	want := referenceRender(modes, in)
	got := make([]float32, len(in))
	g.ProcessBlock(in, got)
	assertClose(t, "group", got, want, 1e-6)
}

func TestBankMatchesScalarReferences(t *testing.T) {
	freqs := []float32{50, 110, 210, 390}
	taus := []float32{2000, 1000, 500, 60}
	ampsRe := []float32{0.05, 0.03, 0.02, 0.01}
	ampsIm := []float32{0.05, 0, 0.02, -0.01}
	const blockSize = 20

	b := NewBank(len(freqs))
	b.SetModeFrequencies(freqs, 1)
	b.SetModeDecaysTau(taus, testSampleRate, 1)
	b.SetModeAmplitudes(ampsRe, ampsIm, -1)
	b.Prepare(testSampleRate, blockSize)

	refs := make([]Mode, len(freqs))
	for i := range refs {
		refs[i].SetFrequency(freqs[i], testSampleRate)
		refs[i].SetDecay(TauToT60(taus[i], testSampleRate), testSampleRate)
		refs[i].SetAmplitude(complex(ampsRe[i], ampsIm[i]))
	}
	want := referenceRender(refs, impulse(blockSize)[0])

	b.Process(impulse(blockSize))
	assertClose(t, "first run", b.RenderBuffer(), want, 1e-6)

	b.Reset()
	b.Process(impulse(blockSize))
	assertClose(t, "after reset", b.RenderBuffer(), want, 1e-6)
}

func TestBankComplexAmplitudesWithFewerModesProcessed(t *testing.T) {
	freqs := []float32{500, 1005, 2010, 3700, 16004}
	t60s := []float32{1, 0.5, 0.4, 0.3, 0.2}
	amps := []complex64{complex(1, 0), complex(0.5, 0.5), complex(0.3, -0.6), complex(0.5, -0.25), complex(0.35, -0.1)}
	const blockSize = 64

	b := NewBank(len(freqs))
	b.SetNumModesToProcess(4)
	b.SetModeFrequencies(freqs, 1)
	b.SetModeDecays(t60s)
	b.SetModeAmplitudesComplex(amps, -1)
	b.Prepare(testSampleRate, blockSize)

	refs := make([]Mode, 4)
	for i := range refs {
		refs[i].SetFrequency(freqs[i], testSampleRate)
		refs[i].SetDecay(t60s[i], testSampleRate)
		refs[i].SetAmplitude(amps[i])
	}
	want := referenceRender(refs, impulse(blockSize)[0])

	b.Process(impulse(blockSize))
	assertClose(t, "4 of 5 modes", b.RenderBuffer(), want, 1e-6)
}

func TestBankModeCountMatchesZeroedTail(t *testing.T) {
	total := 2*LaneWidth + 3
	keep := LaneWidth + 1
	freqs := make([]float32, total)
	t60s := make([]float32, total)
	amps := make([]complex64, total)
	zeroed := make([]complex64, total)
	for i := range freqs {
		freqs[i] = float32(60 * (i + 1))
		t60s[i] = 0.4
		amps[i] = complex(float32(1)/float32(i+1), 0.1)
		if i < keep {
			zeroed[i] = amps[i]
		}
	}
	const blockSize = 256

	limited := NewBank(total)
	limited.SetModeFrequencies(freqs, 1)
	limited.SetModeDecays(t60s)
	limited.SetModeAmplitudesComplex(amps, -1)
	limited.Prepare(testSampleRate, blockSize)
	limited.SetNumModesToProcess(keep)

	full := NewBank(total)
	full.SetModeFrequencies(freqs, 1)
	full.SetModeDecays(t60s)
	full.SetModeAmplitudesComplex(zeroed, -1)
	full.Prepare(testSampleRate, blockSize)

	limited.Process(impulse(blockSize))
	full.Process(impulse(blockSize))
	assertClose(t, "mode count", limited.RenderBuffer(), full.RenderBuffer(), 1e-7)

	if limited.NumActiveGroups() != (keep+LaneWidth-1)/LaneWidth {
		t.Fatalf("unexpected active group count: %d", limited.NumActiveGroups())
	}
}

func TestBankNumModesIsClamped(t *testing.T) {
	b := NewBank(10)
	b.SetNumModesToProcess(-3)
	if b.NumModesToProcess() != 0 {
		t.Fatalf("expected clamp to 0, got=%d", b.NumModesToProcess())
	}
	b.SetNumModesToProcess(99)
	if b.NumModesToProcess() != 10 {
		t.Fatalf("expected clamp to 10, got=%d", b.NumModesToProcess())
	}
}

func TestBankZeroModesIsSilent(t *testing.T) {
	b := NewBank(8)
	b.SetModeFrequencies([]float32{100, 200, 300, 400, 500, 600, 700, 800}, 1)
	b.SetModeDecays([]float32{1, 1, 1, 1, 1, 1, 1, 1})
	b.SetModeAmplitudes([]float32{1, 1, 1, 1, 1, 1, 1, 1}, nil, -1)
	b.Prepare(testSampleRate, 32)
	b.SetNumModesToProcess(0)
	b.Process(impulse(32))
	for i, v := range b.RenderBuffer() {
		if v != 0 {
			t.Fatalf("expected silence with zero modes, got=%f at %d", v, i)
		}
	}
}

func TestBankResetClearsStateOnly(t *testing.T) {
	b := NewBank(3)
	b.SetModeFrequencies([]float32{100, 250, 900}, 1)
	b.SetModeDecays([]float32{2, 2, 2})
	b.SetModeAmplitudes([]float32{0.5, 0.2, 0.1}, []float32{0, 0.1, 0}, -1)
	b.Prepare(testSampleRate, 64)
	b.Process(impulse(64))

	before := b.Group(0).Frequencies()
	b.Reset()
	for k := 0; k < 3; k++ {
		b.Process(silence(64))
		for i, v := range b.RenderBuffer() {
			if v != 0 {
				t.Fatalf("expected silence after reset, got=%f at %d", v, i)
			}
		}
	}
	if b.Group(0).Frequencies() != before {
		t.Fatalf("expected reset to keep frequencies")
	}
	if b.ModeDecay(1) != 2 || b.ModeAmplitude(2) != complex(0.1, 0) {
		t.Fatalf("expected reset to keep decays and amplitudes")
	}
}

func TestBankAmplitudeNormalization(t *testing.T) {
	b := NewBank(2)
	b.SetModeAmplitudesComplex([]complex64{complex(3, 4), complex(1, 0)}, 1)
	if f := b.AmplitudeNormalizationFactor(); math.Abs(float64(f)-0.2) > 1e-7 {
		t.Fatalf("expected factor 0.2, got=%f", f)
	}
	lane := 1 % LaneWidth
	if got := b.Group(1 / LaneWidth).Amplitudes()[lane]; math.Abs(float64(real(got))-0.2) > 1e-7 {
		t.Fatalf("expected scaled residue 0.2, got=%v", got)
	}

	b.SetAmplitudeNormalization(-1)
	if b.AmplitudeNormalizationFactor() != 1 {
		t.Fatalf("expected unit factor when disabled, got=%f", b.AmplitudeNormalizationFactor())
	}
	if got := b.Group(0).Amplitudes()[0]; got != complex(3, 4) {
		t.Fatalf("expected raw residue, got=%v", got)
	}

	b.SetModeAmplitudesComplex([]complex64{0, 1}, 1)
	if b.AmplitudeNormalizationFactor() != 1 {
		t.Fatalf("expected unit factor for silent first mode, got=%f", b.AmplitudeNormalizationFactor())
	}
}

func TestBankFrequencyMultiplierAndCeiling(t *testing.T) {
	b := NewBank(2)
	b.Prepare(testSampleRate, 16)
	b.SetModeFrequencies([]float32{1000, 20000}, 1.5)
	if b.ModeFrequency(0) != 1500 || b.ModeFrequency(1) != 30000 {
		t.Fatalf("unexpected requested frequencies: %f %f", b.ModeFrequency(0), b.ModeFrequency(1))
	}
	if got := b.Group(1 / LaneWidth).Frequencies()[1%LaneWidth]; got != 0 {
		t.Fatalf("expected mode above 0.495*fs to be parked at 0 Hz, got=%f", got)
	}

	// The ceiling follows the sample rate given to Prepare.
	b.Prepare(96000, 16)
	if got := b.Group(1 / LaneWidth).Frequencies()[1%LaneWidth]; got != 30000 {
		t.Fatalf("expected mode restored at higher sample rate, got=%f", got)
	}
}

func TestBankSumsInputChannels(t *testing.T) {
	setup := func() *Bank {
		b := NewBank(2)
		b.SetModeFrequencies([]float32{220, 330}, 1)
		b.SetModeDecays([]float32{0.5, 0.5})
		b.SetModeAmplitudes([]float32{0.4, 0.2}, []float32{0, 0.2}, -1)
		b.Prepare(testSampleRate, 32)
		return b
	}
	mono := setup()
	mono.Process(impulse(32))

	stereo := setup()
	l := make([]float32, 32)
	r := make([]float32, 32)
	l[0], r[0] = 0.25, 0.75
	stereo.Process([][]float32{l, r})
	assertClose(t, "channel sum", stereo.RenderBuffer(), mono.RenderBuffer(), 1e-7)
}

func TestBankGrowsForLongerBlocks(t *testing.T) {
	b := NewBank(1)
	b.SetModeFrequencies([]float32{440}, 1)
	b.SetModeDecays([]float32{1})
	b.SetModeAmplitudes([]float32{1}, nil, -1)
	b.Prepare(testSampleRate, 16)
	b.Process(impulse(100))
	if len(b.RenderBuffer()) != 100 {
		t.Fatalf("expected render buffer of 100 samples, got=%d", len(b.RenderBuffer()))
	}
	if b.RenderBuffer()[0] != 1 {
		t.Fatalf("expected first sample 1, got=%f", b.RenderBuffer()[0])
	}
}

func TestBankModulationNoopMatchesProcess(t *testing.T) {
	setup := func() *Bank {
		b := NewBank(5)
		b.SetModeFrequencies([]float32{100, 200, 300, 400, 500}, 1)
		b.SetModeDecays([]float32{1, 0.8, 0.6, 0.4, 0.2})
		b.SetModeAmplitudes([]float32{0.5, 0.4, 0.3, 0.2, 0.1}, nil, -1)
		b.Prepare(testSampleRate, 128)
		return b
	}
	plain := setup()
	plain.Process(impulse(128))

	calls := 0
	mod := setup()
	mod.ProcessWithModulation(impulse(128), func(g *Group, gi, n int) { calls++ })
	assertClose(t, "noop modulation", mod.RenderBuffer(), plain.RenderBuffer(), 1e-7)
	if calls != 128*mod.NumActiveGroups() {
		t.Fatalf("expected one modulator call per group sample, got=%d", calls)
	}
}

func TestBankModulationRetunesModes(t *testing.T) {
	b := NewBank(1)
	b.SetModeFrequencies([]float32{100}, 1)
	b.SetModeDecays([]float32{1})
	b.SetModeAmplitudes([]float32{1}, nil, -1)
	b.Prepare(testSampleRate, 64)
	b.ProcessWithModulation(impulse(64), func(g *Group, gi, n int) {
		g.SetLaneFrequency(0, 1000)
	})

	var ref Mode
	ref.SetFrequency(1000, testSampleRate)
	ref.SetDecay(1, testSampleRate)
	ref.SetAmplitude(1)
	want := referenceRender([]Mode{ref}, impulse(64)[0])
	assertClose(t, "retuned", b.RenderBuffer(), want, 1e-6)
}

func BenchmarkBankProcess256Modes(b *testing.B) {
	const (
		numModes  = 256
		blockSize = 128
	)
	freqs := make([]float32, numModes)
	t60s := make([]float32, numModes)
	re := make([]float32, numModes)
	for i := range freqs {
		freqs[i] = float32(40 + 70*i)
		t60s[i] = 1.5
		re[i] = 1 / float32(i+1)
	}
	bank := NewBank(numModes)
	bank.SetModeFrequencies(freqs, 1)
	bank.SetModeDecays(t60s)
	bank.SetModeAmplitudes(re, nil, -1)
	bank.Prepare(testSampleRate, blockSize)
	block := impulse(blockSize)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.Process(block)
	}
}
