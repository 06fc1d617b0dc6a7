package modal

import "math/cmplx"

// maxFreqRatio bounds mode frequencies relative to the sample rate.
// Modes above it are parked at 0 Hz.
const maxFreqRatio = 0.495

// Modulator is called before every sample a group processes during
// ProcessWithModulation. n is the sample index within the block.
type Modulator func(g *Group, groupIndex int, n int)

// Bank is a parallel bank of modes packed into Groups. All outputs are
// summed into a mono render buffer.
//
// Parameter setters and Process must be called from the same goroutine.
// Mode i lives in lane i%LaneWidth of group i/LaneWidth.
type Bank struct {
	maxModes        int
	numModes        int
	numActiveGroups int
	groups          []Group

	// Requested values per lane, kept so Prepare can re-derive poles
	// and SetNumModesToProcess can re-derive residues.
	freqs []float32
	t60s  []float32
	amps  []complex64

	normalize  float32
	normFactor float32

	sampleRate float64
	maxFreq    float32

	render     []float32
	excitation []float32
}

// NewBank allocates a bank holding up to maxModes modes. All modes start
// silent with every mode enabled for processing.
func NewBank(maxModes int) *Bank {
	if maxModes < 0 {
		maxModes = 0
	}
	numGroups := (maxModes + LaneWidth - 1) / LaneWidth
	lanes := numGroups * LaneWidth
	b := &Bank{
		maxModes:   maxModes,
		groups:     make([]Group, numGroups),
		freqs:      make([]float32, lanes),
		t60s:       make([]float32, lanes),
		amps:       make([]complex64, lanes),
		normalize:  -1,
		normFactor: 1,
	}
	b.SetNumModesToProcess(maxModes)
	return b
}

func (b *Bank) MaxModes() int          { return b.maxModes }
func (b *Bank) NumModesToProcess() int { return b.numModes }
func (b *Bank) NumGroups() int         { return len(b.groups) }
func (b *Bank) NumActiveGroups() int   { return b.numActiveGroups }
func (b *Bank) SampleRate() float64    { return b.sampleRate }

// MaxFrequency is the ceiling above which modes are parked at 0 Hz.
// Modulators setting lane frequencies directly should respect it.
func (b *Bank) MaxFrequency() float32 { return b.maxFreq }

// Group returns group i for direct inspection or modulation.
func (b *Bank) Group(i int) *Group { return &b.groups[i] }

// Prepare sets the sample rate, sizes the render buffer for blocks of
// samplesPerBlock and clears all mode state. It is the only call that
// allocates on the nominal path.
func (b *Bank) Prepare(sampleRate float64, samplesPerBlock int) {
	b.sampleRate = sampleRate
	b.maxFreq = float32(maxFreqRatio * sampleRate)
	if samplesPerBlock < 0 {
		samplesPerBlock = 0
	}
	b.render = make([]float32, samplesPerBlock)
	b.excitation = make([]float32, samplesPerBlock)
	for gi := range b.groups {
		g := &b.groups[gi]
		base := gi * LaneWidth
		for lane := 0; lane < LaneWidth; lane++ {
			g.freq[lane] = b.clampFrequency(b.freqs[base+lane])
			g.t60[lane] = b.t60s[base+lane]
		}
		g.Prepare(sampleRate)
	}
}

// Reset zeroes the state of every mode. Frequencies, decays and
// amplitudes are kept.
func (b *Bank) Reset() {
	for gi := range b.groups {
		b.groups[gi].Reset()
	}
}

func (b *Bank) clampFrequency(f float32) float32 {
	if b.maxFreq > 0 && f > b.maxFreq {
		return 0
	}
	return f
}

// SetModeFrequencies sets mode i to baseFreqs[i]*multiplier. Modes
// without an entry are set to 0 Hz; extra entries are ignored.
func (b *Bank) SetModeFrequencies(baseFreqs []float32, multiplier float32) {
	for i := range b.freqs {
		var f float32
		if i < b.maxModes && i < len(baseFreqs) {
			f = baseFreqs[i] * multiplier
		}
		b.freqs[i] = f
		b.groups[i/LaneWidth].SetLaneFrequency(i%LaneWidth, b.clampFrequency(f))
	}
}

// SetModeDecaysTau sets decay times from time constants measured in
// samples at originalSampleRate, stretched by decayFactor. Modes
// without an entry use tau = 1.
func (b *Bank) SetModeDecaysTau(taus []float32, originalSampleRate, decayFactor float32) {
	for i := range b.t60s {
		tau := float32(1)
		if i < b.maxModes && i < len(taus) {
			tau = taus[i]
		}
		b.setDecay(i, TauToT60(tau, originalSampleRate)*decayFactor)
	}
}

// SetModeDecays sets decay times in seconds directly. Modes without an
// entry get a zero decay time and stay silent.
func (b *Bank) SetModeDecays(t60s []float32) {
	for i := range b.t60s {
		var t float32
		if i < b.maxModes && i < len(t60s) {
			t = t60s[i]
		}
		b.setDecay(i, t)
	}
}

func (b *Bank) setDecay(i int, t60 float32) {
	b.t60s[i] = t60
	b.groups[i/LaneWidth].SetLaneDecay(i%LaneWidth, t60)
}

// SetModeAmplitudes sets the complex amplitudes from separate real and
// imaginary parts. See SetModeAmplitudesComplex for normalize.
func (b *Bank) SetModeAmplitudes(re, im []float32, normalize float32) {
	for i := range b.amps {
		var r, m float32
		if i < b.maxModes {
			if i < len(re) {
				r = re[i]
			}
			if i < len(im) {
				m = im[i]
			}
		}
		b.amps[i] = complex(r, m)
	}
	b.normalize = normalize
	b.updateNormalizationFactor()
	b.applyAmplitudes()
}

// SetModeAmplitudesComplex stores the raw amplitudes. When normalize > 0
// all residues are scaled so the first mode has magnitude normalize; a
// value <= 0 leaves the amplitudes unscaled.
func (b *Bank) SetModeAmplitudesComplex(amps []complex64, normalize float32) {
	for i := range b.amps {
		var a complex64
		if i < b.maxModes && i < len(amps) {
			a = amps[i]
		}
		b.amps[i] = a
	}
	b.normalize = normalize
	b.updateNormalizationFactor()
	b.applyAmplitudes()
}

// SetAmplitudeNormalization changes the normalization target and
// re-derives residues from the stored amplitudes.
func (b *Bank) SetAmplitudeNormalization(normalize float32) {
	b.normalize = normalize
	b.updateNormalizationFactor()
	b.applyAmplitudes()
}

// AmplitudeNormalizationFactor returns the scale applied to every residue.
func (b *Bank) AmplitudeNormalizationFactor() float32 { return b.normFactor }

func (b *Bank) updateNormalizationFactor() {
	b.normFactor = 1
	if b.normalize <= 0 || len(b.amps) == 0 {
		return
	}
	mag := float32(cmplx.Abs(complex128(b.amps[0])))
	if mag > 0 {
		b.normFactor = b.normalize / mag
	}
}

func (b *Bank) applyAmplitudes() {
	scale := complex(b.normFactor, 0)
	for i, a := range b.amps {
		var r complex64
		if i < b.numModes {
			r = a * scale
		}
		b.groups[i/LaneWidth].SetLaneAmplitude(i%LaneWidth, r)
	}
}

// SetNumModesToProcess limits processing to the first n modes, clamped
// to [0, MaxModes]. Groups past the last active one are skipped and
// their state is cleared; unused lanes of the last active group are
// silenced. Call between blocks.
func (b *Bank) SetNumModesToProcess(n int) {
	if n < 0 {
		n = 0
	}
	if n > b.maxModes {
		n = b.maxModes
	}
	b.numModes = n
	b.numActiveGroups = (n + LaneWidth - 1) / LaneWidth
	b.applyAmplitudes()
	for gi := b.numActiveGroups; gi < len(b.groups); gi++ {
		b.groups[gi].Reset()
	}
}

// ModeFrequency returns the requested frequency of mode i, before the
// sample-rate ceiling is applied.
func (b *Bank) ModeFrequency(i int) float32 { return b.freqs[i] }

// ModeDecay returns the decay time of mode i in seconds.
func (b *Bank) ModeDecay(i int) float32 { return b.t60s[i] }

// ModeAmplitude returns the raw amplitude of mode i.
func (b *Bank) ModeAmplitude(i int) complex64 { return b.amps[i] }

func (b *Bank) ensureBlock(numSamples int) {
	if cap(b.render) < numSamples {
		b.render = make([]float32, numSamples)
	}
	if cap(b.excitation) < numSamples {
		b.excitation = make([]float32, numSamples)
	}
	b.render = b.render[:numSamples]
	b.excitation = b.excitation[:numSamples]
}

// excite sums all channels of block into the excitation buffer and
// clears the render buffer.
func (b *Bank) excite(block [][]float32) int {
	numSamples := 0
	if len(block) > 0 {
		numSamples = len(block[0])
	}
	b.ensureBlock(numSamples)
	for n := range b.excitation {
		b.excitation[n] = 0
		b.render[n] = 0
	}
	for _, ch := range block {
		for n := 0; n < numSamples && n < len(ch); n++ {
			b.excitation[n] += ch[n]
		}
	}
	return numSamples
}

// Process runs every active mode over the sum of all channels in block
// and leaves the mono result in RenderBuffer. All channels are expected
// to have the same length.
func (b *Bank) Process(block [][]float32) {
	b.excite(block)
	for gi := 0; gi < b.numActiveGroups; gi++ {
		b.groups[gi].ProcessBlock(b.excitation, b.render)
	}
}

// ProcessWithModulation is Process with mod called before every sample
// of every active group, so lane parameters may change per sample.
func (b *Bank) ProcessWithModulation(block [][]float32, mod Modulator) {
	numSamples := b.excite(block)
	for gi := 0; gi < b.numActiveGroups; gi++ {
		g := &b.groups[gi]
		for n := 0; n < numSamples; n++ {
			mod(g, gi, n)
			b.render[n] += g.ProcessSample(b.excitation[n])
		}
		g.flushDenormals()
	}
}

// ProcessSample advances a single group by one sample.
func (b *Bank) ProcessSample(groupIndex int, x float32) float32 {
	return b.groups[groupIndex].ProcessSample(x)
}

// RenderBuffer returns the mono output of the last Process call. The
// slice is reused by the next call.
func (b *Bank) RenderBuffer() []float32 { return b.render }
