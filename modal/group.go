package modal

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Group advances LaneWidth modes in lockstep. Poles, residues and states
// are kept as separate real and imaginary planes so each lane's complex
// multiply is four multiplies and two adds over fixed-size arrays.
//
// Lanes with a zero residue contribute nothing to the output.
type Group struct {
	freq [LaneWidth]float32
	t60  [LaneWidth]float32

	decay [LaneWidth]float32
	oscRe [LaneWidth]float32
	oscIm [LaneWidth]float32

	poleRe [LaneWidth]float32
	poleIm [LaneWidth]float32
	resRe  [LaneWidth]float32
	resIm  [LaneWidth]float32
	zRe    [LaneWidth]float32
	zIm    [LaneWidth]float32

	sampleRate float64
}

// Prepare sets the sample rate, recomputes every pole from the stored
// frequencies and decay times and clears the state.
func (g *Group) Prepare(sampleRate float64) {
	g.sampleRate = sampleRate
	for i := 0; i < LaneWidth; i++ {
		g.oscRe[i], g.oscIm[i] = oscillator(g.freq[i], sampleRate)
		g.decay[i] = decayCoefficient(g.t60[i], sampleRate)
		g.updatePole(i)
	}
	g.Reset()
}

func (g *Group) updatePole(lane int) {
	g.poleRe[lane] = g.decay[lane] * g.oscRe[lane]
	g.poleIm[lane] = g.decay[lane] * g.oscIm[lane]
}

// SetLaneFrequency retunes one lane. Safe to call between samples.
func (g *Group) SetLaneFrequency(lane int, freqHz float32) {
	g.freq[lane] = freqHz
	g.oscRe[lane], g.oscIm[lane] = oscillator(freqHz, g.sampleRate)
	g.updatePole(lane)
}

// SetLaneDecay sets the 60 dB decay time of one lane.
func (g *Group) SetLaneDecay(lane int, t60 float32) {
	g.t60[lane] = t60
	g.decay[lane] = decayCoefficient(t60, g.sampleRate)
	g.updatePole(lane)
}

// SetLaneAmplitude sets the residue of one lane.
func (g *Group) SetLaneAmplitude(lane int, amp complex64) {
	g.resRe[lane] = real(amp)
	g.resIm[lane] = imag(amp)
}

func (g *Group) SetFrequencies(freqs [LaneWidth]float32) {
	for i, f := range freqs {
		g.SetLaneFrequency(i, f)
	}
}

func (g *Group) SetDecays(t60s [LaneWidth]float32) {
	for i, t := range t60s {
		g.SetLaneDecay(i, t)
	}
}

func (g *Group) SetAmplitudes(amps [LaneWidth]complex64) {
	for i, a := range amps {
		g.SetLaneAmplitude(i, a)
	}
}

// Frequencies returns the lane frequencies currently applied.
func (g *Group) Frequencies() [LaneWidth]float32 { return g.freq }

// Decays returns the lane decay times in seconds.
func (g *Group) Decays() [LaneWidth]float32 { return g.t60 }

// Amplitudes returns the lane residues.
func (g *Group) Amplitudes() [LaneWidth]complex64 {
	var out [LaneWidth]complex64
	for i := range out {
		out[i] = complex(g.resRe[i], g.resIm[i])
	}
	return out
}

// ProcessSample broadcasts x to every lane and returns the sum of the
// real parts of all lane outputs.
func (g *Group) ProcessSample(x float32) float32 {
	var sum float32
	for i := 0; i < LaneWidth; i++ {
		re := g.poleRe[i]*g.zRe[i] - g.poleIm[i]*g.zIm[i] + g.resRe[i]*x
		im := g.poleRe[i]*g.zIm[i] + g.poleIm[i]*g.zRe[i] + g.resIm[i]*x
		g.zRe[i] = re
		g.zIm[i] = im
		sum += re
	}
	return sum
}

// ProcessBlock adds the group output for each excitation sample in into out.
func (g *Group) ProcessBlock(in, out []float32) {
	out = out[:len(in)]
	for n, x := range in {
		out[n] += g.ProcessSample(x)
	}
	g.flushDenormals()
}

func (g *Group) flushDenormals() {
	for i := 0; i < LaneWidth; i++ {
		g.zRe[i] = float32(dspcore.FlushDenormals(float64(g.zRe[i])))
		g.zIm[i] = float32(dspcore.FlushDenormals(float64(g.zIm[i])))
	}
}

// Reset clears the state of every lane.
func (g *Group) Reset() {
	g.zRe = [LaneWidth]float32{}
	g.zIm = [LaneWidth]float32{}
}
