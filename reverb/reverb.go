// Package reverb implements a modal spring reverb: the input is folded to
// mono, excites a modal.Bank loaded from a mode set, and the bank output
// is mixed back into every channel.
package reverb

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/filter"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modeset"
)

const ln2 = 0.6931471805599453

func exp2(x float32) float32 {
	return approx.FastExp(x * ln2)
}

// PitchToFreqMult maps a pitch in octaves to a frequency multiplier.
func PitchToFreqMult(pitch float32) float32 { return exp2(pitch) }

// DecayToFactor maps the 0..1 decay knob to a decay time multiplier in
// [1/4, 4]; 0.5 gives 1.
func DecayToFactor(decay float32) float32 { return exp2(2 * (2*decay - 1)) }

type Reverb struct {
	cfg   Config
	modes *modeset.ModeSet
	bank  *modal.Bank

	sampleRate float64
	prepared   bool

	freqMult    float32
	decayFactor float32

	preDelay        *dsp.DelayLine
	preDelaySamples int
	tone            *filter.Butterworth
	lowCut          *filter.Butterworth

	lfoPhase float64
	lfo      []float32
	mono     []float32
	monoBlk  [][]float32
	modFn    modal.Modulator
}

// New builds a reverb around a copy of modes. Call Prepare before Process.
func New(modes *modeset.ModeSet, cfg Config) (*Reverb, error) {
	if modes == nil {
		return nil, errors.New("nil mode set")
	}
	if err := modes.Validate(); err != nil {
		return nil, fmt.Errorf("mode set: %w", err)
	}
	if modes.Len() == 0 {
		return nil, errors.New("mode set is empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Reverb{
		cfg:     cfg,
		modes:   modes.Clone(),
		bank:    modal.NewBank(modes.Len()),
		monoBlk: make([][]float32, 1),
	}
	r.modFn = r.modulate
	r.bank.SetModeAmplitudes(r.modes.AmpsRe, r.modes.AmpsIm, cfg.Normalize)
	r.applyMacros()
	return r, nil
}

func (r *Reverb) Config() Config            { return r.cfg }
func (r *Reverb) Bank() *modal.Bank         { return r.bank }
func (r *Reverb) FreqMult() float32         { return r.freqMult }
func (r *Reverb) DecayFactor() float32      { return r.decayFactor }
func (r *Reverb) PreDelaySamples() int      { return r.preDelaySamples }
func (r *Reverb) ModeSet() *modeset.ModeSet { return r.modes }

// SetConfig validates and applies new settings. Changing the pre-delay or
// filter settings of a prepared reverb reallocates those stages.
func (r *Reverb) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	old := r.cfg
	r.cfg = cfg
	r.applyMacros()
	if r.prepared && (old.PreDelayMs != cfg.PreDelayMs || old.ToneHz != cfg.ToneHz ||
		old.LowCutHz != cfg.LowCutHz || old.ToneOrder != cfg.ToneOrder) {
		r.configureStages()
	}
	return nil
}

func (r *Reverb) applyMacros() {
	r.freqMult = PitchToFreqMult(r.cfg.Pitch)
	r.decayFactor = DecayToFactor(r.cfg.Decay)
	r.bank.SetModeFrequencies(r.modes.Freqs, r.freqMult)
	r.bank.SetModeDecaysTau(r.modes.Taus, float32(r.modes.SampleRate), r.decayFactor)
	r.bank.SetAmplitudeNormalization(r.cfg.Normalize)
	n := r.cfg.NumModes
	if n == 0 {
		n = r.modes.Len()
	}
	r.bank.SetNumModesToProcess(n)
}

// Prepare sets the sample rate and the largest expected block size and
// clears all state.
func (r *Reverb) Prepare(sampleRate float64, samplesPerBlock int) {
	r.sampleRate = sampleRate
	r.prepared = true
	r.bank.Prepare(sampleRate, samplesPerBlock)
	r.lfo = make([]float32, samplesPerBlock)
	r.mono = make([]float32, samplesPerBlock)
	r.lfoPhase = 0
	r.configureStages()
}

func (r *Reverb) configureStages() {
	fs := r.sampleRate
	r.preDelaySamples = int(math.Round(float64(r.cfg.PreDelayMs) * 0.001 * fs))
	r.preDelay = nil
	if r.preDelaySamples > 0 {
		r.preDelay = dsp.NewDelayLine(r.preDelaySamples + 1)
	}

	r.tone = nil
	if r.cfg.ToneHz > 0 && float64(r.cfg.ToneHz) < 0.49*fs {
		if f, err := filter.NewButterworth(r.cfg.ToneOrder, filter.Lowpass); err == nil {
			f.CalcCoefs(float64(r.cfg.ToneHz), 1/math.Sqrt2, fs)
			r.tone = f
		}
	}
	r.lowCut = nil
	if r.cfg.LowCutHz > 0 && float64(r.cfg.LowCutHz) < 0.49*fs {
		if f, err := filter.NewButterworth(r.cfg.ToneOrder, filter.Highpass); err == nil {
			f.CalcCoefs(float64(r.cfg.LowCutHz), 1/math.Sqrt2, fs)
			r.lowCut = f
		}
	}
}

// Reset clears the modes, filters, pre-delay and LFO phase.
func (r *Reverb) Reset() {
	r.bank.Reset()
	if r.preDelay != nil {
		r.preDelay.Reset()
	}
	if r.tone != nil {
		r.tone.Reset()
	}
	if r.lowCut != nil {
		r.lowCut.Reset()
	}
	r.lfoPhase = 0
}

func (r *Reverb) ensure(numSamples int) {
	if cap(r.mono) < numSamples {
		r.mono = make([]float32, numSamples)
	}
	if cap(r.lfo) < numSamples {
		r.lfo = make([]float32, numSamples)
	}
}

// Process runs the reverb in place. All channels must share the length
// of block[0].
func (r *Reverb) Process(block [][]float32) {
	numCh := len(block)
	if numCh == 0 {
		return
	}
	n := len(block[0])
	r.ensure(n)

	mono := r.mono[:n]
	gain := 1 / float32(numCh)
	for i := range mono {
		var s float32
		for _, ch := range block {
			s += ch[i]
		}
		mono[i] = s * gain
	}
	if r.preDelay != nil {
		for i, x := range mono {
			r.preDelay.Write(x)
			mono[i] = r.preDelay.Read(r.preDelaySamples + 1)
		}
	}

	r.monoBlk[0] = mono
	if r.cfg.ModModes > 0 && r.cfg.ModDepth > 0 {
		r.fillLFO(n)
		r.bank.ProcessWithModulation(r.monoBlk, r.modFn)
	} else {
		r.bank.Process(r.monoBlk)
	}

	wet := r.bank.RenderBuffer()
	if r.lowCut != nil {
		r.lowCut.ProcessBlock(wet, 0)
	}
	if r.tone != nil {
		r.tone.ProcessBlock(wet, 0)
	}

	dryGain := 1 - r.cfg.Mix
	wetGain := r.cfg.Mix * r.cfg.OutputGain
	for i := range wet {
		wet[i] = float32(dspcore.FlushDenormals(float64(wet[i] * wetGain)))
	}
	for _, ch := range block {
		for i := range ch[:n] {
			ch[i] = dryGain*ch[i] + wet[i]
		}
	}
}

// fillLFO writes the per-sample frequency multiplier 2^(depth*sin).
func (r *Reverb) fillLFO(n int) {
	inc := 2 * math.Pi * float64(r.cfg.ModFreqHz) / r.sampleRate
	depth := r.cfg.ModDepth
	for i := 0; i < n; i++ {
		r.lfo[i] = exp2(depth * float32(math.Sin(r.lfoPhase)))
		r.lfoPhase += inc
		if r.lfoPhase >= 2*math.Pi {
			r.lfoPhase -= 2 * math.Pi
		}
	}
}

func (r *Reverb) modulate(g *modal.Group, groupIndex, n int) {
	base := groupIndex * modal.LaneWidth
	limit := min(r.cfg.ModModes, r.modes.Len())
	if base >= limit {
		return
	}
	m := r.lfo[n] * r.freqMult
	ceil := r.bank.MaxFrequency()
	for lane := 0; lane < modal.LaneWidth && base+lane < limit; lane++ {
		f := r.modes.Freqs[base+lane] * m
		if ceil > 0 && f > ceil {
			f = 0
		}
		g.SetLaneFrequency(lane, f)
	}
}
