package modeset

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-modal/modal"
)

// ModeSet is an analysed or synthesised list of modes. Taus are decay
// time constants in samples at SampleRate, the rate the set was
// analysed at; they are converted to T60 when applied to a bank.
type ModeSet struct {
	SampleRate float64   `json:"sample_rate"`
	Freqs      []float32 `json:"freqs"`
	Taus       []float32 `json:"taus"`
	AmpsRe     []float32 `json:"amps_re"`
	AmpsIm     []float32 `json:"amps_im"`
}

// Len returns the number of modes.
func (m *ModeSet) Len() int { return len(m.Freqs) }

// Validate checks that all arrays agree and every value is usable.
func (m *ModeSet) Validate() error {
	if m.SampleRate <= 0 {
		return fmt.Errorf("mode set sample rate must be > 0")
	}
	n := len(m.Freqs)
	if len(m.Taus) != n || len(m.AmpsRe) != n || len(m.AmpsIm) != n {
		return fmt.Errorf("mode set arrays differ in length: freqs=%d taus=%d amps_re=%d amps_im=%d",
			n, len(m.Taus), len(m.AmpsRe), len(m.AmpsIm))
	}
	for i := 0; i < n; i++ {
		if m.Freqs[i] < 0 || !finite(m.Freqs[i]) {
			return fmt.Errorf("mode %d: invalid frequency %g", i, m.Freqs[i])
		}
		if m.Taus[i] <= 0 || !finite(m.Taus[i]) {
			return fmt.Errorf("mode %d: tau must be > 0, got %g", i, m.Taus[i])
		}
		if !finite(m.AmpsRe[i]) || !finite(m.AmpsIm[i]) {
			return fmt.Errorf("mode %d: non-finite amplitude", i)
		}
	}
	return nil
}

// T60s converts the taus to decay times in seconds.
func (m *ModeSet) T60s() []float32 {
	out := make([]float32, len(m.Taus))
	for i, tau := range m.Taus {
		out[i] = modal.TauToT60(tau, float32(m.SampleRate))
	}
	return out
}

// Clone returns a deep copy.
func (m *ModeSet) Clone() *ModeSet {
	return &ModeSet{
		SampleRate: m.SampleRate,
		Freqs:      append([]float32(nil), m.Freqs...),
		Taus:       append([]float32(nil), m.Taus...),
		AmpsRe:     append([]float32(nil), m.AmpsRe...),
		AmpsIm:     append([]float32(nil), m.AmpsIm...),
	}
}

// SortByFrequency orders modes by ascending frequency so the leading
// modes of a bank are the lowest partials.
func (m *ModeSet) SortByFrequency() {
	sort.Sort(byFreq{m})
}

type byFreq struct{ m *ModeSet }

func (s byFreq) Len() int           { return len(s.m.Freqs) }
func (s byFreq) Less(i, j int) bool { return s.m.Freqs[i] < s.m.Freqs[j] }
func (s byFreq) Swap(i, j int) {
	m := s.m
	m.Freqs[i], m.Freqs[j] = m.Freqs[j], m.Freqs[i]
	m.Taus[i], m.Taus[j] = m.Taus[j], m.Taus[i]
	m.AmpsRe[i], m.AmpsRe[j] = m.AmpsRe[j], m.AmpsRe[i]
	m.AmpsIm[i], m.AmpsIm[j] = m.AmpsIm[j], m.AmpsIm[i]
}

// Truncate keeps the first n modes.
func (m *ModeSet) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(m.Freqs) {
		return
	}
	m.Freqs = m.Freqs[:n]
	m.Taus = m.Taus[:n]
	m.AmpsRe = m.AmpsRe[:n]
	m.AmpsIm = m.AmpsIm[:n]
}

// Apply loads the set into b. freqMult scales every frequency,
// decayFactor stretches every decay and normalize is passed to
// SetModeAmplitudes.
func (m *ModeSet) Apply(b *modal.Bank, freqMult, decayFactor, normalize float32) {
	b.SetModeFrequencies(m.Freqs, freqMult)
	b.SetModeDecaysTau(m.Taus, float32(m.SampleRate), decayFactor)
	b.SetModeAmplitudes(m.AmpsRe, m.AmpsIm, normalize)
}

// RenderSettings controls RenderImpulse.
type RenderSettings struct {
	SampleRate  float64
	NumSamples  int
	BlockSize   int
	FreqMult    float32
	DecayFactor float32
	Normalize   float32
	NumModes    int // 0 renders every mode
}

// RenderImpulse returns the bank's response to a unit impulse.
func (m *ModeSet) RenderImpulse(rs RenderSettings) []float32 {
	if rs.BlockSize <= 0 {
		rs.BlockSize = 256
	}
	if rs.FreqMult == 0 {
		rs.FreqMult = 1
	}
	if rs.DecayFactor == 0 {
		rs.DecayFactor = 1
	}
	b := modal.NewBank(m.Len())
	m.Apply(b, rs.FreqMult, rs.DecayFactor, rs.Normalize)
	b.Prepare(rs.SampleRate, rs.BlockSize)
	if rs.NumModes > 0 {
		b.SetNumModesToProcess(rs.NumModes)
	}

	out := make([]float32, rs.NumSamples)
	in := make([]float32, rs.BlockSize)
	block := [][]float32{nil}
	for pos := 0; pos < len(out); pos += rs.BlockSize {
		n := min(rs.BlockSize, len(out)-pos)
		for i := range in {
			in[i] = 0
		}
		if pos == 0 {
			in[0] = 1
		}
		block[0] = in[:n]
		b.Process(block)
		copy(out[pos:], b.RenderBuffer())
	}
	return out
}

func finite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
