package filter

import "github.com/cwbudde/algo-dsp/dsp/filter/biquad"

// Cascade fans one set of second-order sections out to a biquad.Chain
// per channel. Sections run in Direct Form II Transposed with float64
// state; samples enter and leave as float32.
type Cascade struct {
	coeffs   []biquad.Coefficients
	orders   []int
	channels []*biquad.Chain
}

// NewCascade returns a cascade of numSections pass-through sections
// prepared for one channel. Every section counts as second order until
// setSectionOrder says otherwise.
func NewCascade(numSections int) *Cascade {
	if numSections < 0 {
		numSections = 0
	}
	c := &Cascade{
		coeffs: make([]biquad.Coefficients, numSections),
		orders: make([]int, numSections),
	}
	for i := range c.coeffs {
		c.coeffs[i] = biquad.Coefficients{B0: 1}
		c.orders[i] = 2
	}
	c.Prepare(1)
	return c
}

// Prepare allocates a chain for each of numChannels channels and clears
// their state.
func (c *Cascade) Prepare(numChannels int) {
	if numChannels < 1 {
		numChannels = 1
	}
	c.channels = make([]*biquad.Chain, numChannels)
	for ch := range c.channels {
		c.channels[ch] = biquad.NewChain(c.coeffs)
	}
}

// Reset zeroes every section state.
func (c *Cascade) Reset() {
	for _, chain := range c.channels {
		chain.Reset()
	}
}

func (c *Cascade) NumSections() int { return len(c.coeffs) }
func (c *Cascade) NumChannels() int { return len(c.channels) }

// Order returns the designed filter order. It does not depend on the
// current coefficients, so it is valid before they are computed.
func (c *Cascade) Order() int {
	order := 0
	for _, o := range c.orders {
		order += o
	}
	return order
}

// setSectionOrder marks section i as first or second order.
func (c *Cascade) setSectionOrder(i, order int) { c.orders[i] = order }

// SetSection replaces the coefficients of section i on every channel
// without touching the state, so it may be called per sample.
func (c *Cascade) SetSection(i int, k biquad.Coefficients) {
	c.coeffs[i] = k
	for _, chain := range c.channels {
		chain.Section(i).Coefficients = k
	}
}

// Section returns the coefficients of section i.
func (c *Cascade) Section(i int) biquad.Coefficients { return c.coeffs[i] }

// ProcessSample runs x through all sections of the given channel.
func (c *Cascade) ProcessSample(x float32, channel int) float32 {
	return float32(c.channels[channel].ProcessSample(float64(x)))
}

// ProcessBlock filters buf in place on one channel.
func (c *Cascade) ProcessBlock(buf []float32, channel int) {
	chain := c.channels[channel]
	for n, x := range buf {
		buf[n] = float32(chain.ProcessSample(float64(x)))
	}
}

// ProcessBuffer filters every channel of block in place. Channel ch uses
// state ch.
func (c *Cascade) ProcessBuffer(block [][]float32) {
	for ch, buf := range block {
		c.ProcessBlock(buf, ch)
	}
}

// ProcessBlockWithModulation calls mod once per sample index, then
// filters that sample on every channel. mod usually retunes the
// sections through SetSection.
func (c *Cascade) ProcessBlockWithModulation(block [][]float32, mod func(n int)) {
	if len(block) == 0 {
		return
	}
	numSamples := len(block[0])
	for n := 0; n < numSamples; n++ {
		mod(n)
		for ch, buf := range block {
			buf[n] = c.ProcessSample(buf[n], ch)
		}
	}
}

// Response returns the complex frequency response at freq.
func (c *Cascade) Response(freq, sampleRate float64) complex128 {
	return c.channels[0].Response(freq, sampleRate)
}

// MagnitudeDB returns the response magnitude at freq in dB.
func (c *Cascade) MagnitudeDB(freq, sampleRate float64) float64 {
	return c.channels[0].MagnitudeDB(freq, sampleRate)
}
