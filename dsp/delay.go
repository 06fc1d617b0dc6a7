package dsp

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

// DelayLine is a single-channel delay built on a DoubleBuffer, so
// interpolators can read their neighbourhood as one contiguous slice.
type DelayLine struct {
	buf      *DoubleBuffer[float32]
	scratch  [1]float32
	lagrange *LagrangeInterpolator
}

// NewDelayLine creates a delay line holding size samples.
func NewDelayLine(size int) *DelayLine {
	if size < 4 {
		size = 4
	}
	return &DelayLine{
		buf:      NewDoubleBuffer[float32](size, 0),
		lagrange: NewLagrangeInterpolator(3),
	}
}

// Size returns the maximum delay in samples.
func (d *DelayLine) Size() int { return d.buf.Size() }

// Write appends one sample.
func (d *DelayLine) Write(sample float32) {
	d.scratch[0] = float32(dspcore.FlushDenormals(float64(sample)))
	d.buf.Push(d.scratch[:])
}

// WriteBlock appends a block of samples, flushing denormals like Write.
// samples is left untouched.
func (d *DelayLine) WriteBlock(samples []float32) {
	for _, s := range samples {
		d.Write(s)
	}
}

// Read returns the sample written delay writes ago; 1 is the most recent.
func (d *DelayLine) Read(delay int) float32 {
	return d.buf.Data(d.buf.WritePointer() - delay)[0]
}

// ReadFractional reads with linear interpolation.
func (d *DelayLine) ReadFractional(delay float32) float32 {
	intDelay := int(delay)
	frac := delay - float32(intDelay)

	sample1 := d.Read(intDelay)
	sample2 := d.Read(intDelay + 1)
	return sample1 + frac*(sample2-sample1)
}

// ReadLagrange reads with cubic Lagrange interpolation. delay must lie
// in [1, Size()-2]. Below 2 the window would need a sample newer than
// Read(1), so those delays fall back to ReadFractional.
func (d *DelayLine) ReadLagrange(delay float32) float32 {
	intDelay := int(delay)
	if intDelay < 2 {
		return d.ReadFractional(delay)
	}
	frac := delay - float32(intDelay)

	// Oldest first: Read(i+2), Read(i+1), Read(i), Read(i-1).
	w := d.buf.Data(d.buf.WritePointer() - intDelay - 2)
	return d.lagrange.Interpolate(w[:4], 1-frac)
}

// Reset clears the delay line.
func (d *DelayLine) Reset() {
	d.buf.Clear()
}

// LagrangeInterpolator provides fractional interpolation between
// samples[1] and samples[2] of a four-point neighbourhood.
type LagrangeInterpolator struct {
	order int
}

// NewLagrangeInterpolator creates an interpolator.
// order: 1 = linear, 3 = cubic
func NewLagrangeInterpolator(order int) *LagrangeInterpolator {
	return &LagrangeInterpolator{order: order}
}

// Interpolate evaluates the polynomial at frac in [0, 1]. Linear order
// blends samples[0] and samples[1].
func (l *LagrangeInterpolator) Interpolate(samples []float32, frac float32) float32 {
	if l.order != 3 || len(samples) < 4 {
		return samples[0] + frac*(samples[1]-samples[0])
	}
	s0, s1, s2, s3 := samples[0], samples[1], samples[2], samples[3]
	c0 := s1
	c1 := s2 - s0/3.0 - s1/2.0 - s3/6.0
	c2 := s0/2.0 - s1 + s2/2.0
	c3 := s1/2.0 - s2/2.0 + (s3-s0)/6.0
	return c0 + frac*(c1+frac*(c2+frac*c3))
}
