package filter

import (
	"fmt"
	"math"
)

// Type selects the pass band of a higher-order filter.
type Type int

const (
	Lowpass Type = iota
	Highpass
)

func (t Type) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ButterworthQs returns the Q values of the order/2 second-order
// sections of a Butterworth filter, in ascending order.
func ButterworthQs(order int) []float64 {
	lim := order / 2
	qs := make([]float64, lim)
	n := float64(order)
	for k := 1; k <= lim; k++ {
		b := -2 * math.Cos(float64(2*k+order-1)*math.Pi/(2*n))
		qs[lim-k] = 1 / b
	}
	return qs
}

// Butterworth is a Butterworth lowpass or highpass of any order. Odd
// orders end with a first-order section.
type Butterworth struct {
	*Cascade
	order int
	typ   Type
	qs    []float64
}

// NewButterworth builds an unconfigured filter; call CalcCoefs before use.
func NewButterworth(order int, typ Type) (*Butterworth, error) {
	if order < 1 {
		return nil, fmt.Errorf("butterworth order must be >= 1, got %d", order)
	}
	if typ != Lowpass && typ != Highpass {
		return nil, fmt.Errorf("unsupported butterworth type %v", typ)
	}
	f := &Butterworth{
		Cascade: NewCascade(order/2 + order%2),
		order:   order,
		typ:     typ,
		qs:      ButterworthQs(order),
	}
	if order%2 == 1 {
		f.setSectionOrder(order/2, 1)
	}
	return f, nil
}

func (f *Butterworth) FilterOrder() int { return f.order }
func (f *Butterworth) Type() Type       { return f.typ }

// CalcCoefs sets the cutoff fc. q scales the resonance of the first
// section; 1/sqrt(2) gives a maximally flat response.
func (f *Butterworth) CalcCoefs(fc, q, sampleRate float64) {
	for i, stageQ := range f.qs {
		if i == 0 {
			stageQ *= q * math.Sqrt2
		}
		if f.typ == Lowpass {
			f.SetSection(i, SecondOrderLPF(fc, stageQ, sampleRate))
		} else {
			f.SetSection(i, SecondOrderHPF(fc, stageQ, sampleRate))
		}
	}
	if f.order%2 == 1 {
		last := len(f.qs)
		if f.typ == Lowpass {
			f.SetSection(last, FirstOrderLPF(fc, sampleRate))
		} else {
			f.SetSection(last, FirstOrderHPF(fc, sampleRate))
		}
	}
}
