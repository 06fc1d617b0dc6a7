package filter

import (
	"fmt"
	"math"
)

// ChebyshevII is an even-order Type II Chebyshev filter: monotonic pass
// band and an equiripple stop band at least StopBandDB below it.
type ChebyshevII struct {
	*Cascade
	order      int
	typ        Type
	stopBandDB float64
	natural    bool

	freqOffsets []float64
	qVals       []float64
	lpGains     []float64
}

// NewChebyshevII builds the filter. With naturalCutoff the cutoff passed
// to CalcCoefs is the -3 dB point; otherwise it is the stop-band edge.
func NewChebyshevII(order int, typ Type, stopBandDB float64, naturalCutoff bool) (*ChebyshevII, error) {
	if order < 2 || order%2 != 0 {
		return nil, fmt.Errorf("chebyshev II order must be even and >= 2, got %d", order)
	}
	if stopBandDB <= 0 {
		return nil, fmt.Errorf("stop-band attenuation must be > 0 dB, got %g", stopBandDB)
	}
	if typ != Lowpass && typ != Highpass {
		return nil, fmt.Errorf("unsupported chebyshev type %v", typ)
	}
	f := &ChebyshevII{
		Cascade:    NewCascade(order / 2),
		order:      order,
		typ:        typ,
		stopBandDB: stopBandDB,
		natural:    naturalCutoff,
	}
	f.calcConstants()
	return f, nil
}

func (f *ChebyshevII) FilterOrder() int    { return f.order }
func (f *ChebyshevII) StopBandDB() float64 { return f.stopBandDB }

// cheb2ap returns the pole magnitudes, pole real parts and zero
// magnitudes of the analog prototype, one entry per conjugate pair.
func (f *ChebyshevII) cheb2ap() (pNorm, pRe, zMag []float64) {
	n := f.order
	de := 1 / math.Sqrt(math.Pow(10, 0.1*f.stopBandDB)-1)
	mu := math.Asinh(1/de) / float64(n)
	sinhMu, coshMu := math.Sinh(mu), math.Cosh(mu)
	fn := math.Pi / float64(2*n)

	for k := 1; k < n; k += 2 {
		a := sinhMu * math.Cos(float64(k-n)*fn)
		b := coshMu * math.Sin(float64(k-n)*fn)
		d2 := a*a + b*b
		pNorm = append(pNorm, 1/math.Sqrt(d2))
		pRe = append(pRe, a/d2)
		zMag = append(zMag, 1/math.Cos(float64(k)*fn))
	}
	return pNorm, pRe, zMag
}

// transitionBandShift is the ratio of stop-band edge to -3 dB frequency.
func (f *ChebyshevII) transitionBandShift() float64 {
	gPass := math.Pow(10, 0.1*3)
	gStop := math.Pow(10, 0.1*f.stopBandDB)
	sqrtG := math.Sqrt((gStop - 1) / (gPass - 1))
	return math.Cosh(math.Acosh(sqrtG) / float64(f.order))
}

func (f *ChebyshevII) calcConstants() {
	pNorm, pRe, zMag := f.cheb2ap()
	shift := 1.0
	if f.natural {
		shift = f.transitionBandShift()
	}
	nf := len(pNorm)
	f.freqOffsets = make([]float64, nf)
	f.qVals = make([]float64, nf)
	f.lpGains = make([]float64, nf)
	for i := 0; i < nf; i++ {
		f.freqOffsets[i] = pNorm[i] * shift
		f.qVals[i] = pNorm[i] / (2 * math.Abs(pRe[i]))
		f.lpGains[i] = (zMag[i] * zMag[i]) / (pNorm[i] * pNorm[i])
	}
}

// CalcCoefs places the response at fc. q scales the first section the
// same way as Butterworth.CalcCoefs.
func (f *ChebyshevII) CalcCoefs(fc, q, sampleRate float64) {
	stopGain := math.Pow(10, -f.stopBandDB/20)
	for i := range f.qVals {
		stageQ := f.qVals[i]
		if i == 0 {
			stageQ *= q * math.Sqrt2
		}
		// Both prototypes share the denominator, so the stage numerator
		// is a blend that places a zero pair in the stop band.
		var pass, opp [3]float64
		stage := fc * f.freqOffsets[i]
		if f.typ == Highpass {
			stage = fc / f.freqOffsets[i]
		}
		lp := secondOrderLPF(stage, stageQ, sampleRate, fc)
		hp := secondOrderHPF(stage, stageQ, sampleRate, fc)
		if f.typ == Lowpass {
			pass = [3]float64{lp.B0, lp.B1, lp.B2}
			opp = [3]float64{hp.B0, hp.B1, hp.B2}
		} else {
			pass = [3]float64{hp.B0, hp.B1, hp.B2}
			opp = [3]float64{lp.B0, lp.B1, lp.B2}
		}
		k := lp
		k.B0 = opp[0] + f.lpGains[i]*pass[0]
		k.B1 = opp[1] + f.lpGains[i]*pass[1]
		k.B2 = opp[2] + f.lpGains[i]*pass[2]
		if i == 0 {
			k.B0 *= stopGain
			k.B1 *= stopGain
			k.B2 *= stopGain
		}
		f.SetSection(i, k)
	}
}
