package filter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// WarpK returns the bilinear constant that maps the analog angular
// frequency wc onto the same digital frequency at sampleRate.
func WarpK(wc, sampleRate float64) float64 {
	return wc / math.Tan(wc/(2*sampleRate))
}

// Bilinear2 maps the analog section
//
//	H(s) = (bs[0]s^2 + bs[1]s + bs[2]) / (as[0]s^2 + as[1]s + as[2])
//
// to a digital biquad with s = K(z-1)/(z+1).
func Bilinear2(bs, as [3]float64, K float64) biquad.Coefficients {
	kSq := K * K
	a0Inv := 1 / (as[0]*kSq + as[1]*K + as[2])
	return biquad.Coefficients{
		B0: (bs[0]*kSq + bs[1]*K + bs[2]) * a0Inv,
		B1: 2 * (bs[2] - bs[0]*kSq) * a0Inv,
		B2: (bs[0]*kSq - bs[1]*K + bs[2]) * a0Inv,
		A1: 2 * (as[2] - as[0]*kSq) * a0Inv,
		A2: (as[0]*kSq - as[1]*K + as[2]) * a0Inv,
	}
}

// Bilinear1 maps H(s) = (bs[0]s + bs[1]) / (as[0]s + as[1]). The result
// has B2 = A2 = 0.
func Bilinear1(bs, as [2]float64, K float64) biquad.Coefficients {
	a0Inv := 1 / (as[0]*K + as[1])
	return biquad.Coefficients{
		B0: (bs[0]*K + bs[1]) * a0Inv,
		B1: (bs[1] - bs[0]*K) * a0Inv,
		A1: (as[1] - as[0]*K) * a0Inv,
	}
}

func angular(freq float64) float64 { return 2 * math.Pi * freq }

// FirstOrderLPF: H(s) = 1 / (s/wc + 1).
func FirstOrderLPF(fc, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	return Bilinear1([2]float64{0, 1}, [2]float64{1 / wc, 1}, WarpK(wc, sampleRate))
}

// FirstOrderHPF: H(s) = (s/wc) / (s/wc + 1).
func FirstOrderHPF(fc, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	return Bilinear1([2]float64{1 / wc, 0}, [2]float64{1 / wc, 1}, WarpK(wc, sampleRate))
}

// SecondOrderLPF: H(s) = 1 / (s^2/wc^2 + s/(Q wc) + 1), matched at fc.
func SecondOrderLPF(fc, q, sampleRate float64) biquad.Coefficients {
	return secondOrderLPF(fc, q, sampleRate, fc)
}

// SecondOrderHPF: H(s) = (s^2/wc^2) / (s^2/wc^2 + s/(Q wc) + 1), matched at fc.
func SecondOrderHPF(fc, q, sampleRate float64) biquad.Coefficients {
	return secondOrderHPF(fc, q, sampleRate, fc)
}

func secondOrderLPF(fc, q, sampleRate, matchFc float64) biquad.Coefficients {
	wc := angular(fc)
	den := [3]float64{1 / (wc * wc), 1 / (q * wc), 1}
	return Bilinear2([3]float64{0, 0, 1}, den, WarpK(angular(matchFc), sampleRate))
}

func secondOrderHPF(fc, q, sampleRate, matchFc float64) biquad.Coefficients {
	wc := angular(fc)
	den := [3]float64{1 / (wc * wc), 1 / (q * wc), 1}
	return Bilinear2([3]float64{den[0], 0, 0}, den, WarpK(angular(matchFc), sampleRate))
}

// SecondOrderBPF: H(s) = (s/(Q wc)) / (s^2/wc^2 + s/(Q wc) + 1), unity gain at fc.
func SecondOrderBPF(fc, q, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	kTerm := 1 / (q * wc)
	return Bilinear2([3]float64{0, kTerm, 0}, [3]float64{1 / (wc * wc), kTerm, 1}, WarpK(wc, sampleRate))
}

// Notch: H(s) = (s^2/wc^2 + 1) / (s^2/wc^2 + s/(Q wc) + 1).
func Notch(fc, q, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	kSq := 1 / (wc * wc)
	return Bilinear2([3]float64{kSq, 0, 1}, [3]float64{kSq, 1 / (q * wc), 1}, WarpK(wc, sampleRate))
}

// Peaking boosts or cuts by the linear gain around fc.
func Peaking(fc, q, gain, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	a := math.Sqrt(gain)
	kSq := 1 / (wc * wc)
	kTerm := 1 / (q * wc)
	return Bilinear2([3]float64{kSq, a * kTerm, 1}, [3]float64{kSq, kTerm / a, 1}, WarpK(wc, sampleRate))
}

// LowShelf applies the linear gain below fc.
func LowShelf(fc, q, gain, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	a := math.Sqrt(gain)
	sqrtA := math.Sqrt(a)
	kSq := 1 / (wc * wc)
	kTerm := 1 / (q * wc)
	return Bilinear2(
		[3]float64{a * kSq, a * sqrtA * kTerm, a * a},
		[3]float64{a * kSq, sqrtA * kTerm, 1},
		WarpK(wc, sampleRate),
	)
}

// HighShelf applies the linear gain above fc.
func HighShelf(fc, q, gain, sampleRate float64) biquad.Coefficients {
	wc := angular(fc)
	a := math.Sqrt(gain)
	sqrtA := math.Sqrt(a)
	kSq := 1 / (wc * wc)
	kTerm := 1 / (q * wc)
	return Bilinear2(
		[3]float64{a * a * kSq, a * sqrtA * kTerm, a},
		[3]float64{kSq, sqrtA * kTerm, a},
		WarpK(wc, sampleRate),
	)
}
