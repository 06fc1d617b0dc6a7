package modal

import "math"

var ln1000 = math.Log(1000)

// TauToT60 converts a decay time constant, given in samples at
// originalSampleRate, into the time in seconds for a 60 dB decay.
//
// An envelope exp(-n/tau) drops by 60 dB after tau*ln(1000) samples.
// The product is formed in float64 so very short time constants stay
// finite instead of overflowing an intermediate exp().
func TauToT60(tau, originalSampleRate float32) float32 {
	if originalSampleRate <= 0 {
		return 0
	}
	return float32(float64(tau) * ln1000 / float64(originalSampleRate))
}

// T60ToTau is the inverse of TauToT60.
func T60ToTau(t60, originalSampleRate float32) float32 {
	return float32(float64(t60) * float64(originalSampleRate) / ln1000)
}
