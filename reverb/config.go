package reverb

import "fmt"

// Config holds the user-facing reverb settings.
type Config struct {
	Pitch float32 // octaves; scales every mode frequency by 2^Pitch
	Decay float32 // 0..1; 0.5 keeps the analysed decay times

	ModFreqHz float32 // LFO rate
	ModDepth  float32 // peak frequency deviation in octaves
	ModModes  int     // number of leading modes that are modulated; 0 disables

	PreDelayMs float32
	ToneHz     float32 // lowpass cutoff on the wet signal; 0 disables
	LowCutHz   float32 // highpass cutoff on the wet signal; 0 disables
	ToneOrder  int

	Mix        float32 // wet proportion 0..1
	OutputGain float32 // applied to the wet signal
	Normalize  float32 // amplitude normalization passed to the bank; <= 0 keeps raw amplitudes
	NumModes   int     // modes to process; 0 processes all
}

func DefaultConfig() Config {
	return Config{
		Pitch:      0,
		Decay:      0.5,
		ModFreqHz:  0.5,
		ModDepth:   0.02,
		ModModes:   0,
		PreDelayMs: 0,
		ToneHz:     0,
		LowCutHz:   0,
		ToneOrder:  2,
		Mix:        0.5,
		OutputGain: 1,
		Normalize:  -1,
		NumModes:   0,
	}
}

func (c *Config) Validate() error {
	if c.Pitch < -4 || c.Pitch > 4 {
		return fmt.Errorf("pitch must be in [-4,4] octaves, got %g", c.Pitch)
	}
	if c.Decay < 0 || c.Decay > 1 {
		return fmt.Errorf("decay must be in [0,1], got %g", c.Decay)
	}
	if c.ModFreqHz < 0 {
		return fmt.Errorf("mod frequency must be >= 0")
	}
	if c.ModDepth < 0 || c.ModDepth > 1 {
		return fmt.Errorf("mod depth must be in [0,1] octaves, got %g", c.ModDepth)
	}
	if c.ModModes < 0 {
		return fmt.Errorf("mod modes must be >= 0")
	}
	if c.PreDelayMs < 0 || c.PreDelayMs > 1000 {
		return fmt.Errorf("pre-delay must be in [0,1000] ms, got %g", c.PreDelayMs)
	}
	if c.ToneHz < 0 || c.LowCutHz < 0 {
		return fmt.Errorf("tone cutoffs must be >= 0")
	}
	if c.ToneHz > 0 && c.LowCutHz > 0 && c.LowCutHz >= c.ToneHz {
		return fmt.Errorf("low cut (%g Hz) must be below tone (%g Hz)", c.LowCutHz, c.ToneHz)
	}
	if c.ToneOrder < 1 || c.ToneOrder > 8 {
		return fmt.Errorf("tone order must be in [1,8], got %d", c.ToneOrder)
	}
	if c.Mix < 0 || c.Mix > 1 {
		return fmt.Errorf("mix must be in [0,1], got %g", c.Mix)
	}
	if c.OutputGain < 0 {
		return fmt.Errorf("output gain must be >= 0")
	}
	if c.NumModes < 0 {
		return fmt.Errorf("num modes must be >= 0")
	}
	return nil
}
