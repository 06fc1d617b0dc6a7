package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/modeset"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/reverb"
)

// eigenOptions selects the physical string/bar layout instead of the
// randomised generator.
type eigenOptions struct {
	Enabled bool
	LossExp float64
}

func main() {
	cfg := modeset.DefaultConfig()
	var eig eigenOptions
	shape := string(cfg.Shape)

	output := flag.String("output", "out/modes/synth.json", "Output preset JSON path")
	bare := flag.Bool("bare", false, "Write a bare mode set instead of a preset")
	wavPath := flag.String("wav", "", "Optional path to write the rendered impulse response")
	duration := flag.Float64("duration", 3.0, "Rendered IR length in seconds")
	normalize := flag.Float64("normalize", 0.9, "Peak normalization target for the WAV")
	flag.Float64Var(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Analysis sample rate of the mode set")
	flag.IntVar(&cfg.Modes, "modes", cfg.Modes, "Number of modes")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.StringVar(&shape, "shape", shape, "Mode layout: log|plate|string|bar")
	flag.Float64Var(&cfg.MinFreq, "min-freq", cfg.MinFreq, "Lowest mode frequency (Hz)")
	flag.Float64Var(&cfg.MaxFreq, "max-freq", cfg.MaxFreq, "Highest mode frequency (Hz, 0 = 0.47*fs)")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Spectral brightness control (>0)")
	flag.Float64Var(&cfg.Density, "density", cfg.Density, "Low-frequency clustering of log-spaced modes")
	flag.Float64Var(&cfg.LowDecayS, "low-decay", cfg.LowDecayS, "Decay time constant of the lowest modes (s)")
	flag.Float64Var(&cfg.HighDecayS, "high-decay", cfg.HighDecayS, "Decay time constant near max-freq (s)")
	flag.Float64Var(&cfg.PlateRatio, "plate-ratio", cfg.PlateRatio, "Plate aspect ratio")
	flag.Float64Var(&cfg.StiffnessRatio, "stiffness", cfg.StiffnessRatio, "Plate orthotropic stiffness ratio")
	flag.IntVar(&cfg.GridPoints, "grid", cfg.GridPoints, "Finite-difference grid size for string/bar")
	flag.BoolVar(&eig.Enabled, "eigen", false, "string/bar only: physical amplitudes and decays with min-freq as fundamental")
	flag.Float64Var(&eig.LossExp, "loss-exp", 1.0, "eigen only: decay falls as ratio^-loss-exp")
	flag.Parse()

	cfg.Shape = modeset.Shape(shape)
	ms, err := synthesize(cfg, eig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "modeset-synth error: %v\n", err)
		os.Exit(1)
	}

	if *bare {
		err = preset.SaveModeSet(*output, ms)
	} else {
		err = preset.SaveJSON(*output, &preset.Preset{Modes: ms, Reverb: reverb.DefaultConfig()})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d modes, %.1f-%.1f Hz)\n", *output, ms.Len(), ms.Freqs[0], ms.Freqs[ms.Len()-1])

	if *wavPath == "" {
		return
	}
	sr := int(cfg.SampleRate)
	ir := ms.RenderImpulse(modeset.RenderSettings{
		SampleRate: cfg.SampleRate,
		NumSamples: int(*duration * cfg.SampleRate),
		Normalize:  -1,
	})
	if *normalize > 0 {
		fitcommon.PeakNormalize([][]float32{ir}, float32(*normalize))
	}
	if err := fitcommon.WriteMonoWAV(*wavPath, ir, sr); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}
	peak, rms := stats(ir)
	fmt.Printf("Wrote %s\n", *wavPath)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", sr, *duration, len(ir))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func synthesize(cfg modeset.Config, eig eigenOptions) (*modeset.ModeSet, error) {
	if !eig.Enabled {
		return modeset.Generate(cfg)
	}
	if cfg.Shape != modeset.ShapeString && cfg.Shape != modeset.ShapeBar {
		return nil, fmt.Errorf("-eigen needs shape string or bar, got %q", cfg.Shape)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ms := modeset.FromEigenvalues(cfg.SampleRate, cfg.MinFreq, cfg.Modes, cfg.Shape == modeset.ShapeBar, cfg.LowDecayS, eig.LossExp)
	if ms.Len() == 0 {
		return nil, fmt.Errorf("fundamental %.1f Hz leaves no modes below nyquist", cfg.MinFreq)
	}
	return ms, nil
}

func stats(x []float32) (peak float64, rms float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range x {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
		sum += float64(v) * float64(v)
	}
	return peak, math.Sqrt(sum / float64(len(x)))
}
