package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modeset"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/reverb"
)

// tailOptions controls how long the reverb rings after the input ends.
type tailOptions struct {
	MaxFrames  int
	DecayDBFS  float64 // +Inf renders the full MaxFrames
	HoldBlocks int
}

func main() {
	input := flag.String("input", "", "Input WAV (default: a unit impulse)")
	presetPath := flag.String("preset", "", "Preset JSON (default: a generated mode set)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	sampleRate := flag.Int("sample-rate", 0, "Render sample rate in Hz (default: input rate or 48000)")
	channels := flag.Int("channels", 2, "Channel count of the impulse when no input is given")
	blockSize := flag.Int("block-size", 256, "Processing block size")
	tail := flag.Float64("tail", 6.0, "Maximum tail rendered after the input, in seconds")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Stop the tail when block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop the tail")
	seed := flag.Int64("seed", 1, "Generator seed when no preset is given")
	modes := flag.Int("modes", 128, "Generated mode count when no preset is given")
	normalize := flag.Float64("normalize", 0, "Peak-normalize the output to this level (0 disables)")
	info := flag.Bool("info", false, "Print lane width and CPU features, then exit")

	cfg := reverb.DefaultConfig()
	flag.Func("pitch", "Override pitch in octaves", float32Setter(&cfg.Pitch))
	flag.Func("decay", "Override decay knob [0,1]", float32Setter(&cfg.Decay))
	flag.Func("mix", "Override dry/wet mix [0,1]", float32Setter(&cfg.Mix))
	flag.Func("mod-freq", "Override LFO rate in Hz", float32Setter(&cfg.ModFreqHz))
	flag.Func("mod-depth", "Override LFO depth in octaves", float32Setter(&cfg.ModDepth))
	flag.Func("pre-delay", "Override pre-delay in ms", float32Setter(&cfg.PreDelayMs))
	flag.Func("tone", "Override tone low-pass in Hz (0 disables)", float32Setter(&cfg.ToneHz))
	flag.Func("gain", "Override wet output gain", float32Setter(&cfg.OutputGain))
	flag.Parse()

	if *info {
		ci := modal.CPUFeatures()
		fmt.Printf("Arch: %s, LaneWidth: %d, Features: %s\n", ci.Arch, ci.LaneWidth, strings.Join(ci.Features, " "))
		return
	}

	// Overrides are parsed into the defaults; remember which were set so a
	// preset only loses the fields given on the command line.
	overrides := cfg
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	in, err := loadInput(*input, *sampleRate, *channels)
	if err != nil {
		die("Error loading input: %v", err)
	}

	ms, rcfg, err := loadPreset(*presetPath, *seed, *modes, float64(in.SampleRate))
	if err != nil {
		die("Error loading preset: %v", err)
	}
	rcfg = applyOverrides(rcfg, overrides, set)

	r, err := reverb.New(ms, rcfg)
	if err != nil {
		die("Error creating reverb: %v", err)
	}
	r.Prepare(float64(in.SampleRate), *blockSize)

	fmt.Printf("Rendering %d frames x %d ch at %d Hz with %d modes (pitch %.2f, decay %.2f, mix %.2f)...\n",
		in.Frames(), len(in.Channels), in.SampleRate, ms.Len(), rcfg.Pitch, rcfg.Decay, rcfg.Mix)

	out := render(r, in.Channels, *blockSize, tailOptions{
		MaxFrames:  int(*tail * float64(in.SampleRate)),
		DecayDBFS:  *decayDBFS,
		HoldBlocks: *decayHoldBlocks,
	})
	if *normalize > 0 {
		fitcommon.PeakNormalize(out, float32(*normalize))
	}
	if err := fitcommon.WriteWAV(*output, out, in.SampleRate); err != nil {
		die("Error writing WAV: %v", err)
	}
	fmt.Printf("Successfully wrote %d frames (%.3fs) to %s\n", len(out[0]), float64(len(out[0]))/float64(in.SampleRate), *output)
}

func float32Setter(dst *float32) func(string) error {
	return func(s string) error {
		var v float64
		if _, err := fmt.Sscan(s, &v); err != nil {
			return err
		}
		*dst = float32(v)
		return nil
	}
}

// loadInput reads path, resampling when sampleRate is set, or builds a
// unit impulse when path is empty.
func loadInput(path string, sampleRate, channels int) (*fitcommon.Audio, error) {
	if path == "" {
		if sampleRate <= 0 {
			sampleRate = 48000
		}
		if channels < 1 {
			return nil, fmt.Errorf("channels must be >= 1")
		}
		a := &fitcommon.Audio{SampleRate: sampleRate, Channels: make([][]float32, channels)}
		for i := range a.Channels {
			a.Channels[i] = []float32{1}
		}
		return a, nil
	}
	a, err := fitcommon.ReadWAV(path)
	if err != nil {
		return nil, err
	}
	if sampleRate > 0 && sampleRate != a.SampleRate {
		if err := a.Resample(sampleRate); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func loadPreset(path string, seed int64, modes int, sampleRate float64) (*modeset.ModeSet, reverb.Config, error) {
	if path != "" {
		p, err := preset.LoadJSON(path)
		if err != nil {
			return nil, reverb.Config{}, err
		}
		return p.Modes, p.Reverb, nil
	}
	gen := modeset.DefaultConfig()
	gen.Seed = seed
	gen.Modes = modes
	gen.SampleRate = sampleRate
	ms, err := modeset.Generate(gen)
	if err != nil {
		return nil, reverb.Config{}, err
	}
	return ms, reverb.DefaultConfig(), nil
}

func applyOverrides(cfg, overrides reverb.Config, set map[string]bool) reverb.Config {
	fields := map[string]struct{ dst, src *float32 }{
		"pitch":     {&cfg.Pitch, &overrides.Pitch},
		"decay":     {&cfg.Decay, &overrides.Decay},
		"mix":       {&cfg.Mix, &overrides.Mix},
		"mod-freq":  {&cfg.ModFreqHz, &overrides.ModFreqHz},
		"mod-depth": {&cfg.ModDepth, &overrides.ModDepth},
		"pre-delay": {&cfg.PreDelayMs, &overrides.PreDelayMs},
		"tone":      {&cfg.ToneHz, &overrides.ToneHz},
		"gain":      {&cfg.OutputGain, &overrides.OutputGain},
	}
	for name, f := range fields {
		if set[name] {
			*f.dst = *f.src
		}
	}
	return cfg
}

// render processes the input followed by a silent tail and returns the
// output channels.
func render(r *reverb.Reverb, in [][]float32, blockSize int, tail tailOptions) [][]float32 {
	numCh := len(in)
	inFrames := 0
	for _, ch := range in {
		inFrames = max(inFrames, len(ch))
	}
	total := inFrames + max(tail.MaxFrames, 0)

	out := make([][]float32, numCh)
	for c := range out {
		out[c] = make([]float32, total)
		copy(out[c], in[c])
	}

	autoStop := !math.IsInf(tail.DecayDBFS, 1)
	threshold := math.Pow(10.0, tail.DecayDBFS/20.0)
	hold := max(tail.HoldBlocks, 1)
	below := 0

	block := make([][]float32, numCh)
	rendered := 0
	for rendered < total {
		n := min(blockSize, total-rendered)
		for c := range block {
			block[c] = out[c][rendered : rendered+n]
		}
		r.Process(block)
		rendered += n

		if autoStop && rendered > inFrames {
			if blockRMS(block) < threshold {
				below++
				if below >= hold {
					break
				}
			} else {
				below = 0
			}
		}
	}
	for c := range out {
		out[c] = out[c][:rendered]
	}
	return out
}

func blockRMS(block [][]float32) float64 {
	var sum float64
	n := 0
	for _, ch := range block {
		for _, v := range ch {
			sum += float64(v) * float64(v)
		}
		n += len(ch)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
