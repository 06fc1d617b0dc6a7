package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/modeset"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/reverb"
)

type runReport struct {
	ReferencePath  string             `json:"reference_path"`
	ExcitationPath string             `json:"excitation_path,omitempty"`
	OutputPreset   string             `json:"output_preset"`
	OutputWAV      string             `json:"output_wav,omitempty"`
	SampleRate     int                `json:"sample_rate"`
	Shape          string             `json:"shape"`
	Seed           int64              `json:"seed"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
	PeakHzRef      float64            `json:"peak_hz_reference"`
	PeakHzBest     float64            `json:"peak_hz_best"`
}

// fitTarget is what every candidate is compared against.
type fitTarget struct {
	sampleRate int
	frames     int
	reference  []float64
	excitation []float32 // nil compares impulse responses directly
}

func main() {
	gen := modeset.DefaultConfig()

	referencePath := flag.String("reference", "reference/spring.wav", "Reference impulse response WAV")
	excitationPath := flag.String("excitation", "", "Optional dry WAV; when set, reference and candidates are compared after processing it")
	outputPreset := flag.String("output-preset", "out/fit/spring.json", "Path to write the fitted preset JSON")
	outputWAV := flag.String("output-wav", "", "Optional path to write the best candidate impulse response")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate")
	maxDuration := flag.Float64("max-duration", 4.0, "Longest stretch of the reference used, in seconds")
	shape := flag.String("shape", string(gen.Shape), "Mode layout: log|plate|string|bar")
	flag.Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed for phases and the optimizer")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	resume := flag.Bool("resume", true, "Resume from best_knobs of an existing report")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 200, "Target eval budget per Mayfly round")
	flag.Parse()

	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)
	if *reportPath == "" {
		*reportPath = *outputPreset + ".report.json"
	}
	variant := strings.ToLower(*mayflyVariant)

	gen.SampleRate = float64(*sampleRate)
	gen.Shape = modeset.Shape(*shape)
	if err := gen.Validate(); err != nil {
		die("invalid generator settings: %v", err)
	}

	target, err := loadTarget(*referencePath, *excitationPath, *sampleRate, *maxDuration)
	if err != nil {
		die("load reference: %v", err)
	}
	fmt.Printf("Reference: %s (%d frames at %d Hz)\n", *referencePath, target.frames, target.sampleRate)

	best := initCandidate(gen)
	if *resume {
		if resumed, ok, err := loadCandidateFromReport(*reportPath, knobDefs, best); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", *reportPath, err)
		} else if ok {
			best = resumed
			fmt.Printf("Resumed candidate from %s\n", *reportPath)
		}
	}

	start := time.Now()
	deadline := start.Add(time.Duration(*timeBudget * float64(time.Second)))

	bestM, bestModes, err := evaluate(target, gen, best)
	if err != nil {
		die("initial evaluation failed: %v", err)
	}
	evals := 1
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	round := 0
	for evals < *maxEvals && time.Now().Before(deadline) {
		round++
		budget := min(*mayflyRoundEvals, *maxEvals-evals)
		iters := max(1, budget/(2*(*mayflyPop)))

		cfg, err := newMayflyConfig(variant, *mayflyPop, len(knobDefs), iters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(gen.Seed + int64(round)*7919))
		cfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= *maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			cand := fromNormalized(pos, knobDefs)
			m, modes, err := evaluate(target, gen, cand)
			evals++
			if err != nil {
				return bestM.Score + 0.8
			}
			if m.Score < bestM.Score {
				best, bestM, bestModes = cand, m, modes
				fmt.Printf("Improved eval=%d score=%.4f sim=%.2f%%\n", evals, bestM.Score, bestM.Similarity*100.0)
			}
			if evals%*reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
			continue
		}
	}

	report := runReport{
		ReferencePath:  *referencePath,
		ExcitationPath: *excitationPath,
		OutputPreset:   *outputPreset,
		OutputWAV:      *outputWAV,
		SampleRate:     *sampleRate,
		Shape:          string(gen.Shape),
		Seed:           gen.Seed,
		DurationSec:    time.Since(start).Seconds(),
		Evaluations:    evals,
		MayflyVariant:  variant,
		BestScore:      bestM.Score,
		BestSimilarity: bestM.Similarity,
		BestMetrics:    bestM,
		BestKnobs:      knobMap(best, knobDefs),
	}
	if err := writeOutputs(*reportPath, &report, target, bestModes); err != nil {
		die("failed to write outputs: %v", err)
	}
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		evals, report.DurationSec, bestM.Score, bestM.Similarity*100.0, variant)
}

func loadTarget(referencePath, excitationPath string, sampleRate int, maxDurationS float64) (*fitTarget, error) {
	ref, refSR, err := fitcommon.ReadWAVMono(referencePath)
	if err != nil {
		return nil, err
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refSR, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample reference: %w", err)
	}
	if limit := int(maxDurationS * float64(sampleRate)); limit > 0 && len(ref) > limit {
		ref = ref[:limit]
	}
	t := &fitTarget{sampleRate: sampleRate, frames: len(ref), reference: ref}
	if excitationPath == "" {
		return t, nil
	}

	exc, excSR, err := fitcommon.ReadWAVMono(excitationPath)
	if err != nil {
		return nil, fmt.Errorf("read excitation: %w", err)
	}
	exc, err = fitcommon.ResampleIfNeeded(exc, excSR, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample excitation: %w", err)
	}
	t.excitation = fitcommon.ToFloat32(exc)
	wet, err := analysis.RenderConvolved(t.excitation, fitcommon.ToFloat32(ref), 1024)
	if err != nil {
		return nil, err
	}
	t.reference = fitcommon.ToFloat64(wet)
	t.frames = len(wet)
	return t, nil
}

func evaluate(t *fitTarget, base modeset.Config, c candidate) (analysis.Metrics, *modeset.ModeSet, error) {
	ms, err := modeset.Generate(applyCandidate(base, c))
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	out, err := renderCandidate(t, ms)
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	m := analysis.Compare(t.reference, out, t.sampleRate)
	if math.IsNaN(m.Score) {
		m.Score = 1
	}
	return m, ms, nil
}

// renderCandidate produces the signal compared against the target: the
// impulse response itself, or the excitation run through a fully wet reverb.
func renderCandidate(t *fitTarget, ms *modeset.ModeSet) ([]float64, error) {
	if t.excitation == nil {
		ir := ms.RenderImpulse(modeset.RenderSettings{
			SampleRate: float64(t.sampleRate),
			NumSamples: t.frames,
			BlockSize:  512,
			Normalize:  -1,
		})
		return fitcommon.ToFloat64(ir), nil
	}

	cfg := reverb.DefaultConfig()
	cfg.Mix = 1
	r, err := reverb.New(ms, cfg)
	if err != nil {
		return nil, err
	}
	const blockSize = 512
	r.Prepare(float64(t.sampleRate), blockSize)
	buf := make([]float32, t.frames)
	copy(buf, t.excitation)
	block := [][]float32{nil}
	for pos := 0; pos < len(buf); pos += blockSize {
		block[0] = buf[pos:min(pos+blockSize, len(buf))]
		r.Process(block)
	}
	return fitcommon.ToFloat64(buf), nil
}

func writeOutputs(reportPath string, report *runReport, t *fitTarget, ms *modeset.ModeSet) error {
	p := &preset.Preset{Modes: ms, Reverb: reverb.DefaultConfig()}
	if err := preset.SaveJSON(report.OutputPreset, p); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}

	ir := ms.RenderImpulse(modeset.RenderSettings{
		SampleRate: float64(t.sampleRate),
		NumSamples: t.frames,
		Normalize:  -1,
	})
	if f, err := analysis.PeakFrequency(fitcommon.ToFloat64(ir), t.sampleRate, 20); err == nil {
		report.PeakHzBest = f
	}
	if f, err := analysis.PeakFrequency(t.reference, t.sampleRate, 20); err == nil {
		report.PeakHzRef = f
	}
	if report.OutputWAV != "" {
		fitcommon.PeakNormalize([][]float32{ir}, 0.9)
		if err := fitcommon.WriteMonoWAV(report.OutputWAV, ir, t.sampleRate); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
	}
	return writeJSON(reportPath, report)
}
