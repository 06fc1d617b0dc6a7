package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/reverb"
)

type result struct {
	Metrics analysis.Metrics    `json:"metrics"`
	Bands   []analysis.BandDiff `json:"bands,omitempty"`
}

func main() {
	referencePath := flag.String("reference", "reference/spring.wav", "Reference impulse response WAV")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the preset's impulse response")
	presetPath := flag.String("preset", "out/fit/spring.json", "Preset JSON path for the rendered candidate")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	duration := flag.Float64("duration", 4.0, "Rendered candidate length in seconds")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	bands := flag.Bool("bands", false, "Add a per-band breakdown over time windows")
	fftSize := flag.Int("fft-size", 4096, "FFT size of the band breakdown")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	flag.Parse()

	ref, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	var cand []float64
	if *candidatePath != "" {
		raw, candSR, err := fitcommon.ReadWAVMono(*candidatePath)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
		cand, err = fitcommon.ResampleIfNeeded(raw, candSR, *sampleRate)
		if err != nil {
			die("failed to resample candidate: %v", err)
		}
	} else {
		ir, err := renderPresetIR(*presetPath, *sampleRate, int(*duration*float64(*sampleRate)))
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = fitcommon.ToFloat64(ir)
		if *writeCandidate != "" {
			if err := fitcommon.WriteMonoWAV(*writeCandidate, ir, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	res := result{Metrics: analysis.Compare(ref, cand, *sampleRate)}
	if *bands {
		res.Bands, err = bandBreakdown(ref, cand, res.Metrics.LagSamples, *sampleRate, *fftSize)
		if err != nil {
			die("band breakdown failed: %v", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printMetrics(res.Metrics)
	if len(res.Bands) > 0 {
		fmt.Println()
		printBands(res.Bands)
	}
}

// renderPresetIR runs a unit impulse through the preset's reverb with the
// dry path removed.
func renderPresetIR(path string, sampleRate, frames int) ([]float32, error) {
	p, err := preset.LoadJSON(path)
	if err != nil {
		return nil, err
	}
	cfg := p.Reverb
	cfg.Mix = 1
	r, err := reverb.New(p.Modes, cfg)
	if err != nil {
		return nil, err
	}
	const blockSize = 256
	r.Prepare(float64(sampleRate), blockSize)
	out := make([]float32, max(frames, 1))
	out[0] = 1
	block := [][]float32{nil}
	for pos := 0; pos < len(out); pos += blockSize {
		block[0] = out[pos:min(pos+blockSize, len(out))]
		r.Process(block)
	}
	return out, nil
}

// bandBreakdown aligns the signals by the lag Compare found and compares
// them band by band.
func bandBreakdown(ref, cand []float64, lag, sampleRate, fftSize int) ([]analysis.BandDiff, error) {
	switch {
	case lag > 0 && lag < len(cand):
		cand = cand[lag:]
	case lag < 0 && -lag < len(ref):
		ref = ref[-lag:]
	}
	return analysis.CompareBands(ref, cand, sampleRate, fftSize, analysis.DefaultBands, analysis.DefaultWindows)
}

func printMetrics(m analysis.Metrics) {
	fmt.Printf("Reference frames: %d\n", m.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", m.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", m.AlignedFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", m.LagSamples, 1000.0*float64(m.LagSamples)/float64(m.SampleRate))
	fmt.Println()
	fmt.Printf("Time RMSE:        %.6f\n", m.TimeRMSE)
	fmt.Printf("Envelope RMSE:    %.1f dB\n", m.EnvelopeRMSEDB)
	fmt.Printf("Spectral RMSE:    %.1f dB\n", m.SpectralRMSEDB)
	fmt.Printf("Decay diff:       %.1f dB/s (ref=%.1f cand=%.1f)\n", m.DecayDiffDBPerS, m.RefDecayDBPerS, m.CandDecayDBPerS)
	fmt.Printf("T60:              ref=%.2fs cand=%.2fs\n", m.RefT60S, m.CandT60S)
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Printf("Similarity:       %.2f%%\n", m.Similarity*100.0)
}

func printBands(diffs []analysis.BandDiff) {
	window := ""
	for _, d := range diffs {
		if d.Window != window {
			if window != "" {
				fmt.Println()
			}
			window = d.Window
			fmt.Printf("--- %s (%d STFT frames) ---\n", d.Window, d.Frames)
		}
		marker := ""
		if d.RMSEDB > 15 {
			marker = " <<<"
		}
		if d.RMSEDB > 25 {
			marker = " <<< !!!"
		}
		fmt.Printf("  %-22s RMSE=%5.1fdB  ref=%6.1fdB  cand=%6.1fdB  diff=%+5.1fdB%s\n",
			d.Band, d.RMSEDB, d.RefDB, d.CandDB, d.DiffDB(), marker)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
