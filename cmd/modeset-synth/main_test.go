package main

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-modal/modeset"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/reverb"
)

func TestSynthesizeGenerator(t *testing.T) {
	cfg := modeset.DefaultConfig()
	cfg.Modes = 32
	ms, err := synthesize(cfg, eigenOptions{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if ms.Len() != 32 {
		t.Fatalf("expected 32 modes got=%d", ms.Len())
	}
}

func TestSynthesizeEigenBar(t *testing.T) {
	cfg := modeset.DefaultConfig()
	cfg.Shape = modeset.ShapeBar
	cfg.Modes = 8
	cfg.MinFreq = 100
	ms, err := synthesize(cfg, eigenOptions{Enabled: true, LossExp: 1})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if ms.Len() != 8 {
		t.Fatalf("expected 8 modes got=%d", ms.Len())
	}
	if math.Abs(float64(ms.Freqs[1])/float64(ms.Freqs[0])-4) > 0.1 {
		t.Fatalf("expected bar ratio near 4 got=%f", ms.Freqs[1]/ms.Freqs[0])
	}
	if ms.Taus[1] >= ms.Taus[0] {
		t.Fatalf("expected higher modes to decay faster")
	}
}

func TestSynthesizeEigenRejectsLog(t *testing.T) {
	cfg := modeset.DefaultConfig()
	if _, err := synthesize(cfg, eigenOptions{Enabled: true}); err == nil {
		t.Fatalf("expected error for log shape")
	}
	cfg.Shape = modeset.ShapeString
	cfg.Modes = 4
	cfg.MinFreq = 30000
	if _, err := synthesize(cfg, eigenOptions{Enabled: true, LossExp: 1}); err == nil {
		t.Fatalf("expected error when fundamental is above nyquist")
	}
}

func TestSynthesizedPresetLoads(t *testing.T) {
	cfg := modeset.DefaultConfig()
	cfg.Modes = 16
	ms, err := synthesize(cfg, eigenOptions{})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "p.json")
	if err := preset.SaveJSON(path, &preset.Preset{Modes: ms, Reverb: reverb.DefaultConfig()}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	p, err := preset.LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.Modes.Len() != 16 || p.Modes.Freqs[3] != ms.Freqs[3] {
		t.Fatalf("expected mode set to survive round trip")
	}
}

func TestStats(t *testing.T) {
	peak, rms := stats([]float32{1, -1, 1, -1})
	if peak != 1 || math.Abs(rms-1) > 1e-12 {
		t.Fatalf("expected peak=1 rms=1 got peak=%f rms=%f", peak, rms)
	}
	if p, r := stats(nil); p != 0 || r != 0 {
		t.Fatalf("expected zeros for empty input")
	}
}
