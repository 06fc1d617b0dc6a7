package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-modal/internal/fitcommon"
	"github.com/cwbudde/algo-modal/modeset"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	Log   bool
	IsInt bool
}

type candidate struct {
	Vals []float64
}

var knobDefs = []knobDef{
	{Name: "min_freq", Min: 20, Max: 600, Log: true},
	{Name: "modes", Min: 16, Max: 384, IsInt: true},
	{Name: "brightness", Min: 0.2, Max: 3.0},
	{Name: "density", Min: 0.5, Max: 4.0},
	{Name: "low_decay_s", Min: 0.05, Max: 10, Log: true},
	{Name: "high_decay_s", Min: 0.01, Max: 3, Log: true},
}

func knobIndex(name string) int {
	for i, d := range knobDefs {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// initCandidate reads the starting point from a generator config.
func initCandidate(cfg modeset.Config) candidate {
	vals := make([]float64, len(knobDefs))
	vals[knobIndex("min_freq")] = cfg.MinFreq
	vals[knobIndex("modes")] = float64(cfg.Modes)
	vals[knobIndex("brightness")] = cfg.Brightness
	vals[knobIndex("density")] = cfg.Density
	vals[knobIndex("low_decay_s")] = cfg.LowDecayS
	vals[knobIndex("high_decay_s")] = cfg.HighDecayS
	for i, d := range knobDefs {
		vals[i] = fitcommon.Clamp(vals[i], d.Min, d.Max)
	}
	return candidate{Vals: vals}
}

func applyCandidate(base modeset.Config, c candidate) modeset.Config {
	cfg := base
	cfg.MinFreq = c.Vals[knobIndex("min_freq")]
	cfg.Modes = int(c.Vals[knobIndex("modes")])
	cfg.Brightness = c.Vals[knobIndex("brightness")]
	cfg.Density = c.Vals[knobIndex("density")]
	cfg.LowDecayS = c.Vals[knobIndex("low_decay_s")]
	cfg.HighDecayS = c.Vals[knobIndex("high_decay_s")]
	if cfg.GridPoints < cfg.Modes {
		cfg.GridPoints = cfg.Modes
	}
	return cfg
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i, d := range defs {
		x := 0.0
		if i < len(pos) {
			x = pos[i]
		}
		v := fitcommon.FromUnit(x, d.Min, d.Max, d.Log)
		if d.IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func toNormalized(c candidate, defs []knobDef) []float64 {
	pos := make([]float64, len(defs))
	for i, d := range defs {
		pos[i] = fitcommon.ToUnit(c.Vals[i], d.Min, d.Max, d.Log)
	}
	return pos
}

func knobMap(c candidate, defs []knobDef) map[string]float64 {
	out := make(map[string]float64, len(defs))
	for i, d := range defs {
		out[d.Name] = c.Vals[i]
	}
	return out
}

// loadCandidateFromReport resumes from best_knobs of a previous report.
// A missing report is not an error.
func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var r struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return fallback, false, fmt.Errorf("parse report: %w", err)
	}
	if len(r.BestKnobs) == 0 {
		return fallback, false, nil
	}
	vals := append([]float64(nil), fallback.Vals...)
	for i, d := range defs {
		if v, ok := r.BestKnobs[d.Name]; ok {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
		}
	}
	return candidate{Vals: vals}, true, nil
}
