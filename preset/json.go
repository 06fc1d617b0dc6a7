package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-modal/modeset"
	"github.com/cwbudde/algo-modal/reverb"
)

// File is the JSON schema for reverb presets. Either ModeSet is inlined or
// ModeSetPath points at a separate mode set file.
type File struct {
	ModeSetPath string           `json:"mode_set_path,omitempty"`
	ModeSet     *modeset.ModeSet `json:"mode_set,omitempty"`

	Pitch      *float32 `json:"pitch,omitempty"`
	Decay      *float32 `json:"decay,omitempty"`
	ModFreqHz  *float32 `json:"mod_freq_hz,omitempty"`
	ModDepth   *float32 `json:"mod_depth,omitempty"`
	ModModes   *int     `json:"mod_modes,omitempty"`
	PreDelayMs *float32 `json:"pre_delay_ms,omitempty"`
	ToneHz     *float32 `json:"tone_hz,omitempty"`
	LowCutHz   *float32 `json:"low_cut_hz,omitempty"`
	ToneOrder  *int     `json:"tone_order,omitempty"`
	Mix        *float32 `json:"mix,omitempty"`
	OutputGain *float32 `json:"output_gain,omitempty"`
	Normalize  *float32 `json:"normalize,omitempty"`
	NumModes   *int     `json:"num_modes,omitempty"`
}

// Preset is a loaded, validated preset.
type Preset struct {
	ModeSetPath string
	Modes       *modeset.ModeSet
	Reverb      reverb.Config
}

// LoadJSON loads a preset file and applies it on top of the default reverb
// settings. A relative mode_set_path resolves against the preset directory.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := &Preset{Reverb: reverb.DefaultConfig()}
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}

	if p.ModeSetPath != "" && !filepath.IsAbs(p.ModeSetPath) {
		base := filepath.Dir(path)
		p.ModeSetPath = filepath.Clean(filepath.Join(base, p.ModeSetPath))
	}
	if p.Modes == nil {
		if p.ModeSetPath == "" {
			return nil, errors.New("preset has neither mode_set nor mode_set_path")
		}
		ms, err := LoadModeSet(p.ModeSetPath)
		if err != nil {
			return nil, err
		}
		p.Modes = ms
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}

	if f.ModeSet != nil {
		if err := f.ModeSet.Validate(); err != nil {
			return fmt.Errorf("mode_set: %w", err)
		}
		dst.Modes = f.ModeSet
	}
	if f.ModeSetPath != "" {
		dst.ModeSetPath = strings.TrimSpace(f.ModeSetPath)
	}

	cfg := dst.Reverb
	setF32(&cfg.Pitch, f.Pitch)
	setF32(&cfg.Decay, f.Decay)
	setF32(&cfg.ModFreqHz, f.ModFreqHz)
	setF32(&cfg.ModDepth, f.ModDepth)
	setInt(&cfg.ModModes, f.ModModes)
	setF32(&cfg.PreDelayMs, f.PreDelayMs)
	setF32(&cfg.ToneHz, f.ToneHz)
	setF32(&cfg.LowCutHz, f.LowCutHz)
	setInt(&cfg.ToneOrder, f.ToneOrder)
	setF32(&cfg.Mix, f.Mix)
	setF32(&cfg.OutputGain, f.OutputGain)
	setF32(&cfg.Normalize, f.Normalize)
	setInt(&cfg.NumModes, f.NumModes)
	if err := cfg.Validate(); err != nil {
		return err
	}
	dst.Reverb = cfg
	return nil
}

func setF32(dst *float32, v *float32) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// FileFrom converts a preset into its JSON schema with every field set.
// The mode set is inlined unless ModeSetPath is set.
func FileFrom(p *Preset) *File {
	c := p.Reverb
	f := &File{
		Pitch:      &c.Pitch,
		Decay:      &c.Decay,
		ModFreqHz:  &c.ModFreqHz,
		ModDepth:   &c.ModDepth,
		ModModes:   &c.ModModes,
		PreDelayMs: &c.PreDelayMs,
		ToneHz:     &c.ToneHz,
		LowCutHz:   &c.LowCutHz,
		ToneOrder:  &c.ToneOrder,
		Mix:        &c.Mix,
		OutputGain: &c.OutputGain,
		Normalize:  &c.Normalize,
		NumModes:   &c.NumModes,
	}
	if p.ModeSetPath != "" {
		f.ModeSetPath = p.ModeSetPath
	} else {
		f.ModeSet = p.Modes
	}
	return f
}

// SaveJSON writes p to path.
func SaveJSON(path string, p *Preset) error {
	if p == nil {
		return fmt.Errorf("nil preset")
	}
	return writeJSON(path, FileFrom(p))
}

// LoadModeSet reads a bare mode set file.
func LoadModeSet(path string) (*modeset.ModeSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ms modeset.ModeSet
	if err := json.Unmarshal(b, &ms); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ms.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ms, nil
}

// SaveModeSet writes a bare mode set file.
func SaveModeSet(path string, ms *modeset.ModeSet) error {
	if ms == nil {
		return fmt.Errorf("nil mode set")
	}
	return writeJSON(path, ms)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
