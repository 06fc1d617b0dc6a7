package fitcommon

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// Audio is a deinterleaved multichannel signal.
type Audio struct {
	Channels   [][]float32
	SampleRate int
}

func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Mono returns the channel average in float64.
func (a *Audio) Mono() []float64 {
	n := a.Frames()
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	g := 1 / float64(len(a.Channels))
	for _, ch := range a.Channels {
		for i, v := range ch {
			out[i] += float64(v) * g
		}
	}
	return out
}

// ReadWAV decodes a WAV file into separate channels.
func ReadWAV(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	a := &Audio{Channels: make([][]float32, numCh), SampleRate: buf.Format.SampleRate}
	for c := range a.Channels {
		ch := make([]float32, frames)
		for i := range ch {
			ch[i] = buf.Data[i*numCh+c]
		}
		a.Channels[c] = ch
	}
	return a, nil
}

// ReadWAVMono decodes a WAV file and averages its channels.
func ReadWAVMono(path string) ([]float64, int, error) {
	a, err := ReadWAV(path)
	if err != nil {
		return nil, 0, err
	}
	return a.Mono(), a.SampleRate, nil
}

// ResampleIfNeeded converts in from fromRate to toRate.
func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// Resample converts every channel of a to toRate in place.
func (a *Audio) Resample(toRate int) error {
	if a.SampleRate == toRate {
		return nil
	}
	for c, ch := range a.Channels {
		in := make([]float64, len(ch))
		for i, v := range ch {
			in[i] = float64(v)
		}
		out, err := ResampleIfNeeded(in, a.SampleRate, toRate)
		if err != nil {
			return fmt.Errorf("resample channel %d: %w", c, err)
		}
		a.Channels[c] = ToFloat32(out)
	}
	a.SampleRate = toRate
	return nil
}

// WriteWAV writes channels as a 16-bit PCM file, creating parent
// directories. All channels must have the same length.
func WriteWAV(path string, channels [][]float32, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels to write")
	}
	frames := len(channels[0])
	for c, ch := range channels {
		if len(ch) != frames {
			return fmt.Errorf("channel %d length %d differs from %d", c, len(ch), frames)
		}
	}
	numCh := len(channels)
	data := make([]float32, frames*numCh)
	for c, ch := range channels {
		for i, v := range ch {
			data[i*numCh+c] = v
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, numCh, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: numCh,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// WriteMonoWAV writes a single channel.
func WriteMonoWAV(path string, data []float32, sampleRate int) error {
	return WriteWAV(path, [][]float32{data}, sampleRate)
}
