package analysis

import "math"

// Band is a frequency range in Hz.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// TimeWindow is a stretch of a response in milliseconds from its start.
type TimeWindow struct {
	Name    string
	StartMs float64
	EndMs   float64
}

var DefaultBands = []Band{
	{"sub-bass (20-100Hz)", 20, 100},
	{"bass (100-300Hz)", 100, 300},
	{"low-mid (300-1kHz)", 300, 1000},
	{"mid (1-3kHz)", 1000, 3000},
	{"hi-mid (3-6kHz)", 3000, 6000},
	{"high (6-12kHz)", 6000, 12000},
	{"air (12-20kHz)", 12000, 20000},
}

var DefaultWindows = []TimeWindow{
	{"onset (0-50ms)", 0, 50},
	{"early (50-200ms)", 50, 200},
	{"body (0.2-1s)", 200, 1000},
	{"tail (1-3s)", 1000, 3000},
	{"late (3-6s)", 3000, 6000},
}

// BandDiff is the averaged spectral difference of one band inside one
// time window. Levels are mean band power in dB.
type BandDiff struct {
	Window string  `json:"window"`
	Band   string  `json:"band"`
	Frames int     `json:"frames"`
	RMSEDB float64 `json:"rmse_db"`
	RefDB  float64 `json:"ref_db"`
	CandDB float64 `json:"cand_db"`
}

// DiffDB returns CandDB - RefDB.
func (d BandDiff) DiffDB() float64 { return d.CandDB - d.RefDB }

// CompareBands averages STFT magnitudes of two already aligned signals
// inside each time window and reports per-band differences. Windows
// shorter than fftSize use a single zero-padded frame; windows starting
// past the shorter signal are skipped, as are bands above nyquist.
func CompareBands(ref, cand []float64, sampleRate, fftSize int, bands []Band, windows []TimeWindow) ([]BandDiff, error) {
	s, err := newSpectrumAnalyzer(fftSize)
	if err != nil {
		return nil, err
	}
	n := min(len(ref), len(cand))
	hop := fftSize / 2
	nBins := fftSize / 2
	binHz := float64(sampleRate) / float64(fftSize)

	magRef := make([]float64, nBins+1)
	magCand := make([]float64, nBins+1)
	avgRef := make([]float64, nBins+1)
	avgCand := make([]float64, nBins+1)

	var out []BandDiff
	for _, tw := range windows {
		start := int(tw.StartMs / 1000.0 * float64(sampleRate))
		end := min(int(tw.EndMs/1000.0*float64(sampleRate)), n)
		if start >= end {
			continue
		}
		for k := range avgRef {
			avgRef[k], avgCand[k] = 0, 0
		}
		frames := 0
		for pos := start; frames == 0 || pos+fftSize <= end; pos += hop {
			stop := min(pos+fftSize, end)
			s.magnitudes(magRef, ref[pos:stop])
			s.magnitudes(magCand, cand[pos:stop])
			for k := range avgRef {
				avgRef[k] += magRef[k]
				avgCand[k] += magCand[k]
			}
			frames++
		}
		scale := 1.0 / float64(frames)
		for k := range avgRef {
			avgRef[k] *= scale
			avgCand[k] *= scale
		}

		for _, b := range bands {
			loK := max(int(b.LoHz/binHz), 1)
			hiK := min(int(b.HiHz/binHz), nBins-1)
			if loK > hiK {
				continue
			}
			var sumSq, refPow, candPow float64
			cnt := 0
			for k := loK; k <= hiK; k++ {
				d := linToDB(avgRef[k]) - linToDB(avgCand[k])
				sumSq += d * d
				refPow += avgRef[k] * avgRef[k]
				candPow += avgCand[k] * avgCand[k]
				cnt++
			}
			out = append(out, BandDiff{
				Window: tw.Name,
				Band:   b.Name,
				Frames: frames,
				RMSEDB: math.Sqrt(sumSq / float64(cnt)),
				RefDB:  10 * math.Log10(math.Max(refPow/float64(cnt), 1e-24)),
				CandDB: 10 * math.Log10(math.Max(candPow/float64(cnt), 1e-24)),
			})
		}
	}
	return out, nil
}
