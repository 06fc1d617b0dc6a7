package analysis

import (
	"math"
	"testing"
)

func TestCompareBandsIdenticalIsZero(t *testing.T) {
	x := randomSignal(48000, 3)
	diffs, err := CompareBands(x, x, 48000, 2048, DefaultBands, DefaultWindows)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	if len(diffs) == 0 {
		t.Fatalf("expected band diffs")
	}
	for _, d := range diffs {
		if d.RMSEDB > 1e-9 || math.Abs(d.DiffDB()) > 1e-9 {
			t.Fatalf("%s/%s: expected zero difference got rmse=%f diff=%f", d.Window, d.Band, d.RMSEDB, d.DiffDB())
		}
	}
}

func TestCompareBandsDetectsGain(t *testing.T) {
	x := randomSignal(48000, 5)
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 0.5 * v
	}
	diffs, err := CompareBands(x, y, 48000, 2048, DefaultBands, DefaultWindows)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	want := 20 * math.Log10(0.5)
	for _, d := range diffs {
		if math.Abs(d.DiffDB()-want) > 0.01 || math.Abs(d.RMSEDB+want) > 0.01 {
			t.Fatalf("%s/%s: expected %.2f dB got diff=%f rmse=%f", d.Window, d.Band, want, d.DiffDB(), d.RMSEDB)
		}
	}
}

func TestCompareBandsSkipsWindowsPastEnd(t *testing.T) {
	x := randomSignal(4800, 7) // 100 ms
	diffs, err := CompareBands(x, x, 48000, 1024, DefaultBands[:1], DefaultWindows)
	if err != nil {
		t.Fatalf("CompareBands: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("expected onset and early windows only, got=%d", len(diffs))
	}
	if _, err := CompareBands(x, x, 48000, 1000, DefaultBands, DefaultWindows); err == nil {
		t.Fatalf("expected error for non power-of-two size")
	}
}
