package analysis

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

// RenderConvolved convolves input with ir by streaming partitioned
// overlap-add and returns the full len(input)+len(ir)-1 result.
func RenderConvolved(input, ir []float32, partSize int) ([]float32, error) {
	if len(input) == 0 || len(ir) == 0 {
		return nil, fmt.Errorf("empty input or impulse response")
	}
	if partSize <= 0 {
		partSize = 512
	}
	ola, err := dspconv.NewStreamingOverlapAdd32(ir, partSize)
	if err != nil {
		return nil, fmt.Errorf("overlap-add: %w", err)
	}

	total := len(input) + len(ir) - 1
	out := make([]float32, 0, total+partSize)
	block := make([]float32, partSize)
	res := make([]float32, partSize)
	for pos := 0; pos < total; pos += partSize {
		for i := range block {
			block[i] = 0
			if pos+i < len(input) {
				block[i] = input[pos+i]
			}
		}
		if err := ola.ProcessBlockTo(res, block); err != nil {
			return nil, fmt.Errorf("overlap-add block at %d: %w", pos, err)
		}
		out = append(out, res...)
	}
	return out[:total], nil
}
