package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

type impulseSpec struct {
	seed     int64
	decaySec float64
	// early reflection taps as (time sec, level) pairs
	early [][2]float64
}

var impulseSpecs = map[string]impulseSpec{
	"room": {
		seed:     101,
		decaySec: 0.7,
		early:    [][2]float64{{0.009, 0.5}, {0.017, 0.35}, {0.027, 0.2}},
	},
	"hall": {
		seed:     102,
		decaySec: 2.2,
		early:    [][2]float64{{0.021, 0.4}, {0.043, 0.3}, {0.071, 0.2}, {0.101, 0.12}},
	},
	"plate": {
		seed:     103,
		decaySec: 1.4,
		early:    [][2]float64{{0.004, 0.6}, {0.008, 0.45}},
	},
}

// loadImpulse produces the designed impulse response for a named space:
// exponentially decaying noise with a few discrete early reflections,
// normalized to unit peak. An unknown name is a load failure, so the
// requesting effect's construction fails.
func loadImpulse(ctx context.Context, name string) ([]float64, error) {
	spec, ok := impulseSpecs[name]
	if !ok {
		return nil, fmt.Errorf("unknown impulse response %q", name)
	}
	count := int(spec.decaySec * sampleRate)
	ir := make([]float64, count)
	rng := rand.New(rand.NewSource(spec.seed))
	// -60 dB at the end of the decay window
	k := 6.908 / spec.decaySec
	for i := 0; i < count; i++ {
		if i%sampleRate == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := float64(i) * secPerSample
		ir[i] = (rng.Float64()*2 - 1) * math.Exp(-t*k)
	}
	for _, tap := range spec.early {
		idx := int(tap[0] * sampleRate)
		if idx < count {
			ir[idx] += tap[1]
		}
	}
	peak := 0.0
	for _, v := range ir {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range ir {
			ir[i] /= peak
		}
	}
	return ir, nil
}
