package engine

import (
	"math"
	"math/rand"
)

// sampleBank holds the percussive one-shots played by sampler instruments.
// The samples are synthesized at startup rather than loaded from disk.
type sampleBank struct {
	names   []string
	samples map[string][]float64
}

func newSampleBank() *sampleBank {
	b := &sampleBank{
		names:   []string{"kick", "snare", "hat", "clap"},
		samples: make(map[string][]float64),
	}
	b.samples["kick"] = renderKick()
	b.samples["snare"] = renderSnare()
	b.samples["hat"] = renderHat()
	b.samples["clap"] = renderClap()
	return b
}

func (b *sampleBank) index(name string) (int, bool) {
	for i, n := range b.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (b *sampleBank) at(i int) []float64 {
	if i < 0 || i >= len(b.names) {
		return nil
	}
	return b.samples[b.names[i]]
}

func renderKick() []float64 {
	n := int(0.35 * sampleRate)
	out := make([]float64, n)
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) * secPerSample
		// pitch sweep 120 -> 45 Hz
		freq := 45 + 75*math.Exp(-t*18)
		phase += 2 * math.Pi * freq * secPerSample
		env := math.Exp(-t * 9)
		out[i] = math.Sin(phase) * env
	}
	return out
}

func renderSnare() []float64 {
	n := int(0.25 * sampleRate)
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(11))
	phase := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) * secPerSample
		phase += 2 * math.Pi * 185 * secPerSample
		tone := math.Sin(phase) * math.Exp(-t*22)
		noise := (rng.Float64()*2 - 1) * math.Exp(-t*14)
		out[i] = 0.5*tone + 0.6*noise
	}
	return out
}

func renderHat() []float64 {
	n := int(0.09 * sampleRate)
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(23))
	prev := 0.0
	for i := 0; i < n; i++ {
		t := float64(i) * secPerSample
		white := rng.Float64()*2 - 1
		// first difference keeps only the high end
		out[i] = (white - prev) * math.Exp(-t*55)
		prev = white
	}
	return out
}

func renderClap() []float64 {
	n := int(0.3 * sampleRate)
	out := make([]float64, n)
	rng := rand.New(rand.NewSource(37))
	bursts := []float64{0, 0.012, 0.026}
	for i := 0; i < n; i++ {
		t := float64(i) * secPerSample
		value := 0.0
		for _, start := range bursts {
			if t >= start {
				value += math.Exp(-(t - start) * 40)
			}
		}
		out[i] = (rng.Float64()*2 - 1) * value * 0.5
	}
	return out
}
