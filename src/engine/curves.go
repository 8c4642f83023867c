package engine

import "math"

// Control curves map a normalized [0,1] knob position onto a physical range
// with the shape that matches how the quantity is heard. Boundary values are
// returned exactly so callers can rely on f(0)==lo and f(1)==hi.

// MapFrequency interpolates exponentially between loHz and hiHz.
func MapFrequency(v float64, loHz float64, hiHz float64) float64 {
	if v <= 0 {
		return loHz
	}
	if v >= 1 {
		return hiHz
	}
	return loHz * math.Pow(hiHz/loHz, v)
}

// MapGain interpolates linearly in decibel space.
func MapGain(v float64, loDB float64, hiDB float64) float64 {
	return lerp(v, loDB, hiDB)
}

// MapTime interpolates exponentially between loSec and hiSec.
func MapTime(v float64, loSec float64, hiSec float64) float64 {
	if v <= 0 {
		return loSec
	}
	if v >= 1 {
		return hiSec
	}
	return loSec * math.Pow(hiSec/loSec, v)
}

// MapRatio interpolates logarithmically, so the knob adds compression
// quickly at first and more slowly towards the top of the range.
func MapRatio(v float64, loRatio float64, hiRatio float64) float64 {
	if v <= 0 {
		return loRatio
	}
	if v >= 1 {
		return hiRatio
	}
	return loRatio + (hiRatio-loRatio)*math.Log2(1+v)
}

// DBToGain converts decibels to linear gain.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// GainToDB converts linear gain to decibels.
func GainToDB(gain float64) float64 {
	if gain <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(gain)
}

func lerp(v float64, lo float64, hi float64) float64 {
	if v <= 0 {
		return lo
	}
	if v >= 1 {
		return hi
	}
	return lo + (hi-lo)*v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v float64, lo float64, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
