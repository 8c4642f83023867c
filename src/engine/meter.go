package engine

import (
	timestats "github.com/cwbudde/algo-dsp/stats/time"
)

// meterTap captures block-level peak and RMS where it is attached. Reads
// race benignly with the render loop; the values are display-only.
type meterTap struct {
	peak float64
	rms  float64
}

func (m *meterTap) observe(buf []float64) {
	m.peak = timestats.Peak(buf)
	m.rms = timestats.RMS(buf)
}

// Peak reports the last observed block peak as linear gain.
func (m *meterTap) Peak() float64 {
	return m.peak
}

// RMS reports the last observed block RMS as linear gain.
func (m *meterTap) RMS() float64 {
	return m.rms
}

// PeakDB is Peak in dB, -Inf when silent.
func (m *meterTap) PeakDB() float64 {
	return GainToDB(m.peak)
}
