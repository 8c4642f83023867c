package engine

import (
	"log"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
)

// masterSection is the final gain stage: per-track trims feed the summed
// mix through an optional safety limiter. Until the limiter is initialized
// the mix passes straight through.
type masterSection struct {
	input       *Port
	limiter     *dynamics.Limiter
	initialized bool
	threshold   float64
	lastPeak    float64
}

func newMasterSection() *masterSection {
	return &masterSection{
		input:     newPort("master.in"),
		threshold: -1,
	}
}

// InitializeLimiter builds the limiter lazily. Safe to call more than once.
func (m *masterSection) InitializeLimiter() error {
	if m.initialized {
		return nil
	}
	l, err := dynamics.NewLimiter(sampleRate)
	if err != nil {
		return err
	}
	if err := l.SetThreshold(m.threshold); err != nil {
		return err
	}
	if err := l.SetRelease(60); err != nil {
		return err
	}
	m.limiter = l
	m.initialized = true
	return nil
}

func (m *masterSection) IsInitialized() bool {
	return m.initialized
}

// SetThreshold moves the limiter ceiling, clamped to a sane range. Kept
// even while uninitialized so a later InitializeLimiter picks it up.
func (m *masterSection) SetThreshold(db float64) {
	m.threshold = clampFloat(db, -24, 0)
	if !m.initialized {
		return
	}
	if err := m.limiter.SetThreshold(m.threshold); err != nil {
		log.Printf("[WARN] limiter threshold: %v\n", err)
	}
}

// Reduction reports the current gain reduction in dB, 0 when the limiter is
// idle, uninitialized or the mix is silent.
func (m *masterSection) Reduction() float64 {
	if !m.initialized || m.lastPeak <= 0 {
		return 0
	}
	out := m.limiter.CalculateOutputLevel(m.lastPeak)
	if out <= 0 {
		return 0
	}
	r := GainToDB(m.lastPeak) - GainToDB(out)
	if r < 0 {
		return 0
	}
	return r
}

// HeadroomMargin reports how far a peak sits under a target ceiling, both
// in dB. Negative means the peak exceeds the target.
func HeadroomMargin(peakDB, targetDB float64) float64 {
	return targetDB - peakDB
}

// process runs the block through the limiter when available, tracking the
// block peak for reduction reporting.
func (m *masterSection) process(buf []float64) {
	peak := 0.0
	for i := range buf {
		if a := math.Abs(buf[i]); a > peak {
			peak = a
		}
		if m.initialized {
			buf[i] = m.limiter.ProcessSample(buf[i])
		}
	}
	m.lastPeak = peak
}

func (m *masterSection) dispose() {
	m.input.Disconnect()
	if m.initialized {
		m.limiter.Reset()
	}
	m.initialized = false
	m.limiter = nil
}
