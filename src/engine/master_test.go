package engine

import (
	"math"
	"testing"
)

func TestMasterPassesThroughUninitialized(t *testing.T) {
	m := newMasterSection()
	if m.IsInitialized() {
		t.Fatal("limiter must start uninitialized")
	}
	buf := make([]float64, 64)
	for i := range buf {
		buf[i] = 0.5
	}
	m.process(buf)
	for i, v := range buf {
		if v != 0.5 {
			t.Fatalf("uninitialized master altered sample %d: %v", i, v)
		}
	}
	if m.Reduction() != 0 {
		t.Errorf("expected zero reduction while uninitialized, got %v", m.Reduction())
	}
}

func TestMasterLimiterInitialization(t *testing.T) {
	m := newMasterSection()
	expectNoError(t, m.InitializeLimiter())
	if !m.IsInitialized() {
		t.Fatal("expected initialized limiter")
	}
	// second call is a no-op
	expectNoError(t, m.InitializeLimiter())

	buf := make([]float64, samplesPerCycle)
	for i := range buf {
		buf[i] = 2 * math.Sin(float64(i)*0.05)
	}
	m.process(buf)
	for i, v := range buf {
		if math.IsNaN(v) {
			t.Fatalf("bad sample at %d", i)
		}
	}
	if r := m.Reduction(); r < 0 || math.IsNaN(r) {
		t.Errorf("unexpected reduction %v", r)
	}
}

func TestEngineLimiterState(t *testing.T) {
	e := newTestEngine(t)
	defer func() { expectNoError(t, e.Close()) }()

	if e.IsLimiterInitialized() {
		t.Fatal("limiter must start uninitialized")
	}
	expectNoError(t, e.InitializeLimiter())
	if !e.IsLimiterInitialized() {
		t.Error("expected initialized limiter")
	}
	e.SetLimiterThreshold(-2)
}

func TestMasterThresholdClamps(t *testing.T) {
	m := newMasterSection()
	m.SetThreshold(6)
	if m.threshold != 0 {
		t.Errorf("expected clamp to 0 dB, got %v", m.threshold)
	}
	m.SetThreshold(-100)
	if m.threshold != -24 {
		t.Errorf("expected clamp to -24 dB, got %v", m.threshold)
	}
	// threshold set before initialization is applied at init
	m.SetThreshold(-3)
	expectNoError(t, m.InitializeLimiter())
	if m.threshold != -3 {
		t.Errorf("expected threshold -3, got %v", m.threshold)
	}
}

func TestMasterReductionSilence(t *testing.T) {
	m := newMasterSection()
	expectNoError(t, m.InitializeLimiter())
	buf := make([]float64, 64)
	m.process(buf)
	if m.Reduction() != 0 {
		t.Errorf("expected zero reduction on silence, got %v", m.Reduction())
	}
}

func TestHeadroomMargin(t *testing.T) {
	if got := HeadroomMargin(-7, -1); got != 6 {
		t.Errorf("expected 6 dB of headroom, got %v", got)
	}
	if got := HeadroomMargin(2, -1); got != -3 {
		t.Errorf("expected -3 dB when over, got %v", got)
	}
}
