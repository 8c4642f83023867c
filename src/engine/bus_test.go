package engine

import (
	"context"
	"testing"
)

func TestBusLevelsStartSilent(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	defer m.DisposeBuses()

	names := m.Buses()
	if len(names) != 3 {
		t.Fatalf("expected 3 buses, got %v", names)
	}
	for _, name := range names {
		level, ok := m.GetSendLevel(name)
		if !ok {
			t.Fatalf("missing bus %q", name)
		}
		if level != minSendDB {
			t.Errorf("bus %q should start at %v dB, got %v", name, minSendDB, level)
		}
	}
}

func TestBusSendLevelClamps(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	defer m.DisposeBuses()

	m.SetSendLevel("echo", 6)
	if level, _ := m.GetSendLevel("echo"); level != maxSendDB {
		t.Errorf("expected clamp to %v, got %v", maxSendDB, level)
	}
	m.SetSendLevel("echo", -120)
	if level, _ := m.GetSendLevel("echo"); level != minSendDB {
		t.Errorf("expected clamp to %v, got %v", minSendDB, level)
	}
}

func TestBusUnknownNameIsNoOp(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	defer m.DisposeBuses()

	m.SetSendLevel("sparkle", -6)
	if _, ok := m.GetSendLevel("sparkle"); ok {
		t.Error("unknown bus should not exist")
	}
	for _, name := range m.Buses() {
		if level, _ := m.GetSendLevel(name); level != minSendDB {
			t.Errorf("bus %q moved on unknown-name send: %v", name, level)
		}
	}
}

func TestBusResetRestoresDefaults(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	defer m.DisposeBuses()

	m.SetSendLevel("ambience", -3)
	m.SetSendLevel("modulation", 0)
	m.ResetSendLevels()
	want := map[string]float64{"ambience": -12, "echo": -15, "modulation": -18}
	for name, db := range want {
		if level, _ := m.GetSendLevel(name); level != db {
			t.Errorf("bus %q expected default %v, got %v", name, db, level)
		}
	}
}

func TestBusDispose(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	m.DisposeBuses()
	if len(m.Buses()) != 0 {
		t.Errorf("expected no buses after dispose, got %v", m.Buses())
	}
	// no panic, no effect
	m.SetSendLevel("ambience", -6)
	m.ResetSendLevels()
	m.DisposeBuses()
}

func TestBusAccumulateAndMix(t *testing.T) {
	m, err := InitializeBuses(context.Background())
	expectNoError(t, err)
	defer m.DisposeBuses()

	b, ok := m.Bus("echo")
	if !ok {
		t.Fatal("missing echo bus")
	}
	in := make([]float64, 64)
	for i := range in {
		in[i] = 0.5
	}
	b.accumulate(in)
	out := make([]float64, 64)
	m.mixInto(out)
	// level starts at -60 dB so the contribution stays tiny
	for i, v := range out {
		if v > 0.01 || v < -0.01 {
			t.Fatalf("silent bus leaked at %d: %v", i, v)
		}
	}
}
