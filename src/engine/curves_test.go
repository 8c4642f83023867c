package engine

import (
	"math"
	"testing"
)

func TestMapFrequencyBoundaries(t *testing.T) {
	if got := MapFrequency(0, 400, 4000); got != 400 {
		t.Errorf("expected exactly 400 at v=0, got %v", got)
	}
	if got := MapFrequency(1, 400, 4000); got != 4000 {
		t.Errorf("expected exactly 4000 at v=1, got %v", got)
	}
	// out of range clamps to the boundaries
	if got := MapFrequency(-0.5, 400, 4000); got != 400 {
		t.Errorf("expected 400 below range, got %v", got)
	}
	if got := MapFrequency(1.5, 400, 4000); got != 4000 {
		t.Errorf("expected 4000 above range, got %v", got)
	}
}

func TestMapFrequencyMonotonic(t *testing.T) {
	prev := MapFrequency(0, 80, 12000)
	for i := 1; i <= 100; i++ {
		v := float64(i) / 100
		next := MapFrequency(v, 80, 12000)
		if next <= prev {
			t.Fatalf("not strictly increasing at v=%v: %v <= %v", v, next, prev)
		}
		prev = next
	}
	// exponential: the midpoint sits at the geometric mean
	mid := MapFrequency(0.5, 100, 10000)
	if math.Abs(mid-1000) > 1e-9 {
		t.Errorf("expected geometric midpoint 1000, got %v", mid)
	}
}

func TestMapGain(t *testing.T) {
	if got := MapGain(0, -40, -10); got != -40 {
		t.Errorf("expected -40 at v=0, got %v", got)
	}
	if got := MapGain(1, -40, -10); got != -10 {
		t.Errorf("expected -10 at v=1, got %v", got)
	}
	if got := MapGain(0.5, -40, -10); got != -25 {
		t.Errorf("expected -25 at v=0.5, got %v", got)
	}
}

func TestMapTimeBoundaries(t *testing.T) {
	if got := MapTime(0, 0.05, 2); got != 0.05 {
		t.Errorf("expected 0.05 at v=0, got %v", got)
	}
	if got := MapTime(1, 0.05, 2); got != 2 {
		t.Errorf("expected 2 at v=1, got %v", got)
	}
}

func TestMapRatioBoundaries(t *testing.T) {
	if got := MapRatio(0, 2, 10); got != 2 {
		t.Errorf("expected 2 at v=0, got %v", got)
	}
	if got := MapRatio(1, 2, 10); got != 10 {
		t.Errorf("expected 10 at v=1, got %v", got)
	}
	prev := MapRatio(0, 2, 10)
	for i := 1; i <= 50; i++ {
		next := MapRatio(float64(i)/50, 2, 10)
		if next < prev {
			t.Fatalf("ratio curve decreased at step %d", i)
		}
		prev = next
	}
}

func TestDBGainRoundTrip(t *testing.T) {
	for _, db := range []float64{-60, -12, -6, 0, 6} {
		got := GainToDB(DBToGain(db))
		if math.Abs(got-db) > 1e-9 {
			t.Errorf("round trip %v -> %v", db, got)
		}
	}
	if !math.IsInf(GainToDB(0), -1) {
		t.Error("expected -Inf for zero gain")
	}
}
