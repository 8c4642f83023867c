package engine

import (
	"context"
	"math"
	"testing"
)

func TestCreateEffectAllKinds(t *testing.T) {
	ctx := context.Background()
	for kind := EffectEcho; kind <= EffectTexture; kind++ {
		fx, err := CreateEffect(ctx, kind)
		if err != nil {
			t.Fatalf("create %v: %v", kind, err)
		}
		if fx.Kind != kind {
			t.Errorf("expected kind %v, got %v", kind, fx.Kind)
		}
		buf := make([]float64, 256)
		for i := range buf {
			buf[i] = 0.25 * math.Sin(float64(i)*0.1)
		}
		fx.Set(0.5)
		for n := 0; n < 4; n++ {
			fx.process(buf)
		}
		for i, v := range buf {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%v produced bad sample at %d: %v", kind, i, v)
			}
		}
		fx.Dispose()
	}
}

func TestCreateEffectByNameUnknownFallsBack(t *testing.T) {
	fx, err := CreateEffectByName(context.Background(), "sparkle")
	expectNoError(t, err)
	defer fx.Dispose()
	if fx.Kind != EffectFilter {
		t.Errorf("expected filter fallback, got %v", fx.Kind)
	}
	buf := make([]float64, 128)
	buf[0] = 1
	fx.process(buf)
}

func TestEffectKindRoundTrip(t *testing.T) {
	for kind := EffectEcho; kind <= EffectTexture; kind++ {
		got, ok := effectKindFromString(kind.String())
		if !ok || got != kind {
			t.Errorf("round trip failed for %v", kind)
		}
	}
	if _, ok := effectKindFromString("sparkle"); ok {
		t.Error("expected unknown name to fail")
	}
}

func TestEffectDisposeIsIdempotent(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectEcho)
	expectNoError(t, err)
	fx.Dispose()
	fx.Dispose()
	// a disposed adapter swallows further calls
	fx.Set(0.9)
	fx.SetParam("time", 0.5)
	buf := make([]float64, 64)
	buf[0] = 1
	fx.process(buf)
	if buf[0] != 1 {
		t.Error("disposed effect must not process")
	}
}

func TestEffectUnknownParamIsNoOp(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectEcho)
	expectNoError(t, err)
	defer fx.Dispose()
	fx.SetParam("sparkle", 1)
	n := fx.node.(*echoNode)
	fx.SetParam("feedback", 0.5)
	if n.feedback.target() != 0.5 {
		t.Errorf("expected feedback 0.5, got %v", n.feedback.target())
	}
}

func TestEchoFeedbackCeiling(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectEcho)
	expectNoError(t, err)
	defer fx.Dispose()
	n := fx.node.(*echoNode)
	fx.SetParam("feedback", 2)
	if n.feedback.target() > maxDelayFeedback {
		t.Errorf("feedback exceeds ceiling: %v", n.feedback.target())
	}
}

func TestShimmerFeedbackCeiling(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectShimmer)
	expectNoError(t, err)
	defer fx.Dispose()
	n := fx.node.(*shimmerNode)
	fx.Set(1)
	if n.feedback.target() > maxShimmerFeedback {
		t.Errorf("feedback exceeds ceiling: %v", n.feedback.target())
	}
	fx.SetParam("feedback", 1)
	if n.feedback.target() > maxShimmerFeedback {
		t.Errorf("feedback param exceeds ceiling: %v", n.feedback.target())
	}
}

func TestShimmerStaysBounded(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectShimmer)
	expectNoError(t, err)
	defer fx.Dispose()
	fx.Set(1)
	buf := make([]float64, samplesPerCycle)
	peak := 0.0
	// feed a constant tone and let the feedback loop settle
	for n := 0; n < 200; n++ {
		for i := range buf {
			buf[i] = 0.5 * math.Sin(float64(n*samplesPerCycle+i)*0.05)
		}
		fx.process(buf)
		for _, v := range buf {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	if math.IsNaN(peak) || peak > 20 {
		t.Errorf("feedback loop diverged, peak %v", peak)
	}
}

func TestHallLoadsImpulse(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectHall)
	expectNoError(t, err)
	defer fx.Dispose()
	buf := make([]float64, samplesPerCycle)
	buf[0] = 1
	tail := 0.0
	for n := 0; n < 20; n++ {
		fx.process(buf)
		for _, v := range buf {
			tail += math.Abs(v)
		}
		for i := range buf {
			buf[i] = 0
		}
	}
	if tail == 0 {
		t.Error("expected a reverb tail after an impulse")
	}
}

func TestLoadImpulseUnknownFails(t *testing.T) {
	if _, err := loadImpulse(context.Background(), "cathedral"); err == nil {
		t.Error("expected unknown impulse to fail")
	}
	ir, err := loadImpulse(context.Background(), "room")
	expectNoError(t, err)
	if len(ir) == 0 {
		t.Fatal("expected nonempty impulse")
	}
	peak := 0.0
	for _, v := range ir {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-1) > 1e-9 {
		t.Errorf("expected unit peak, got %v", peak)
	}
}

func TestHarmonizerProcesses(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectHarmonizer)
	expectNoError(t, err)
	defer fx.Dispose()
	buf := make([]float64, samplesPerCycle)
	for i := range buf {
		buf[i] = 0.3 * math.Sin(float64(i)*0.06)
	}
	fx.Set(1)
	fx.process(buf)
	for i, v := range buf {
		if math.IsNaN(v) {
			t.Fatalf("bad sample at %d", i)
		}
	}
}

func TestWidthFoldsBackToMono(t *testing.T) {
	fx, err := CreateEffect(context.Background(), EffectWidth)
	expectNoError(t, err)
	defer fx.Dispose()
	fx.Set(1)
	buf := make([]float64, samplesPerCycle)
	for i := range buf {
		buf[i] = 0.5 * math.Sin(float64(i)*0.02)
	}
	fx.process(buf)
	for i, v := range buf {
		if math.IsNaN(v) || math.Abs(v) > 4 {
			t.Fatalf("bad sample at %d: %v", i, v)
		}
	}
}
