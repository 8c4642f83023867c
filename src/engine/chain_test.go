package engine

import (
	"context"
	"testing"
)

func TestConnectChainBuildsPath(t *testing.T) {
	e := newTestEngine(t)
	defer func() { expectNoError(t, e.Close()) }()

	tr, err := e.AddTrack("lead", InstrumentPoly, InstrumentOptions{})
	expectNoError(t, err)

	ctx := context.Background()
	fx1, err := CreateEffect(ctx, EffectDistortion)
	expectNoError(t, err)
	fx2, err := CreateEffect(ctx, EffectEcho)
	expectNoError(t, err)

	end := e.ConnectChain(tr, []*EffectAdapter{fx1, fx2})
	if got := tr.Instrument().Output().Target(); got != fx1.Input {
		t.Errorf("expected instrument -> distortion, got %v", got)
	}
	if got := fx1.Output.Target(); got != fx2.Input {
		t.Errorf("expected distortion -> echo, got %v", got)
	}
	if got := fx2.Output.Target(); got != end {
		t.Errorf("expected echo -> master, got %v", got)
	}
	if end != e.state.master.input {
		t.Error("chain should terminate at the master input")
	}
}

func TestConnectChainReplacesPrevious(t *testing.T) {
	e := newTestEngine(t)
	defer func() { expectNoError(t, e.Close()) }()

	tr, err := e.AddTrack("lead", InstrumentPoly, InstrumentOptions{})
	expectNoError(t, err)

	ctx := context.Background()
	old, err := CreateEffect(ctx, EffectChorus)
	expectNoError(t, err)
	e.ConnectChain(tr, []*EffectAdapter{old})

	next, err := CreateEffect(ctx, EffectTremolo)
	expectNoError(t, err)
	e.ConnectChain(tr, []*EffectAdapter{next})

	if old.Output.Target() != nil {
		t.Error("replaced effect should be disconnected")
	}
	if got := tr.Instrument().Output().Target(); got != next.Input {
		t.Errorf("expected instrument -> tremolo, got %v", got)
	}
}

func TestConnectChainEmpty(t *testing.T) {
	e := newTestEngine(t)
	defer func() { expectNoError(t, e.Close()) }()

	tr, err := e.AddTrack("lead", InstrumentPoly, InstrumentOptions{})
	expectNoError(t, err)

	end := e.ConnectChain(tr, nil)
	if got := tr.Instrument().Output().Target(); got != end {
		t.Error("empty chain should wire instrument straight to master")
	}
}

func TestDisposeChain(t *testing.T) {
	e := newTestEngine(t)
	defer func() { expectNoError(t, e.Close()) }()

	tr, err := e.AddTrack("lead", InstrumentPoly, InstrumentOptions{})
	expectNoError(t, err)

	fx, err := CreateEffect(context.Background(), EffectCrush)
	expectNoError(t, err)
	e.ConnectChain(tr, []*EffectAdapter{fx})
	e.DisposeChain(tr)
	if len(tr.Effects()) != 0 {
		t.Error("expected empty chain after dispose")
	}
	if !fx.disposed {
		t.Error("expected effect to be disposed")
	}
	if got := tr.Instrument().Output().Target(); got != e.state.master.input {
		t.Error("expected instrument rewired to master")
	}
}
