package engine

import (
	"math"
	"testing"
)

func renderBlocks(in *Instrument, blocks int) float64 {
	out := make([]float64, samplesPerCycle)
	peak := 0.0
	for n := 0; n < blocks; n++ {
		in.render(out)
		for _, v := range out {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

func TestPolyInstrumentRenders(t *testing.T) {
	in, err := CreateInstrument(InstrumentPoly, InstrumentOptions{Wave: "saw"})
	expectNoError(t, err)
	defer in.Dispose()

	if peak := renderBlocks(in, 2); peak != 0 {
		t.Errorf("expected silence before any note, got peak %v", peak)
	}
	in.scheduleEvent(0, 0, &noteOn{note: 69, velocity: 100})
	if peak := renderBlocks(in, 4); peak == 0 {
		t.Error("expected sound after note on")
	}
	in.scheduleEvent(0, 0, &noteOff{note: 69})
	renderBlocks(in, 60)
	if peak := renderBlocks(in, 2); peak > 1e-3 {
		t.Errorf("expected near silence after release, got peak %v", peak)
	}
}

func TestMonoInstrumentLastNotePriority(t *testing.T) {
	in, err := CreateInstrument(InstrumentMono, InstrumentOptions{Wave: "square", GlideTimeMs: 20})
	expectNoError(t, err)
	defer in.Dispose()

	in.scheduleEvent(0, 0, &noteOn{note: 57, velocity: 100})
	renderBlocks(in, 2)
	in.scheduleEvent(0, 0, &noteOn{note: 64, velocity: 100})
	renderBlocks(in, 4)
	// releasing the newer note glides back to the held one
	in.scheduleEvent(0, 0, &noteOff{note: 64})
	if peak := renderBlocks(in, 4); peak == 0 {
		t.Error("expected held note to keep sounding")
	}
	in.scheduleEvent(0, 0, &noteOff{note: 57})
	renderBlocks(in, 30)
	if peak := renderBlocks(in, 2); peak > 1e-3 {
		t.Errorf("expected silence after all notes released, got peak %v", peak)
	}
}

func TestSamplerInstrumentSoundIndex(t *testing.T) {
	in, err := CreateInstrument(InstrumentSampler, InstrumentOptions{})
	expectNoError(t, err)
	defer in.Dispose()

	index, ok := in.SoundIndex("snare")
	if !ok {
		t.Fatal("expected snare to resolve")
	}
	in.scheduleEvent(0, 0, &noteOn{note: index, velocity: 127})
	if peak := renderBlocks(in, 4); peak == 0 {
		t.Error("expected sound from the sampler")
	}
	if _, ok := in.SoundIndex("bell"); ok {
		t.Error("unknown sound must not resolve")
	}
}

func TestInstrumentEventIndexClamped(t *testing.T) {
	in, err := CreateInstrument(InstrumentPoly, InstrumentOptions{})
	expectNoError(t, err)
	defer in.Dispose()

	// out-of-window indices clamp instead of panicking
	in.scheduleEvent(-5, 0, &noteOn{note: 60, velocity: 100})
	in.scheduleEvent(len(in.events)+100, 0, &noteOn{note: 62, velocity: 100})
	renderBlocks(in, 4)
}

func TestInstrumentDisposeIsIdempotent(t *testing.T) {
	in, err := CreateInstrument(InstrumentPad, InstrumentOptions{Metering: true})
	expectNoError(t, err)
	in.Dispose()
	in.Dispose()
	out := make([]float64, samplesPerCycle)
	out[0] = 1
	in.render(out)
	if out[0] != 0 {
		t.Error("disposed instrument must render silence")
	}
	in.scheduleEvent(0, 0, &noteOn{note: 60, velocity: 100})
}

func TestInstrumentMeterTap(t *testing.T) {
	in, err := CreateInstrument(InstrumentPoly, InstrumentOptions{Wave: "saw", Metering: true})
	expectNoError(t, err)
	defer in.Dispose()

	m := in.Meter()
	if m == nil {
		t.Fatal("expected metering tap")
	}
	if !math.IsInf(m.PeakDB(), -1) {
		t.Errorf("expected -Inf dB before any block, got %v", m.PeakDB())
	}
	in.scheduleEvent(0, 0, &noteOn{note: 69, velocity: 100})
	renderBlocks(in, 4)
	if m.Peak() == 0 || m.RMS() == 0 {
		t.Error("expected nonzero levels while sounding")
	}
	if math.IsInf(m.PeakDB(), -1) || m.PeakDB() > 0 {
		t.Errorf("expected finite negative peak dB, got %v", m.PeakDB())
	}
}

func TestWaveKindNames(t *testing.T) {
	for _, name := range []string{"sine", "triangle", "square", "pulse", "saw", "saw-rev", "noise"} {
		if got := waveKindToString(waveKindFromString(name)); got != name {
			t.Errorf("wave %q round-tripped to %q", name, got)
		}
	}
	if got := waveKindToString(waveKindFromString("theremin")); got != "sine" {
		t.Errorf("unknown wave should fall back to sine, got %q", got)
	}
}

func TestVelocityToGain(t *testing.T) {
	if got := velocityToGain(127, 1); got != 1 {
		t.Errorf("expected full velocity to give gain 1, got %v", got)
	}
	if got := velocityToGain(0, 1); got != 0 {
		t.Errorf("expected zero velocity to give gain 0, got %v", got)
	}
	soft := velocityToGain(64, 2)
	linear := velocityToGain(64, 1)
	if soft >= linear {
		t.Errorf("higher sense should soften quiet notes: %v >= %v", soft, linear)
	}
}
