package engine

import (
	"fmt"
	"log"
	"strconv"

	"github.com/cwbudde/algo-dsp/dsp/filter/moog"
)

// ----- Instrument Kind ----- //

type InstrumentKind int

const (
	// InstrumentPoly is a continuous-pitch polyphonic tone generator.
	InstrumentPoly InstrumentKind = iota
	// InstrumentMono is monophonic with glide, last-note priority and a
	// resonant filter.
	InstrumentMono
	// InstrumentSampler plays one-shot percussive samples by name.
	InstrumentSampler
	// InstrumentPad is a gated sustained variant built on the poly voices
	// with slow attack and release.
	InstrumentPad
)

func (k InstrumentKind) String() string {
	switch k {
	case InstrumentPoly:
		return "poly"
	case InstrumentMono:
		return "mono"
	case InstrumentSampler:
		return "sampler"
	case InstrumentPad:
		return "pad"
	}
	return "unknown"
}

func instrumentKindFromString(s string) (InstrumentKind, bool) {
	switch s {
	case "poly":
		return InstrumentPoly, true
	case "mono":
		return InstrumentMono, true
	case "sampler":
		return InstrumentSampler, true
	case "pad":
		return InstrumentPad, true
	}
	return InstrumentPoly, false
}

// InstrumentOptions tune a new instrument. Zero values pick the defaults.
type InstrumentOptions struct {
	Wave          string
	VelocitySense float64
	GlideTimeMs   int
	Metering      bool
}

// ----- Note Events ----- //

type noteEvent struct {
	offset float64
	event  interface{}
}

type noteOn struct {
	note     int
	velocity int
}
type noteOff struct {
	note int
}

// ----- Instrument ----- //

// Instrument wraps one voice-generation strategy behind a uniform trigger
// contract and a single summed output port.
type Instrument struct {
	kind     InstrumentKind
	out      *Port
	events   [][]*noteEvent // length: samplesPerCycle * 2
	poly     *polyVoices
	mono     *monoVoice
	sampler  *samplerVoices
	meter    *meterTap
	disposed bool
}

// CreateInstrument builds an instrument of the given kind. Constructing one
// allocates and starts its voice resources; Dispose releases them.
func CreateInstrument(kind InstrumentKind, opts InstrumentOptions) (*Instrument, error) {
	if opts.VelocitySense == 0 {
		opts.VelocitySense = 1
	}
	if opts.GlideTimeMs == 0 {
		opts.GlideTimeMs = 100
	}
	in := &Instrument{
		kind:   kind,
		out:    newPort(kind.String() + ".out"),
		events: make([][]*noteEvent, samplesPerCycle*2),
	}
	switch kind {
	case InstrumentPoly:
		in.poly = newPolyVoices(voiceParams{
			wave:     waveKindFromString(opts.Wave),
			adsr:     adsrParams{attack: 5, decay: 120, sustain: 0.6, release: 180},
			velSense: opts.VelocitySense,
		})
	case InstrumentPad:
		in.poly = newPolyVoices(voiceParams{
			wave:     waveKindFromString(opts.Wave),
			adsr:     adsrParams{attack: 900, decay: 400, sustain: 0.8, release: 1600},
			velSense: opts.VelocitySense,
		})
	case InstrumentMono:
		m, err := newMonoVoice(voiceParams{
			wave:     waveKindFromString(opts.Wave),
			adsr:     adsrParams{attack: 3, decay: 150, sustain: 0.7, release: 120},
			velSense: opts.VelocitySense,
		}, opts.GlideTimeMs)
		if err != nil {
			return nil, fmt.Errorf("create mono instrument: %w", err)
		}
		in.mono = m
	case InstrumentSampler:
		in.sampler = newSamplerVoices(newSampleBank(), opts.VelocitySense)
	default:
		return nil, fmt.Errorf("unknown instrument kind %d", kind)
	}
	if opts.Metering {
		in.meter = &meterTap{}
	}
	return in, nil
}

// Output returns the instrument's summed output port.
func (in *Instrument) Output() *Port {
	return in.out
}

// Meter returns the optional level tap, nil when metering is off or the
// instrument has been disposed.
func (in *Instrument) Meter() *meterTap {
	return in.meter
}

// SoundIndex resolves a sampler sound name. Non-sampler instruments have no
// named sounds.
func (in *Instrument) SoundIndex(name string) (int, bool) {
	if in.sampler == nil {
		return 0, false
	}
	return in.sampler.bank.index(name)
}

// Dispose stops the voices, disconnects the output and tears down the level
// meter tap. Double disposal is a no-op.
func (in *Instrument) Dispose() {
	if in.disposed {
		return
	}
	in.disposed = true
	in.out.Disconnect()
	for i := range in.events {
		in.events[i] = nil
	}
	in.poly = nil
	in.mono = nil
	in.sampler = nil
	in.meter = nil
}

// set applies one named voice parameter. Envelope and wave changes land on
// the next note; glide time applies immediately.
func (in *Instrument) set(key string, value string) error {
	if in.disposed {
		return fmt.Errorf("instrument disposed")
	}
	params := in.voiceParams()
	switch key {
	case "wave":
		if params == nil {
			return fmt.Errorf("wave only applies to tonal instruments")
		}
		params.wave = waveKindFromString(value)
	case "velocity_sense":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		if in.sampler != nil {
			in.sampler.velSense = v
		} else if params != nil {
			params.velSense = v
		}
	case "glide_time":
		if in.mono == nil {
			return fmt.Errorf("glide_time only applies to mono instruments")
		}
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		in.mono.glideTime = int(v)
	case "attack", "decay", "sustain", "release":
		if params == nil {
			return fmt.Errorf("envelope only applies to tonal instruments")
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		switch key {
		case "attack":
			params.adsr.attack = v
		case "decay":
			params.adsr.decay = v
		case "sustain":
			params.adsr.sustain = clamp01(v)
		case "release":
			params.adsr.release = v
		}
		if in.mono != nil {
			in.mono.env.setParams(params.adsr)
		}
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (in *Instrument) voiceParams() *voiceParams {
	switch {
	case in.poly != nil:
		return &in.poly.params
	case in.mono != nil:
		return &in.mono.params
	}
	return nil
}

func (in *Instrument) scheduleEvent(index int, offset float64, event interface{}) {
	if in.disposed {
		return
	}
	if index < 0 {
		log.Println("[WARN] event index < 0")
		index = 0
	}
	if index >= len(in.events) {
		log.Println("[WARN] event index >= event length")
		index = len(in.events) - 1
	}
	in.events[index] = append(in.events[index], &noteEvent{offset: offset, event: event})
}

// render fills out with the next block and consumes the scheduled events
// that fall inside it. Remaining events shift towards the render cursor.
func (in *Instrument) render(out []float64) {
	if in.disposed {
		for i := range out {
			out[i] = 0
		}
		return
	}
	n := len(out)
	if n > len(in.events) {
		n = len(in.events)
	}
	window := in.events[:n]
	switch {
	case in.poly != nil:
		in.poly.calc(window, out)
	case in.mono != nil:
		in.mono.calc(window, out)
	case in.sampler != nil:
		in.sampler.calc(window, out)
	}
	eventLength := len(in.events)
	for i := 0; i < eventLength; i++ {
		if i >= n {
			in.events[i-n] = in.events[i]
		}
		if i >= eventLength-n {
			in.events[i] = nil
		}
	}
	if in.meter != nil {
		in.meter.observe(out)
	}
}

// ----- Poly Voices ----- //

type voiceParams struct {
	wave     int
	adsr     adsrParams
	velSense float64
}

type voice struct {
	note int
	osc  osc
	env  adsr
	gain float64
}

type polyVoices struct {
	// pooled + active = maxPoly
	pooled []*voice
	active []*voice
	params voiceParams
}

func newPolyVoices(params voiceParams) *polyVoices {
	pooled := make([]*voice, maxPoly)
	for i := 0; i < len(pooled); i++ {
		pooled[i] = &voice{}
	}
	return &polyVoices{
		pooled: pooled,
		params: params,
	}
}

func (p *polyVoices) calc(events [][]*noteEvent, out []float64) {
	for i := 0; i < len(out); i++ {
		slot := events[i]
		for j := 0; j < len(slot); j++ {
			switch data := slot[j].event.(type) {
			case *noteOn:
				lenPooled := len(p.pooled)
				if lenPooled > 0 {
					v := p.pooled[lenPooled-1]
					p.pooled = p.pooled[:lenPooled-1]
					p.active = append(p.active, v)
					v.note = data.note
					v.osc.initWithNote(p.params.wave, data.note)
					v.env.init(p.params.adsr)
					v.env.noteOn()
					v.gain = velocityToGain(data.velocity, p.params.velSense)
				} else {
					log.Println("maxPoly exceeded")
				}
			case *noteOff:
				for _, v := range p.active {
					if v.note == data.note {
						v.env.noteOff()
					}
				}
			}
		}
		out[i] = 0.0
		for _, v := range p.active {
			v.env.step()
			out[i] += v.osc.step() * v.env.value * v.gain * voiceGain
		}
		for j := len(p.active) - 1; j >= 0; j-- {
			v := p.active[j]
			if v.env.phase == phaseNone {
				p.active = append(p.active[:j], p.active[j+1:]...)
				p.pooled = append(p.pooled, v)
			}
		}
	}
}

// ----- Mono Voice ----- //

type monoVoice struct {
	osc         osc
	env         adsr
	gain        rampValue
	filter      *moog.Filter
	activeNotes []*noteOn
	params      voiceParams
	glideTime   int // ms
}

func newMonoVoice(params voiceParams, glideTime int) (*monoVoice, error) {
	f, err := moog.New(sampleRate, moog.WithCutoffHz(2500), moog.WithResonance(0.6))
	if err != nil {
		return nil, err
	}
	m := &monoVoice{
		filter:      f,
		activeNotes: make([]*noteOn, 0, 128),
		params:      params,
		glideTime:   glideTime,
	}
	m.gain.init(0)
	return m, nil
}

func (m *monoVoice) calc(events [][]*noteEvent, out []float64) {
	for i := 0; i < len(out); i++ {
		for _, e := range events[i] {
			switch data := e.event.(type) {
			case *noteOn:
				if len(m.activeNotes) < cap(m.activeNotes) {
					m.activeNotes = m.activeNotes[:len(m.activeNotes)+1]
					for j := len(m.activeNotes) - 1; j >= 1; j-- {
						m.activeNotes[j] = m.activeNotes[j-1]
					}
					m.activeNotes[0] = data
					if len(m.activeNotes) == 1 {
						m.osc.initWithNote(m.params.wave, data.note)
						m.env.init(m.params.adsr)
						m.env.noteOn()
						m.gain.init(velocityToGain(data.velocity, m.params.velSense))
					} else {
						m.osc.glide(m.activeNotes[0].note, m.glideTime)
						gain := velocityToGain(data.velocity, m.params.velSense)
						m.gain.exponential(float64(m.glideTime), gain, 0.001)
					}
				}
			case *noteOff:
				removed := 0
				for j := 0; j < len(m.activeNotes); j++ {
					if m.activeNotes[j].note == data.note {
						removed++
					} else {
						m.activeNotes[j-removed] = m.activeNotes[j]
					}
				}
				m.activeNotes = m.activeNotes[:len(m.activeNotes)-removed]
				if len(m.activeNotes) > 0 {
					m.osc.glide(m.activeNotes[0].note, m.glideTime)
					gain := velocityToGain(m.activeNotes[0].velocity, m.params.velSense)
					m.gain.exponential(float64(m.glideTime), gain, 0.001)
				} else {
					m.env.noteOff()
				}
			}
		}
		m.gain.step()
		m.env.step()
		out[i] = m.osc.step() * m.env.value * m.gain.value * voiceGain
	}
	m.filter.ProcessInPlace(out)
}

// ----- Sampler Voices ----- //

type samplerHit struct {
	sample []float64
	pos    int
	gain   float64
}

type samplerVoices struct {
	bank     *sampleBank
	playing  []*samplerHit
	velSense float64
}

func newSamplerVoices(bank *sampleBank, velSense float64) *samplerVoices {
	return &samplerVoices{
		bank:     bank,
		playing:  make([]*samplerHit, 0, 16),
		velSense: velSense,
	}
}

func (s *samplerVoices) calc(events [][]*noteEvent, out []float64) {
	for i := 0; i < len(out); i++ {
		for _, e := range events[i] {
			if data, ok := e.event.(*noteOn); ok {
				sample := s.bank.at(data.note)
				if sample == nil {
					log.Printf("[WARN] no sample at index %d\n", data.note)
					continue
				}
				s.playing = append(s.playing, &samplerHit{
					sample: sample,
					gain:   velocityToGain(data.velocity, s.velSense),
				})
			}
		}
		out[i] = 0.0
		for _, hit := range s.playing {
			out[i] += hit.sample[hit.pos] * hit.gain * 0.8
			hit.pos++
		}
		for j := len(s.playing) - 1; j >= 0; j-- {
			if s.playing[j].pos >= len(s.playing[j].sample) {
				s.playing = append(s.playing[:j], s.playing[j+1:]...)
			}
		}
	}
}
