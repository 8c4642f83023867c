package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hajimehoshi/oto"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	maxPoly         = 32
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const secPerSample = 1.0 / sampleRate
const baseFreq = 442.0
const voiceGain = 0.07

// noAudioEnv disables the output device, for tests and headless rendering.
const noAudioEnv = "GRIDBEAT_NO_AUDIO"

// ----- Utility ----- //

func now() float64 {
	return float64(time.Now().UnixNano()) / 1000 / 1000 / 1000
}

func positiveMod(a float64, b float64) float64 {
	if b < 0 {
		panic("b should not be negative")
	}
	for a < 0 {
		a += b
	}
	return math.Mod(a, b)
}

func noteToFreq(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

// ----- Changes ----- //

// Changes tracks which report groups are stale since the last poll.
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// ----- Track ----- //

// Track is one instrument with its effect chain and output trim.
type Track struct {
	name       string
	instrument *Instrument
	effects    []*EffectAdapter
	trim       rampValue // dB
}

// Instrument returns the track's instrument.
func (t *Track) Instrument() *Instrument {
	return t.instrument
}

// Effects returns the track's current chain in order.
func (t *Track) Effects() []*EffectAdapter {
	return t.effects
}

// ----- State ----- //

type state struct {
	sync.Mutex
	tracks   map[string]*Track
	order    []string
	buses    *BusManager
	master   *masterSection
	meter    *meterTap
	presets  *presetManager
	pos      int64
	lastRead float64
	mix      []float64 // length: samplesPerCycle
	scratch  []float64 // length: samplesPerCycle
}

func newState(ctx context.Context) (*state, error) {
	buses, err := InitializeBuses(ctx)
	if err != nil {
		return nil, err
	}
	return &state{
		tracks:  map[string]*Track{},
		buses:   buses,
		master:  newMasterSection(),
		meter:   &meterTap{},
		mix:     make([]float64, samplesPerCycle),
		scratch: make([]float64, samplesPerCycle),
	}, nil
}

// ----- Engine ----- //

// Engine renders all tracks through their chains, the shared buses and the
// master section into the output device. It implements io.Reader over raw
// 16-bit little-endian stereo frames.
type Engine struct {
	ctx        context.Context
	otoContext *oto.Context
	CommandCh  chan []string
	state      *state
	Changes    *Changes
}

var _ io.Reader = (*Engine)(nil)

// NewEngine builds the engine and starts its command loop. The output
// device is skipped when GRIDBEAT_NO_AUDIO is set.
func NewEngine() (*Engine, error) {
	var otoContext *oto.Context
	if os.Getenv(noAudioEnv) == "" {
		c, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
		if err != nil {
			return nil, err
		}
		otoContext = c
	}
	s, err := newState(context.Background())
	if err != nil {
		return nil, err
	}
	commandCh := make(chan []string, 256)
	e := &Engine{
		ctx:        context.Background(),
		otoContext: otoContext,
		CommandCh:  commandCh,
		state:      s,
		Changes: &Changes{
			dict: make(map[string]struct{}),
		},
	}
	go processCommands(e, commandCh)
	return e, nil
}

func processCommands(e *Engine, commandCh <-chan []string) {
	for command := range commandCh {
		e.update(command)
	}
	log.Println("processCommands() ended.")
}

func (e *Engine) Read(buf []byte) (int, error) {
	select {
	case <-e.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		e.state.Lock()
		defer e.state.Unlock()
		timestamp := now()
		bufSamples := len(buf) / bytesPerSample
		if bufSamples > samplesPerCycle {
			bufSamples = samplesPerCycle
		}
		mix := e.state.mix[:bufSamples]
		scratch := e.state.scratch[:bufSamples]
		for i := range mix {
			mix[i] = 0
		}
		for _, name := range e.state.order {
			t := e.state.tracks[name]
			t.instrument.render(scratch)
			for _, fx := range t.effects {
				fx.process(scratch)
			}
			trim := DBToGain(t.trim.advance(bufSamples))
			for i := range scratch {
				scratch[i] *= trim
				mix[i] += scratch[i]
			}
			for _, busName := range e.state.buses.order {
				e.state.buses.buses[busName].accumulate(scratch)
			}
		}
		e.state.buses.mixInto(mix)
		e.state.master.process(mix)
		e.state.meter.observe(mix)
		writeBuffer(mix, buf, 0)
		writeBuffer(mix, buf, 1)
		e.state.pos += int64(bufSamples)
		e.state.lastRead = timestamp
		return bufSamples * bytesPerSample, nil
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i := 0; i < len(out); i++ {
		value := out[i]
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

// ----- Tracks ----- //

// AddTrack creates a track with the given instrument kind and wires it
// straight to the master.
func (e *Engine) AddTrack(name string, kind InstrumentKind, opts InstrumentOptions) (*Track, error) {
	e.state.Lock()
	defer e.state.Unlock()
	if _, ok := e.state.tracks[name]; ok {
		return nil, fmt.Errorf("track %q already exists", name)
	}
	in, err := CreateInstrument(kind, opts)
	if err != nil {
		return nil, err
	}
	t := &Track{name: name, instrument: in}
	t.trim.init(0)
	in.Output().Connect(e.state.master.input)
	e.state.tracks[name] = t
	e.state.order = append(e.state.order, name)
	e.Changes.Add("tracks")
	return t, nil
}

// RemoveTrack disposes a track's chain and instrument and drops it.
func (e *Engine) RemoveTrack(name string) {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[name]
	if !ok {
		return
	}
	for _, fx := range t.effects {
		fx.Dispose()
	}
	t.instrument.Dispose()
	delete(e.state.tracks, name)
	for i, n := range e.state.order {
		if n == name {
			e.state.order = append(e.state.order[:i], e.state.order[i+1:]...)
			break
		}
	}
	e.Changes.Add("tracks")
}

// Track looks a track up by name.
func (e *Engine) Track(name string) (*Track, bool) {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[name]
	return t, ok
}

// SetTrim ramps a track's output trim in dB.
func (e *Engine) SetTrim(name string, db float64) {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[name]
	if !ok {
		log.Printf("[WARN] unknown track %q\n", name)
		return
	}
	t.trim.linear(defaultRampMs, clampFloat(db, -60, 12))
}

// ----- Notes ----- //

// NoteOn schedules a note-on against the render clock.
func (e *Engine) NoteOn(track string, note int, velocity int) {
	e.state.Lock()
	defer e.state.Unlock()
	e.addNoteEvent(track, &noteOn{note: note, velocity: velocity})
}

// NoteOff schedules a note-off against the render clock.
func (e *Engine) NoteOff(track string, note int) {
	e.state.Lock()
	defer e.state.Unlock()
	e.addNoteEvent(track, &noteOff{note: note})
}

// PlaySound triggers a sampler sound by name, full velocity unless given.
func (e *Engine) PlaySound(track string, sound string, velocity int) {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[track]
	if !ok {
		log.Printf("[WARN] unknown track %q\n", track)
		return
	}
	index, ok := t.instrument.SoundIndex(sound)
	if !ok {
		log.Printf("[WARN] unknown sound %q\n", sound)
		return
	}
	e.addNoteEvent(track, &noteOn{note: index, velocity: velocity})
}

// Play triggers a note and schedules its release after duration.
func (e *Engine) Play(track string, note int, velocity int, duration time.Duration) {
	e.NoteOn(track, note, velocity)
	time.AfterFunc(duration, func() {
		e.NoteOff(track, note)
	})
}

// SetInstrumentParam applies one named voice parameter on a track.
func (e *Engine) SetInstrumentParam(track string, key string, value string) error {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[track]
	if !ok {
		return fmt.Errorf("unknown track %q", track)
	}
	return t.instrument.set(key, value)
}

func (e *Engine) addNoteEvent(track string, event interface{}) {
	t, ok := e.state.tracks[track]
	if !ok {
		log.Printf("[WARN] unknown track %q\n", track)
		return
	}
	offset := now() - e.state.lastRead
	index := int(offset / secPerSample)
	t.instrument.scheduleEvent(index, offset, event)
}

// ----- Buses, master, presets ----- //

// Buses exposes the shared bus manager.
func (e *Engine) Buses() *BusManager {
	return e.state.buses
}

// SetSendLevel ramps a shared bus level in dB.
func (e *Engine) SetSendLevel(bus string, levelDB float64) {
	e.state.Lock()
	defer e.state.Unlock()
	e.state.buses.SetSendLevel(bus, levelDB)
}

// ResetSendLevels ramps every bus back to its default.
func (e *Engine) ResetSendLevels() {
	e.state.Lock()
	defer e.state.Unlock()
	e.state.buses.ResetSendLevels()
}

// InitializeLimiter turns the master safety limiter on.
func (e *Engine) InitializeLimiter() error {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.master.InitializeLimiter()
}

// IsLimiterInitialized reports whether the master limiter is active, so
// callers can gate routing decisions on it.
func (e *Engine) IsLimiterInitialized() bool {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.master.IsInitialized()
}

// SetLimiterThreshold moves the limiter ceiling in dB.
func (e *Engine) SetLimiterThreshold(db float64) {
	e.state.Lock()
	defer e.state.Unlock()
	e.state.master.SetThreshold(db)
}

// MasterReduction reports the limiter's current gain reduction in dB.
func (e *Engine) MasterReduction() float64 {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.master.Reduction()
}

// ApplyPreset compiles a preset chain and installs it on a track, disposing
// the previous chain.
func (e *Engine) ApplyPreset(ctx context.Context, track string, preset string) error {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[track]
	if !ok {
		return fmt.Errorf("unknown track %q", track)
	}
	var entries []PresetEntry
	if e.state.presets != nil {
		entries, ok = e.state.presets.resolve(preset)
	} else {
		entries, ok = NamedPreset(preset)
	}
	if !ok {
		return fmt.Errorf("unknown preset %q", preset)
	}
	chain, err := BuildEffectChain(ctx, entries)
	if err != nil {
		return err
	}
	old := t.effects
	e.connectChain(t, chain)
	for _, fx := range old {
		fx.Dispose()
	}
	e.Changes.Add("tracks")
	return nil
}

// LoadPresetDir loads JSON preset chains from a directory.
func (e *Engine) LoadPresetDir(dir string) error {
	m := newPresetManager(dir)
	if err := m.load(); err != nil {
		return err
	}
	e.state.Lock()
	e.state.presets = m
	e.state.Unlock()
	return nil
}

// Macro applies a named macro to a track's chain.
func (e *Engine) Macro(track string, name string, v float64) {
	e.state.Lock()
	defer e.state.Unlock()
	t, ok := e.state.tracks[track]
	if !ok {
		log.Printf("[WARN] unknown track %q\n", track)
		return
	}
	if !macroByName(name, t.effects, v) {
		log.Printf("[WARN] unknown macro %q\n", name)
	}
}

// MeterPeak reports the master peak in linear gain.
func (e *Engine) MeterPeak() float64 {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.meter.Peak()
}

// MeterRMS reports the master RMS in linear gain.
func (e *Engine) MeterRMS() float64 {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.meter.RMS()
}

// ----- Commands ----- //

func (e *Engine) update(command []string) {
	switch command[0] {
	case "add_track":
		kind, ok := instrumentKindFromString(command[2])
		if !ok {
			log.Printf("[WARN] unknown instrument kind %q\n", command[2])
			return
		}
		opts := InstrumentOptions{}
		if len(command) > 3 {
			opts.Wave = command[3]
		}
		if _, err := e.AddTrack(command[1], kind, opts); err != nil {
			log.Printf("[WARN] add_track: %v\n", err)
		}
	case "remove_track":
		e.RemoveTrack(command[1])
	case "note_on":
		note := parseIntArg(command[2])
		velocity := 127
		if len(command) > 3 {
			velocity = parseIntArg(command[3])
		}
		e.NoteOn(command[1], note, velocity)
	case "note_off":
		e.NoteOff(command[1], parseIntArg(command[2]))
	case "play_note":
		ms := parseIntArg(command[4])
		e.Play(command[1], parseIntArg(command[2]), parseIntArg(command[3]),
			time.Duration(ms)*time.Millisecond)
	case "set":
		if err := e.SetInstrumentParam(command[1], command[2], command[3]); err != nil {
			log.Printf("[WARN] set: %v\n", err)
		}
	case "play":
		velocity := 127
		if len(command) > 3 {
			velocity = parseIntArg(command[3])
		}
		e.PlaySound(command[1], command[2], velocity)
	case "preset":
		if err := e.ApplyPreset(e.ctx, command[1], command[2]); err != nil {
			log.Printf("[WARN] preset: %v\n", err)
		}
	case "macro":
		e.Macro(command[1], command[2], parseFloatArg(command[3]))
	case "send":
		e.SetSendLevel(command[1], parseFloatArg(command[2]))
	case "reset_sends":
		e.ResetSendLevels()
	case "trim":
		e.SetTrim(command[1], parseFloatArg(command[2]))
	case "limiter":
		if command[1] == "on" {
			if err := e.InitializeLimiter(); err != nil {
				log.Printf("[WARN] limiter: %v\n", err)
			}
		} else {
			e.SetLimiterThreshold(parseFloatArg(command[1]))
		}
	default:
		panic(fmt.Errorf("unknown command %v", command[0]))
	}
}

func parseIntArg(s string) int {
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(err)
	}
	return int(value)
}

func parseFloatArg(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return value
}

// ----- Lifecycle ----- //

// Close stops the command loop and the output device.
func (e *Engine) Close() error {
	log.Println("Closing Engine...")
	close(e.CommandCh)
	e.state.Lock()
	for _, name := range e.state.order {
		t := e.state.tracks[name]
		for _, fx := range t.effects {
			fx.Dispose()
		}
		t.instrument.Dispose()
	}
	e.state.tracks = map[string]*Track{}
	e.state.order = nil
	e.state.buses.DisposeBuses()
	e.state.master.dispose()
	e.state.Unlock()
	if e.otoContext != nil {
		return e.otoContext.Close()
	}
	return nil
}

// Start renders into the output device until ctx is cancelled. Without a
// device the stream is rendered and discarded at full speed.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx = ctx
	if e.otoContext == nil {
		if _, err := io.CopyBuffer(io.Discard, e, make([]byte, bufferSizeInBytes)); err != nil {
			return err
		}
		return nil
	}
	p := e.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()

	// block until cancel() called
	if _, err := io.CopyBuffer(p, e, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}
