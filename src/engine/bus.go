package engine

import (
	"context"
	"fmt"
	"log"
)

const (
	minSendDB = -60.0
	maxSendDB = 0.0
)

// Bus is one shared effect lane. Tracks accumulate their sends into accum;
// the engine processes the node over it once per block and applies the
// ramped send level on the way into the mix.
type Bus struct {
	name         string
	node         effectNode
	level        rampValue // dB
	defaultLevel float64
	accum        []float64
}

// accumulate adds one track's block into the bus ahead of mix.
func (b *Bus) accumulate(buf []float64) {
	if len(b.accum) < len(buf) {
		b.accum = append(b.accum, make([]float64, len(buf)-len(b.accum))...)
	}
	for i := range buf {
		b.accum[i] += buf[i]
	}
}

// mix processes the accumulated sends and adds them to out at the current
// level, then clears the accumulator for the next block.
func (b *Bus) mix(out []float64) {
	n := len(out)
	if len(b.accum) < n {
		b.accum = make([]float64, n)
	}
	block := b.accum[:n]
	b.node.process(block)
	gain := DBToGain(b.level.advance(n))
	for i := range out {
		out[i] += block[i] * gain
		block[i] = 0
	}
}

// BusManager owns the shared send buses. All methods are no-ops after
// DisposeBuses.
type BusManager struct {
	buses map[string]*Bus
	order []string
}

// InitializeBuses builds the fixed set of shared buses. Each bus effect runs
// fully wet since the dry path stays on the track. Send levels start silent;
// the documented defaults are what ResetSendLevels restores.
func InitializeBuses(ctx context.Context) (*BusManager, error) {
	m := &BusManager{buses: map[string]*Bus{}}
	add := func(name string, defaultLevel float64, build effectBuilder) error {
		node, err := build(ctx)
		if err != nil {
			return fmt.Errorf("initialize bus %s: %w", name, err)
		}
		b := &Bus{
			name:         name,
			node:         node,
			defaultLevel: defaultLevel,
		}
		b.level.init(minSendDB)
		m.buses[name] = b
		m.order = append(m.order, name)
		return nil
	}
	if err := add("ambience", -12, buildAmbienceBusNode); err != nil {
		return nil, err
	}
	if err := add("echo", -15, buildEchoBusNode); err != nil {
		return nil, err
	}
	if err := add("modulation", -18, buildModulationBusNode); err != nil {
		return nil, err
	}
	return m, nil
}

func buildAmbienceBusNode(ctx context.Context) (effectNode, error) {
	node, err := buildSpaceNode(ctx)
	if err != nil {
		return nil, err
	}
	s := node.(*spaceNode)
	s.setParam("decay", 3)
	s.setParam("wet", 1)
	s.setParam("dry", 0)
	return s, nil
}

func buildEchoBusNode(ctx context.Context) (effectNode, error) {
	node, err := buildEchoNode(ctx)
	if err != nil {
		return nil, err
	}
	e := node.(*echoNode)
	e.setParam("wet", 1)
	return e, nil
}

func buildModulationBusNode(ctx context.Context) (effectNode, error) {
	node, err := buildChorusNode(ctx)
	if err != nil {
		return nil, err
	}
	c := node.(*chorusNode)
	c.setParam("wet", 1)
	return c, nil
}

// Buses lists the bus names in creation order.
func (m *BusManager) Buses() []string {
	return append([]string(nil), m.order...)
}

// Bus looks up a bus by name.
func (m *BusManager) Bus(name string) (*Bus, bool) {
	b, ok := m.buses[name]
	return b, ok
}

// SetSendLevel ramps the named bus's level to the given value in dB,
// clamped to the legal range. An unknown bus name logs and changes nothing.
func (m *BusManager) SetSendLevel(name string, levelDB float64) {
	b, ok := m.buses[name]
	if !ok {
		log.Printf("[WARN] unknown bus %q\n", name)
		return
	}
	b.level.linear(defaultRampMs, clampFloat(levelDB, minSendDB, maxSendDB))
}

// GetSendLevel reports the level a bus is ramping towards.
func (m *BusManager) GetSendLevel(name string) (float64, bool) {
	b, ok := m.buses[name]
	if !ok {
		return 0, false
	}
	return b.level.target(), true
}

// ResetSendLevels ramps every bus back to its documented default.
func (m *BusManager) ResetSendLevels() {
	for _, b := range m.buses {
		b.level.linear(defaultRampMs, b.defaultLevel)
	}
}

// DisposeBuses tears every bus down. Afterwards the manager reports no
// buses and level changes are dropped.
func (m *BusManager) DisposeBuses() {
	for _, b := range m.buses {
		b.node.dispose()
	}
	m.buses = map[string]*Bus{}
	m.order = nil
}

// mixInto runs every bus over its accumulated sends into out.
func (m *BusManager) mixInto(out []float64) {
	for _, name := range m.order {
		m.buses[name].mix(out)
	}
}
