package engine

import (
	"context"
	"fmt"
	"log"
)

// ----- Effect Kind ----- //

type EffectKind int

const (
	EffectEcho EffectKind = iota
	EffectFilter
	EffectEQ
	EffectDistortion
	EffectCrush
	EffectChorus
	EffectFlanger
	EffectPhaser
	EffectTremolo
	EffectRingMod
	EffectCompressor
	EffectSpace
	EffectShimmer
	EffectHall
	EffectHarmonizer
	EffectReverse
	EffectWidth
	EffectTexture
)

func (k EffectKind) String() string {
	switch k {
	case EffectEcho:
		return "echo"
	case EffectFilter:
		return "filter"
	case EffectEQ:
		return "eq"
	case EffectDistortion:
		return "distortion"
	case EffectCrush:
		return "crush"
	case EffectChorus:
		return "chorus"
	case EffectFlanger:
		return "flanger"
	case EffectPhaser:
		return "phaser"
	case EffectTremolo:
		return "tremolo"
	case EffectRingMod:
		return "ringmod"
	case EffectCompressor:
		return "compressor"
	case EffectSpace:
		return "space"
	case EffectShimmer:
		return "shimmer"
	case EffectHall:
		return "hall"
	case EffectHarmonizer:
		return "harmonizer"
	case EffectReverse:
		return "reverse"
	case EffectWidth:
		return "width"
	case EffectTexture:
		return "texture"
	}
	return "unknown"
}

func effectKindFromString(s string) (EffectKind, bool) {
	for k := EffectEcho; k <= EffectTexture; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return EffectFilter, false
}

// ----- Effect Node ----- //

// effectNode is the internal processor behind an adapter. Each effect kind
// carries its own concrete node type with typed parameters.
type effectNode interface {
	// process renders one block in place. Ramps advance here, once per
	// block for primitive parameters and per sample for mix gains.
	process(buf []float64)
	// set applies the kind's composite normalized mapping, ramped.
	set(v float64)
	dispose()
}

// paramSettable is implemented by nodes that accept named initial
// parameters from presets.
type paramSettable interface {
	setParam(key string, value float64) bool
}

// ----- Effect Adapter ----- //

// EffectAdapter is the uniform surface around an effect: one input, one
// output, an opaque node and a normalized ramped setter. Internal fan-out
// and feedback never show through.
type EffectAdapter struct {
	Kind     EffectKind
	Input    *Port
	Output   *Port
	node     effectNode
	disposed bool
}

// Set applies the effect's composite mapping for a normalized value.
// Out-of-range input is clamped; the change always lands as a short ramp.
func (a *EffectAdapter) Set(v float64) {
	if a.disposed {
		return
	}
	a.node.set(clamp01(v))
}

// SetParam applies one named initial parameter. Unknown names log and no-op.
func (a *EffectAdapter) SetParam(key string, value float64) {
	if a.disposed {
		return
	}
	s, ok := a.node.(paramSettable)
	if !ok || !s.setParam(key, value) {
		log.Printf("[WARN] %s: unknown parameter %q\n", a.Kind, key)
	}
}

// Dispose disconnects the adapter and tears down every internal node.
// Errors on this path are swallowed; disposal is best-effort cleanup.
func (a *EffectAdapter) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	a.Input.Disconnect()
	a.Output.Disconnect()
	a.node.dispose()
}

func (a *EffectAdapter) process(buf []float64) {
	if a.disposed {
		return
	}
	a.node.process(buf)
}

// ----- Factory ----- //

type effectBuilder func(ctx context.Context) (effectNode, error)

// effectBuilders is the registry mapping each kind to its builder. Adding
// an effect kind means registering a builder here.
var effectBuilders = map[EffectKind]effectBuilder{
	EffectEcho:       buildEchoNode,
	EffectFilter:     buildFilterNode,
	EffectEQ:         buildEQNode,
	EffectDistortion: buildDistortionNode,
	EffectCrush:      buildCrushNode,
	EffectChorus:     buildChorusNode,
	EffectFlanger:    buildFlangerNode,
	EffectPhaser:     buildPhaserNode,
	EffectTremolo:    buildTremoloNode,
	EffectRingMod:    buildRingModNode,
	EffectCompressor: buildCompressorNode,
	EffectSpace:      buildSpaceNode,
	EffectShimmer:    buildShimmerNode,
	EffectHall:       buildHallNode,
	EffectHarmonizer: buildHarmonizerNode,
	EffectReverse:    buildReverseNode,
	EffectWidth:      buildWidthNode,
	EffectTexture:    buildTextureNode,
}

// CreateEffect builds a fully wired adapter for the given kind. Every kind
// constructs through the same context-aware contract, whether or not it has
// buffers to prepare; a failed buffer load fails the construction and the
// caller must not wire the partial adapter into a chain.
func CreateEffect(ctx context.Context, kind EffectKind) (*EffectAdapter, error) {
	builder, ok := effectBuilders[kind]
	if !ok {
		log.Printf("[WARN] unknown effect kind %d, using open filter\n", int(kind))
		kind = EffectFilter
		builder = buildDefaultNode
	}
	node, err := builder(ctx)
	if err != nil {
		return nil, fmt.Errorf("create effect %s: %w", kind, err)
	}
	return &EffectAdapter{
		Kind:   kind,
		Input:  newPort(kind.String() + ".in"),
		Output: newPort(kind.String() + ".out"),
		node:   node,
	}, nil
}

// CreateEffectByName resolves a kind name first. An unknown name logs and
// falls back to the default effect instead of failing, since callers may
// reference names speculatively.
func CreateEffectByName(ctx context.Context, name string) (*EffectAdapter, error) {
	kind, ok := effectKindFromString(name)
	if !ok {
		log.Printf("[WARN] unknown effect type %q, using open filter\n", name)
		node, err := buildDefaultNode(ctx)
		if err != nil {
			return nil, fmt.Errorf("create default effect: %w", err)
		}
		return &EffectAdapter{
			Kind:   EffectFilter,
			Input:  newPort("filter.in"),
			Output: newPort("filter.out"),
			node:   node,
		}, nil
	}
	return CreateEffect(ctx, kind)
}
