package engine

// Macros steer several related effect parameters from one normalized knob.
// Each macro scans a chain and drives the nodes it knows about; chains
// without a matching effect are left untouched, silently. All writes land
// as short ramps.

// SpaceMacro scales the sense of room size: reverb decay and wet move
// together.
func SpaceMacro(effects []*EffectAdapter, v float64) {
	v = clamp01(v)
	for _, fx := range effects {
		if fx.disposed {
			continue
		}
		switch n := fx.node.(type) {
		case *spaceNode:
			n.decay.linear(defaultRampMs, lerp(v, 1, 6))
			n.wet.linear(defaultRampMs, lerp(v, 0.2, 0.6))
		case *hallNode:
			n.wet.linear(defaultRampMs, lerp(v, 0.2, 0.6))
		}
	}
}

// TimeMacro scales echo density: feedback and wet together.
func TimeMacro(effects []*EffectAdapter, v float64) {
	v = clamp01(v)
	for _, fx := range effects {
		if fx.disposed {
			continue
		}
		if n, ok := fx.node.(*echoNode); ok {
			n.feedback.linear(defaultRampMs, lerp(v, 0.1, 0.7))
			n.wet.linear(defaultRampMs, lerp(v, 0.2, 0.5))
		}
	}
}

// ColorMacro opens the spectrum: filter cutoff sweeps exponentially with
// rising resonance, and the EQ tilts towards the highs.
func ColorMacro(effects []*EffectAdapter, v float64) {
	v = clamp01(v)
	for _, fx := range effects {
		if fx.disposed {
			continue
		}
		switch n := fx.node.(type) {
		case *filterNode:
			n.freq.linear(defaultRampMs, MapFrequency(v, 400, 4000))
			n.q.linear(defaultRampMs, lerp(v, 0.5, 4))
		case *eq3Node:
			n.highGain.linear(defaultRampMs, lerp(v, -6, 6))
			n.midGain.linear(defaultRampMs, lerp(v, -3, 3))
		}
	}
}

// DriveMacro pushes saturation while compensating dynamics: distortion
// amount and wet rise as the compressor digs in.
func DriveMacro(effects []*EffectAdapter, v float64) {
	v = clamp01(v)
	for _, fx := range effects {
		if fx.disposed {
			continue
		}
		switch n := fx.node.(type) {
		case *distortionNode:
			n.amount.linear(defaultRampMs, lerp(v, 0.1, 0.9))
			n.wet.linear(defaultRampMs, lerp(v, 0.2, 0.7))
		case *compressorNode:
			n.threshold.linear(defaultRampMs, lerp(v, -30, -10))
			n.ratio.linear(defaultRampMs, lerp(v, 2, 8))
		}
	}
}

// macroByName dispatches a named macro. Unknown names report false.
func macroByName(name string, effects []*EffectAdapter, v float64) bool {
	switch name {
	case "space":
		SpaceMacro(effects, v)
	case "time":
		TimeMacro(effects, v)
	case "color":
		ColorMacro(effects, v)
	case "drive":
		DriveMacro(effects, v)
	default:
		return false
	}
	return true
}
