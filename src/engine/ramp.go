package engine

import "math"

// ----- Ramp Kind ----- //

const (
	rampNone = iota
	rampLinear
	rampExponential
)

// Control-rate writes land as short ramps so the renderer never sees a
// sample-level discontinuity.
const defaultRampMs = 30.0

// ----- Ramp Value ----- //

type rampValue struct {
	kind         int
	duration     float64 // ms
	endThreshold float64
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
}

func (rv *rampValue) init(value float64) {
	rv.kind = rampNone
	rv.duration = 0
	rv.endThreshold = 0
	rv.initialValue = 0
	rv.targetValue = value
	rv.value = value
	rv.pos = 0
}

func (rv *rampValue) linear(duration float64, targetValue float64) {
	rv.kind = rampLinear
	rv.duration = duration
	rv.endThreshold = 0
	rv.pos = 0
	rv.initialValue = rv.value
	rv.targetValue = targetValue
}

func (rv *rampValue) exponential(duration float64, targetValue float64, endThreshold float64) {
	rv.kind = rampExponential
	rv.duration = duration
	rv.endThreshold = endThreshold
	rv.pos = 0
	rv.initialValue = rv.value
	rv.targetValue = targetValue
}

// target reports where the value is heading, which equals the value itself
// once the ramp has settled.
func (rv *rampValue) target() float64 {
	if rv.kind == rampNone {
		return rv.value
	}
	return rv.targetValue
}

func (rv *rampValue) step() bool {
	ended := false
	switch rv.kind {
	case rampLinear:
		phaseTime := float64(rv.pos) * secPerSample * 1000 // ms
		if phaseTime >= rv.duration {
			rv.end()
			ended = true
		} else {
			t := phaseTime / rv.duration
			rv.value = t*rv.targetValue + (1-t)*rv.initialValue
			rv.pos++
		}
	case rampExponential:
		phaseTime := float64(rv.pos) * secPerSample * 1000 // ms
		t := phaseTime / rv.duration
		rv.value = settleTowards(rv.initialValue, rv.targetValue, t)
		if math.Abs(rv.value-rv.targetValue) < rv.endThreshold {
			rv.end()
			ended = true
		} else {
			rv.pos++
		}
	case rampNone:
	}
	return ended
}

// advance steps the ramp by n samples and returns the resulting value.
func (rv *rampValue) advance(n int) float64 {
	if rv.kind == rampNone {
		return rv.value
	}
	for i := 0; i < n; i++ {
		if rv.step() {
			break
		}
	}
	return rv.value
}

func (rv *rampValue) end() {
	rv.kind = rampNone
	rv.value = rv.targetValue
	rv.pos = 0
}

// 63% closer to target when pos=1.0
func settleTowards(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
