package engine

import (
	"math"
	"math/rand"
)

// ----- Wave Kind ----- //

const (
	waveSine = iota
	waveTriangle
	waveSquare
	wavePulse
	waveSaw
	waveSawRev
	waveNoise
)

func waveKindFromString(s string) int {
	switch s {
	case "sine":
		return waveSine
	case "triangle":
		return waveTriangle
	case "square":
		return waveSquare
	case "pulse":
		return wavePulse
	case "saw":
		return waveSaw
	case "saw-rev":
		return waveSawRev
	case "noise":
		return waveNoise
	}
	return waveSine
}

func waveKindToString(kind int) string {
	switch kind {
	case waveSine:
		return "sine"
	case waveTriangle:
		return "triangle"
	case waveSquare:
		return "square"
	case wavePulse:
		return "pulse"
	case waveSaw:
		return "saw"
	case waveSawRev:
		return "saw-rev"
	case waveNoise:
		return "noise"
	}
	return "sine"
}

// ----- OSC ----- //

type osc struct {
	kind      int
	glideTime int // ms
	freq      float64
	phase     float64
	gliding   bool
	shiftPos  float64
	prevFreq  float64
	nextFreq  float64
}

func (o *osc) initWithNote(kind int, note int) {
	o.kind = kind
	o.freq = noteToFreq(note)
	o.phase = rand.Float64() * 2.0 * math.Pi
}

func (o *osc) glide(note int, glideTime int) {
	nextFreq := noteToFreq(note)
	if math.Abs(nextFreq-o.freq) < 0.001 {
		return
	}
	o.glideTime = glideTime
	o.prevFreq = o.freq
	o.nextFreq = nextFreq
	o.gliding = true
	o.shiftPos = 0
}

func (o *osc) step() float64 {
	p := positiveMod(o.phase/(2.0*math.Pi), 1)
	value := 0.0
	switch o.kind {
	case waveSine:
		value = math.Sin(o.phase)
	case waveTriangle:
		if p < 0.5 {
			value = p*4 - 1
		} else {
			value = p*(-4) + 3
		}
	case waveSquare:
		if p < 0.5 {
			value = 1
		} else {
			value = -1
		}
	case wavePulse:
		if p < 0.25 {
			value = 1
		} else {
			value = -1
		}
	case waveSaw:
		value = p*2 - 1
	case waveSawRev:
		value = p*(-2) + 1
	case waveNoise:
		value = rand.Float64()*2 - 1
	}
	o.phase += 2.0 * math.Pi * o.freq / float64(sampleRate)
	if o.gliding {
		o.shiftPos++
		t := o.shiftPos * secPerSample * 1000 / float64(o.glideTime)
		o.freq = t*o.nextFreq + (1-t)*o.prevFreq
		if t >= 1 || math.Abs(o.nextFreq-o.freq) < 0.001 {
			o.freq = o.nextFreq
			o.gliding = false
		}
	}
	return value
}

// ----- ADSR ----- //

const (
	phaseNone = iota
	phaseAttack
	phaseDecay
	phaseSustain
	phaseRelease
)

type adsrParams struct {
	attack  float64 // ms
	decay   float64 // ms
	sustain float64 // 0-1
	release float64 // ms
}

/*
  1 +    x
    |   / \
  s +  /   x------x
    | /            \
  0 +-----+--+----+--
    |a    |d |    |r|
*/
type adsr struct {
	attack         float64 // ms
	decay          float64 // ms
	sustain        float64 // 0-1
	release        float64 // ms
	value          float64
	phase          int
	phasePos       int
	valueAtNoteOn  float64
	valueAtNoteOff float64
}

func (a *adsr) init(p adsrParams) {
	a.setParams(p)
	a.value = 0
	a.phase = phaseNone
	a.phasePos = 0
	a.valueAtNoteOn = 0
	a.valueAtNoteOff = 0
}

func (a *adsr) setParams(p adsrParams) {
	a.attack = p.attack
	a.decay = p.decay
	a.sustain = p.sustain
	a.release = p.release
}

func (a *adsr) noteOn() {
	a.phase = phaseAttack
	a.phasePos = 0
	a.valueAtNoteOn = a.value
}

func (a *adsr) noteOff() {
	a.phase = phaseRelease
	a.phasePos = 0
	a.valueAtNoteOff = a.value
}

func (a *adsr) step() {
	phaseTime := float64(a.phasePos) * secPerSample * 1000 // ms
	switch a.phase {
	case phaseAttack:
		if phaseTime >= a.attack {
			a.phase = phaseDecay
			a.phasePos = 0
			a.value = 1
		} else {
			t := phaseTime / a.attack
			a.value = t + (1-t)*a.valueAtNoteOn
			a.phasePos++
		}
	case phaseDecay:
		ended := false
		if a.decay == 0 {
			ended = true
		} else {
			t := phaseTime / a.decay
			a.value = settleTowards(1, a.sustain, t)
			if math.Abs(a.value-a.sustain) < 0.001 {
				ended = true
			}
		}
		if ended {
			a.phase = phaseSustain
			a.phasePos = 0
			a.value = a.sustain
		} else {
			a.phasePos++
		}
	case phaseSustain:
		a.value = a.sustain
	case phaseRelease:
		ended := false
		if a.release == 0 {
			ended = true
		} else {
			t := phaseTime / a.release
			a.value = settleTowards(a.valueAtNoteOff, 0, t)
			if math.Abs(a.value) < 0.001 {
				ended = true
			}
		}
		if ended {
			a.phase = phaseNone
			a.phasePos = 0
			a.value = 0
		} else {
			a.phasePos++
		}
	default:
		a.value = 0
	}
}

// ----- Velocity ----- //

func velocityToGain(velocity int, sense float64) float64 {
	v := clamp01(float64(velocity) / 127)
	if sense <= 0 {
		return 1
	}
	return math.Pow(v, sense)
}
