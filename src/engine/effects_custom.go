package engine

import (
	"context"
	"log"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/effects/pitch"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Maximum feedback for effects that loop a reverb tail back into
// themselves. One policy for the whole family.
const maxShimmerFeedback = 0.35

// ----- Shimmer ----- //

// shimmerNode sums three paths into one output: the unprocessed dry signal,
// a pitch-shifted high-passed tap for immediate clarity, and the same tap
// through predelay and reverb for the delayed swell. A gain-limited loop
// feeds the reverb tail back into the pitch shifter.
type shimmerNode struct {
	shift      *pitch.PitchShifter
	hp         *biquad.Section
	pre        *delay.Line
	rev        *reverb.Reverb
	dry        rampValue
	clarity    rampValue
	wet        rampValue
	feedback   rampValue
	preSamples int
	tap        []float64
	swell      []float64
	tail       []float64
}

func buildShimmerNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shift, err := pitch.NewPitchShifter(sampleRate)
	if err != nil {
		return nil, err
	}
	if err := shift.SetPitchSemitones(12); err != nil {
		return nil, err
	}
	pre, err := delay.New(sampleRate / 2)
	if err != nil {
		return nil, err
	}
	rev := reverb.NewReverb()
	rev.SetWet(1)
	rev.SetDry(0)
	rev.SetRoomSize(0.85)
	n := &shimmerNode{
		shift:      shift,
		hp:         biquad.NewSection(design.Highpass(900, 0.707, sampleRate)),
		pre:        pre,
		rev:        rev,
		preSamples: int(0.08 * sampleRate),
	}
	n.dry.init(1)
	n.clarity.init(0.1)
	n.wet.init(0.3)
	n.feedback.init(0.1)
	return n, nil
}

// set moves the swell wet, dry and feedback gains together, each along its
// own curve. The composite mapping is the effect's contract.
func (n *shimmerNode) set(v float64) {
	n.dry.linear(defaultRampMs, 1-0.4*v)
	n.clarity.linear(defaultRampMs, 0.25*v)
	n.wet.linear(defaultRampMs, 0.7*v)
	n.feedback.linear(defaultRampMs, maxShimmerFeedback*v)
}

func (n *shimmerNode) setParam(key string, value float64) bool {
	switch key {
	case "wet":
		n.wet.init(clamp01(value))
	case "feedback":
		n.feedback.init(clampFloat(value, 0, maxShimmerFeedback))
	default:
		return false
	}
	return true
}

func (n *shimmerNode) ensure(count int) {
	if len(n.tap) < count {
		n.tap = make([]float64, count)
		n.swell = make([]float64, count)
		n.tail = make([]float64, count)
	}
}

func (n *shimmerNode) process(buf []float64) {
	count := len(buf)
	n.ensure(count)
	dry := n.dry.advance(count)
	clarity := n.clarity.advance(count)
	wet := n.wet.advance(count)
	fb := clampFloat(n.feedback.advance(count), 0, maxShimmerFeedback)
	tap := n.tap[:count]
	swell := n.swell[:count]
	tail := n.tail[:count]
	for i := range buf {
		tap[i] = buf[i] + tail[i]*fb
	}
	n.shift.ProcessInPlace(tap)
	n.hp.ProcessBlock(tap)
	for i := range tap {
		n.pre.Write(tap[i])
		swell[i] = n.pre.Read(n.preSamples)
	}
	n.rev.ProcessInPlace(swell)
	copy(tail, swell)
	for i := range buf {
		buf[i] = buf[i]*dry + tap[i]*clarity + swell[i]*wet
	}
}

func (n *shimmerNode) dispose() {
	n.rev.Reset()
	n.pre.Reset()
	n.shift.Reset()
}

// ----- Convolution Hall ----- //

// hallNode sums the dry path with a predelayed convolution path. set moves
// the wet/dry split only.
type hallNode struct {
	pre        *delay.Line
	conv       *reverb.ConvolutionReverb
	wet        rampValue
	dry        rampValue
	preSamples int
	wetBuf     []float64
	convFailed bool
}

func buildHallNode(ctx context.Context) (effectNode, error) {
	ir, err := loadImpulse(ctx, "hall")
	if err != nil {
		return nil, err
	}
	conv, err := reverb.NewConvolutionReverb(ir, 8)
	if err != nil {
		return nil, err
	}
	conv.SetWetDry(1, 0)
	pre, err := delay.New(sampleRate / 4)
	if err != nil {
		return nil, err
	}
	n := &hallNode{
		pre:        pre,
		conv:       conv,
		preSamples: int(0.02 * sampleRate),
	}
	n.wet.init(0.3)
	n.dry.init(1)
	return n, nil
}

func (n *hallNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
	n.dry.linear(defaultRampMs, 1-0.5*v)
}

func (n *hallNode) setParam(key string, value float64) bool {
	if key == "wet" {
		n.wet.init(clamp01(value))
		return true
	}
	return false
}

func (n *hallNode) process(buf []float64) {
	count := len(buf)
	if len(n.wetBuf) < count {
		n.wetBuf = make([]float64, count)
	}
	wet := n.wet.advance(count)
	dry := n.dry.advance(count)
	wetBuf := n.wetBuf[:count]
	for i := range buf {
		n.pre.Write(buf[i])
		wetBuf[i] = n.pre.Read(n.preSamples)
	}
	if err := n.conv.ProcessInPlace(wetBuf); err != nil {
		if !n.convFailed {
			log.Printf("[WARN] convolution failed, hall runs dry: %v\n", err)
			n.convFailed = true
		}
		return
	}
	for i := range buf {
		buf[i] = buf[i]*dry + wetBuf[i]*wet
	}
}

func (n *hallNode) dispose() {
	n.conv.Reset()
	n.pre.Reset()
}

// ----- Harmonizer ----- //

// harmonizerNode adds two parallel pitch-shifted voices, a fifth up and a
// fourth down. When the pitch primitive is unavailable the effect degrades
// to pass-through instead of failing construction.
type harmonizerNode struct {
	up       *pitch.PitchShifter
	down     *pitch.PitchShifter
	degraded bool
	wet      rampValue
	upBuf    []float64
	downBuf  []float64
}

func buildHarmonizerNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := &harmonizerNode{}
	n.wet.init(0.4)
	up, err := pitch.NewPitchShifter(sampleRate)
	if err == nil {
		err = up.SetPitchSemitones(7)
	}
	if err != nil {
		log.Printf("[WARN] pitch shift unavailable, harmonizer degrades to pass-through: %v\n", err)
		n.degraded = true
		return n, nil
	}
	down, err := pitch.NewPitchShifter(sampleRate)
	if err == nil {
		err = down.SetPitchSemitones(-5)
	}
	if err != nil {
		log.Printf("[WARN] pitch shift unavailable, harmonizer degrades to pass-through: %v\n", err)
		n.degraded = true
		return n, nil
	}
	n.up = up
	n.down = down
	return n, nil
}

func (n *harmonizerNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *harmonizerNode) setParam(key string, value float64) bool {
	if key == "wet" {
		n.wet.init(clamp01(value))
		return true
	}
	return false
}

func (n *harmonizerNode) process(buf []float64) {
	if n.degraded {
		return
	}
	count := len(buf)
	if len(n.upBuf) < count {
		n.upBuf = make([]float64, count)
		n.downBuf = make([]float64, count)
	}
	wet := n.wet.advance(count)
	upBuf := n.upBuf[:count]
	downBuf := n.downBuf[:count]
	copy(upBuf, buf)
	copy(downBuf, buf)
	n.up.ProcessInPlace(upBuf)
	n.down.ProcessInPlace(downBuf)
	for i := range buf {
		buf[i] = buf[i]*(1-0.5*wet) + (upBuf[i]+downBuf[i])*0.5*wet
	}
}

func (n *harmonizerNode) dispose() {
	if n.up != nil {
		n.up.Reset()
	}
	if n.down != nil {
		n.down.Reset()
	}
}

// ----- Reverse Reverb ----- //

const reverseWindowSec = 1.5

// reverseNode records a rolling window, reverses it, and plays the reversal
// through reverb under the dry signal, producing a pre-swell. Recording of
// the next window continues while the previous one plays.
type reverseNode struct {
	recBuf  []float64
	playBuf []float64
	recPos  int
	playPos int
	primed  bool
	rev     *reverb.Reverb
	wet     rampValue
}

func buildReverseNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := int(reverseWindowSec * sampleRate)
	rev := reverb.NewReverb()
	rev.SetWet(1)
	rev.SetDry(0)
	rev.SetRoomSize(0.7)
	n := &reverseNode{
		recBuf:  make([]float64, size),
		playBuf: make([]float64, size),
		rev:     rev,
	}
	n.wet.init(0.4)
	return n, nil
}

func (n *reverseNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *reverseNode) setParam(key string, value float64) bool {
	if key == "wet" {
		n.wet.init(clamp01(value))
		return true
	}
	return false
}

func (n *reverseNode) process(buf []float64) {
	wet := n.wet.advance(len(buf))
	for i := range buf {
		x := buf[i]
		n.recBuf[n.recPos] = x
		n.recPos++
		if n.recPos == len(n.recBuf) {
			for j := range n.recBuf {
				n.playBuf[j] = n.recBuf[len(n.recBuf)-1-j]
			}
			n.recPos = 0
			n.playPos = 0
			n.primed = true
		}
		rewound := 0.0
		if n.primed && n.playPos < len(n.playBuf) {
			rewound = n.playBuf[n.playPos]
			n.playPos++
		}
		buf[i] = x + n.rev.ProcessSample(rewound)*wet
	}
}

func (n *reverseNode) dispose() {
	n.rev.Reset()
}

// ----- Stereo Width ----- //

// widthNode wraps the stereo widener for the mono graph: the input is
// decorrelated into a pseudo-stereo pair, widened, and folded back down.
// Its setter drives the width amount rather than a wet scalar.
type widthNode struct {
	w     *spatial.StereoWidener
	deco  *delay.Line
	width rampValue
	left  []float64
	right []float64
}

func buildWidthNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := spatial.NewStereoWidener(sampleRate)
	if err != nil {
		return nil, err
	}
	deco, err := delay.New(sampleRate / 10)
	if err != nil {
		return nil, err
	}
	n := &widthNode{w: w, deco: deco}
	n.width.init(1)
	return n, nil
}

func (n *widthNode) set(v float64) {
	n.width.linear(defaultRampMs, lerp(v, 1, 4))
}

func (n *widthNode) setParam(key string, value float64) bool {
	if key == "width" {
		n.width.init(clampFloat(value, 0, 4))
		return true
	}
	return false
}

func (n *widthNode) process(buf []float64) {
	count := len(buf)
	if len(n.left) < count {
		n.left = make([]float64, count)
		n.right = make([]float64, count)
	}
	_ = n.w.SetWidth(clampFloat(n.width.advance(count), 0, 4))
	left := n.left[:count]
	right := n.right[:count]
	decoSamples := int(0.007 * sampleRate)
	for i := range buf {
		n.deco.Write(buf[i])
		left[i] = buf[i]
		right[i] = n.deco.Read(decoSamples)
	}
	_ = n.w.ProcessStereoInPlace(left, right)
	for i := range buf {
		buf[i] = (left[i] + right[i]) * 0.5
	}
}

func (n *widthNode) dispose() {
	n.w.Reset()
	n.deco.Reset()
}

// ----- Ambient Texture ----- //

// textureNode mixes a slowly breathing filtered-noise layer under the dry
// signal. Its setter drives the layer level.
type textureNode struct {
	chain    *biquad.Chain
	rng      *rand.Rand
	lfoPhase float64
	level    rampValue
	texBuf   []float64
}

func buildTextureNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := &textureNode{
		chain: biquad.NewChain([]biquad.Coefficients{
			design.Lowpass(800, 0.707, sampleRate),
			design.Lowpass(800, 0.707, sampleRate),
		}),
		rng: rand.New(rand.NewSource(71)),
	}
	n.level.init(0.15)
	return n, nil
}

func (n *textureNode) set(v float64) {
	n.level.linear(defaultRampMs, 0.3*v)
}

func (n *textureNode) setParam(key string, value float64) bool {
	if key == "level" {
		n.level.init(clamp01(value))
		return true
	}
	return false
}

func (n *textureNode) process(buf []float64) {
	count := len(buf)
	if len(n.texBuf) < count {
		n.texBuf = make([]float64, count)
	}
	level := n.level.advance(count)
	tex := n.texBuf[:count]
	for i := range tex {
		tex[i] = n.rng.Float64()*2 - 1
	}
	n.chain.ProcessBlock(tex)
	for i := range buf {
		breathe := 0.6 + 0.4*math.Sin(n.lfoPhase)
		n.lfoPhase += 2 * math.Pi * 0.1 * secPerSample
		buf[i] += tex[i] * level * breathe
	}
}

func (n *textureNode) dispose() {
	n.chain.Reset()
}
