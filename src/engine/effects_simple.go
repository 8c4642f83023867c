package engine

import (
	"context"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/filter/moog"
)

// Maximum feedback for the delay family. One policy for every delaying
// effect instead of per-effect magic scalars.
const maxDelayFeedback = 0.9

// ----- Echo ----- //

type echoNode struct {
	d        *effects.Delay
	time     rampValue // seconds
	feedback rampValue
	wet      rampValue
}

func buildEchoNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := effects.NewDelay(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &echoNode{d: d}
	n.time.init(0.3)
	n.feedback.init(0.4)
	n.wet.init(0.3)
	return n, nil
}

func (n *echoNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *echoNode) setParam(key string, value float64) bool {
	switch key {
	case "time":
		n.time.init(clampFloat(value, 0.01, 2))
	case "feedback":
		n.feedback.init(clampFloat(value, 0, maxDelayFeedback))
	case "wet":
		n.wet.init(clamp01(value))
	default:
		return false
	}
	return true
}

func (n *echoNode) process(buf []float64) {
	count := len(buf)
	_ = n.d.SetTime(n.time.advance(count))
	_ = n.d.SetFeedback(clampFloat(n.feedback.advance(count), 0, maxDelayFeedback))
	_ = n.d.SetMix(clamp01(n.wet.advance(count)))
	n.d.ProcessInPlace(buf)
}

func (n *echoNode) dispose() {
	n.d.Reset()
}

// ----- Filter ----- //

type filterNode struct {
	f    *moog.Filter
	freq rampValue // Hz
	q    rampValue
}

func buildFilterNode(ctx context.Context) (effectNode, error) {
	return newFilterNode(ctx, 1200)
}

// buildDefaultNode is the fallback for unknown effect kinds: a filter with
// the cutoff fully open, audibly transparent but still a valid adapter.
func buildDefaultNode(ctx context.Context) (effectNode, error) {
	return newFilterNode(ctx, 18000)
}

func newFilterNode(ctx context.Context, cutoff float64) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := moog.New(sampleRate, moog.WithCutoffHz(cutoff), moog.WithResonance(0.7))
	if err != nil {
		return nil, err
	}
	n := &filterNode{f: f}
	n.freq.init(cutoff)
	n.q.init(0.7)
	return n, nil
}

func (n *filterNode) set(v float64) {
	n.freq.linear(defaultRampMs, MapFrequency(v, 80, 12000))
}

func (n *filterNode) setParam(key string, value float64) bool {
	switch key {
	case "frequency":
		n.freq.init(clampFloat(value, 20, 20000))
	case "q":
		n.q.init(clampFloat(value, 0, 4))
	default:
		return false
	}
	return true
}

func (n *filterNode) process(buf []float64) {
	count := len(buf)
	_ = n.f.SetCutoffHz(clampFloat(n.freq.advance(count), 1, 20000))
	_ = n.f.SetResonance(clampFloat(n.q.advance(count), 0, 4))
	n.f.ProcessInPlace(buf)
}

func (n *filterNode) dispose() {
	n.f.Reset()
}

// ----- 3-Band EQ ----- //

type eq3Node struct {
	chain    *biquad.Chain
	lowGain  rampValue // dB
	midGain  rampValue // dB
	highGain rampValue // dB
	applied  [3]float64
}

const (
	eqLowFreq  = 250.0
	eqMidFreq  = 1000.0
	eqHighFreq = 4000.0
)

func buildEQNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := &eq3Node{}
	n.lowGain.init(0)
	n.midGain.init(0)
	n.highGain.init(0)
	n.chain = biquad.NewChain(eqCoefficients(0, 0, 0))
	return n, nil
}

func eqCoefficients(low, mid, high float64) []biquad.Coefficients {
	return []biquad.Coefficients{
		design.LowShelf(eqLowFreq, low, 0.707, sampleRate),
		design.Peak(eqMidFreq, mid, 0.9, sampleRate),
		design.HighShelf(eqHighFreq, high, 0.707, sampleRate),
	}
}

// set tilts the spectrum: low shelf +6..-6 dB against high shelf -6..+6 dB.
func (n *eq3Node) set(v float64) {
	n.lowGain.linear(defaultRampMs, MapGain(v, 6, -6))
	n.highGain.linear(defaultRampMs, MapGain(v, -6, 6))
}

func (n *eq3Node) setParam(key string, value float64) bool {
	switch key {
	case "low":
		n.lowGain.init(clampFloat(value, -24, 24))
	case "mid":
		n.midGain.init(clampFloat(value, -24, 24))
	case "high":
		n.highGain.init(clampFloat(value, -24, 24))
	default:
		return false
	}
	return true
}

func (n *eq3Node) process(buf []float64) {
	count := len(buf)
	low := n.lowGain.advance(count)
	mid := n.midGain.advance(count)
	high := n.highGain.advance(count)
	if [3]float64{low, mid, high} != n.applied {
		for i, c := range eqCoefficients(low, mid, high) {
			n.chain.Section(i).Coefficients = c
		}
		n.chain.SetGain(1)
		n.applied = [3]float64{low, mid, high}
	}
	n.chain.ProcessBlock(buf)
}

func (n *eq3Node) dispose() {
	n.chain.Reset()
}

// ----- Distortion ----- //

type distortionNode struct {
	d      *effects.Distortion
	amount rampValue // 0-1
	wet    rampValue
}

func buildDistortionNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := effects.NewDistortion(sampleRate,
		effects.WithDistortionMode(effects.DistortionModeTanh))
	if err != nil {
		return nil, err
	}
	n := &distortionNode{d: d}
	n.amount.init(0.3)
	n.wet.init(0.5)
	return n, nil
}

func (n *distortionNode) set(v float64) {
	n.amount.linear(defaultRampMs, v)
}

func (n *distortionNode) setParam(key string, value float64) bool {
	switch key {
	case "amount":
		n.amount.init(clamp01(value))
	case "wet":
		n.wet.init(clamp01(value))
	default:
		return false
	}
	return true
}

func (n *distortionNode) process(buf []float64) {
	count := len(buf)
	amount := clamp01(n.amount.advance(count))
	_ = n.d.SetDrive(lerp(amount, 1, 10))
	_ = n.d.SetMix(clamp01(n.wet.advance(count)))
	n.d.ProcessInPlace(buf)
}

func (n *distortionNode) dispose() {
	n.d.Reset()
}

// ----- Bit Crusher ----- //

type crushNode struct {
	bc     *effects.BitCrusher
	amount rampValue
}

func buildCrushNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bc, err := effects.NewBitCrusher(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &crushNode{bc: bc}
	n.amount.init(0.4)
	return n, nil
}

func (n *crushNode) set(v float64) {
	n.amount.linear(defaultRampMs, v)
}

func (n *crushNode) setParam(key string, value float64) bool {
	if key == "amount" {
		n.amount.init(clamp01(value))
		return true
	}
	return false
}

func (n *crushNode) process(buf []float64) {
	amount := clamp01(n.amount.advance(len(buf)))
	_ = n.bc.SetBitDepth(16 - amount*12)
	_ = n.bc.SetMix(1)
	n.bc.ProcessInPlace(buf)
}

func (n *crushNode) dispose() {
	n.bc.Reset()
}

// ----- Chorus ----- //

type chorusNode struct {
	c   *modulation.Chorus
	wet rampValue
}

func buildChorusNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := modulation.NewChorus()
	if err != nil {
		return nil, err
	}
	if err := c.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	n := &chorusNode{c: c}
	n.wet.init(0.5)
	return n, nil
}

func (n *chorusNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *chorusNode) setParam(key string, value float64) bool {
	switch key {
	case "wet":
		n.wet.init(clamp01(value))
	case "rate":
		_ = n.c.SetSpeedHz(clampFloat(value, 0.05, 10))
	default:
		return false
	}
	return true
}

func (n *chorusNode) process(buf []float64) {
	_ = n.c.SetMix(clamp01(n.wet.advance(len(buf))))
	n.c.ProcessInPlace(buf)
}

func (n *chorusNode) dispose() {
	n.c.Reset()
}

// ----- Flanger ----- //

type flangerNode struct {
	f   *modulation.Flanger
	wet rampValue
}

func buildFlangerNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := modulation.NewFlanger(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &flangerNode{f: f}
	n.wet.init(0.5)
	return n, nil
}

func (n *flangerNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *flangerNode) setParam(key string, value float64) bool {
	switch key {
	case "wet":
		n.wet.init(clamp01(value))
	case "rate":
		_ = n.f.SetRateHz(clampFloat(value, 0.05, 5))
	default:
		return false
	}
	return true
}

func (n *flangerNode) process(buf []float64) {
	_ = n.f.SetMix(clamp01(n.wet.advance(len(buf))))
	_ = n.f.ProcessInPlace(buf)
}

func (n *flangerNode) dispose() {
	n.f.Reset()
}

// ----- Phaser ----- //

type phaserNode struct {
	p   *modulation.Phaser
	wet rampValue
}

func buildPhaserNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := modulation.NewPhaser(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &phaserNode{p: p}
	n.wet.init(0.5)
	return n, nil
}

func (n *phaserNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *phaserNode) setParam(key string, value float64) bool {
	switch key {
	case "wet":
		n.wet.init(clamp01(value))
	case "rate":
		_ = n.p.SetRateHz(clampFloat(value, 0.05, 5))
	default:
		return false
	}
	return true
}

func (n *phaserNode) process(buf []float64) {
	_ = n.p.SetMix(clamp01(n.wet.advance(len(buf))))
	_ = n.p.ProcessInPlace(buf)
}

func (n *phaserNode) dispose() {
	n.p.Reset()
}

// ----- Tremolo ----- //

type tremoloNode struct {
	t     *modulation.Tremolo
	depth rampValue
}

func buildTremoloNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := modulation.NewTremolo(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &tremoloNode{t: t}
	n.depth.init(0.6)
	return n, nil
}

func (n *tremoloNode) set(v float64) {
	n.depth.linear(defaultRampMs, v)
}

func (n *tremoloNode) setParam(key string, value float64) bool {
	switch key {
	case "depth":
		n.depth.init(clamp01(value))
	case "rate":
		_ = n.t.SetRateHz(clampFloat(value, 0.1, 20))
	default:
		return false
	}
	return true
}

func (n *tremoloNode) process(buf []float64) {
	_ = n.t.SetDepth(clamp01(n.depth.advance(len(buf))))
	_ = n.t.ProcessInPlace(buf)
}

func (n *tremoloNode) dispose() {
	n.t.Reset()
}

// ----- Ring Modulator ----- //

type ringModNode struct {
	r   *modulation.RingModulator
	wet rampValue
}

func buildRingModNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := modulation.NewRingModulator(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &ringModNode{r: r}
	n.wet.init(0.5)
	return n, nil
}

func (n *ringModNode) set(v float64) {
	n.wet.linear(defaultRampMs, v)
}

func (n *ringModNode) setParam(key string, value float64) bool {
	switch key {
	case "wet":
		n.wet.init(clamp01(value))
	case "carrier":
		_ = n.r.SetCarrierHz(clampFloat(value, 1, 8000))
	default:
		return false
	}
	return true
}

func (n *ringModNode) process(buf []float64) {
	_ = n.r.SetMix(clamp01(n.wet.advance(len(buf))))
	n.r.ProcessInPlace(buf)
}

func (n *ringModNode) dispose() {
	n.r.Reset()
}

// ----- Compressor ----- //

type compressorNode struct {
	c         *dynamics.Compressor
	threshold rampValue // dB
	ratio     rampValue
}

func buildCompressorNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &compressorNode{c: c}
	n.threshold.init(-18)
	n.ratio.init(3)
	return n, nil
}

func (n *compressorNode) set(v float64) {
	n.threshold.linear(defaultRampMs, MapGain(v, -10, -40))
	n.ratio.linear(defaultRampMs, MapRatio(v, 2, 10))
}

func (n *compressorNode) setParam(key string, value float64) bool {
	switch key {
	case "threshold":
		n.threshold.init(clampFloat(value, -60, 0))
	case "ratio":
		n.ratio.init(clampFloat(value, 1, 20))
	default:
		return false
	}
	return true
}

func (n *compressorNode) process(buf []float64) {
	count := len(buf)
	_ = n.c.SetThreshold(clampFloat(n.threshold.advance(count), -60, 0))
	_ = n.c.SetRatio(clampFloat(n.ratio.advance(count), 1, 20))
	n.c.ProcessInPlace(buf)
}

func (n *compressorNode) dispose() {
	n.c.Reset()
}

// ----- Space (FDN Reverb) ----- //

type spaceNode struct {
	r     *reverb.FDNReverb
	decay rampValue // seconds
	wet   rampValue
	dry   rampValue
}

func buildSpaceNode(ctx context.Context) (effectNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := reverb.NewFDNReverb(sampleRate)
	if err != nil {
		return nil, err
	}
	n := &spaceNode{r: r}
	n.decay.init(2)
	n.wet.init(0.3)
	n.dry.init(0.85)
	return n, nil
}

func (n *spaceNode) set(v float64) {
	wet := 0.6 * v
	n.wet.linear(defaultRampMs, wet)
	n.dry.linear(defaultRampMs, 1-0.5*wet)
}

func (n *spaceNode) setParam(key string, value float64) bool {
	switch key {
	case "decay":
		n.decay.init(clampFloat(value, 0.1, 12))
	case "wet":
		n.wet.init(clamp01(value))
	case "dry":
		n.dry.init(clamp01(value))
	default:
		return false
	}
	return true
}

func (n *spaceNode) process(buf []float64) {
	count := len(buf)
	_ = n.r.SetRT60(clampFloat(n.decay.advance(count), 0.1, 12))
	_ = n.r.SetWet(clamp01(n.wet.advance(count)))
	_ = n.r.SetDry(clamp01(n.dry.advance(count)))
	n.r.ProcessInPlace(buf)
}

func (n *spaceNode) dispose() {
	n.r.Reset()
}
