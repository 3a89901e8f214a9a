package audio

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/cwbudde/algo-dsp/dsp/signal"
)

// dcBlockCutoffHz is the corner frequency of the DC-block high-pass.
const dcBlockCutoffHz = 20.0

// Hook transforms a signal. Hooks return a new slice.
type Hook func(samples []float32) []float32

// ApplyHooks runs hooks in order.
func ApplyHooks(samples []float32, hooks ...Hook) []float32 {
	out := samples
	for _, hook := range hooks {
		out = hook(out)
	}

	return out
}

// DSPOptions selects the post-processing applied to synthesized speech.
type DSPOptions struct {
	Normalize bool
	DCBlock   bool
	FadeInMS  float64
	FadeOutMS float64
}

// Enabled reports whether any processing is requested.
func (o DSPOptions) Enabled() bool {
	return o.Normalize || o.DCBlock || o.FadeInMS > 0 || o.FadeOutMS > 0
}

// Hooks returns the processing chain for a signal at sampleRate.
func (o DSPOptions) Hooks(sampleRate int) []Hook {
	var hooks []Hook
	if o.DCBlock {
		hooks = append(hooks, func(s []float32) []float32 { return DCBlock(s, sampleRate) })
	}
	if o.Normalize {
		hooks = append(hooks, PeakNormalize)
	}
	if o.FadeInMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return FadeIn(s, sampleRate, o.FadeInMS) })
	}
	if o.FadeOutMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 { return FadeOut(s, sampleRate, o.FadeOutMS) })
	}
	return hooks
}

// Process applies o to c.
func (o DSPOptions) Process(c Clip) Clip {
	return Clip{Samples: ApplyHooks(c.Samples, o.Hooks(c.SampleRate)...), SampleRate: c.SampleRate}
}

// PeakNormalize scales samples so the peak amplitude reaches 1.0.
// Silence is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	out, err := signal.Normalize(toFloat64(samples), 1)
	if err != nil {
		return append([]float32(nil), samples...)
	}
	return toFloat32(out)
}

// DCBlock subtracts the mean and runs a second-order Butterworth
// high-pass at dcBlockCutoffHz to remove any remaining drift.
func DCBlock(samples []float32, sampleRate int) []float32 {
	if len(samples) == 0 || sampleRate <= 0 {
		return append([]float32(nil), samples...)
	}
	centred, err := signal.RemoveDC(toFloat64(samples))
	if err != nil {
		return append([]float32(nil), samples...)
	}
	hp := biquad.NewSection(design.Highpass(dcBlockCutoffHz, math.Sqrt2/2, float64(sampleRate)))
	hp.ProcessBlock(centred)
	return toFloat32(centred)
}

// FadeIn applies a linear fade-in ramp over the given duration in milliseconds.
func FadeIn(samples []float32, sampleRate int, ms float64) []float32 {
	out := append([]float32(nil), samples...)
	n := min(fadeLength(sampleRate, ms), len(out))
	for i := 0; i < n; i++ {
		out[i] *= float32(i) / float32(n)
	}
	return out
}

// FadeOut applies a linear fade-out ramp over the given duration in milliseconds.
func FadeOut(samples []float32, sampleRate int, ms float64) []float32 {
	out := append([]float32(nil), samples...)
	n := min(fadeLength(sampleRate, ms), len(out))
	start := len(out) - n
	for i := start; i < len(out); i++ {
		out[i] *= float32(len(out)-1-i) / float32(n)
	}
	return out
}

func fadeLength(sampleRate int, ms float64) int {
	if sampleRate <= 0 || ms <= 0 {
		return 0
	}
	return int(ms / 1000 * float64(sampleRate))
}

func toFloat64(s []float32) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

func toFloat32(s []float64) []float32 {
	out := make([]float32, len(s))
	for i, v := range s {
		out[i] = float32(v)
	}
	return out
}
