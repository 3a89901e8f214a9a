// Package audio decodes, joins, filters and re-encodes the mono 16-bit
// WAV clips produced by the speech synthesizer.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/cwbudde/wav"
)

// WAV format accepted from and written for speech output. espeak-ng
// writes 22050 Hz; other rates are carried through unchanged.
const (
	DefaultSampleRate = 22050
	ExpectedChannels  = 1
	ExpectedBitDepth  = 16
)

// ErrFormatMismatch is returned when a WAV does not have the expected
// channel count or bit depth, or when clips of different rates are joined.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// Clip is a mono PCM signal in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the playing time of c.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// DecodeWAV decodes WAV bytes into a Clip. The data must be mono 16-bit
// PCM; any sample rate is accepted.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid WAV file")
	}

	if dec.NumChans != ExpectedChannels {
		return Clip{}, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, ExpectedChannels)
	}
	if dec.BitDepth != ExpectedBitDepth {
		return Clip{}, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, ExpectedBitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("reading PCM data: %w", err)
	}

	return Clip{Samples: buf.Data, SampleRate: int(dec.SampleRate)}, nil
}

// Concat joins clips end to end. All clips must share one sample rate.
func Concat(clips ...Clip) (Clip, error) {
	if len(clips) == 0 {
		return Clip{}, errors.New("no clips to join")
	}

	rate := clips[0].SampleRate
	n := 0
	for i, c := range clips {
		if c.SampleRate != rate {
			return Clip{}, fmt.Errorf("%w: clip %d has sample rate %d, want %d", ErrFormatMismatch, i+1, c.SampleRate, rate)
		}
		n += len(c.Samples)
	}

	out := make([]float32, 0, n)
	for _, c := range clips {
		out = append(out, c.Samples...)
	}
	return Clip{Samples: out, SampleRate: rate}, nil
}
