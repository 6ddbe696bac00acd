// Package resampler converts arbitrary 16-bit PCM input to the canonical
// pipeline format (see pkg/audio/pcm).
//
// Unlike a pull-style io.Reader wrapper, the [Converter] is push-driven:
// audio device callbacks and file readers hand it one buffer at a time and
// receive the converted canonical frame back. This keeps per-callback work
// bounded and in-memory only.
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
)

// Format describes the source audio format. Samples are 16-bit signed
// integers; Stereo selects interleaved two-channel input.
type Format struct {
	// SampleRate is the source sample rate in Hz (e.g. 44100, 48000).
	SampleRate int

	// Stereo indicates interleaved stereo input; mono if false.
	Stereo bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// String returns a human-readable description of the format.
func (f Format) String() string {
	ch := "mono"
	if f.Stereo {
		ch = "stereo"
	}
	return fmt.Sprintf("%d Hz %s", f.SampleRate, ch)
}

// Converter converts source-format sample buffers to canonical frames.
// It keeps resampler state across calls, so a single Converter must only
// be fed one continuous stream. Methods are not safe for concurrent use;
// each audio source owns its own Converter.
type Converter struct {
	src Format
	rs  resampling.Resampler
}

// NewConverter creates a Converter from the source format to the canonical
// format. When the source rate already matches the canonical rate, no
// resampler state is allocated and conversion reduces to a channel downmix.
func NewConverter(src Format) (*Converter, error) {
	if src.SampleRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid source sample rate %d", src.SampleRate)
	}

	c := &Converter{src: src}
	if src.SampleRate != pcm.SampleRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(src.SampleRate),
			OutputRate: float64(pcm.SampleRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		c.rs = rs
	}
	return c, nil
}

// Source returns the source format of the converter.
func (c *Converter) Source() Format {
	return c.src
}

// Convert converts one buffer of source samples to a canonical frame.
// The returned frame may be empty while the resampler accumulates enough
// input to produce output.
func (c *Converter) Convert(in []int16) (pcm.Frame, error) {
	if c.src.Stereo {
		in = pcm.DownmixStereo(in)
	}
	if c.rs == nil {
		return pcm.FromInt16(in), nil
	}

	unit := make([]float64, len(in))
	for i, s := range in {
		unit[i] = float64(s) / 32768.0
	}
	return c.convertUnit(unit)
}

// ConvertUnit converts one buffer of normalized samples in [-1, 1] to a
// canonical frame. Used by file sources that decode to floating point.
func (c *Converter) ConvertUnit(in []float64) (pcm.Frame, error) {
	if c.src.Stereo {
		mono := make([]float64, len(in)/2)
		for i := range mono {
			mono[i] = (in[i*2] + in[i*2+1]) / 2
		}
		in = mono
	}
	if c.rs == nil {
		out := make([]int16, len(in))
		for i, v := range in {
			out[i] = pcm.FromUnit(v)
		}
		return pcm.FromInt16(out), nil
	}
	return c.convertUnit(in)
}

func (c *Converter) convertUnit(in []float64) (pcm.Frame, error) {
	out, err := c.rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	samples := make([]int16, len(out))
	for i, v := range out {
		samples[i] = pcm.FromUnit(v)
	}
	return pcm.FromInt16(samples), nil
}
