// Package pcm defines the canonical PCM interchange format used by the
// transcription pipeline: 16 kHz, 16-bit signed little-endian, mono.
//
// Every audio source (microphone, system loopback, file) is converted to
// this format before it reaches the recognizer. A [Frame] is an
// ownership-exclusive buffer: it is created by the normalizer, consumed
// exactly once downstream, and then dropped.
package pcm

import "time"

const (
	// SampleRate is the canonical sample rate in Hz.
	SampleRate = 16000

	// Depth is the canonical bit depth.
	Depth = 16

	// Channels is the canonical channel count.
	Channels = 1

	// BytesPerSample is the number of bytes per canonical sample.
	BytesPerSample = Depth / 8 * Channels

	// BytesRate is the number of canonical bytes per second.
	BytesRate = SampleRate * BytesPerSample
)

// Frame is a buffer of canonical PCM audio data.
type Frame []byte

// Samples returns the number of samples in the frame.
func (f Frame) Samples() int {
	return len(f) / BytesPerSample
}

// Duration returns the play time of the frame.
func (f Frame) Duration() time.Duration {
	return time.Duration(f.Samples()) * time.Second / SampleRate
}

// Int16 decodes the frame into int16 samples.
func (f Frame) Int16() []int16 {
	return DecodeInt16(f)
}

// FromInt16 encodes int16 samples into a canonical frame.
func FromInt16(samples []int16) Frame {
	return Frame(EncodeInt16(samples))
}

// BytesIn returns the number of canonical bytes in the given duration.
func BytesIn(d time.Duration) int {
	n := int(time.Duration(SampleRate) * d / time.Second)
	return n * BytesPerSample
}

// DecodeInt16 decodes little-endian 16-bit samples from b. A trailing odd
// byte is ignored.
func DecodeInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}

// EncodeInt16 encodes samples as little-endian 16-bit bytes.
func EncodeInt16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// FromUnit converts a normalized sample in [-1, 1] to int16 by linear
// scaling into the signed 16-bit range. Out-of-range input is clamped.
func FromUnit(v float64) int16 {
	if v >= 1 {
		return 32767
	}
	if v <= -1 {
		return -32768
	}
	return int16(v * 32767.0)
}

// DownmixStereo averages interleaved stereo samples into mono. A trailing
// unpaired sample is dropped.
func DownmixStereo(in []int16) []int16 {
	out := make([]int16, len(in)/2)
	for i := range out {
		out[i] = int16((int32(in[i*2]) + int32(in[i*2+1])) / 2)
	}
	return out
}

// MixAverage mixes two sample buffers into one by integer-averaging each
// overlapping sample pair. The result length is the shorter of the two
// inputs; excess samples from the longer buffer are dropped.
func MixAverage(a, b []int16) []int16 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16((int32(a[i]) + int32(b[i])) / 2)
	}
	return out
}
