// Package capture abstracts live audio input devices (microphone and
// system loopback).
//
// A [Source] delivers raw device-format buffers from the audio subsystem's
// callback context. Callers must treat the callback as time-bounded: no
// blocking work beyond in-memory processing. Conversion to the canonical
// pipeline format is the normalizer's job, not the source's.
//
// The portaudio subpackage provides the real implementation; tests use
// in-process fakes.
package capture

// Format describes the native format of a capture source. Samples are
// 16-bit signed integers, interleaved when Channels > 1.
type Format struct {
	SampleRate int
	Channels   int
}

// Source is a single live audio input.
type Source interface {
	// Start begins capture. deliver is invoked from the device callback
	// context with one interleaved sample buffer per device period. The
	// buffer is only valid for the duration of the call.
	Start(deliver func(samples []int16)) error

	// Stop halts capture and releases the device. A callback already in
	// flight may still complete after Stop returns.
	Stop() error

	// Format returns the native format of the source.
	Format() Format
}

// Opener acquires capture sources. Acquisition failure is fatal to the
// session being started, so implementations should return descriptive
// errors rather than retrying.
type Opener interface {
	OpenMicrophone() (Source, error)
	OpenLoopback() (Source, error)
}

// Device describes an available input device, for listing purposes.
type Device struct {
	ID         int
	Name       string
	Channels   int
	SampleRate int

	// Loopback marks devices that record system output (monitor/loopback
	// endpoints) rather than a physical input.
	Loopback bool
}
