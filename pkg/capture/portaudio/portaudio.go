// Package portaudio implements capture sources on top of the PortAudio
// library.
//
// Microphones resolve to the default input device. System loopback resolves
// to the first input device that looks like a monitor/loopback endpoint
// (PulseAudio ".monitor" sources, WASAPI loopback endpoints, "Stereo Mix"
// style devices).
package portaudio

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/voxtail/voxtail/pkg/capture"
)

var (
	initOnce sync.Once
	initErr  error
)

// ensureInit initializes PortAudio once for the process. Terminate is never
// called; the library is released on process exit.
func ensureInit() error {
	initOnce.Do(func() {
		initErr = pa.Initialize()
	})
	if initErr != nil {
		return fmt.Errorf("portaudio: initialize: %w", initErr)
	}
	return nil
}

// ErrNoLoopbackDevice is returned when no monitor/loopback input device
// can be found on the system.
var ErrNoLoopbackDevice = errors.New("portaudio: no loopback capture device found")

// DefaultBufferDuration is the capture buffer period requested from the
// device when none is configured.
const DefaultBufferDuration = 100 * time.Millisecond

// Opener acquires PortAudio-backed capture sources.
type Opener struct {
	// BufferDuration is the requested device callback period.
	// Defaults to DefaultBufferDuration.
	BufferDuration time.Duration
}

var _ capture.Opener = (*Opener)(nil)

func (o *Opener) bufferDuration() time.Duration {
	if o.BufferDuration > 0 {
		return o.BufferDuration
	}
	return DefaultBufferDuration
}

// OpenMicrophone acquires the default input device.
func (o *Opener) OpenMicrophone() (capture.Source, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	dev, err := pa.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("portaudio: default input device: %w", err)
	}
	return newSource(dev, o.bufferDuration()), nil
}

// OpenLoopback acquires a system-output monitor device.
func (o *Opener) OpenLoopback() (capture.Source, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	devs, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	for _, dev := range devs {
		if dev.MaxInputChannels > 0 && isLoopbackName(dev.Name) {
			return newSource(dev, o.bufferDuration()), nil
		}
	}
	return nil, ErrNoLoopbackDevice
}

func isLoopbackName(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "monitor") ||
		strings.Contains(n, "loopback") ||
		strings.Contains(n, "stereo mix") ||
		strings.Contains(n, "what u hear")
}

// ListDevices enumerates input-capable devices.
func ListDevices() ([]capture.Device, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	devs, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	var out []capture.Device
	for i, dev := range devs {
		if dev.MaxInputChannels == 0 {
			continue
		}
		out = append(out, capture.Device{
			ID:         i,
			Name:       dev.Name,
			Channels:   dev.MaxInputChannels,
			SampleRate: int(dev.DefaultSampleRate),
			Loopback:   isLoopbackName(dev.Name),
		})
	}
	return out, nil
}

type source struct {
	dev    *pa.DeviceInfo
	period time.Duration
	format capture.Format

	mu     sync.Mutex
	stream *pa.Stream
}

func newSource(dev *pa.DeviceInfo, period time.Duration) *source {
	channels := 1
	if dev.MaxInputChannels >= 2 {
		channels = 2
	}
	return &source{
		dev:    dev,
		period: period,
		format: capture.Format{
			SampleRate: int(dev.DefaultSampleRate),
			Channels:   channels,
		},
	}
}

func (s *source) Format() capture.Format {
	return s.format
}

func (s *source) Start(deliver func(samples []int16)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return fmt.Errorf("portaudio: source %q already started", s.dev.Name)
	}

	frames := int(float64(s.format.SampleRate) * s.period.Seconds())
	params := pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   s.dev,
			Channels: s.format.Channels,
			Latency:  s.dev.DefaultHighInputLatency,
		},
		SampleRate:      float64(s.format.SampleRate),
		FramesPerBuffer: frames,
	}
	stream, err := pa.OpenStream(params, func(in []int16) {
		deliver(in)
	})
	if err != nil {
		return fmt.Errorf("portaudio: open %q: %w", s.dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio: start %q: %w", s.dev.Name, err)
	}
	s.stream = stream
	return nil
}

func (s *source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("portaudio: stop %q: %w", s.dev.Name, err)
	}
	return stream.Close()
}
