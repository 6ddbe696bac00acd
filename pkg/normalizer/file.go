package normalizer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
	"github.com/voxtail/voxtail/pkg/audio/resampler"
)

// fileBlockDuration is the fixed block size read from file sources,
// expressed in source-side play time.
const fileBlockDuration = 4096 // frames per block

// fileSource reads successive blocks of normalized samples from a file.
type fileSource interface {
	format() resampler.Format

	// readBlock returns up to one block of interleaved samples in [-1, 1].
	// io.EOF marks stream exhaustion; a non-empty block may accompany it.
	readBlock() ([]float64, error)

	close() error
}

// openFileSource opens path with a decoder picked by file extension.
// Supported: .wav (PCM), .mp3, and raw canonical PCM (.pcm, .raw).
func openFileSource(path string) (fileSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return openWav(path)
	case ".mp3":
		return openMP3(path)
	case ".pcm", ".raw":
		return openRaw(path)
	}
	return nil, fmt.Errorf("normalizer: unsupported file type %q", filepath.Ext(path))
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

type wavSource struct {
	f     *os.File
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float64
}

func openWav(path string) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalizer: open %s: %w", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("normalizer: %s is not a valid WAV file", path)
	}
	if dec.WavAudioFormat != 1 {
		f.Close()
		return nil, fmt.Errorf("normalizer: %s: unsupported WAV encoding %d (PCM only)", path, dec.WavAudioFormat)
	}
	channels := int(dec.NumChans)
	if channels < 1 || channels > 2 {
		f.Close()
		return nil, fmt.Errorf("normalizer: %s: unsupported channel count %d", path, channels)
	}

	return &wavSource{
		f:   f,
		dec: dec,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(dec.SampleRate),
			},
			Data:           make([]int, fileBlockDuration*channels),
			SourceBitDepth: int(dec.BitDepth),
		},
		scale: float64(int64(1) << (dec.BitDepth - 1)),
	}, nil
}

func (s *wavSource) format() resampler.Format {
	return resampler.Format{
		SampleRate: int(s.dec.SampleRate),
		Stereo:     s.dec.NumChans == 2,
	}
}

func (s *wavSource) readBlock() ([]float64, error) {
	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(s.buf.Data[i]) / s.scale
	}
	return out, err
}

func (s *wavSource) close() error {
	return s.f.Close()
}

// mp3Source decodes MP3 to 16-bit stereo at the file's sample rate.
type mp3Source struct {
	f   *os.File
	dec *mp3.Decoder
	buf []byte
}

func openMP3(path string) (*mp3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalizer: open %s: %w", path, err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("normalizer: decode %s: %w", path, err)
	}
	return &mp3Source{
		f:   f,
		dec: dec,
		buf: make([]byte, fileBlockDuration*4), // stereo, 2 bytes per sample
	}, nil
}

func (s *mp3Source) format() resampler.Format {
	return resampler.Format{SampleRate: s.dec.SampleRate(), Stereo: true}
}

func (s *mp3Source) readBlock() ([]float64, error) {
	n, err := io.ReadFull(s.dec, s.buf)
	samples := pcm.DecodeInt16(s.buf[:n])
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v) / 32768.0
	}
	return out, err
}

func (s *mp3Source) close() error {
	return s.f.Close()
}

// rawSource reads headerless canonical PCM (16 kHz, 16-bit LE, mono).
type rawSource struct {
	f   *os.File
	buf []byte
}

func openRaw(path string) (*rawSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("normalizer: open %s: %w", path, err)
	}
	return &rawSource{f: f, buf: make([]byte, fileBlockDuration*pcm.BytesPerSample)}, nil
}

func (s *rawSource) format() resampler.Format {
	return resampler.Format{SampleRate: pcm.SampleRate}
}

func (s *rawSource) readBlock() ([]float64, error) {
	n, err := io.ReadFull(s.f, s.buf)
	samples := pcm.DecodeInt16(s.buf[:n])
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v) / 32768.0
	}
	return out, err
}

func (s *rawSource) close() error {
	return s.f.Close()
}
