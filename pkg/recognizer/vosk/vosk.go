// Package vosk provides a recognizer engine backed by the Vosk speech
// recognition toolkit.
//
// Models are plain directories on disk; provisioning them is the caller's
// problem. When a speaker model directory is supplied, finalized results
// carry an x-vector embedding in their "spk" field.
package vosk

import (
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
	"github.com/voxtail/voxtail/pkg/recognizer"
)

func init() {
	// Vosk logs model internals at startup; keep it quiet.
	vosk.SetLogLevel(-1)
}

// NewEngine loads the model directories and creates a streaming
// recognizer at the canonical sample rate. It is a [recognizer.Factory].
func NewEngine(modelPath, speakerModelPath string) (recognizer.Engine, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk: model: %w", err)
	}
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %s: %w", modelPath, err)
	}

	var rec *vosk.VoskRecognizer
	if speakerModelPath != "" {
		if _, err := os.Stat(speakerModelPath); err != nil {
			return nil, fmt.Errorf("vosk: speaker model: %w", err)
		}
		spk, err := vosk.NewSpkModel(speakerModelPath)
		if err != nil {
			return nil, fmt.Errorf("vosk: load speaker model %s: %w", speakerModelPath, err)
		}
		rec, err = vosk.NewRecognizerSpk(model, float64(pcm.SampleRate), spk)
		if err != nil {
			return nil, fmt.Errorf("vosk: create recognizer: %w", err)
		}
	} else {
		rec, err = vosk.NewRecognizer(model, float64(pcm.SampleRate))
		if err != nil {
			return nil, fmt.Errorf("vosk: create recognizer: %w", err)
		}
	}
	rec.SetWords(1)

	return &engine{rec: rec}, nil
}

type engine struct {
	rec *vosk.VoskRecognizer
}

func (e *engine) AcceptWaveform(buf []byte) (bool, error) {
	return e.rec.AcceptWaveform(buf) != 0, nil
}

func (e *engine) Result() []byte {
	return []byte(e.rec.Result())
}

func (e *engine) PartialResult() []byte {
	return []byte(e.rec.PartialResult())
}

func (e *engine) FinalResult() []byte {
	return []byte(e.rec.FinalResult())
}

func (e *engine) Reset() {
	e.rec.Reset()
}

func (e *engine) Close() error {
	// Vosk's Go binding frees C resources via finalizers; dropping the
	// reference is sufficient.
	e.rec = nil
	return nil
}
