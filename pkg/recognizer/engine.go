package recognizer

// Engine is a stateful streaming speech recognition engine. Implementations
// accumulate audio into utterances bounded by silence or engine-internal
// heuristics and report results as JSON records (see result.go for the
// record shapes the adapter understands).
//
// An Engine is driven from a single goroutine; it does not need to be safe
// for concurrent use.
type Engine interface {
	// AcceptWaveform feeds one buffer of canonical PCM. It reports true
	// when the engine has concluded the current utterance, after which
	// Result holds the finalized record and engine utterance state resets
	// implicitly for the next one.
	AcceptWaveform(pcm []byte) (bool, error)

	// Result returns the finalized-utterance record. Valid after
	// AcceptWaveform reported true.
	Result() []byte

	// PartialResult returns the in-progress record for the current
	// utterance.
	PartialResult() []byte

	// FinalResult flushes whatever utterance is in flight and returns its
	// record, resetting utterance state.
	FinalResult() []byte

	// Reset clears utterance state without reloading the model.
	Reset()

	// Close releases the engine and its model resources.
	Close() error
}

// Factory creates an Engine from model directories. speakerModelPath may be
// empty, in which case results carry no embedding vectors.
type Factory func(modelPath, speakerModelPath string) (Engine, error)
