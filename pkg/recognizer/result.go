package recognizer

import (
	"encoding/json"
	"strings"
)

// Word is one recognized word with its time span and confidence.
type Word struct {
	Word  string
	Start float64 // seconds from session start
	End   float64
	Conf  float64 // in [0, 1]
}

// Segment is a finalized utterance, before speaker labeling. Start and End
// are zero when the engine produced no word timings; the orchestrator
// estimates them in that case.
type Segment struct {
	Text  string
	Start float64
	End   float64
	Words []Word

	// Embedding is the speaker voice vector for the utterance, when a
	// speaker model is loaded. Nil otherwise.
	Embedding []float32
}

// engineRecord is the superset of result shapes engines emit. Every field
// except the text is optional; presence is checked explicitly rather than
// assumed per record kind.
type engineRecord struct {
	Text    *string      `json:"text"`
	Partial *string      `json:"partial"`
	Result  []wordRecord `json:"result"`
	Spk     []float32    `json:"spk"`
}

type wordRecord struct {
	Word  string   `json:"word"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Conf  *float64 `json:"conf"`
}

func parseRecord(raw []byte) (engineRecord, error) {
	var rec engineRecord
	err := json.Unmarshal(raw, &rec)
	return rec, err
}

// partialText extracts the in-progress text of a partial record. Reports
// false for empty or whitespace-only text, which is suppressed.
func (r engineRecord) partialText() (string, bool) {
	var text string
	switch {
	case r.Partial != nil:
		text = *r.Partial
	case r.Text != nil:
		text = *r.Text
	default:
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// segment builds a finalized Segment from the record. Reports false when
// the record carries no usable text. With word timings present, the
// segment span is exactly the span of its words.
func (r engineRecord) segment() (Segment, bool) {
	if r.Text == nil || strings.TrimSpace(*r.Text) == "" {
		return Segment{}, false
	}

	seg := Segment{Text: *r.Text}
	if len(r.Spk) > 0 {
		seg.Embedding = r.Spk
	}
	for i, w := range r.Result {
		conf := 1.0
		if w.Conf != nil {
			conf = *w.Conf
		}
		seg.Words = append(seg.Words, Word{
			Word:  w.Word,
			Start: w.Start,
			End:   w.End,
			Conf:  conf,
		})
		if i == 0 || w.Start < seg.Start {
			seg.Start = w.Start
		}
		if w.End > seg.End {
			seg.End = w.End
		}
	}
	return seg, true
}
