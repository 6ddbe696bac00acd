// Package transcript renders a diarized session timeline as plain text
// or SubRip subtitles.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Word is a single recognized word with its time span in seconds
// relative to the start of the session.
type Word struct {
	Word  string
	Start float64
	End   float64
	Conf  float64
}

// Segment is one attributed utterance on the session timeline.
type Segment struct {
	Speaker string
	Text    string
	Start   float64
	End     float64
	Words   []Word
}

// Meta describes the session a transcript was produced from.
type Meta struct {
	Title       string
	GeneratedAt time.Time
	Elapsed     time.Duration
	Speakers    int
}

// Format selects a transcript output encoding.
type Format int

const (
	PlainText Format = iota
	SRT
)

func (f Format) String() string {
	switch f {
	case PlainText:
		return "txt"
	case SRT:
		return "srt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Ext returns the conventional file extension for the format,
// including the leading dot.
func (f Format) Ext() string {
	switch f {
	case SRT:
		return ".srt"
	default:
		return ".txt"
	}
}

// ParseFormat maps a user-supplied name to a Format. It accepts the
// names produced by String with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "txt", "text", "plain":
		return PlainText, nil
	case "srt":
		return SRT, nil
	default:
		return PlainText, fmt.Errorf("transcript: unknown format %q", s)
	}
}

// Write renders segments to w in the given format.
func Write(w io.Writer, f Format, meta Meta, segments []Segment) error {
	switch f {
	case SRT:
		return WriteSRT(w, segments)
	default:
		return WritePlainText(w, meta, segments)
	}
}

// WritePlainText writes a human-readable transcript. A short header
// names the session, when it was generated, its total length and the
// number of distinct speakers, followed by one block per segment.
func WritePlainText(w io.Writer, meta Meta, segments []Segment) error {
	title := meta.Title
	if title == "" {
		title = "Transcript"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title)
	if !meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated: %s\n", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Duration: %s\n", clock(meta.Elapsed.Seconds()))
	fmt.Fprintf(&b, "Speakers: %d\n\n", meta.Speakers)

	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s] [%s]\n%s\n\n", clock(seg.Start), seg.Speaker, seg.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSRT writes segments as SubRip subtitles: a 1-based cue index,
// a millisecond-precision time range and the text prefixed with the
// speaker label.
func WriteSRT(w io.Writer, segments []Segment) error {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n[%s] %s\n\n",
			i+1, srtTime(seg.Start), srtTime(seg.End), seg.Speaker, seg.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// clock formats seconds as HH:MM:SS.
func clock(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	s := int(sec)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// srtTime formats seconds as HH:MM:SS,mmm.
func srtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	ms := int(sec*1000 + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
