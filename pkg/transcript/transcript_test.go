package transcript

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

var sample = []Segment{
	{Speaker: "Speaker 1", Text: "hello there", Start: 0.5, End: 2.1},
	{Speaker: "Speaker 2", Text: "general greeting", Start: 3.0, End: 5.75},
	{Speaker: "Speaker 1", Text: "back to me", Start: 3661.2, End: 3663.9},
}

func TestWritePlainText(t *testing.T) {
	var b strings.Builder
	meta := Meta{
		Title:       "Standup",
		GeneratedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Elapsed:     61*time.Minute + 5*time.Second,
		Speakers:    2,
	}
	if err := WritePlainText(&b, meta, sample); err != nil {
		t.Fatal(err)
	}
	out := b.String()

	for _, want := range []string{
		"Standup\n",
		"Generated: 2024-03-01 09:30:00\n",
		"Duration: 01:01:05\n",
		"Speakers: 2\n",
		"[00:00:00] [Speaker 1]\nhello there\n",
		"[00:00:03] [Speaker 2]\ngeneral greeting\n",
		"[01:01:01] [Speaker 1]\nback to me\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePlainTextDefaults(t *testing.T) {
	var b strings.Builder
	if err := WritePlainText(&b, Meta{}, nil); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "Transcript\n") {
		t.Errorf("missing default title:\n%s", out)
	}
	if strings.Contains(out, "Generated:") {
		t.Errorf("zero timestamp should be omitted:\n%s", out)
	}
}

func TestWriteSRT(t *testing.T) {
	var b strings.Builder
	if err := WriteSRT(&b, sample); err != nil {
		t.Fatal(err)
	}
	want := "1\n" +
		"00:00:00,500 --> 00:00:02,100\n" +
		"[Speaker 1] hello there\n\n" +
		"2\n" +
		"00:00:03,000 --> 00:00:05,750\n" +
		"[Speaker 2] general greeting\n\n" +
		"3\n" +
		"01:01:01,200 --> 01:01:03,900\n" +
		"[Speaker 1] back to me\n\n"
	if got := b.String(); got != want {
		t.Errorf("srt output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

// parseSRTTime inverts the HH:MM:SS,mmm cue format back to seconds.
func parseSRTTime(t *testing.T, ts string) float64 {
	t.Helper()
	var h, m, s, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		t.Fatalf("malformed timestamp %q: %v", ts, err)
	}
	return float64(h*3600+m*60+s) + float64(ms)/1000
}

func TestSRTTimestampsRecoverSeconds(t *testing.T) {
	segs := []Segment{
		{Speaker: "Speaker 1", Text: "a", Start: 0.001, End: 1.234},
		{Speaker: "Speaker 2", Text: "b", Start: 59.999, End: 61.5},
		{Speaker: "Speaker 1", Text: "c", Start: 3661.009, End: 3725.75},
	}
	var b strings.Builder
	if err := WriteSRT(&b, segs); err != nil {
		t.Fatal(err)
	}

	var ranges [][2]float64
	for _, line := range strings.Split(b.String(), "\n") {
		from, to, ok := strings.Cut(line, " --> ")
		if !ok {
			continue
		}
		ranges = append(ranges, [2]float64{parseSRTTime(t, from), parseSRTTime(t, to)})
	}
	if len(ranges) != len(segs) {
		t.Fatalf("found %d cue ranges, want %d", len(ranges), len(segs))
	}
	for i, seg := range segs {
		if d := math.Abs(ranges[i][0] - seg.Start); d > 0.0005 {
			t.Errorf("cue %d start recovered as %v, want %v", i+1, ranges[i][0], seg.Start)
		}
		if d := math.Abs(ranges[i][1] - seg.End); d > 0.0005 {
			t.Errorf("cue %d end recovered as %v, want %v", i+1, ranges[i][1], seg.End)
		}
	}
}

func TestSRTTimeRounding(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00,000"},
		{0.0004, "00:00:00,000"},
		{0.0006, "00:00:00,001"},
		{59.999, "00:00:59,999"},
		{60, "00:01:00,000"},
		{-1, "00:00:00,000"},
		{3599.5, "00:59:59,500"},
	}
	for _, tt := range tests {
		if got := srtTime(tt.sec); got != tt.want {
			t.Errorf("srtTime(%v) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"txt", PlainText, false},
		{"TEXT", PlainText, false},
		{".srt", SRT, false},
		{"srt", SRT, false},
		{"vtt", PlainText, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
