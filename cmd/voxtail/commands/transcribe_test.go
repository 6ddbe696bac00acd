package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxtail/voxtail/cmd/voxtail/internal/config"
	"github.com/voxtail/voxtail/pkg/transcript"
)

func TestPickFormat(t *testing.T) {
	globalConfig = config.Default()

	tests := []struct {
		name string
		flag string
		out  string
		want transcript.Format
	}{
		{"flag wins", "srt", "out.txt", transcript.SRT},
		{"extension", "", "meeting.srt", transcript.SRT},
		{"unknown extension falls back", "", "meeting.out", transcript.PlainText},
		{"config default", "", "", transcript.PlainText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickFormat(tt.flag, tt.out)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("pickFormat(%q, %q) = %v, want %v", tt.flag, tt.out, got, tt.want)
			}
		})
	}

	if _, err := pickFormat("vtt", ""); err == nil {
		t.Error("unknown flag format accepted")
	}
}

func TestPrintSummaryRequiresAPIKey(t *testing.T) {
	globalConfig = config.Default()

	err := printSummary(context.Background(), &strings.Builder{}, []transcript.Segment{
		{Speaker: "Speaker 1", Text: "hello"},
	})
	if err == nil {
		t.Fatal("printSummary succeeded without an api key")
	}
}

func TestPrintSummary(t *testing.T) {
	var gotBody struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "Quick sync, no blockers."}}]}`))
	}))
	defer srv.Close()

	globalConfig = config.Default()
	globalConfig.OpenAI = config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL}

	var out strings.Builder
	err := printSummary(context.Background(), &out, []transcript.Segment{
		{Speaker: "Speaker 1", Text: "daily sync"},
		{Speaker: "Speaker 2", Text: "nothing blocking"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Quick sync, no blockers.") {
		t.Errorf("notes missing from output:\n%s", out.String())
	}
	if len(gotBody.Messages) != 2 || !strings.Contains(gotBody.Messages[1].Content, "Speaker 2: nothing blocking") {
		t.Errorf("request messages = %+v", gotBody.Messages)
	}
}

func TestFirstOf(t *testing.T) {
	if got := firstOf("", "b", "c"); got != "b" {
		t.Errorf("firstOf = %q", got)
	}
	if got := firstOf("", ""); got != "" {
		t.Errorf("firstOf = %q", got)
	}
}
