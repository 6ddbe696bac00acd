package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxtail/voxtail/pkg/transcript"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New accepted empty config")
	}
}

func TestRender(t *testing.T) {
	got := Render([]transcript.Segment{
		{Speaker: "Speaker 1", Text: "hello"},
		{Speaker: "Speaker 2", Text: "hi there"},
	})
	want := "Speaker 1: hello\nSpeaker 2: hi there\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s, err := New(Config{APIKey: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Summarize(context.Background(), nil); err == nil {
		t.Fatal("Summarize accepted empty transcript")
	}
}

func TestSummarize(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
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
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "Short meeting."}}]}`))
	}))
	defer srv.Close()

	s, err := New(Config{APIKey: "test", BaseURL: srv.URL, Model: "test-model"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Summarize(context.Background(), []transcript.Segment{
		{Speaker: "Speaker 1", Text: "let us keep this short"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Short meeting." {
		t.Errorf("summary = %q", out)
	}
	if gotBody.Model != "test-model" {
		t.Errorf("model = %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || !strings.Contains(gotBody.Messages[1].Content, "keep this short") {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}
