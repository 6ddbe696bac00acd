// Package summarize condenses a finished transcript into meeting notes
// with an OpenAI-compatible chat endpoint.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxtail/voxtail/pkg/transcript"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = "You summarize meeting transcripts. Produce a short summary, " +
	"a bullet list of key points per speaker, and any action items. " +
	"Answer in the language the transcript is written in."

// Config carries the endpoint settings for a summarizer.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Summarizer turns transcript segments into prose notes.
type Summarizer struct {
	client *openai.Client
	model  string
}

func New(cfg Config) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarize: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Summarizer{client: &client, model: model}, nil
}

// Summarize sends the rendered transcript to the model and returns its
// notes. An empty timeline is rejected before any request is made.
func (s *Summarizer) Summarize(ctx context.Context, segments []transcript.Segment) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("summarize: transcript is empty")
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Render(segments)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarize: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Render flattens segments into the speaker-prefixed form sent to the
// model, one utterance per line.
func Render(segments []transcript.Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s: %s\n", seg.Speaker, seg.Text)
	}
	return b.String()
}
