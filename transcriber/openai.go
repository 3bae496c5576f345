package transcriber

import (
	"context"
	"strings"
)

const openAIURL = "https://api.openai.com/v1/audio/transcriptions"

type OpenAI struct {
	baseTranscriber
}

// NewOpenAI checks the key shape up front so a bad key is reported at
// startup rather than on the first recording.
func NewOpenAI(opts Options) (*OpenAI, error) {
	b := newBase("openai", openAIURL, "gpt-4o-transcribe", opts)
	if b.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if !strings.HasPrefix(b.apiKey, "sk-") || len(b.apiKey) <= 10 {
		return nil, ErrInvalidAPIKey
	}
	return &OpenAI{baseTranscriber: b}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, path string) (*Result, error) {
	resp, err := o.send(ctx, path, field{"response_format", "json"})
	if err != nil {
		return nil, err
	}

	t, err := decodeTranscript(resp.Body)
	if err != nil {
		return nil, err
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:      t.text,
		Metrics:   resp.Metrics,
		RateLimit: remaining + "/" + limit,
	}, nil
}
