package transcriber

import (
	"context"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	baseTranscriber
}

func NewGroq(opts Options) (*Groq, error) {
	b := newBase("groq", groqURL, "whisper-large-v3-turbo", opts)
	if b.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Groq{baseTranscriber: b}, nil
}

func (g *Groq) Transcribe(ctx context.Context, path string) (*Result, error) {
	resp, err := g.send(ctx, path, field{"response_format", "verbose_json"})
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
		Duration:  t.duration,
	}, nil
}
