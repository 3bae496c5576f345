// Package transcriber uploads a finished recording to a hosted
// speech-to-text API and returns the text.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"murmur/log"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Result struct {
	Text      string
	Metrics   *NetworkMetrics
	RateLimit string
	Duration  float64
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	Transcribe(ctx context.Context, path string) (*Result, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider     string // "openai" or "groq"
	APIKey       string
	Model        string
	Language     string
	UploadFormat string // "wav" or "flac"
	Endpoint     string // overrides the provider URL
	Timeout      time.Duration
}

func New(opts Options) (Transcriber, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		return NewOpenAI(opts)
	case "groq":
		return NewGroq(opts)
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", opts.Provider)
	}
}

type baseTranscriber struct {
	name   string
	client *TracedClient
	apiURL string
	apiKey string
	model  string
	format string
	lang   string
}

func newBase(name, defaultURL, defaultModel string, opts Options) baseTranscriber {
	b := baseTranscriber{
		name:   name,
		client: NewTracedClient(opts.Timeout),
		apiURL: defaultURL,
		apiKey: strings.TrimSpace(opts.APIKey),
		model:  defaultModel,
		format: opts.UploadFormat,
		lang:   opts.Language,
	}
	if opts.Endpoint != "" {
		b.apiURL = opts.Endpoint
	}
	if opts.Model != "" {
		b.model = opts.Model
	}
	if b.format == "" {
		b.format = "wav"
	}
	return b
}

func (b *baseTranscriber) Name() string { return b.name }

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

// Warm opens a connection to the API ahead of the first upload.
func (b *baseTranscriber) Warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tlsTime, err := b.client.WarmConnection(ctx, b.apiURL)
	if err != nil {
		log.Warnf("%s: warming connection: %v", b.name, err)
		return
	}
	log.Infof("%s: connection warm (tls %s)", b.name, tlsTime.Round(time.Millisecond))
}

// Unavailable is a provider that could not be configured. Every call fails
// with the configuration error so the user sees it when they dictate.
type Unavailable struct {
	name string
	err  error
	lang string
}

func NewUnavailable(name string, err error) *Unavailable {
	return &Unavailable{name: name, err: err}
}

func (u *Unavailable) Name() string            { return u.name }
func (u *Unavailable) SetLanguage(lang string) { u.lang = lang }
func (u *Unavailable) GetLanguage() string     { return u.lang }

func (u *Unavailable) Transcribe(context.Context, string) (*Result, error) {
	return nil, u.err
}
