package transcriber

import (
	"context"
	"os"
	"sync"
	"time"
)

// FakeTranscriber returns a fixed text or error and records every call.
type FakeTranscriber struct {
	text  string
	err   error
	delay time.Duration

	mu      sync.Mutex
	lang    string
	calls   []string
	existed []bool
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

// WithDelay makes each call take d, or until its context is cancelled.
func (f *FakeTranscriber) WithDelay(d time.Duration) *FakeTranscriber {
	f.delay = d
	return f
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) SetLanguage(lang string) {
	f.mu.Lock()
	f.lang = lang
	f.mu.Unlock()
}

func (f *FakeTranscriber) GetLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, path string) (*Result, error) {
	_, statErr := os.Stat(path)
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.existed = append(f.existed, statErr == nil)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text, Metrics: &NetworkMetrics{Total: f.delay}}, nil
}

// Calls returns the artifact paths passed to Transcribe.
func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ArtifactsExisted reports, per call, whether the file was on disk when
// Transcribe was invoked.
func (f *FakeTranscriber) ArtifactsExisted() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.existed...)
}
