package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"murmur/log"
)

type field struct{ key, value string }

// send uploads the artifact at path with the given form fields.
func (b *baseTranscriber) send(ctx context.Context, path string, fields ...field) (*TracedResponse, error) {
	if b.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	up, err := prepareUpload(path, b.format)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+up.ext)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.data); err != nil {
		return nil, err
	}

	writer.WriteField("model", b.model)
	for _, f := range fields {
		writer.WriteField(f.key, f.value)
	}
	if b.lang != "" {
		writer.WriteField("language", b.lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(b.name, resp.StatusCode, resp.Body)
	}

	b.logMetrics(up, resp.Metrics)
	return resp, nil
}

func (b *baseTranscriber) logMetrics(up *upload, m *NetworkMetrics) {
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	lm := log.Metrics{
		AudioLengthS: up.audioS,
		RawSizeKB:    float64(up.rawSize) / 1024,
		UploadSizeKB: float64(len(up.data)) / 1024,
		EncodeTimeMs: ms(up.encode),
	}
	if up.rawSize > 0 {
		lm.CompressionPct = (1 - float64(len(up.data))/float64(up.rawSize)) * 100
	}
	var reused bool
	var tlsProto string
	if m != nil {
		lm.DNSTimeMs = ms(m.DNS)
		lm.TLSTimeMs = ms(m.TLS)
		lm.TTFBMs = ms(m.TTFB)
		lm.TotalTimeMs = ms(m.Total)
		reused, tlsProto = m.ConnReused, m.TLSProtocol
	}
	log.TranscriptionMetrics(lm, up.ext, b.name, reused, tlsProto)
}

type transcript struct {
	text     string
	duration float64
}

// decodeTranscript reads a successful answer. A body that is not JSON at
// all is taken as the bare transcript.
func decodeTranscript(body []byte) (transcript, error) {
	var payload struct {
		Text     *string `json:"text"`
		Duration float64 `json:"duration"`
	}
	var t transcript
	err := json.Unmarshal(body, &payload)
	switch {
	case err == nil && payload.Text == nil:
		return t, fmt.Errorf("%w: no text field", ErrInvalidResponse)
	case err == nil:
		t.text, t.duration = *payload.Text, payload.Duration
	case json.Valid(body), !utf8.Valid(body), len(bytes.TrimSpace(body)) == 0:
		return t, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	default:
		t.text = string(body)
	}
	t.text = strings.TrimSpace(t.text)
	if t.text == "" {
		return t, ErrEmptyTranscription
	}
	return t, nil
}
