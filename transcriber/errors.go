package transcriber

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrMissingAPIKey      = errors.New("API key is not set")
	ErrInvalidAPIKey      = errors.New("API key has an invalid format")
	ErrFileRead           = errors.New("could not read audio file")
	ErrNoData             = errors.New("audio file has no samples")
	ErrNetwork            = errors.New("network error")
	ErrInvalidResponse    = errors.New("invalid response from server")
	ErrEmptyTranscription = errors.New("no speech recognized")
	ErrUnsupportedUpload  = errors.New("unsupported upload format")
)

// APIError is a non-200 answer from the provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.Status, e.Message)
}

func parseAPIError(provider string, status int, body []byte) *APIError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	msg = truncate(msg, maxMessageLen)
	return &APIError{Provider: provider, Status: status, Message: msg}
}

const maxMessageLen = 300

// truncate cuts msg to at most limit bytes without splitting a rune.
func truncate(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

// Describe gives a short title and message suitable for a notification.
func Describe(err error) (title, message string) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrEmptyTranscription):
		return "Empty Transcription", "No speech was recognized in the recording."
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrInvalidAPIKey):
		return "API Key Problem", err.Error()
	case errors.Is(err, ErrNetwork):
		return "Network Error", err.Error()
	case errors.As(err, &apiErr):
		return "Transcription Failed", apiErr.Error()
	default:
		return "Transcription Error", err.Error()
	}
}
