package recorder

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidFormat = errors.New("input device reported an invalid format")
	ErrStartTimeout  = errors.New("capture did not start in time")
)

// State is the capture lifecycle position.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type OutcomeKind int

const (
	// OutcomeReady carries a valid artifact for transcription.
	OutcomeReady OutcomeKind = iota
	// OutcomeDiscarded is a silent drop; the file is already gone.
	OutcomeDiscarded
	// OutcomeFailed is a capture setup error for the attempt.
	OutcomeFailed
	// OutcomeIdle is emitted when a stop arrives with nothing to stop.
	OutcomeIdle
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReady:
		return "ready"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFailed:
		return "failed"
	case OutcomeIdle:
		return "idle"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

type DiscardReason int

const (
	DiscardNone DiscardReason = iota
	DiscardTooShort
	DiscardTooSmall
)

func (r DiscardReason) String() string {
	switch r {
	case DiscardTooShort:
		return "too_short"
	case DiscardTooSmall:
		return "too_small"
	default:
		return "none"
	}
}

// Artifact is a finished recording on disk. Whoever receives it in an
// OutcomeReady owns the file and must remove it.
type Artifact struct {
	Path     string
	Duration time.Duration
	Size     int64
}

// Outcome is the result of one capture attempt, tagged with its session.
type Outcome struct {
	Session  uint64
	Kind     OutcomeKind
	Reason   DiscardReason
	Artifact *Artifact
	Err      error
}
