package session

import (
	"context"

	"murmur/recorder"
	"murmur/transcriber"
)

// Capture is the audio side of a session. *recorder.Recorder implements it.
type Capture interface {
	Start(session uint64)
	StopAndFinalize(session uint64)
	ActiveSession() uint64
	ForceReset()
	Level() float64
	Outcomes() <-chan recorder.Outcome
}

// Overlay is the indicator animation. *overlay.Animator implements it.
type Overlay interface {
	BeginAppear()
	BeginDisappear()
	LockVisible()
	ForceReset()
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (*transcriber.Result, error)
}

// Presenter shows the indicator and renders its frames.
type Presenter interface {
	Show()
	Hide()
	HideImmediately()
	Render(Frame)
}

type TextSink interface {
	Insert(text string) error
}

type Alerter interface {
	Alert(title, message string)
}

type History interface {
	Add(text string)
}

// Feedback plays audible cues. beep.Player implements it.
type Feedback interface {
	Start()
	Stop()
	Error()
}

// Observer hears about every cycle that ends for the current session.
type Observer interface {
	SessionEnded(session uint64, outcome string)
}
