package session

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseTranscribing
)

func (p Phase) String() string {
	switch p {
	case PhaseRecording:
		return "recording"
	case PhaseTranscribing:
		return "transcribing"
	default:
		return "idle"
	}
}

// Frame is one rendering of the indicator.
type Frame struct {
	Phase    Phase
	Progress float64
	Level    float64
}
