// Package session ties the trigger, the recorder, the overlay animation and
// the transcriber together.
//
// Every dictation cycle gets a new session id on trigger-down. Completions
// from the recorder and the transcriber carry the id they were started for
// and are checked against the current one on the controller goroutine, which
// is the only writer of the session counter, the pressed flag and the phase.
package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"murmur/log"
	"murmur/recorder"
	"murmur/transcriber"
)

const DefaultTimeout = 60 * time.Second

type Deps struct {
	Capture     Capture
	Overlay     Overlay
	Transcriber Transcriber
	Presenter   Presenter
	Sink        TextSink
	Alerter     Alerter
	History     History
	// Feedback and Observer are optional.
	Feedback Feedback
	Observer Observer

	// Device names the input for logs.
	Device string
	// Timeout bounds one transcription request.
	Timeout time.Duration
}

type Controller struct {
	d Deps

	inbox   chan func()
	results chan result
	done    chan struct{}
	phase   atomic.Int32

	// owned by the Run goroutine
	ctx     context.Context
	session uint64
	pressed bool

	inflight sync.WaitGroup
}

func New(d Deps) *Controller {
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.Feedback == nil {
		d.Feedback = silent{}
	}
	return &Controller{
		d:       d,
		inbox:   make(chan func(), 64),
		results: make(chan result, 8),
		done:    make(chan struct{}),
	}
}

type result struct {
	session uint64
	art     *recorder.Artifact
	res     *transcriber.Result
	err     error
}

type silent struct{}

func (silent) Start() {}
func (silent) Stop()  {}
func (silent) Error() {}

func (c *Controller) end(session uint64, outcome string) {
	log.SessionEnd(session, outcome)
	if c.d.Observer != nil {
		c.d.Observer.SessionEnded(session, outcome)
	}
}

// Phase is safe to call from any goroutine.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Controller) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

// Run processes events until ctx is done. In-flight transcriptions are
// cancelled and waited for before it returns, and artifacts that were never
// handled are removed.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	outcomes := c.d.Capture.Outcomes()
	defer func() {
		close(c.done)
		c.inflight.Wait()
		for {
			select {
			case r := <-c.results:
				removeArtifact(r.art)
			case o := <-outcomes:
				removeArtifact(o.Artifact)
			default:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			c.d.Capture.ForceReset()
			c.d.Overlay.ForceReset()
			c.d.Presenter.HideImmediately()
			c.setPhase(PhaseIdle)
			return ctx.Err()
		case fn := <-c.inbox:
			fn()
		case o := <-outcomes:
			c.onCaptureFinalized(o)
		case r := <-c.results:
			c.onTranscriptionComplete(r)
		}
	}
}

// post hands fn to the Run goroutine. Events posted after Run returns are
// dropped.
func (c *Controller) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// TriggerDown and TriggerUp never block on capture or network work.
func (c *Controller) TriggerDown() { c.post(c.onTriggerDown) }
func (c *Controller) TriggerUp()   { c.post(c.onTriggerUp) }

// OverlayFrame renders the current frame. It runs on the animator's
// goroutine and only reads published values.
func (c *Controller) OverlayFrame(progress float64) {
	c.d.Presenter.Render(Frame{
		Phase:    c.Phase(),
		Progress: progress,
		Level:    c.d.Capture.Level(),
	})
}

func (c *Controller) OverlayHidden() { c.post(c.onOverlayHidden) }

func (c *Controller) onTriggerDown() {
	if c.Phase() == PhaseTranscribing {
		log.SessionIgnored(c.session+1, c.session, "trigger_down_while_transcribing")
		return
	}
	c.session++
	s := c.session
	c.pressed = true
	log.SessionStart(s, c.d.Device)

	c.d.Presenter.Show()
	c.d.Overlay.BeginAppear()
	c.setPhase(PhaseRecording)
	c.d.Feedback.Start()
	c.d.Capture.Start(s)
}

func (c *Controller) onTriggerUp() {
	r := c.d.Capture.ActiveSession()
	wasRecording := c.Phase() == PhaseRecording
	c.pressed = false
	c.d.Overlay.BeginDisappear()

	if !wasRecording {
		log.SessionIgnored(r, c.session, "trigger_up_not_recording")
		return
	}
	c.d.Feedback.Stop()
	c.d.Capture.StopAndFinalize(r)
}

func (c *Controller) onCaptureFinalized(o recorder.Outcome) {
	current := o.Session == c.session

	switch o.Kind {
	case recorder.OutcomeReady:
		if !current {
			log.SessionIgnored(o.Session, c.session, "capture_ready")
			removeArtifact(o.Artifact)
			c.reset(o.Session)
			return
		}
		c.setPhase(PhaseTranscribing)
		c.d.Overlay.LockVisible()
		c.d.Presenter.Show()
		c.dispatch(o.Session, o.Artifact)

	case recorder.OutcomeDiscarded:
		if current {
			c.end(o.Session, "discarded_"+o.Reason.String())
		}
		c.reset(o.Session)

	case recorder.OutcomeIdle:
		c.reset(o.Session)

	case recorder.OutcomeFailed:
		if !current {
			log.SessionIgnored(o.Session, c.session, "capture_failed")
			c.reset(o.Session)
			return
		}
		c.end(o.Session, "capture_failed")
		c.d.Feedback.Error()
		msg := "The microphone could not be started."
		if o.Err != nil {
			msg = o.Err.Error()
		}
		c.d.Alerter.Alert("Recording Failed", msg)
		c.d.Capture.ForceReset()
		c.forceReset()
	}
}

// dispatch runs the transcription off the loop and posts the result back
// tagged with the session it belongs to.
func (c *Controller) dispatch(session uint64, art *recorder.Artifact) {
	ctx, cancel := context.WithTimeout(c.ctx, c.d.Timeout)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		res, err := c.d.Transcriber.Transcribe(ctx, art.Path)
		select {
		case c.results <- result{session: session, art: art, res: res, err: err}:
		case <-c.done:
			removeArtifact(art)
		}
	}()
}

func (c *Controller) onTranscriptionComplete(r result) {
	removeArtifact(r.art)
	session, err := r.session, r.err

	var text string
	if err == nil {
		text = strings.TrimSpace(r.res.Text)
		if text == "" {
			err = transcriber.ErrEmptyTranscription
		}
	}
	if session != c.session {
		// Results for a superseded session are still delivered.
		log.SessionIgnored(session, c.session, "transcription_late")
	}

	if err != nil {
		log.Errorf("transcription failed for session %d: %v", session, err)
		c.end(session, "transcription_failed")
		title, msg := transcriber.Describe(err)
		c.d.Feedback.Error()
		c.d.Alerter.Alert(title, msg)
	} else {
		log.TranscriptionText(text)
		c.d.History.Add(text)
		if err := c.d.Sink.Insert(text); err != nil {
			log.Errorf("text insert failed: %v", err)
			c.d.Alerter.Alert("Paste Failed", err.Error())
		}
		c.end(session, "inserted")
	}

	c.forceReset()
}

// reset hides the indicator after a cycle that produced nothing, unless a
// newer session or a held trigger owns the UI.
func (c *Controller) reset(session uint64) {
	if session != c.session || c.pressed || c.Phase() == PhaseTranscribing {
		return
	}
	c.setPhase(PhaseIdle)
	c.d.Overlay.BeginDisappear()
	c.d.Presenter.Hide()
}

func (c *Controller) forceReset() {
	c.setPhase(PhaseIdle)
	c.d.Overlay.ForceReset()
	c.d.Presenter.Hide()
	c.pressed = false
}

func (c *Controller) onOverlayHidden() {
	if c.Phase() == PhaseTranscribing || c.pressed {
		return
	}
	c.setPhase(PhaseIdle)
	c.d.Presenter.HideImmediately()
}

func removeArtifact(art *recorder.Artifact) {
	if art == nil || art.Path == "" {
		return
	}
	if err := os.Remove(art.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("removing %s: %v", art.Path, err)
	}
}
