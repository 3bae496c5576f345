// Package recorder owns the microphone for one dictation attempt at a time:
// it opens the input device, converts buffers to the upload format, writes
// them to a temporary WAV file and classifies the finished clip.
//
// Every call is tagged with a session id. Slow device work runs on a
// single control goroutine and only commits its result if the session it
// was started for still owns the state machine.
package recorder

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
	"murmur/log"
)

type Config struct {
	// Format is what the artifact is written in.
	Format audio.Format
	// Device selects a specific input. Nil means the system default.
	Device  *audio.DeviceInfo
	TempDir string

	MinDuration   time.Duration
	MinBytes      int64
	StartTimeout  time.Duration
	RetryInterval time.Duration

	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Format:        audio.Format{SampleRate: 16000, Channels: 1},
		MinDuration:   500 * time.Millisecond,
		MinBytes:      16000,
		StartTimeout:  2 * time.Second,
		RetryInterval: 100 * time.Millisecond,
	}
}

type Recorder struct {
	actx audio.Context
	cfg  Config
	now  func() time.Time

	mu      sync.Mutex
	state   State
	session uint64
	changed time.Time
	current *attempt
	// stopping is the attempt handed to finalize and not yet reported.
	stopping *attempt
	closed   bool

	level    atomic.Uint64
	ops      chan func()
	outcomes chan Outcome
	quit     chan struct{}
	done     chan struct{}
}

func New(actx audio.Context, cfg Config) *Recorder {
	def := DefaultConfig()
	if !cfg.Format.Valid() {
		cfg.Format = def.Format
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = def.StartTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := &Recorder{
		actx:     actx,
		cfg:      cfg,
		now:      now,
		ops:      make(chan func(), 16),
		outcomes: make(chan Outcome, 32),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.changed = now()
	go r.loop()
	return r
}

func (r *Recorder) loop() {
	defer close(r.done)
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.quit:
			return
		}
	}
}

func (r *Recorder) enqueue(op func()) {
	select {
	case r.ops <- op:
	case <-r.quit:
	}
}

func (r *Recorder) emit(o Outcome) {
	var dur time.Duration
	var size int64
	if o.Artifact != nil {
		dur, size = o.Artifact.Duration, o.Artifact.Size
	}
	log.CaptureOutcome(o.Session, o.Kind.String(), o.Reason.String(), dur, size, o.Err)

	select {
	case r.outcomes <- o:
	case <-r.quit:
		if o.Kind == OutcomeReady && o.Artifact != nil {
			os.Remove(o.Artifact.Path)
		}
	}
}

// Outcomes delivers one value per finalised, discarded or failed attempt.
func (r *Recorder) Outcomes() <-chan Outcome {
	return r.outcomes
}

// Level is the smoothed input loudness in [0,1].
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

func (r *Recorder) publishLevel(v float64) {
	r.level.Store(math.Float64bits(v))
}

// ActiveSession is the session the state machine is bound to, which can lag
// the caller's newest session while a start is in flight.
func (r *Recorder) ActiveSession() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	r.state = s
	r.changed = r.now()
}

// Start begins capturing for session. Leftovers from any earlier attempt
// are torn down before the new one is queued.
func (r *Recorder) Start(session uint64) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.state == StateRecording && r.session == session {
		r.mu.Unlock()
		return
	}
	if r.state != StateIdle {
		log.Warnf("capture: start for session %d while %s for session %d, tearing down", session, r.state, r.session)
		r.discardLocked()
	}
	r.session = session
	r.setState(StateStarting)
	r.mu.Unlock()

	r.publishLevel(0)
	r.enqueue(func() { r.startEngine(session) })
}

func (r *Recorder) owns(session uint64, s State) bool {
	return r.state == s && r.session == session
}

func (r *Recorder) startEngine(session uint64) {
	r.mu.Lock()
	current := r.owns(session, StateStarting)
	r.mu.Unlock()
	if !current {
		return
	}

	a, err := r.open(session)
	if err != nil {
		r.mu.Lock()
		current = r.owns(session, StateStarting)
		if current {
			r.setState(StateIdle)
		}
		r.mu.Unlock()
		if current {
			log.Errorf("capture: session %d: %v", session, err)
			r.emit(Outcome{Session: session, Kind: OutcomeFailed, Err: err})
		}
		return
	}

	r.mu.Lock()
	if !r.owns(session, StateStarting) {
		r.mu.Unlock()
		a.discard()
		log.Infof("capture: session %d superseded during start", session)
		return
	}
	a.started = r.now()
	r.current = a
	r.setState(StateRecording)
	r.mu.Unlock()
}

func (r *Recorder) open(session uint64) (*attempt, error) {
	device := r.cfg.Device
	var restore func()
	if device != nil {
		if setter, ok := r.actx.(audio.DefaultSourceSetter); ok {
			prev, err := setter.DefaultSource()
			if err == nil {
				err = setter.SetDefaultSource(device.ID)
			}
			if err != nil {
				return nil, fmt.Errorf("select input %q: %w", device.Name, err)
			}
			restore = func() {
				if err := setter.SetDefaultSource(prev); err != nil {
					log.Warnf("capture: restore input %q: %v", prev, err)
				}
			}
			device = nil
		}
	}
	fail := func(err error) (*attempt, error) {
		if restore != nil {
			restore()
		}
		return nil, err
	}

	dev, err := r.actx.NewCapture(device, audio.CaptureConfig{
		SampleRate: r.cfg.Format.SampleRate,
		Channels:   r.cfg.Format.Channels,
	})
	if err != nil {
		return fail(fmt.Errorf("open capture: %w", err))
	}

	native := dev.Format()
	if !native.Valid() {
		dev.Close()
		return fail(fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidFormat, native.SampleRate, native.Channels))
	}
	conv, err := audio.NewConverter(native, r.cfg.Format)
	if err != nil {
		dev.Close()
		return fail(err)
	}
	if !conv.Passthrough() {
		log.Infof("capture: converting %d Hz/%d ch to %d Hz/%d ch",
			native.SampleRate, native.Channels, r.cfg.Format.SampleRate, r.cfg.Format.Channels)
	}

	sink, err := createSink(r.cfg.TempDir, r.cfg.Format)
	if err != nil {
		dev.Close()
		return fail(err)
	}

	a := &attempt{
		session: session,
		device:  dev,
		sink:    sink,
		conv:    conv,
		restore: restore,
	}
	dev.SetCallback(func(data []byte, _ uint32) {
		if v, ok := a.write(data); ok {
			r.publishLevel(v)
		}
	})
	if err := dev.Start(); err != nil {
		a.discard()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return a, nil
}

// StopAndFinalize ends the recording bound to session and reports the
// result on Outcomes. A stop that races a start is retried until
// StartTimeout, then the recorder is reset and the attempt fails.
func (r *Recorder) StopAndFinalize(session uint64) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	switch {
	case r.owns(session, StateRecording):
		a := r.current
		r.current = nil
		r.stopping = a
		r.setState(StateStopping)
		stopped := r.now()
		r.mu.Unlock()
		r.enqueue(func() { r.finalize(a, stopped) })

	case r.owns(session, StateStarting):
		if r.now().Sub(r.changed) < r.cfg.StartTimeout {
			r.mu.Unlock()
			time.AfterFunc(r.cfg.RetryInterval, func() { r.StopAndFinalize(session) })
			return
		}
		r.resetLocked()
		r.mu.Unlock()
		log.Warnf("capture: session %d still starting after %s, reset", session, r.cfg.StartTimeout)
		r.emit(Outcome{Session: session, Kind: OutcomeFailed, Err: ErrStartTimeout})

	case r.state == StateIdle:
		r.mu.Unlock()
		r.emit(Outcome{Session: session, Kind: OutcomeIdle})

	default:
		r.mu.Unlock()
	}
}

// finalize reports nothing for an attempt that a reset or a newer start
// already discarded.
func (r *Recorder) finalize(a *attempt, stopped time.Time) {
	closeErr := a.shutdown()
	duration := stopped.Sub(a.started)

	r.mu.Lock()
	if r.stopping == a {
		r.stopping = nil
	}
	if r.owns(a.session, StateStopping) {
		r.setState(StateIdle)
	}
	discarded := a.discarded.Load()
	r.mu.Unlock()
	if discarded {
		log.Infof("capture: session %d discarded before finalize", a.session)
		return
	}
	r.publishLevel(0)

	if err := a.failure(closeErr); err != nil {
		a.sink.Remove()
		r.emit(Outcome{Session: a.session, Kind: OutcomeFailed, Err: err})
		return
	}

	info, err := os.Stat(a.sink.path)
	if err != nil {
		r.emit(Outcome{Session: a.session, Kind: OutcomeFailed, Err: fmt.Errorf("stat recording: %w", err)})
		return
	}
	art := &Artifact{Path: a.sink.path, Duration: duration, Size: info.Size()}

	reason := r.classify(art)
	if reason != DiscardNone {
		a.sink.Remove()
		r.emit(Outcome{Session: a.session, Kind: OutcomeDiscarded, Reason: reason, Artifact: art})
		return
	}
	r.emit(Outcome{Session: a.session, Kind: OutcomeReady, Artifact: art})
}

func (r *Recorder) classify(art *Artifact) DiscardReason {
	if art.Duration < r.cfg.MinDuration {
		return DiscardTooShort
	}
	if art.Size < r.cfg.MinBytes {
		return DiscardTooSmall
	}
	return DiscardNone
}

// ForceReset returns to idle from any state, releasing the device, the
// temporary file and any input override.
func (r *Recorder) ForceReset() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
}

func (r *Recorder) resetLocked() {
	r.discardLocked()
	r.setState(StateIdle)
	r.publishLevel(0)
}

func (r *Recorder) discardLocked() {
	if r.current != nil {
		r.current.discard()
		r.current = nil
	}
	if r.stopping != nil {
		r.stopping.discard()
		r.stopping = nil
	}
}

// Close resets the recorder and stops the control goroutine. Artifacts
// of outcomes nobody received are removed.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.resetLocked()
	r.mu.Unlock()

	close(r.quit)
	<-r.done
	for {
		select {
		case o := <-r.outcomes:
			if o.Kind == OutcomeReady && o.Artifact != nil {
				os.Remove(o.Artifact.Path)
			}
		default:
			return
		}
	}
}

// flush waits until every queued control operation has run.
func (r *Recorder) flush() {
	ch := make(chan struct{})
	r.enqueue(func() { close(ch) })
	select {
	case <-ch:
	case <-r.quit:
	}
}
