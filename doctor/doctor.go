// Package doctor walks through everything one dictation needs, in order:
// the trigger, the microphone, the transcription provider and the
// clipboard. It stops at the first failing step.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/hotkey"
	"murmur/recorder"
	"murmur/transcriber"
)

const steps = 5

type Checks struct {
	Out io.Writer

	Hotkey hotkey.Hotkey
	// Diagnose describes the trigger backend before it is registered.
	// Optional.
	Diagnose    func() (string, error)
	Audio       audio.Context
	Recorder    recorder.Config
	Transcriber transcriber.Transcriber
	Board       clipboard.Board
	// Paste reports whether the paste keystroke can be sent.
	Paste func() (string, error)
	// Reset is called after the trigger check. Optional.
	Reset func()

	HotkeyTimeout time.Duration
	RecordFor     time.Duration
}

type runner struct {
	Checks
	ctx  context.Context
	step int
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, c Checks) int {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.HotkeyTimeout <= 0 {
		c.HotkeyTimeout = 10 * time.Second
	}
	if c.RecordFor <= 0 {
		c.RecordFor = 3 * time.Second
	}
	r := &runner{Checks: c, ctx: ctx}

	fmt.Fprintln(r.Out, "murmur doctor - system diagnostics")
	fmt.Fprintln(r.Out, "==================================")

	allPass := r.checkHotkey()
	var art *recorder.Artifact
	if allPass {
		art, allPass = r.checkMicrophone()
	}
	if art != nil {
		defer os.Remove(art.Path)
	}
	if allPass {
		allPass = r.checkTranscription(art)
	}
	if allPass {
		allPass = r.checkClipboard()
	}
	if allPass {
		allPass = r.checkPaste()
	}

	fmt.Fprintln(r.Out)
	if allPass {
		fmt.Fprintln(r.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(r.Out, "Some checks failed. See details above.")
	return 1
}

func (r *runner) header(title string) {
	r.step++
	fmt.Fprintln(r.Out)
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", r.step, steps, title)
}

func (r *runner) pass(format string, args ...any) bool {
	fmt.Fprintf(r.Out, "  PASS: "+format+"\n", args...)
	return true
}

func (r *runner) fail(format string, args ...any) bool {
	fmt.Fprintf(r.Out, "  FAIL: "+format+"\n", args...)
	return false
}

func (r *runner) checkHotkey() bool {
	r.header("Trigger")
	if r.Diagnose != nil {
		info, err := r.Diagnose()
		if err != nil {
			return r.fail("%v", err)
		}
		fmt.Fprintf(r.Out, "  %s\n", info)
	}
	fmt.Fprintln(r.Out, "Press Ctrl+Shift+Space...")

	if err := r.Hotkey.Register(); err != nil {
		return r.fail("could not register hotkey: %v", err)
	}
	defer r.Hotkey.Unregister()
	if r.Reset != nil {
		defer r.Reset()
	}

	edges := r.Hotkey.Edges()
	timeout := time.After(r.HotkeyTimeout)
	for pressed := false; !pressed; {
		select {
		case e := <-edges:
			pressed = e == hotkey.EdgeDown
		case <-timeout:
			return r.fail("timeout waiting for hotkey")
		case <-r.ctx.Done():
			return r.fail("interrupted")
		}
	}
	// Wait for the release so it does not leak into the next step.
	release := time.After(5 * time.Second)
	for released := false; !released; {
		select {
		case e := <-edges:
			released = e == hotkey.EdgeUp
		case <-release:
			released = true
		case <-r.ctx.Done():
			released = true
		}
	}
	return r.pass("hotkey detected")
}

func (r *runner) checkMicrophone() (*recorder.Artifact, bool) {
	r.header("Microphone")
	fmt.Fprintf(r.Out, "Speak for %s", r.RecordFor)

	rec := recorder.New(r.Audio, r.Recorder)
	defer rec.Close()

	const session = 1
	rec.Start(session)
	peak := 0.0
	deadline := time.After(r.RecordFor)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
record:
	for i := 0; ; i++ {
		select {
		case <-ticker.C:
			peak = max(peak, rec.Level())
			if i%5 == 4 {
				fmt.Fprint(r.Out, ".")
			}
		case <-deadline:
			break record
		case <-r.ctx.Done():
			fmt.Fprintln(r.Out)
			return nil, r.fail("interrupted")
		}
	}
	fmt.Fprintln(r.Out, " done")
	rec.StopAndFinalize(session)

	var o recorder.Outcome
	select {
	case o = <-rec.Outcomes():
	case <-time.After(max(r.Recorder.StartTimeout, 2*time.Second) + 5*time.Second):
		return nil, r.fail("recorder did not finish")
	}

	switch o.Kind {
	case recorder.OutcomeReady:
		if peak < 0.02 {
			fmt.Fprintln(r.Out, "  Warning: input level is very low, check the selected device")
		}
		return o.Artifact, r.pass("recorded %.1fs, %.1f KB", o.Artifact.Duration.Seconds(), float64(o.Artifact.Size)/1024)
	case recorder.OutcomeDiscarded:
		return nil, r.fail("recording discarded (%s)", o.Reason)
	case recorder.OutcomeFailed:
		return nil, r.fail("%v", o.Err)
	default:
		return nil, r.fail("recorder never started")
	}
}

func (r *runner) checkTranscription(art *recorder.Artifact) bool {
	r.header("Transcription")
	fmt.Fprintf(r.Out, "Uploading to %s...\n", r.Transcriber.Name())

	res, err := r.Transcriber.Transcribe(r.ctx, art.Path)
	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = transcriber.ErrEmptyTranscription
	}
	if err != nil {
		title, msg := transcriber.Describe(err)
		return r.fail("%s: %s", title, msg)
	}
	fmt.Fprintf(r.Out, "\n  Transcribed text: %s\n\n", strings.TrimSpace(res.Text))
	return r.pass("transcription received")
}

func (r *runner) checkClipboard() bool {
	r.header("Clipboard")

	prev, _ := r.Board.Read()
	want := fmt.Sprintf("murmur-doctor-%d", time.Now().UnixNano())

	type result struct {
		got   string
		err   error
		phase string
	}
	ch := make(chan result, 1)
	go func() {
		if err := r.Board.Copy(want); err != nil {
			ch <- result{err: err, phase: "write"}
			return
		}
		got, err := r.Board.Read()
		ch <- result{got: got, err: err, phase: "read"}
	}()

	var res result
	select {
	case res = <-ch:
	case <-time.After(3 * time.Second):
		return r.fail("clipboard timed out (clipboard tool hung?)")
	}
	if prev != "" {
		if err := r.Board.Copy(prev); err != nil {
			fmt.Fprintf(r.Out, "  Warning: could not restore clipboard: %v\n", err)
		}
	}
	switch {
	case res.err != nil:
		return r.fail("clipboard %s failed: %v", res.phase, res.err)
	case res.got != want:
		return r.fail("clipboard mismatch: wrote %q, got %q", want, res.got)
	}
	return r.pass("clipboard write/read verified")
}

func (r *runner) checkPaste() bool {
	r.header("Paste keystroke")
	if r.Paste == nil {
		return r.fail("no paste backend")
	}
	msg, err := r.Paste()
	if err != nil {
		return r.fail("%v", err)
	}
	return r.pass("%s", msg)
}
