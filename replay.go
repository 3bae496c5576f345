package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/overlay"
	"murmur/paste"
	"murmur/recorder"
	"murmur/session"
	"murmur/transcriber"
)

const replayUsage = `Replay plays a WAV file (16 kHz mono s16) through the whole pipeline in
place of the microphone. Commands are read from stdin, one per line:

  KEYDOWN           press the trigger
  KEYUP             release the trigger
  WAIT              wait for the current cycle to end
  WAIT_AUDIO_DONE   wait until the file has been played to the end
  SLEEP <ms>        pause
  QUIT              stop

Inserted text is printed instead of pasted unless --paste is given.
MURMUR_FAKE_TEXT replaces the provider with one that always returns that
text.`

type replayOptions struct {
	wav   string
	in    io.Reader
	out   io.Writer
	paste bool
	text  string
	wait  time.Duration
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	ro := replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <wav>",
		Short: "Drive the pipeline from a WAV file and stdin commands",
		Long:  replayUsage,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			ro.wav = args[0]
			ro.in = cmd.InOrStdin()
			ro.out = cmd.OutOrStdout()
			if ro.text == "" {
				ro.text = os.Getenv("MURMUR_FAKE_TEXT")
			}
			return runReplay(cmd.Context(), cfg, ro)
		},
	}
	cmd.Flags().BoolVar(&ro.paste, "paste", false, "deliver text through the clipboard and paste keystroke")
	cmd.Flags().StringVar(&ro.text, "text", "", "skip the provider and transcribe every clip as this text")
	cmd.Flags().DurationVar(&ro.wait, "wait-timeout", 30*time.Second, "how long WAIT and WAIT_AUDIO_DONE may block")
	return cmd
}

func runReplay(ctx context.Context, cfg *config.Config, ro replayOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actx, err := audio.NewFakeContext(ro.wav, true)
	if err != nil {
		return fmt.Errorf("loading %s: %w", ro.wav, err)
	}
	rec := recorder.New(actx, recorderConfig(cfg, nil))
	defer rec.Close()

	var tr session.Transcriber
	if ro.text != "" {
		tr = transcriber.NewFake(ro.text, nil)
	} else {
		tr = newTranscriber(cfg)
	}

	out := &lockedWriter{w: ro.out}
	var sink session.TextSink = printSink{out}
	if ro.paste {
		s := clipboard.NewSink(clipboard.System(), paste.Send, sinkConfig(cfg))
		defer s.Close()
		sink = s
	}

	anim := overlay.NewAnimator(overlay.Timing{
		Appear:    cfg.Overlay.Appear,
		Disappear: cfg.Overlay.Disappear,
	})
	ended := make(endedCh, 16)
	ctrl := session.New(session.Deps{
		Capture:     rec,
		Overlay:     anim,
		Transcriber: tr,
		Presenter:   newPresenter(0),
		Sink:        sink,
		Alerter:     printAlerter{out},
		History:     history.New(""),
		Observer:    ended,
		Device:      "replay:" + filepath.Base(ro.wav),
		Timeout:     cfg.Timeout,
	})
	anim.SetListener(ctrl)

	hk := hotkey.NewFake()
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Run(ctx) }()
	go anim.Run(ctx, cfg.Overlay.FrameRate)
	go hotkey.Pump(ctx, hk, ctrl)

	r := &replayer{ctx: ctx, actx: actx, hk: hk, ended: ended, out: out, wait: ro.wait}
	err = r.run(ro.in)
	cancel()
	<-errc
	return err
}

type replayer struct {
	ctx   context.Context
	actx  *audio.FakeContext
	hk    *hotkey.FakeHotkey
	ended endedCh
	out   io.Writer
	wait  time.Duration

	// captures that existed before the last KEYDOWN
	seen int
}

func (r *replayer) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for line := 1; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		quit, err := r.exec(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

func (r *replayer) exec(cmd []string) (quit bool, err error) {
	switch strings.ToUpper(cmd[0]) {
	case "KEYDOWN":
		r.seen = len(r.actx.Captures())
		r.hk.SimKeydown()
	case "KEYUP":
		r.hk.SimKeyup()
	case "WAIT":
		return false, r.waitEnded()
	case "WAIT_AUDIO_DONE":
		return false, r.waitAudioDone()
	case "SLEEP":
		if len(cmd) != 2 {
			return false, errors.New("SLEEP needs a duration in milliseconds")
		}
		ms, err := strconv.Atoi(cmd[1])
		if err != nil || ms < 0 {
			return false, fmt.Errorf("bad SLEEP duration %q", cmd[1])
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
		case <-r.ctx.Done():
			return true, nil
		}
	case "QUIT":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd[0])
	}
	return false, nil
}

func (r *replayer) waitEnded() error {
	select {
	case outcome := <-r.ended:
		fmt.Fprintf(r.out, "ended: %s\n", outcome)
		return nil
	case <-time.After(r.wait):
		return errors.New("timed out waiting for the cycle to end")
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *replayer) waitAudioDone() error {
	deadline := time.After(r.wait)
	for {
		if caps := r.actx.Captures(); len(caps) > r.seen {
			select {
			case <-caps[len(caps)-1].AudioDone():
				return nil
			case <-deadline:
				return errors.New("timed out waiting for the audio to finish")
			case <-r.ctx.Done():
				return r.ctx.Err()
			}
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			return errors.New("no capture was started")
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
	}
}

// endedCh reports cycle outcomes to the replayer. Outcomes nobody waits
// for are dropped once the buffer is full.
type endedCh chan string

func (c endedCh) SessionEnded(_ uint64, outcome string) {
	select {
	case c <- outcome:
	default:
		log.Warnf("replay: dropped outcome %s", outcome)
	}
}

type printSink struct{ w io.Writer }

func (p printSink) Insert(text string) error {
	_, err := fmt.Fprintf(p.w, "inserted: %s\n", text)
	return err
}

type printAlerter struct{ w io.Writer }

func (p printAlerter) Alert(title, message string) {
	log.Warnf("alert: %s: %s", title, message)
	fmt.Fprintf(p.w, "alert: %s: %s\n", title, message)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
