package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/config"
	"murmur/history"
	"murmur/hotkey"
	"murmur/log"
	"murmur/notify"
	"murmur/overlay"
	"murmur/paste"
	"murmur/recorder"
	"murmur/session"
	"murmur/transcriber"
)

// runDaemon wires the dictation pipeline and blocks until ctx is cancelled
// or the terminal UI exits.
func runDaemon(ctx context.Context, cfg *config.Config, opts *rootOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !cfg.Beep {
		beep.Disable()
	}
	go beep.Init()

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer actx.Close()
	dev := findDevice(actx, cfg.Device)

	rec := recorder.New(actx, recorderConfig(cfg, dev))
	defer rec.Close()

	tr := newTranscriber(cfg)
	if w, ok := tr.(interface{ Warm() }); ok {
		go w.Warm()
	}

	hist := history.Open(cfg.HistoryFile)

	sinkCfg := sinkConfig(cfg)
	sink := clipboard.NewSink(clipboard.System(), paste.Send, sinkCfg)
	defer sink.Close()
	if sinkCfg.AutoPaste {
		go func() {
			if err := paste.Init(); err != nil {
				log.Warnf("auto-paste unavailable: %v", err)
			}
		}()
	}

	anim := overlay.NewAnimator(overlay.Timing{
		Appear:    cfg.Overlay.Appear,
		Disappear: cfg.Overlay.Disappear,
	})

	alert := alerters{notify.New(true)}
	var surfaces []surface
	var ui *tui
	if opts.tui && term.IsTerminal(int(os.Stdout.Fd())) {
		ui = newTUI(tuiInfo{Mode: modeLine(cfg, tr), Device: deviceName(dev)}, hist, clipboard.Copy)
		surfaces = append(surfaces, ui)
		alert = append(alert, ui)
	}
	if opts.gui {
		if d := attachDesktop(hist, clipboard.Copy, cancel); d != nil {
			surfaces = append(surfaces, d)
		}
	}

	deps := session.Deps{
		Capture:     rec,
		Overlay:     anim,
		Transcriber: tr,
		Presenter:   newPresenter(cfg.Overlay.HideDelay, surfaces...),
		Sink:        sink,
		Alerter:     alert,
		History:     hist,
		Feedback:    beep.Player{},
		Device:      deviceName(dev),
		Timeout:     cfg.Timeout,
	}
	if ui != nil {
		deps.Observer = ui
	}
	ctrl := session.New(deps)
	anim.SetListener(ctrl)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		return fmt.Errorf("registering hotkey: %w", err)
	}
	defer hk.Unregister()

	errc := make(chan error, 1)
	go func() { errc <- ctrl.Run(ctx) }()
	go anim.Run(ctx, cfg.Overlay.FrameRate)
	go hotkey.Pump(ctx, hk, ctrl)

	log.Infof("murmur %s ready: provider=%s device=%s", version, tr.Name(), deviceName(dev))

	if ui != nil {
		go func() {
			<-ctx.Done()
			ui.Quit()
		}()
		if err := ui.Run(); err != nil {
			log.Errorf("terminal UI: %v", err)
		}
		cancel()
	} else {
		fmt.Printf("murmur %s %s\nHold Ctrl+Shift+Space to dictate, Ctrl+C to quit.\n", version, modeLine(cfg, tr))
		<-ctx.Done()
	}

	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func recorderConfig(cfg *config.Config, dev *audio.DeviceInfo) recorder.Config {
	rc := recorder.DefaultConfig()
	rc.Device = dev
	rc.TempDir = cfg.Recorder.TempDir
	rc.MinDuration = cfg.Recorder.MinDuration
	rc.MinBytes = cfg.Recorder.MinBytes
	rc.StartTimeout = cfg.Recorder.StartTimeout
	rc.RetryInterval = cfg.Recorder.RetryInterval
	return rc
}

func sinkConfig(cfg *config.Config) clipboard.SinkConfig {
	return clipboard.SinkConfig{
		AutoPaste:    cfg.Paste.Auto,
		Restore:      cfg.Paste.Restore,
		PasteDelay:   cfg.Paste.Delay,
		RestoreDelay: cfg.Paste.RestoreDelay,
	}
}

// newTranscriber never fails: a provider that cannot be built is replaced
// by one that reports the problem on every attempt.
func newTranscriber(cfg *config.Config) transcriber.Transcriber {
	tr, err := transcriber.New(transcriber.Options{
		Provider:     cfg.Provider,
		APIKey:       cfg.APIKey(),
		Model:        cfg.Model,
		Language:     cfg.Language,
		UploadFormat: cfg.UploadFormat,
		Endpoint:     cfg.Endpoint,
		Timeout:      cfg.Timeout,
	})
	if err != nil {
		log.Warnf("%s transcriber unavailable: %v", cfg.Provider, err)
		return transcriber.NewUnavailable(cfg.Provider, err)
	}
	return tr
}

// findDevice resolves the configured device name. Nil means the system
// default.
func findDevice(actx audio.Context, name string) *audio.DeviceInfo {
	if name == "" {
		return nil
	}
	dev, err := audio.FindDevice(actx, name)
	if err != nil {
		log.Warnf("device lookup failed: %v", err)
		return nil
	}
	if dev == nil {
		log.Warnf("device %q not found, using the system default", name)
	}
	return dev
}

func deviceName(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "system default"
	}
	return dev.Name
}

func modeLine(cfg *config.Config, tr transcriber.Transcriber) string {
	lang := tr.GetLanguage()
	if lang == "" {
		lang = "auto"
	}
	return fmt.Sprintf("[%s | %s (%s)]", cfg.UploadFormat, tr.Name(), lang)
}

// alerters sends every alert to each destination in turn.
type alerters []session.Alerter

func (a alerters) Alert(title, message string) {
	for _, dst := range a {
		dst.Alert(title, message)
	}
}
