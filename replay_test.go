package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"murmur/config"
)

// writeTone writes seconds of a 440 Hz tone as 16 kHz mono PCM.
func writeTone(t *testing.T, seconds float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := int(16000 * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func replay(t *testing.T, wavPath, script string) string {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	err = runReplay(context.Background(), cfg, replayOptions{
		wav:  wavPath,
		in:   strings.NewReader(script),
		out:  &out,
		text: "hello from the tone",
		wait: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("replay: %v\noutput:\n%s", err, out.String())
	}
	return out.String()
}

func TestReplayInsertsTranscription(t *testing.T) {
	wavPath := writeTone(t, 2)
	out := replay(t, wavPath, "KEYDOWN\nSLEEP 1200\nKEYUP\nWAIT\nQUIT\n")

	if !strings.Contains(out, "inserted: hello from the tone") {
		t.Errorf("text not inserted:\n%s", out)
	}
	if !strings.Contains(out, "ended: inserted") {
		t.Errorf("cycle outcome missing:\n%s", out)
	}
}

func TestReplayDiscardsShortTap(t *testing.T) {
	wavPath := writeTone(t, 2)
	out := replay(t, wavPath, "# quick tap\nKEYDOWN\nSLEEP 150\nKEYUP\nWAIT\nQUIT\n")

	if strings.Contains(out, "inserted:") {
		t.Errorf("short tap was inserted:\n%s", out)
	}
	if !strings.Contains(out, "ended: discarded_too_short") {
		t.Errorf("want a too-short discard:\n%s", out)
	}
}

func TestReplayWaitsForAudio(t *testing.T) {
	wavPath := writeTone(t, 1)
	out := replay(t, wavPath, "KEYDOWN\nWAIT_AUDIO_DONE\nKEYUP\nWAIT\nQUIT\n")
	if !strings.Contains(out, "ended: inserted") {
		t.Errorf("cycle did not complete:\n%s", out)
	}
}

func TestReplayRejectsUnknownCommand(t *testing.T) {
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	err = runReplay(context.Background(), cfg, replayOptions{
		wav:  writeTone(t, 0.1),
		in:   strings.NewReader("KEYDOWN\nJUMP\n"),
		out:  &bytes.Buffer{},
		wait: 10 * time.Second,
	})
	if err == nil || !strings.Contains(err.Error(), `line 2: unknown command "JUMP"`) {
		t.Errorf("err = %v", err)
	}
}

func TestWantsGUI(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"--gui"}, true},
		{[]string{"--tui=false", "-gui"}, true},
		{[]string{"replay", "--", "--gui"}, false},
	}
	for _, tt := range tests {
		if got := wantsGUI(tt.args); got != tt.want {
			t.Errorf("wantsGUI(%q) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
