//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var (
	testBinary string
	toneWAV    string
)

func TestMain(m *testing.M) {
	testBinary = os.Getenv("MURMUR_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "MURMUR_TEST_BIN not set; build murmur and point it at the binary")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "murmur-integration")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
		os.Exit(1)
	}
	toneWAV = filepath.Join(dir, "tone.wav")
	if err := generateToneWAV(toneWAV, 16000, 2.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func generateToneWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := range numSamples {
		v := int16(6000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+2*i:], uint16(v))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// runMurmur runs one replay with a private config and log directory and
// returns stdout and the log directory.
func runMurmur(t *testing.T, env []string, stdin string, args ...string) (string, string) {
	t.Helper()
	home := t.TempDir()
	logDir := t.TempDir()
	cmdArgs := append([]string{"--logpath", logDir, "replay"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "HOME="+home, "XDG_CONFIG_HOME="+filepath.Join(home, ".config"))
	cmd.Env = append(cmd.Env, env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("murmur exited with error: %v\noutput: %s", err, out)
	}
	return string(out), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestFakeTextInserted(t *testing.T) {
	out, logDir := runMurmur(t, []string{"MURMUR_FAKE_TEXT=integration words"},
		cmds("KEYDOWN", "SLEEP 1200", "KEYUP", "WAIT", "QUIT"), toneWAV)

	if !strings.Contains(out, "inserted: integration words") {
		t.Errorf("missing inserted line:\n%s", out)
	}
	if !strings.Contains(readLog(t, logDir, "transcribe_log.txt"), "integration words") {
		t.Error("transcribe_log.txt does not hold the text")
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %s", want)
		}
	}
}

func TestShortTapDiscarded(t *testing.T) {
	out, _ := runMurmur(t, []string{"MURMUR_FAKE_TEXT=never"},
		cmds("KEYDOWN", "SLEEP 150", "KEYUP", "WAIT", "QUIT"), toneWAV)

	if strings.Contains(out, "inserted:") {
		t.Errorf("short tap inserted text:\n%s", out)
	}
	if !strings.Contains(out, "ended: discarded_too_short") {
		t.Errorf("want discarded_too_short:\n%s", out)
	}
}

func TestMissingKeyRaisesAlert(t *testing.T) {
	out, _ := runMurmur(t, []string{"OPENAI_API_KEY=", "MURMUR_OPENAI_API_KEY=", "MURMUR_PROVIDER=openai"},
		cmds("KEYDOWN", "SLEEP 1200", "KEYUP", "WAIT", "QUIT"), toneWAV)

	if !strings.Contains(out, "alert: ") {
		t.Errorf("no alert printed:\n%s", out)
	}
	if !strings.Contains(out, "ended: transcription_failed") {
		t.Errorf("want transcription_failed:\n%s", out)
	}
}

func TestGroqTranscribesTone(t *testing.T) {
	if os.Getenv("GROQ_API_KEY") == "" {
		t.Skip("GROQ_API_KEY not set")
	}
	out, _ := runMurmur(t, []string{"MURMUR_PROVIDER=groq"},
		cmds("KEYDOWN", "WAIT_AUDIO_DONE", "KEYUP", "WAIT", "QUIT"), toneWAV)

	if !strings.Contains(out, "ended: ") {
		t.Errorf("cycle did not end:\n%s", out)
	}
}
