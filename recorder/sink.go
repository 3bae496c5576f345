package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"murmur/audio"
)

// wavSink writes s16 PCM to a temporary WAV file.
type wavSink struct {
	path string
	f    *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
}

func createSink(dir string, format audio.Format) (*wavSink, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "dictation_"+uuid.NewString()+".wav")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &wavSink{
		path: path,
		f:    f,
		enc:  wav.NewEncoder(f, int(format.SampleRate), 16, int(format.Channels), 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: int(format.Channels), SampleRate: int(format.SampleRate)},
			SourceBitDepth: 16,
		},
	}, nil
}

func (s *wavSink) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	s.buf.Data = data
	return s.enc.Write(s.buf)
}

// Close finalises the WAV header and closes the file.
func (s *wavSink) Close() error {
	return errors.Join(s.enc.Close(), s.f.Close())
}

func (s *wavSink) Remove() {
	os.Remove(s.path)
}
