package transcriber

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"murmur/audio"
	"murmur/encoder"
)

type upload struct {
	data    []byte
	ext     string
	rawSize int
	audioS  float64
	encode  time.Duration
}

// prepareUpload reads a WAV artifact and converts it to the upload format.
func prepareUpload(path, format string) (*upload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if len(raw) <= audio.WAVHeaderSize {
		return nil, ErrNoData
	}

	dec := wav.NewDecoder(bytes.NewReader(raw))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a WAV file", ErrFileRead, path)
	}
	up := &upload{rawSize: len(raw)}
	if bytesPerSec := int(dec.SampleRate) * int(dec.NumChans) * 2; bytesPerSec > 0 {
		up.audioS = float64(len(raw)-audio.WAVHeaderSize) / float64(bytesPerSec)
	}

	switch format {
	case "", "wav":
		up.data, up.ext = raw, "wav"
		return up, nil
	case "flac":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedUpload, format)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if buf.Format == nil || buf.Format.NumChannels != 1 || dec.BitDepth != 16 {
		return nil, fmt.Errorf("%w: flac needs mono 16-bit input", ErrUnsupportedUpload)
	}
	if len(buf.Data) == 0 {
		return nil, ErrNoData
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	enc, err := encoder.NewFlac(dec.SampleRate)
	if err != nil {
		return nil, err
	}
	if err := encoder.EncodeAll(enc, samples); err != nil {
		return nil, fmt.Errorf("flac encode: %w", err)
	}
	up.data, up.ext, up.encode = enc.Bytes(), "flac", enc.EncodeTime()
	return up, nil
}
