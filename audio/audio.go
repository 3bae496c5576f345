package audio

import "strings"

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives interleaved little-endian s16 frames in the
// device's native Format. It runs on the audio thread and must not block.
type DataCallback func(data []byte, frameCount uint32)

// Format describes a PCM s16 stream.
type Format struct {
	SampleRate uint32
	Channels   uint32
}

func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// CaptureConfig is the format requested from the backend. Zero fields ask
// for the device's native value.
type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// DefaultSourceSetter is implemented by backends that can switch the
// system default input device.
type DefaultSourceSetter interface {
	DefaultSource() (string, error)
	SetDefaultSource(id string) error
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	// Format reports what the device actually delivers once opened.
	Format() Format
	SetCallback(cb DataCallback)
	ClearCallback()
}

// FindDevice returns the device whose name or ID matches, or nil.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name || devices[i].ID == name {
			return &devices[i], nil
		}
	}
	return nil, nil
}
