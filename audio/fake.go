package audio

import (
	"errors"
	"os"
	"sync"
	"time"
)

const fakeFrameSize = 1024

// FakeContext is an in-process backend. Built with NewFakeContext it replays
// a WAV file; built with NewManualContext it only delivers what the caller
// passes to FakeCapture.Feed.
type FakeContext struct {
	pcm      []byte
	realtime bool
	format   Format

	mu            sync.Mutex
	captures      []*FakeCapture
	defaultSource string
	startGate     chan struct{}
	startErr      error
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{
		pcm:      data,
		realtime: realtime,
		format:   Format{SampleRate: 16000, Channels: 1},
	}, nil
}

func NewManualContext(format Format) *FakeContext {
	return &FakeContext{format: format, defaultSource: "builtin"}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "builtin", Name: "Built-in Microphone"}, {ID: "usb", Name: "USB Microphone"}}, nil
}

func (f *FakeContext) Close() {}

// GateStart makes every subsequent FakeCapture.Start block until the
// returned channel is closed.
func (f *FakeContext) GateStart() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startGate = make(chan struct{})
	return f.startGate
}

func (f *FakeContext) FailStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *FakeContext) SetFormat(format Format) {
	f.mu.Lock()
	f.format = format
	f.mu.Unlock()
}

func (f *FakeContext) DefaultSource() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultSource, nil
}

func (f *FakeContext) SetDefaultSource(id string) error {
	if id == "" {
		return errors.New("empty source id")
	}
	f.mu.Lock()
	f.defaultSource = id
	f.mu.Unlock()
	return nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		format:    f.format,
		gate:      f.startGate,
		startErr:  f.startErr,
		audioDone: make(chan struct{}),
	}
	f.captures = append(f.captures, c)
	return c, nil
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

// Open counts captures that were created and not closed yet.
func (f *FakeContext) Open() int {
	n := 0
	for _, c := range f.Captures() {
		if !c.Closed() {
			n++
		}
	}
	return n
}

// Running counts captures that are started and not stopped.
func (f *FakeContext) Running() int {
	n := 0
	for _, c := range f.Captures() {
		if c.Running() {
			n++
		}
	}
	return n
}

type FakeCapture struct {
	pcm       []byte
	realtime  bool
	format    Format
	gate      chan struct{}
	startErr  error
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	running  bool
	closed   bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) Format() Format { return f.format }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Feed delivers data to the installed callback as if the device produced it.
func (f *FakeCapture) Feed(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb == nil {
		return
	}
	frameBytes := 2 * int(max(f.format.Channels, 1))
	cb(data, uint32(len(data)/frameBytes))
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/2))
	return end
}

func (f *FakeCapture) Start() error {
	if f.gate != nil {
		<-f.gate
	}
	if f.startErr != nil {
		return f.startErr
	}

	f.mu.Lock()
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	if f.pcm == nil {
		close(f.feedDone)
		return nil
	}

	chunkBytes := fakeFrameSize * 2
	if !f.realtime {
		f.mu.Lock()
		cb := f.cb
		f.mu.Unlock()
		if cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(f.audioDone)
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.format.SampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		audioFinished := false

		for {
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()

			if cb != nil {
				if pos < len(f.pcm) {
					pos = f.feedChunk(cb, pos, chunkBytes)
				} else {
					if !audioFinished {
						audioFinished = true
						close(f.audioDone)
					}
					cb(silence, fakeFrameSize)
				}
			}

			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	done := f.feedDone
	f.mu.Unlock()
	<-done
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
