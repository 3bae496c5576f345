package recorder

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"murmur/audio"
)

// attempt is the set of resources opened for one session.
type attempt struct {
	session uint64
	device  audio.CaptureDevice
	sink    *wavSink
	conv    *audio.Converter
	restore func()
	started time.Time

	mu       sync.Mutex
	closed   bool
	meter    LevelMeter
	writeErr error

	once      sync.Once
	closeErr  error
	discarded atomic.Bool
}

// write runs on the audio thread.
func (a *attempt) write(data []byte) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, false
	}
	samples := a.conv.Convert(data)
	if err := a.sink.Write(samples); err != nil && a.writeErr == nil {
		a.writeErr = err
	}
	return a.meter.Update(samples), true
}

// shutdown stops the device and closes the file. Safe to call twice.
func (a *attempt) shutdown() error {
	a.once.Do(func() {
		a.device.Stop()
		a.device.ClearCallback()
		a.device.Close()

		a.mu.Lock()
		a.closed = true
		a.closeErr = a.sink.Close()
		a.mu.Unlock()

		if a.restore != nil {
			a.restore()
		}
	})
	return a.closeErr
}

func (a *attempt) discard() {
	a.discarded.Store(true)
	a.shutdown()
	a.sink.Remove()
}

func (a *attempt) failure(closeErr error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writeErr != nil {
		return fmt.Errorf("write recording: %w", a.writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close recording: %w", closeErr)
	}
	return nil
}
