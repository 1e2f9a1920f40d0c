// SPDX-License-Identifier: MIT
/*
Package audio owns the capture side of the pipeline: device selection, the
PortAudio input stream, and the real-time callback that feeds the sample
ring.

Thread safety:
- The callback writes only into pre-allocated buffers and the lock-free ring
- State transitions use atomics; no lock is shared with the callback
- A watchdog goroutine restarts the stream with bounded exponential backoff
  when the device stops delivering samples mid-run
*/
package audio

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/ring"
)

// Status reports the engine's lifecycle state to callers polling for
// health, notably after mid-stream device loss.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusReconnecting
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusReconnecting:
		return "reconnecting"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Watchdog cadence: the stream counts as interrupted when no samples arrive
// for stallTimeout while the engine believes it is running.
const (
	watchInterval  = 500 * time.Millisecond
	stallTimeout   = 2 * time.Second
	restartBackoff = 250 * time.Millisecond
)

type Engine struct {
	cfg *config.Config

	// Audio input handling.
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	// Destination ring and pre-allocated mono downmix buffer.
	ring     *ring.Buffer
	mono     []float32
	channels int

	sampleRate float64

	status  atomic.Int32
	running atomic.Bool

	watchDone chan struct{}
	watchWG   sync.WaitGroup

	// Recording tap, swapped atomically so the callback never races the
	// encoder teardown (recording.go).
	recorder atomic.Pointer[wavRecorder]
}

// NewEngine selects the input device and prepares all capture buffers.
// The sample ring must be sized by the caller (at least two analysis frames).
func NewEngine(cfg *config.Config, rb *ring.Buffer) (*Engine, error) {
	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	channels := cfg.Audio.InputChannels
	if channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}
	if channels < 1 {
		channels = 1
	}

	sampleRate := cfg.Audio.SampleRate
	if sampleRate == 0 {
		sampleRate = device.DefaultSampleRate
	}

	e := &Engine{
		cfg:        cfg,
		device:     device,
		ring:       rb,
		mono:       make([]float32, cfg.Audio.FramesPerBuffer),
		channels:   channels,
		sampleRate: sampleRate,
	}

	if cfg.Audio.LowLatency {
		e.latency = device.DefaultLowInputLatency
	} else {
		e.latency = device.DefaultHighInputLatency
	}

	applog.Infof("Audio: using device %q (%d ch, %.0f Hz)", device.Name, channels, sampleRate)
	return e, nil
}

// SampleRate returns the rate the stream was opened at.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Status returns the engine's current lifecycle state.
func (e *Engine) Status() Status { return Status(e.status.Load()) }

// Start opens the input stream and begins capture. Repeated calls while
// running are no-ops.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		applog.Debugf("Audio: Start called but engine already running")
		return nil
	}

	if err := e.openStream(); err != nil {
		e.running.Store(false)
		return err
	}

	e.status.Store(int32(StatusRunning))
	e.watchDone = make(chan struct{})
	e.watchWG.Add(1)
	go e.watch(e.watchDone)

	return nil
}

// Stop tears the capture down in reverse order: the watchdog first so it
// cannot race a restart, then the stream.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}

	close(e.watchDone)
	e.watchWG.Wait()

	err := e.closeStream()
	e.status.Store(int32(StatusIdle))
	return err
}

// Close releases the device and then finalizes any active recording. The
// stream stops first so no callback can be in flight while the recording
// tap drains and the encoder closes.
func (e *Engine) Close() error {
	err := e.Stop()
	if rerr := e.StopRecording(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func (e *Engine) openStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.device,
			Latency:  e.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.Audio.FramesPerBuffer,
		SampleRate:      e.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInput)
	if err != nil {
		return classifyOpenErr(err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return classifyOpenErr(err)
	}

	return nil
}

func (e *Engine) closeStream() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		e.stream.Close()
		e.stream = nil
		return err
	}
	err := e.stream.Close()
	e.stream = nil
	return err
}

// processInput is the real-time capture callback.
// Performance critical:
// - Runs on PortAudio's audio thread (LockOSThread)
// - Pre-allocated buffers only, no heap allocation
// - No locks; the ring write side is atomics only
// - If the ring is full the oldest unread samples are overwritten
func (e *Engine) processInput(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var monoBlock []float32
	if e.channels == 1 {
		monoBlock = in
	} else {
		frames := len(in) / e.channels
		if frames > len(e.mono) {
			frames = len(e.mono)
		}
		inv := float32(1) / float32(e.channels)
		for i := 0; i < frames; i++ {
			var sum float32
			base := i * e.channels
			for c := 0; c < e.channels; c++ {
				sum += in[base+c]
			}
			e.mono[i] = sum * inv
		}
		monoBlock = e.mono[:frames]
	}

	e.ring.Write(monoBlock)

	// One load, one nil check: a concurrent StopRecording swaps the pointer
	// to nil before touching the encoder, and the tap write is ring-only.
	if rec := e.recorder.Load(); rec != nil {
		rec.write(monoBlock)
	}
}

// watch monitors capture progress and drives the bounded restart loop when
// the device stops delivering samples (unplugged, permission revoked).
func (e *Engine) watch(done chan struct{}) {
	defer e.watchWG.Done()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	lastWritten := e.ring.Written()
	lastProgress := time.Now()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			written := e.ring.Written()
			if written != lastWritten {
				lastWritten = written
				lastProgress = time.Now()
				continue
			}
			if time.Since(lastProgress) < stallTimeout {
				continue
			}

			applog.Warnf("Audio: %v, attempting restart", ErrStreamInterrupted)
			e.status.Store(int32(StatusReconnecting))

			if e.restartWithBackoff(done) {
				lastWritten = e.ring.Written()
				lastProgress = time.Now()
				e.status.Store(int32(StatusRunning))
				continue
			}
			if !e.running.Load() {
				return // Stop() raced the restart; nothing to report.
			}
			applog.Errorf("Audio: restart attempts exhausted after %d tries", e.cfg.Audio.MaxRestarts)
			e.status.Store(int32(StatusFailed))
			return
		}
	}
}

// restartWithBackoff retries opening the stream with exponential backoff,
// re-resolving the device each attempt in case the default input changed.
func (e *Engine) restartWithBackoff(done chan struct{}) bool {
	backoff := restartBackoff

	for attempt := 1; attempt <= e.cfg.Audio.MaxRestarts; attempt++ {
		select {
		case <-done:
			return false
		case <-time.After(backoff):
		}
		backoff *= 2

		e.closeStream()

		device, err := InputDevice(e.cfg.Audio.InputDevice)
		if err == nil {
			e.device = device
			err = e.openStream()
		}
		if err == nil {
			applog.Infof("Audio: stream restarted on attempt %d", attempt)
			return true
		}
		applog.Warnf("Audio: restart attempt %d/%d failed: %v", attempt, e.cfg.Audio.MaxRestarts, err)
	}
	return false
}
