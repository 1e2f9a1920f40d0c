// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectra/internal/log"
	"spectra/internal/ring"
)

// drainInterval paces the recording writer goroutine. At 44.1kHz a 50ms
// tick moves ~2205 samples per flush, well inside the tap ring's slack.
const drainInterval = 50 * time.Millisecond

// wavRecorder taps the mono capture stream to a 16-bit WAV file. The
// capture callback only writes into the lock-free tap ring; all file I/O
// happens on a writer goroutine that drains it.
type wavRecorder struct {
	file *os.File
	enc  *wav.Encoder

	rb    *ring.Buffer
	chunk []float32
	buf   *gaudio.IntBuffer

	done chan struct{}
	wg   sync.WaitGroup
}

// write hands samples from the capture callback to the writer goroutine.
// Lock-free and allocation-free.
func (r *wavRecorder) write(samples []float32) {
	r.rb.Write(samples)
}

func (r *wavRecorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.done:
			// Final drain so samples captured just before Stop still land
			// in the file.
			r.flush()
			return
		}
	}
}

// flush encodes everything currently buffered in the tap ring.
func (r *wavRecorder) flush() {
	for {
		n := r.rb.Read(r.chunk)
		if n == 0 {
			return
		}

		data := r.buf.Data[:0]
		for _, s := range r.chunk[:n] {
			data = append(data, int(s*32767))
		}
		r.buf.Data = data

		if err := r.enc.Write(r.buf); err != nil {
			applog.Errorf("Audio: error writing to WAV file: %v", err)
			return
		}
	}
}

// StartRecording begins writing the downmixed input to filename.
func (e *Engine) StartRecording(filename string) error {
	if e.recorder.Load() != nil {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	// Several drain intervals of slack between the callback and the writer.
	chunkSize := e.cfg.Audio.FramesPerBuffer * 8
	rec := &wavRecorder{
		file:  file,
		enc:   wav.NewEncoder(file, int(e.sampleRate), 16, 1, 1),
		rb:    ring.New(chunkSize * 8),
		chunk: make([]float32, chunkSize),
		buf: &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: 1,
				SampleRate:  int(e.sampleRate),
			},
			Data: make([]int, 0, chunkSize),
		},
		done: make(chan struct{}),
	}

	if !e.recorder.CompareAndSwap(nil, rec) {
		file.Close()
		return fmt.Errorf("already recording")
	}

	rec.wg.Add(1)
	go rec.run()

	applog.Infof("Audio: recording input to %s", filename)
	return nil
}

// StopRecording detaches the tap from the callback, joins the writer
// goroutine and finalizes the WAV file. Safe to call when not recording.
func (e *Engine) StopRecording() error {
	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}

	close(rec.done)
	rec.wg.Wait()

	if err := rec.enc.Close(); err != nil {
		rec.file.Close()
		return err
	}
	return rec.file.Close()
}
