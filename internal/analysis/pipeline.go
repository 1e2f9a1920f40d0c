// SPDX-License-Identifier: MIT
/*
Package analysis implements the spectrum side of the engine: frame
assembly, FFT, logarithmic binning, loudness scaling and temporal
smoothing, driven by a single worker goroutine that consumes the capture
ring.

The worker owns every stage sequentially; per-frame cost is well under a
millisecond so no internal parallelism is needed. All stage buffers are
pre-allocated, and only the published frame copy allocates.
*/
package analysis

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/ring"
	"spectra/internal/transport"
)

// Pipeline runs the analysis stages over samples read from the capture
// ring and publishes one smoothed band frame per hop to the transport.
type Pipeline struct {
	cfg  *config.Config
	ring *ring.Buffer

	assembler *FrameAssembler
	analyzer  *SpectralAnalyzer
	layout    *BandLayout
	scaler    *LoudnessScaler
	smoother  *TemporalSmoother
	transport transport.Transport

	// Pre-allocated stage buffers.
	hopBuf   []float32
	windowed []float64
	rawBands []float64
	scaled   []float64
	smoothed []float64

	// Latest published frame for pull-based consumers.
	latest   []float64
	latestMu sync.RWMutex

	published atomic.Uint64

	// Silence tracking for the smoother reset.
	silentFor   time.Duration
	hopDuration time.Duration

	// Worker lifecycle, guarded by mu.
	mu       sync.Mutex
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPipeline wires the analysis stages for the given configuration and
// sample rate. The transport may be nil, in which case frames are only
// available through FrameInto.
func NewPipeline(cfg *config.Config, sampleRate float64, rb *ring.Buffer, tr transport.Transport) (*Pipeline, error) {
	s := &cfg.Spectrum

	windowType, err := ParseWindowFunc(s.Window)
	if err != nil {
		applog.Warnf("Analysis: %v, using Hann", err)
	}

	analyzer, err := NewSpectralAnalyzer(s.FFTSize, sampleRate)
	if err != nil {
		return nil, err
	}
	layout, err := NewBandLayout(s.Bands, s.MinFreq, s.MaxFreq, sampleRate, s.FFTSize)
	if err != nil {
		return nil, err
	}

	applog.Infof("Analysis: %d bands over %.0f-%.0f Hz, FFT %d, hop %d (%.1f frames/s)",
		s.Bands, s.MinFreq, s.MaxFreq, s.FFTSize, s.HopSize, sampleRate/float64(s.HopSize))

	return &Pipeline{
		cfg:         cfg,
		ring:        rb,
		assembler:   NewFrameAssembler(s.FFTSize, s.HopSize, windowType),
		analyzer:    analyzer,
		layout:      layout,
		scaler:      NewLoudnessScaler(s.Bands, s.FloorDB, s.CeilingDB, s.Sensitivity),
		smoother:    NewTemporalSmoother(s.Bands, s.Attack, s.Decay),
		transport:   tr,
		hopBuf:      make([]float32, s.HopSize),
		windowed:    make([]float64, s.FFTSize),
		rawBands:    make([]float64, s.Bands),
		scaled:      make([]float64, s.Bands),
		smoothed:    make([]float64, s.Bands),
		latest:      make([]float64, s.Bands),
		hopDuration: time.Duration(float64(s.HopSize) / sampleRate * float64(time.Second)),
	}, nil
}

// Start launches the analysis worker. All smoothed state is reset before
// the first new frame is published, so a restart begins from zero bands.
// Repeated starts while running are no-ops.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.doneChan != nil {
		p.mu.Unlock()
		applog.Warnf("Analysis: Start called but already running")
		return
	}

	p.smoother.Reset()
	p.assembler.Reset()
	p.ring.Reset()
	p.silentFor = 0

	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Analysis: worker started (tick %s)", p.hopDuration/2)

		// Poll at half the hop period so a full hop never sits unread for
		// longer than one tick.
		ticker := time.NewTicker(p.hopDuration / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.drain()
			case <-doneChan:
				applog.Infof("Analysis: worker received stop signal")
				return
			}
		}
	}()
}

// Stop signals the worker and waits for it to exit. A stop request takes
// effect at the next tick boundary; frames are sub-millisecond so no
// mid-frame cancellation is needed. Safe to call repeatedly.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if p.doneChan == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
	})
	p.doneChan = nil
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// drain processes every complete hop currently buffered in the ring.
func (p *Pipeline) drain() {
	for p.ring.Buffered() >= len(p.hopBuf) {
		n := p.ring.Read(p.hopBuf)
		p.step(p.hopBuf[:n])
	}
}

// step advances the pipeline by one hop of samples.
func (p *Pipeline) step(samples []float32) {
	p.trackSilence(samples)

	p.assembler.Append(samples)
	if !p.assembler.Ready() {
		return
	}

	p.assembler.WindowInto(p.windowed)
	magnitudes := p.analyzer.Analyze(p.windowed)
	p.layout.BinInto(p.rawBands, magnitudes)
	p.scaler.ScaleInto(p.scaled, p.rawBands)
	p.smoother.SmoothInto(p.smoothed, p.scaled)

	p.publish()
}

// trackSilence resets the smoother after a sustained stretch of
// near-silent input so stale bars cannot linger at the noise floor.
func (p *Pipeline) trackSilence(samples []float32) {
	if p.cfg.Spectrum.SilenceMS <= 0 {
		return
	}

	gate := float32(p.cfg.Spectrum.SilenceGate)
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}

	if peak >= gate {
		p.silentFor = 0
		return
	}

	p.silentFor += p.hopDuration
	timeout := time.Duration(p.cfg.Spectrum.SilenceMS) * time.Millisecond
	if p.silentFor >= timeout {
		p.smoother.Reset()
	}
}

// publish copies the smoothed frame and hands it to the transport. The
// copy is what makes the published frame immutable while stage buffers
// are reused; publishing runs on the worker, never the capture callback.
func (p *Pipeline) publish() {
	frame := make([]float64, len(p.smoothed))
	copy(frame, p.smoothed)

	p.latestMu.Lock()
	copy(p.latest, frame)
	p.latestMu.Unlock()

	if p.transport != nil {
		if err := p.transport.Send(frame); err != nil {
			applog.Errorf("Analysis: transport send failed: %v", err)
		}
	}
	p.published.Add(1)
}

// FrameInto copies the latest published frame into dst.
// Implements transport.FrameProvider.
func (p *Pipeline) FrameInto(dst []float64) error {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	if len(dst) != len(p.latest) {
		return fmt.Errorf("destination length %d does not match band count %d", len(dst), len(p.latest))
	}
	copy(dst, p.latest)
	return nil
}

// Bands returns the number of values per published frame.
// Implements transport.FrameProvider.
func (p *Pipeline) Bands() int { return p.layout.Bands() }

// Published returns the number of frames handed to the transport.
func (p *Pipeline) Published() uint64 { return p.published.Load() }

// Faults returns the analyzer's zero-substituted frame count.
func (p *Pipeline) Faults() uint64 { return p.analyzer.Faults() }

// Layout returns the immutable band layout.
func (p *Pipeline) Layout() *BandLayout { return p.layout }

var _ transport.FrameProvider = (*Pipeline)(nil)
