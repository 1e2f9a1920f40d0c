// SPDX-License-Identifier: MIT
/*
Package udp publishes smoothed band frames as compact binary datagrams
for consumers that want the spectrum without a websocket connection
(native overlays, lighting controllers).

Packet layout, BigEndian:

	| Sequence Number | uint32  | 4 bytes  | monotonically increasing |
	| Timestamp       | int64   | 8 bytes  | nanoseconds since epoch  |
	| Band Count      | uint16  | 2 bytes  | number of floats (N)     |
	| Bands           | float32 | N*4 bytes| loudness values in [0,1] |

Delivery is fire-and-forget: the publisher ticks at its own interval and
samples the latest frame, so a slow or absent receiver never backs up the
analysis loop.
*/
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/transport"
)

// Publisher periodically pulls the latest band frame from a FrameProvider,
// packs it and sends it through a Sender. One goroutine, managed by
// Start/Stop.
type Publisher struct {
	sender   *Sender
	frames   transport.FrameProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	sequenceNum uint32

	// Pre-allocated buffers; packing allocates nothing per tick.
	frameBuf     []float64
	f32Buf       []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher sending one packet per interval.
// Intervals <= 0 default to 33ms (~30Hz).
func NewPublisher(interval time.Duration, sender *Sender, frames transport.FrameProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP publisher: sender cannot be nil")
	}
	if frames == nil {
		return nil, fmt.Errorf("UDP publisher: frame provider cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDP publisher: invalid interval, defaulting to %s", interval)
	}

	bands := frames.Bands()
	applog.Infof("UDP publisher: initializing (interval %s, %d bands)", interval, bands)

	return &Publisher{
		sender:       sender,
		frames:       frames,
		interval:     interval,
		frameBuf:     make([]float64, bands),
		f32Buf:       make([]float32, bands),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Subsequent calls while running
// are no-ops.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDP publisher: goroutine started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDP publisher: goroutine received stop signal")
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it to exit. Safe to call
// repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) buildAndSendPacket() {
	if err := p.frames.FrameInto(p.frameBuf); err != nil {
		applog.Errorf("UDP publisher: error fetching frame: %v", err)
		return
	}
	for i, v := range p.frameBuf {
		p.f32Buf[i] = float32(v)
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	bandCount := uint16(len(p.f32Buf))

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, bandCount)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buf)
	}
	if err != nil {
		applog.Errorf("UDP publisher: error packing packet: %v", err)
		return
	}

	packet := p.packetBuffer.Bytes()
	if err := p.sender.Send(packet); err != nil {
		applog.Debugf("UDP publisher: send failed: %v", err)
		return
	}
	applog.Debugf("UDP publisher: sent packet %d (%d bytes)", p.sequenceNum, len(packet))
}

// Close stops the publisher. Implements io.Closer for shutdown stacks.
func (p *Publisher) Close() error {
	return p.Stop()
}
