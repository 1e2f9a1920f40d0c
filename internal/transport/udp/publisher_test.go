// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"
)

// stubFrames serves a fixed frame.
type stubFrames struct {
	frame []float64
}

func (s *stubFrames) FrameInto(dst []float64) error {
	copy(dst, s.frame)
	return nil
}

func (s *stubFrames) Bands() int { return len(s.frame) }

func newLoopbackPair(t *testing.T) (*net.UDPConn, *Sender) {
	t.Helper()
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to open loopback listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender failed: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	return listener, sender
}

func TestPublisher_PacketFormat(t *testing.T) {
	listener, sender := newLoopbackPair(t)

	frames := &stubFrames{frame: []float64{0.0, 0.25, 0.5, 1.0}}
	p, err := NewPublisher(33*time.Millisecond, sender, frames)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	p.buildAndSendPacket()
	p.buildAndSendPacket()

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	for wantSeq := uint32(1); wantSeq <= 2; wantSeq++ {
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("failed to receive packet %d: %v", wantSeq, err)
		}

		wantLen := 4 + 8 + 2 + len(frames.frame)*4
		if n != wantLen {
			t.Fatalf("packet %d is %d bytes, want %d", wantSeq, n, wantLen)
		}

		r := bytes.NewReader(buf[:n])
		var seq uint32
		var timestamp int64
		var count uint16
		if err := binary.Read(r, binary.BigEndian, &seq); err != nil {
			t.Fatal(err)
		}
		if err := binary.Read(r, binary.BigEndian, &timestamp); err != nil {
			t.Fatal(err)
		}
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			t.Fatal(err)
		}

		if seq != wantSeq {
			t.Errorf("sequence number %d, want %d", seq, wantSeq)
		}
		if timestamp <= 0 {
			t.Errorf("timestamp %d, want positive nanoseconds", timestamp)
		}
		if int(count) != len(frames.frame) {
			t.Errorf("band count %d, want %d", count, len(frames.frame))
		}

		values := make([]float32, count)
		if err := binary.Read(r, binary.BigEndian, values); err != nil {
			t.Fatal(err)
		}
		for i, v := range values {
			if math.Abs(float64(v)-frames.frame[i]) > 1e-6 {
				t.Errorf("band %d = %v, want %v", i, v, frames.frame[i])
			}
		}
	}
}

func TestPublisher_StartStopIdempotent(t *testing.T) {
	_, sender := newLoopbackPair(t)
	p, err := NewPublisher(time.Millisecond, sender, &stubFrames{frame: make([]float64, 64)})
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	p.Start() // no-op while running
	time.Sleep(10 * time.Millisecond)
	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := p.Stop(); err != nil { // no-op when stopped
		t.Fatal(err)
	}
}

func TestPublisher_RejectsNilDependencies(t *testing.T) {
	_, sender := newLoopbackPair(t)

	if _, err := NewPublisher(time.Second, nil, &stubFrames{frame: make([]float64, 4)}); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := NewPublisher(time.Second, sender, nil); err == nil {
		t.Error("expected error for nil frame provider")
	}
}

func TestSender_SendAfterClose(t *testing.T) {
	_, sender := newLoopbackPair(t)

	if err := sender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sender.Close(); err != nil { // repeated close is a no-op
		t.Fatal(err)
	}
	if err := sender.Send([]byte{1, 2, 3}); err == nil {
		t.Error("expected error sending on a closed sender")
	}
}
