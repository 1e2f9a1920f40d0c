// SPDX-License-Identifier: MIT
package transport

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestLoggingTransport_NeverFails(t *testing.T) {
	lt := NewLoggingTransport()

	if err := lt.Send([]float64{0.1, 0.2}); err != nil {
		t.Errorf("Send returned %v, want nil", err)
	}
	if err := lt.Send(nil); err != nil {
		t.Errorf("Send(nil) returned %v, want nil", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close returned %v, want nil", err)
	}
}

func TestWebSocketTransport_SendDropsWhenQueueFull(t *testing.T) {
	// Build the transport without its server or broadcaster so the queue
	// fills deterministically.
	wst := &WebSocketTransport{
		broadcast: make(chan []float64, 2),
	}

	frame := []float64{0.5}
	for i := 0; i < 5; i++ {
		if err := wst.Send(frame); err != nil {
			t.Fatalf("Send %d returned %v, want nil even when dropping", i, err)
		}
	}

	if got := wst.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3 (queue depth 2, 5 sends)", got)
	}
	if len(wst.broadcast) != 2 {
		t.Errorf("queue holds %d frames, want 2", len(wst.broadcast))
	}
}

func TestWebSocketTransport_CloseStopsBroadcaster(t *testing.T) {
	wst := &WebSocketTransport{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []float64, 1),
		done:      make(chan struct{}),
	}
	wst.wg.Add(1)
	go wst.handleBroadcasts()

	wst.Send([]float64{0.5})

	// Close joins the broadcaster goroutine; a hang here means it leaked.
	if err := wst.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
	if err := wst.Close(); err != nil { // repeated close is a no-op
		t.Fatalf("second Close returned %v", err)
	}

	// Sends after Close must still not block or fail.
	if err := wst.Send([]float64{0.5}); err != nil {
		t.Errorf("Send after Close returned %v", err)
	}
}

func TestWebSocketTransport_SendNeverBlocks(t *testing.T) {
	wst := &WebSocketTransport{
		broadcast: make(chan []float64), // unbuffered, no consumer
	}

	done := make(chan struct{})
	go func() {
		wst.Send([]float64{1})
		close(done)
	}()

	select {
	case <-done:
	default:
		// Give the goroutine a chance to run; Send must return without a
		// consumer on the channel.
		<-done
	}
}
