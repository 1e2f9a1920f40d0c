// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "spectra/internal/log"
)

// WebSocketTransport broadcasts band frames as JSON arrays to all clients
// connected on /spectrum.
//
// Thread safety and backpressure:
// - Send queues onto a bounded broadcast channel and returns immediately;
//   when the channel is full the frame is dropped (freshness over
//   completeness, mirroring the capture ring's policy)
// - A single broadcaster goroutine owns the client writes
// - The client map is mutex-protected; disconnects remove clients
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan []float64
	server    *http.Server

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	dropped uint64
	dropMu  sync.Mutex
}

// NewWebSocketTransport starts the websocket server on addr with the given
// broadcast queue depth and returns the transport.
func NewWebSocketTransport(addr string, queueDepth int) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // UI clients connect from arbitrary origins
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []float64, queueDepth),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/spectrum", wst.handleWebSocket)
	wst.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("Transport: spectrum websocket server listening on %s", addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: websocket server error: %v", err)
		}
	}()

	wst.wg.Add(1)
	go wst.handleBroadcasts()

	return wst
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("Transport: websocket upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("Transport: client connected, total: %d", total)

	// Drain reads so close frames are noticed; drop the client on error.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.clientsMu.Lock()
				delete(wst.clients, conn)
				total := len(wst.clients)
				wst.clientsMu.Unlock()
				conn.Close()
				applog.Infof("Transport: client disconnected, total: %d", total)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()

	for {
		select {
		case <-wst.done:
			return
		case frame := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(frame); err != nil {
					applog.Debugf("Transport: dropping client after write error: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues a frame for broadcast without blocking the analysis loop.
// The frame must not be mutated after the call.
func (wst *WebSocketTransport) Send(frame []float64) error {
	select {
	case wst.broadcast <- frame:
	default:
		// Consumer behind: keep freshness, drop this frame.
		wst.dropMu.Lock()
		wst.dropped++
		wst.dropMu.Unlock()
	}
	return nil
}

// Dropped returns how many frames were discarded because the broadcast
// queue was full.
func (wst *WebSocketTransport) Dropped() uint64 {
	wst.dropMu.Lock()
	defer wst.dropMu.Unlock()
	return wst.dropped
}

// Close stops the broadcaster goroutine, then shuts down the server and
// all client connections. Safe to call repeatedly; Sends after Close are
// counted as drops once the queue fills.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		close(wst.done)
	})
	wst.wg.Wait()

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
