// Package telemetry streams reports to websocket subscribers.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait = 5 * time.Second
	// Clients only send control frames.
	maxMessageSize = 512
)

// Hub fans encoded reports out to every connected client. New clients get
// the latest report on connect.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
	latest    []byte
	version   uint64

	codec  codec.Codec
	runID  string
	seq    uint64
	logger *zap.Logger
}

func NewHub(c codec.Codec, runID string, logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 64),
		codec:     c,
		runID:     runID,
		logger:    logger.Named("telemetry"),
	}
}

// Run writes queued messages to clients until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *Hub) send(message []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.latest = message
	h.version++
	for client := range h.clients {
		h.write(client, message)
	}
}

// write sends message to a registered client and drops it on failure.
// Caller holds h.lock.
func (h *Hub) write(client *websocket.Conn, message []byte) {
	_ = client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(h.messageType(), message); err != nil {
		h.logger.Debug("dropping client", zap.String("remote", client.RemoteAddr().String()), zap.Error(err))
		client.Close()
		delete(h.clients, client)
	}
}

// remove drops client after its read loop ends.
func (h *Hub) remove(client *websocket.Conn) {
	h.lock.Lock()
	delete(h.clients, client)
	h.lock.Unlock()
	client.Close()
}

// readLoop consumes client frames so close and ping are handled, and
// unregisters the client on the first read error.
func (h *Hub) readLoop(client *websocket.Conn) {
	defer h.remove(client)
	client.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := client.ReadMessage(); err != nil {
			h.logger.Debug("client gone", zap.String("remote", client.RemoteAddr().String()), zap.Error(err))
			return
		}
	}
}

// Broadcast queues msg. It never blocks the feed: when the queue is full
// the message is dropped.
func (h *Hub) Broadcast(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warn("broadcast queue full, dropping message")
		return false
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) messageType() int {
	if h.codec.ContentType() == "application/json" {
		return websocket.TextMessage
	}
	return websocket.BinaryMessage
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// -------------------- Sink --------------------

func (h *Hub) Publish(_ context.Context, r vwap.Report) error {
	h.seq++
	msg, err := h.codec.Encode(codec.FromReport(h.runID, h.seq, r))
	if err != nil {
		return fmt.Errorf("encode hour %d: %w", r.Hour, err)
	}
	h.Broadcast(msg)
	return nil
}

func (h *Hub) Close() error {
	return nil
}

// -------------------- HTTP --------------------

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("ws upgrade error", zap.Error(err))
			return
		}

		h.lock.Lock()
		latest, version := h.latest, h.version
		h.lock.Unlock()

		// The client is not registered yet, so this is the only writer.
		if latest != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(h.messageType(), latest); err != nil {
				conn.Close()
				return
			}
		}

		h.lock.Lock()
		h.clients[conn] = true
		if h.version != version {
			h.write(conn, h.latest)
		}
		h.lock.Unlock()

		h.readLoop(conn)
	})
	return mux
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
