package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"itchvwap/domain/vwap"
	"itchvwap/infra/codec"
)

func connect(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHub_PublishReachesClient(t *testing.T) {
	h := NewHub(codec.JSON{}, "run-1", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := connect(t, h)

	r := vwap.Report{Hour: 1, Lines: []vwap.Line{{Stock: "ABC", Shares: 3, VWAP: decimal.RequireFromString("1.5")}}}
	if err := h.Publish(ctx, r); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", mt)
	}
	env, err := codec.JSON{}.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if env.Hour != 1 || env.Lines[0].VWAP != "1.5" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := NewHub(codec.JSON{}, "run-1", zap.NewNop())
	for i := 0; i < cap(h.broadcast); i++ {
		if !h.Broadcast([]byte("x")) {
			t.Fatalf("message %d dropped before the queue filled", i)
		}
	}
	if h.Broadcast([]byte("overflow")) {
		t.Fatal("expected drop when the queue is full")
	}
}

func TestHub_DisconnectedClientIsDropped(t *testing.T) {
	h := NewHub(codec.JSON{}, "run-1", zap.NewNop())
	conn := connect(t, h)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("close frame: %v", err)
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_NewClientGetsLatest(t *testing.T) {
	h := NewHub(codec.JSON{}, "run-1", zap.NewNop())
	h.send([]byte(`{"hour":3}`))

	conn := connect(t, h)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"hour":3}` {
		t.Fatalf("expected latest report on connect, got %s", data)
	}
}
