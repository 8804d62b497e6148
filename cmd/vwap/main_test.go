package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"itchvwap/api/telemetry"
	"itchvwap/infra/codec"
)

func TestStartTelemetry_StopWaitsForClients(t *testing.T) {
	hub := telemetry.NewHub(codec.JSON{}, "run-1", zap.NewNop())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var jobs sync.WaitGroup
	startTelemetry(ctx, &jobs, hub, "127.0.0.1:0", zap.NewNop())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	jobs.Wait()
	if n := hub.Clients(); n != 0 {
		t.Fatalf("clients must be closed once jobs are stopped, got %d", n)
	}
}
