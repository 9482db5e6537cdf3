package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestRunClientDialError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	var c counters
	err := runClient(context.Background(), &c, "ws"+strings.TrimPrefix(server.URL, "http"), "loadtest", "user_0", 3, 0)
	if err == nil || !strings.Contains(err.Error(), "user_0: dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
	if c.failures != 1 || c.connected != 0 {
		t.Errorf("unexpected counters: failures %d, connected %d", c.failures, c.connected)
	}
}

func TestRunClientSends(t *testing.T) {
	t.Parallel()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	var c counters
	if err := runClient(context.Background(), &c, "ws"+strings.TrimPrefix(server.URL, "http"), "loadtest", "user_0", 3, 2); err != nil {
		t.Fatalf("run client: %v", err)
	}
	if c.connected != 1 || c.sent != 3 || c.failures != 0 {
		t.Errorf("unexpected counters: connected %d, sent %d, failures %d", c.connected, c.sent, c.failures)
	}
}

func TestRunClientCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var c counters
	if err := runClient(ctx, &c, "ws://127.0.0.1:1/ws", "loadtest", "user_0", 3, 0); err == nil {
		t.Fatal("expected error from a canceled run")
	}
}
