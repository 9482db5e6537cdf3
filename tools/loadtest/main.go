package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	connected int64
	sent      int64
	received  int64
	botChats  int64
	deletes   int64
	failures  int64

	mu        sync.Mutex
	latencies []time.Duration
}

func main() {
	wsURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	apiURL := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	clients := flag.Int("clients", 10, "Number of concurrent clients")
	room := flag.String("room", "loadtest", "Room to join")
	messages := flag.Int("messages", 10, "Messages per client")
	every := flag.Int("command-every", 3, "Send a /ping instead of plain text every N messages (0 disables)")
	flag.Parse()

	log.Printf("Load test: %d clients, %d messages each, room=%s", *clients, *messages, *room)

	var c counters
	start := time.Now()

	// The first client that fails cancels the rest.
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < *clients; i++ {
		user := fmt.Sprintf("user_%d", i)
		g.Go(func() error {
			return runClient(ctx, &c, *wsURL, *room, user, *messages, *every)
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("load test aborted: %v", err)
	}
	elapsed := time.Since(start)

	sort.Slice(c.latencies, func(i, j int) bool { return c.latencies[i] < c.latencies[j] })

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Clients:     %d connected\n", c.connected)
	fmt.Printf("Sent:        %d messages\n", c.sent)
	fmt.Printf("Received:    %d messages\n", c.received)
	fmt.Printf("Bot replies: %d seen, %d deletes seen\n", c.botChats, c.deletes)
	fmt.Printf("Errors:      %d\n", c.failures)
	if len(c.latencies) > 0 {
		fmt.Printf("Latency p50: %s\n", percentile(c.latencies, 50))
		fmt.Printf("Latency p95: %s\n", percentile(c.latencies, 95))
		fmt.Printf("Latency p99: %s\n", percentile(c.latencies, 99))
	}
	fmt.Printf("Throughput:  %.0f msgs/sec\n", float64(c.sent)/elapsed.Seconds())

	if tracked, limit, err := fetchTracked(*apiURL, *room); err != nil {
		log.Printf("tracked: %v", err)
	} else {
		fmt.Printf("Tracked:     %d/%d bot messages\n", tracked, limit)
	}
}

func runClient(ctx context.Context, c *counters, wsURL, room, user string, messages, every int) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL+"?user="+url.QueryEscape(user), nil)
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		return fmt.Errorf("%s: dial: %w", user, err)
	}
	defer conn.Close()
	atomic.AddInt64(&c.connected, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&c.received, 1)
			var msg struct {
				Type string `json:"type"`
				User string `json:"user"`
			}
			if json.Unmarshal(data, &msg) != nil {
				continue
			}
			switch {
			case msg.Type == "delete":
				atomic.AddInt64(&c.deletes, 1)
			case msg.Type == "chat" && msg.User != "" && !strings.HasPrefix(msg.User, "user_"):
				atomic.AddInt64(&c.botChats, 1)
			}
		}
	}()

	joinMsg, _ := json.Marshal(map[string]string{"type": "join", "room": room})
	if err := conn.WriteMessage(websocket.TextMessage, joinMsg); err != nil {
		atomic.AddInt64(&c.failures, 1)
		return fmt.Errorf("%s: join: %w", user, err)
	}
	time.Sleep(100 * time.Millisecond)

	for j := 0; j < messages; j++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := fmt.Sprintf("msg %d from %s", j, user)
		if every > 0 && j%every == every-1 {
			text = "/ping"
		}
		sendTime := time.Now()
		chatMsg, _ := json.Marshal(map[string]string{"type": "chat", "room": room, "text": text})
		if err := conn.WriteMessage(websocket.TextMessage, chatMsg); err != nil {
			atomic.AddInt64(&c.failures, 1)
			return fmt.Errorf("%s: send: %w", user, err)
		}
		atomic.AddInt64(&c.sent, 1)
		lat := time.Since(sendTime)
		c.mu.Lock()
		c.latencies = append(c.latencies, lat)
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}

	// Wait a bit for remaining messages.
	time.Sleep(500 * time.Millisecond)
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
	return nil
}

func fetchTracked(apiURL, room string) (int, int, error) {
	resp, err := http.Get(apiURL + "/api/rooms/" + url.PathEscape(room) + "/tracked")
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body struct {
		Limit int     `json:"limit"`
		IDs   []int64 `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, err
	}
	return len(body.IDs), body.Limit, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
