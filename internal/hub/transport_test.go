package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/testutil"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg domain.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *recordingDispatcher) messages() []domain.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]domain.Message, len(d.msgs))
	copy(cp, d.msgs)
	return cp
}

func startHub(t *testing.T) (*Hub, *testutil.MockStore, *testutil.MockClient) {
	t.Helper()
	s := testutil.NewMockStore()
	h := New(s, 100, 50)
	go h.Run()
	t.Cleanup(h.Stop)

	c := testutil.NewMockClient("alice")
	h.Register(c, "general")
	time.Sleep(100 * time.Millisecond)
	return h, s, c
}

func hasDeleteEvent(c *testutil.MockClient, id int64) bool {
	for _, m := range c.GetMessages() {
		var dm domain.DeleteMessage
		if err := json.Unmarshal(m, &dm); err == nil && dm.Type == domain.MsgDelete && dm.ID == id {
			return true
		}
	}
	return false
}

func TestHubPost(t *testing.T) {
	t.Parallel()
	h, s, c := startHub(t)

	id, err := h.Post(context.Background(), "general", "cleanerbot", "pong")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	stored, err := s.Get("general", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.User != "cleanerbot" || stored.Text != "pong" {
		t.Errorf("unexpected stored message: %+v", stored)
	}

	found := false
	for _, m := range c.GetMessages() {
		var decoded domain.Message
		if err := json.Unmarshal(m, &decoded); err == nil && decoded.Type == domain.MsgChat && decoded.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("expected posted message to be broadcast with its id")
	}
}

func TestHubPostUnknownRoom(t *testing.T) {
	t.Parallel()
	h, _, _ := startHub(t)
	if _, err := h.Post(context.Background(), "nowhere", "cleanerbot", "hi"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestHubPostWithoutStore(t *testing.T) {
	t.Parallel()
	h := New(nil, 100, 50)
	go h.Run()
	defer h.Stop()
	if _, err := h.Post(context.Background(), "general", "cleanerbot", "hi"); !errors.Is(err, ErrNoStore) {
		t.Errorf("expected ErrNoStore, got %v", err)
	}
}

func TestHubDispatchesRoutedMessages(t *testing.T) {
	t.Parallel()
	s := testutil.NewMockStore()
	h := New(s, 100, 50)
	d := &recordingDispatcher{}
	h.OnMessage(d)
	go h.Run()
	defer h.Stop()

	c := testutil.NewMockClient("alice")
	h.Register(c, "general")
	time.Sleep(50 * time.Millisecond)

	h.RouteMessage(domain.Message{Type: domain.MsgChat, Room: "general", User: "alice", Text: "/ping"}, c)
	time.Sleep(100 * time.Millisecond)

	msgs := d.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 dispatched message, got %d", len(msgs))
	}
	if msgs[0].ID == 0 || msgs[0].Text != "/ping" {
		t.Errorf("unexpected dispatched message: %+v", msgs[0])
	}
}

func TestTransportDeletesOwnMessage(t *testing.T) {
	t.Parallel()
	h, s, c := startHub(t)
	tr := NewTransport(h, "cleanerbot")

	id, err := h.Post(context.Background(), "general", "cleanerbot", "pong")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := tr.DeleteMessage(context.Background(), "general", cleaner.MessageID(id)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if _, err := s.Get("general", id); err == nil {
		t.Error("expected message to be gone from the store")
	}
	if !hasDeleteEvent(c, id) {
		t.Error("expected delete event to be broadcast")
	}
}

func TestTransportErrorKinds(t *testing.T) {
	t.Parallel()
	h, _, _ := startHub(t)
	tr := NewTransport(h, "cleanerbot")
	ctx := context.Background()

	err := tr.DeleteMessage(ctx, "general", 999)
	var de *cleaner.DeleteError
	if !errors.As(err, &de) || de.Kind != cleaner.KindNotFound {
		t.Errorf("missing message: expected not_found, got %v", err)
	}

	id, _ := h.Post(ctx, "general", "alice", "mine")
	err = tr.DeleteMessage(ctx, "general", cleaner.MessageID(id))
	if !errors.As(err, &de) || de.Kind != cleaner.KindCannotDelete {
		t.Errorf("foreign message: expected cannot_delete, got %v", err)
	}
	if !errors.Is(err, ErrNotAuthor) {
		t.Errorf("expected ErrNotAuthor in chain, got %v", err)
	}
}

func TestTransportCanceledContext(t *testing.T) {
	t.Parallel()
	h, _, _ := startHub(t)
	tr := NewTransport(h, "cleanerbot")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.DeleteMessage(ctx, "general", 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if cleaner.IsBenign(err) {
		t.Error("canceled delete must not be benign")
	}
}
