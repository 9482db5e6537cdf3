package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
	"github.com/devaloi/chatterbox-cleaner/internal/testutil"
)

func TestHubListRoomsSorted(t *testing.T) {
	t.Parallel()
	h := New(testutil.NewMockStore(), 100, 50)
	go h.Run()
	defer h.Stop()

	h.Register(testutil.NewMockClient("alice"), "zeta")
	h.Register(testutil.NewMockClient("bob"), "alpha")
	h.Register(testutil.NewMockClient("carol"), "alpha")
	time.Sleep(100 * time.Millisecond)

	rooms := h.ListRooms()
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].Name != "alpha" || rooms[0].UserCount != 2 {
		t.Errorf("unexpected first room: %+v", rooms[0])
	}
	if rooms[1].Name != "zeta" || rooms[1].UserCount != 1 {
		t.Errorf("unexpected second room: %+v", rooms[1])
	}
	if h.RoomInfo("nonexistent") != nil {
		t.Error("expected nil for nonexistent room")
	}
}

func TestHubRouteMessageAssignsID(t *testing.T) {
	t.Parallel()
	s := testutil.NewMockStore()
	h := New(s, 100, 50)
	go h.Run()
	defer h.Stop()

	alice := testutil.NewMockClient("alice")
	bob := testutil.NewMockClient("bob")
	h.Register(alice, "general")
	h.Register(bob, "general")
	time.Sleep(100 * time.Millisecond)

	h.RouteMessage(domain.Message{Type: domain.MsgChat, Room: "general", User: "alice", Text: "hello", Timestamp: time.Now()}, alice)
	time.Sleep(100 * time.Millisecond)

	history, _ := s.History("general", 50)
	if len(history) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(history))
	}
	id := history[0].ID
	for _, c := range []*testutil.MockClient{alice, bob} {
		if !received(c, func(m domain.Message) bool { return m.Type == domain.MsgChat && m.Text == "hello" && m.ID == id }) {
			t.Errorf("client %s did not receive message %d", c.Name, id)
		}
	}
}

func TestHubRouteMessageUnknownRoom(t *testing.T) {
	t.Parallel()
	d := &recordingDispatcher{}
	h := New(testutil.NewMockStore(), 100, 50)
	h.OnMessage(d)
	go h.Run()
	defer h.Stop()

	c := testutil.NewMockClient("alice")
	h.RouteMessage(domain.Message{Type: domain.MsgChat, Room: "nowhere", User: "alice", Text: "/ping"}, c)
	time.Sleep(100 * time.Millisecond)

	if !received(c, func(m domain.ErrorMessage) bool { return m.Type == domain.MsgError && m.Message == "room not found" }) {
		t.Error("expected room not found error")
	}
	if len(d.messages()) != 0 {
		t.Error("unroutable message must not be dispatched")
	}
}

func TestHubRemove(t *testing.T) {
	t.Parallel()
	h, s, c := startHub(t)
	ctx := context.Background()

	id, err := h.Post(ctx, "general", "bob", "bye")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := h.Remove("general", id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Get("general", id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}
	if err := h.Remove("general", id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if !hasDeleteEvent(c, id) {
		t.Error("expected delete event")
	}
}

func TestHubAutoCleanup(t *testing.T) {
	t.Parallel()
	h := New(testutil.NewMockStore(), 100, 50)
	go h.Run()
	defer h.Stop()

	c := testutil.NewMockClient("alice")
	h.Register(c, "temp")
	time.Sleep(100 * time.Millisecond)
	if len(h.ListRooms()) != 1 {
		t.Fatal("expected 1 room")
	}

	h.Unregister(c, "temp")
	time.Sleep(100 * time.Millisecond)
	if len(h.ListRooms()) != 0 {
		t.Error("expected room to be auto-deleted")
	}
	if _, err := h.Post(context.Background(), "temp", "cleanerbot", "late"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("post to removed room: expected ErrRoomNotFound, got %v", err)
	}
}

func TestHubMaxRooms(t *testing.T) {
	t.Parallel()
	h := New(testutil.NewMockStore(), 2, 50)
	go h.Run()
	defer h.Stop()

	c3 := testutil.NewMockClient("charlie")
	h.Register(testutil.NewMockClient("alice"), "room1")
	h.Register(testutil.NewMockClient("bob"), "room2")
	h.Register(c3, "room3")
	time.Sleep(100 * time.Millisecond)

	if len(h.ListRooms()) != 2 {
		t.Errorf("expected 2 rooms (max), got %d", len(h.ListRooms()))
	}
	if !received(c3, func(m domain.ErrorMessage) bool { return m.Type == domain.MsgError && m.Message == "max rooms reached" }) {
		t.Error("expected error message for max rooms")
	}
}

type blockingDispatcher struct {
	started chan struct{}
	done    chan struct{}
}

func (d *blockingDispatcher) Dispatch(ctx context.Context, _ domain.Message) {
	close(d.started)
	<-ctx.Done()
	close(d.done)
}

func TestHubStopCancelsDispatch(t *testing.T) {
	t.Parallel()
	d := &blockingDispatcher{started: make(chan struct{}), done: make(chan struct{})}
	h := New(testutil.NewMockStore(), 100, 50)
	h.OnMessage(d)
	go h.Run()

	c := testutil.NewMockClient("alice")
	h.Register(c, "general")
	h.RouteMessage(domain.Message{Type: domain.MsgChat, Room: "general", User: "alice", Text: "/purge"}, c)

	select {
	case <-d.started:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not start")
	}
	h.Stop()
	select {
	case <-d.done:
	default:
		t.Error("Stop returned before the dispatch finished")
	}
}
