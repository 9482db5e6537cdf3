package hub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
)

// RegisterRequest asks the hub to register a client.
type RegisterRequest struct {
	Client Client
	Room   string
}

// UnregisterRequest asks the hub to unregister a client from a room.
type UnregisterRequest struct {
	Client Client
	Room   string
}

// MessageRequest routes a message through the hub.
type MessageRequest struct {
	Message domain.Message
	Sender  Client
}

// ErrRoomNotFound is returned when posting to a room that does not exist.
var ErrRoomNotFound = errors.New("hub: room not found")

// ErrNoStore is returned by operations that need message ids when the hub
// runs without a store.
var ErrNoStore = errors.New("hub: no store configured")

// Dispatcher receives every chat message routed through the hub, after it
// has been persisted and broadcast. Each message is dispatched in its own
// goroutine.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message)
}

// Hub manages all rooms and routes messages between clients.
type Hub struct {
	rooms      map[string]*Room
	mu         sync.RWMutex
	register   chan RegisterRequest
	unregister chan UnregisterRequest
	message    chan MessageRequest
	store      store.Store
	maxRooms   int
	maxHistory int
	quit       chan struct{}
	stopped    chan struct{}

	dispatcher Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
	inflight   sync.WaitGroup
}

// New creates a new Hub.
func New(s store.Store, maxRooms, maxHistory int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:        ctx,
		cancel:     cancel,
		rooms:      make(map[string]*Room),
		register:   make(chan RegisterRequest, 256),
		unregister: make(chan UnregisterRequest, 256),
		message:    make(chan MessageRequest, 256),
		store:      s,
		maxRooms:   maxRooms,
		maxHistory: maxHistory,
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's main event loop. Should be called as a goroutine.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case req := <-h.register:
			h.handleRegister(req)
		case req := <-h.unregister:
			h.handleUnregister(req)
		case req := <-h.message:
			h.handleMessage(req)
		case <-h.quit:
			return
		}
	}
}

// OnMessage sets the dispatcher that sees every routed chat message. It
// must be called before Run.
func (h *Hub) OnMessage(d Dispatcher) {
	h.dispatcher = d
}

// Stop signals the hub's event loop to exit, waits for it and for running
// dispatches, then stops all rooms. Run must have been started.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.stopped
	h.cancel()
	h.inflight.Wait()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		r.Stop()
	}
}

// Register queues a client registration request.
func (h *Hub) Register(client Client, room string) {
	h.register <- RegisterRequest{Client: client, Room: room}
}

// Unregister queues a client unregistration request.
func (h *Hub) Unregister(client Client, room string) {
	h.unregister <- UnregisterRequest{Client: client, Room: room}
}

// RouteMessage queues a message for routing.
func (h *Hub) RouteMessage(msg domain.Message, sender Client) {
	h.message <- MessageRequest{Message: msg, Sender: sender}
}

// ListRooms returns info about all active rooms, sorted by name.
func (h *Hub) ListRooms() []domain.Room {
	h.mu.RLock()
	rooms := make([]domain.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, domain.Room{
			Name:      r.Name(),
			UserCount: r.ClientCount(),
		})
	}
	h.mu.RUnlock()
	slices.SortFunc(rooms, func(a, b domain.Room) int { return strings.Compare(a.Name, b.Name) })
	return rooms
}

// RoomInfo returns details about a specific room, or nil if not found.
func (h *Hub) RoomInfo(name string) *domain.Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[name]
	if !ok {
		return nil
	}
	return &domain.Room{
		Name:      r.Name(),
		UserCount: r.ClientCount(),
	}
}

func (h *Hub) handleRegister(req RegisterRequest) {
	h.mu.Lock()
	r, ok := h.rooms[req.Room]
	if !ok {
		if len(h.rooms) >= h.maxRooms {
			h.mu.Unlock()
			sendError(req.Client, "max rooms reached")
			return
		}
		r = NewRoom(req.Room, h.store, h.maxHistory)
		h.rooms[req.Room] = r
		go r.Run()
		log.Printf("room created: %s", req.Room)
	}
	h.mu.Unlock()
	r.Join(req.Client)
}

func (h *Hub) handleUnregister(req UnregisterRequest) {
	h.mu.Lock()
	r, ok := h.rooms[req.Room]
	if !ok {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	r.Leave(req.Client)

	// Auto-cleanup empty rooms.
	if r.ClientCount() == 0 {
		h.mu.Lock()
		// Double-check after acquiring write lock.
		if r.ClientCount() == 0 {
			r.Stop()
			delete(h.rooms, req.Room)
			log.Printf("room deleted: %s", req.Room)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) handleMessage(req MessageRequest) {
	h.mu.RLock()
	r, ok := h.rooms[req.Message.Room]
	h.mu.RUnlock()
	if !ok {
		sendError(req.Sender, "room not found")
		return
	}

	// Persist the message.
	if h.store != nil {
		id, err := h.store.Save(req.Message)
		if err != nil {
			log.Printf("store save error: %v", err)
		}
		req.Message.ID = id
	}

	if err := r.Announce(req.Message); err != nil {
		log.Printf("encode message: %v", err)
	}

	if h.dispatcher != nil {
		h.inflight.Add(1)
		go func(msg domain.Message) {
			defer h.inflight.Done()
			h.dispatcher.Dispatch(h.ctx, msg)
		}(req.Message)
	}
}

// Post persists a message authored by user and broadcasts it to room. The
// message is not handed to the dispatcher.
func (h *Hub) Post(ctx context.Context, room, user, text string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if h.store == nil {
		return 0, ErrNoStore
	}
	r := h.room(room)
	if r == nil {
		return 0, fmt.Errorf("%w: %s", ErrRoomNotFound, room)
	}

	msg := domain.Message{
		Type:      domain.MsgChat,
		Room:      room,
		User:      user,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	id, err := h.store.Save(msg)
	if err != nil {
		return 0, fmt.Errorf("save message: %w", err)
	}
	msg.ID = id

	if err := r.Announce(msg); err != nil {
		return id, fmt.Errorf("broadcast message %d: %w", id, err)
	}
	return id, nil
}

// Remove deletes a stored message and tells the room's clients about it.
func (h *Hub) Remove(room string, id int64) error {
	if h.store == nil {
		return ErrNoStore
	}
	if err := h.store.Delete(room, id); err != nil {
		return err
	}
	if r := h.room(room); r != nil {
		return r.Announce(domain.DeleteMessage{Type: domain.MsgDelete, Room: room, ID: id})
	}
	return nil
}

// Message returns a stored message of room.
func (h *Hub) Message(room string, id int64) (domain.Message, error) {
	if h.store == nil {
		return domain.Message{}, ErrNoStore
	}
	return h.store.Get(room, id)
}

func sendError(c Client, text string) {
	if data, err := domain.Encode(domain.ErrorMessage{Type: domain.MsgError, Message: text}); err == nil {
		c.Send(data)
	}
}

func (h *Hub) room(name string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[name]
}
