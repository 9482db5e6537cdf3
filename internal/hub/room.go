package hub

import (
	"log"
	"slices"
	"sync"

	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
)

// Client is the interface that hub/room expects from a WebSocket client.
type Client interface {
	Username() string
	Send(data []byte)
}

const roomBuffer = 256

// Room fans events out to its members. Chat messages, deletes, joins and
// leaves all pass through the same broadcast queue, so members see them in
// the order the room received them.
type Room struct {
	name    string
	mu      sync.RWMutex
	members map[Client]struct{}
	events  chan []byte
	store   store.Store
	history int
	quit    chan struct{}
	once    sync.Once
}

// NewRoom creates a room that replays up to historyLimit stored messages to
// members as they join.
func NewRoom(name string, s store.Store, historyLimit int) *Room {
	return &Room{
		name:    name,
		members: make(map[Client]struct{}),
		events:  make(chan []byte, roomBuffer),
		store:   s,
		history: historyLimit,
		quit:    make(chan struct{}),
	}
}

// Run delivers queued events until Stop. Should be called as a goroutine.
func (r *Room) Run() {
	for {
		select {
		case data := <-r.events:
			r.mu.RLock()
			for c := range r.members {
				c.Send(data)
			}
			r.mu.RUnlock()
		case <-r.quit:
			return
		}
	}
}

// Stop ends the delivery loop. Safe to call more than once.
func (r *Room) Stop() {
	r.once.Do(func() { close(r.quit) })
}

// Join adds c, sends it the stored history with message ids, announces the
// join and sends c the member list.
func (r *Room) Join(c Client) {
	r.mu.Lock()
	r.members[c] = struct{}{}
	r.mu.Unlock()

	if msgs := r.recent(); len(msgs) > 0 {
		r.sendTo(c, domain.HistoryMessage{Type: domain.MsgHistory, Room: r.name, Messages: msgs})
	}
	r.notify(domain.Message{Type: domain.MsgJoin, Room: r.name, User: c.Username()})
	r.sendTo(c, domain.PresenceMessage{Type: domain.MsgPresence, Room: r.name, Users: r.Users()})
}

// Leave removes c and announces it.
func (r *Room) Leave(c Client) {
	r.mu.Lock()
	delete(r.members, c)
	r.mu.Unlock()

	r.notify(domain.Message{Type: domain.MsgLeave, Room: r.name, User: c.Username()})
}

// Broadcast queues encoded data for every member. After Stop it drops data
// instead of blocking.
func (r *Room) Broadcast(data []byte) {
	select {
	case r.events <- data:
	case <-r.quit:
	}
}

// Announce encodes v and broadcasts it.
func (r *Room) Announce(v any) error {
	data, err := domain.Encode(v)
	if err != nil {
		return err
	}
	r.Broadcast(data)
	return nil
}

// Has reports whether c is a member.
func (r *Room) Has(c Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[c]
	return ok
}

// ClientCount returns the number of members.
func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Name returns the room name.
func (r *Room) Name() string {
	return r.name
}

// Users returns the member names, sorted.
func (r *Room) Users() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.members))
	for c := range r.members {
		users = append(users, c.Username())
	}
	r.mu.RUnlock()
	slices.Sort(users)
	return users
}

func (r *Room) recent() []domain.Message {
	if r.store == nil || r.history <= 0 {
		return nil
	}
	msgs, err := r.store.History(r.name, r.history)
	if err != nil {
		log.Printf("room %s: history: %v", r.name, err)
		return nil
	}
	return msgs
}

func (r *Room) notify(v any) {
	if err := r.Announce(v); err != nil {
		log.Printf("room %s: encode: %v", r.name, err)
	}
}

func (r *Room) sendTo(c Client, v any) {
	data, err := domain.Encode(v)
	if err != nil {
		log.Printf("room %s: encode: %v", r.name, err)
		return
	}
	c.Send(data)
}
