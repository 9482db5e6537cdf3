package testutil

import (
	"context"
	"sync"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
)

// MockClient implements hub.Client for testing.
type MockClient struct {
	Name     string
	messages [][]byte
	mu       sync.Mutex
}

// NewMockClient creates a new MockClient with the given name.
func NewMockClient(name string) *MockClient {
	return &MockClient{Name: name}
}

// Username returns the mock client's name.
func (m *MockClient) Username() string { return m.Name }

// Send records a message sent to the mock client.
func (m *MockClient) Send(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.messages = append(m.messages, cp)
}

// GetMessages returns a copy of all messages received by the mock client.
func (m *MockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]byte, len(m.messages))
	copy(cp, m.messages)
	return cp
}

// MockStore implements store.Store for testing.
type MockStore struct {
	mu       sync.Mutex
	nextID   int64
	messages map[string][]domain.Message
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{messages: make(map[string][]domain.Message)}
}

// Save persists a message in the mock store and assigns it an id.
func (s *MockStore) Save(msg domain.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	s.messages[msg.Room] = append(s.messages[msg.Room], msg)
	return msg.ID, nil
}

// History returns stored messages for a room.
func (s *MockStore) History(room string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[room]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Get returns a stored message by id.
func (s *MockStore) Get(room string, id int64) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages[room] {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Message{}, store.ErrNotFound
}

// Delete removes a stored message by id.
func (s *MockStore) Delete(room string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[room]
	for i, m := range msgs {
		if m.ID == id {
			s.messages[room] = append(msgs[:i:i], msgs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Close is a no-op for the mock store.
func (s *MockStore) Close() error { return nil }

// DeleteCall records one MockTransport.DeleteMessage call.
type DeleteCall struct {
	Chat cleaner.ChatKey
	ID   cleaner.MessageID
}

// MockTransport implements cleaner.Transport, recording every call.
type MockTransport struct {
	mu    sync.Mutex
	calls []DeleteCall
	errs  map[cleaner.MessageID]error
	// Hook, when set, runs inside DeleteMessage before it returns.
	Hook func(call DeleteCall)
}

// NewMockTransport creates a MockTransport whose deletes all succeed.
func NewMockTransport() *MockTransport {
	return &MockTransport{errs: make(map[cleaner.MessageID]error)}
}

// FailWith makes deletes of id return err.
func (t *MockTransport) FailWith(id cleaner.MessageID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs[id] = err
}

// DeleteMessage records the call and returns the configured error, if any.
func (t *MockTransport) DeleteMessage(_ context.Context, chat cleaner.ChatKey, id cleaner.MessageID) error {
	call := DeleteCall{Chat: chat, ID: id}
	t.mu.Lock()
	t.calls = append(t.calls, call)
	err := t.errs[id]
	hook := t.Hook
	t.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return err
}

// Calls returns a copy of every recorded call.
func (t *MockTransport) Calls() []DeleteCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]DeleteCall, len(t.calls))
	copy(cp, t.calls)
	return cp
}

// IDs returns the ids of every recorded call, in call order.
func (t *MockTransport) IDs() []cleaner.MessageID {
	calls := t.Calls()
	ids := make([]cleaner.MessageID, len(calls))
	for i, c := range calls {
		ids[i] = c.ID
	}
	return ids
}

// Post records one MockPoster.Post call.
type Post struct {
	ID   int64
	Room string
	User string
	Text string
}

// MockPoster implements bot.Poster, assigning increasing ids.
type MockPoster struct {
	mu     sync.Mutex
	nextID int64
	posts  []Post
	// Err, when set, is returned by every Post.
	Err error
}

// NewMockPoster creates a MockPoster.
func NewMockPoster() *MockPoster {
	return &MockPoster{}
}

// Post records the message and returns its id.
func (p *MockPoster) Post(_ context.Context, room, user, text string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return 0, p.Err
	}
	p.nextID++
	p.posts = append(p.posts, Post{ID: p.nextID, Room: room, User: user, Text: text})
	return p.nextID, nil
}

// Posts returns a copy of every recorded post.
func (p *MockPoster) Posts() []Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Post, len(p.posts))
	copy(cp, p.posts)
	return cp
}
