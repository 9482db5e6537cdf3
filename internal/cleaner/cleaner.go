// Package cleaner keeps a bounded list of message ids per chat and deletes
// the oldest message through a Transport once the limit is exceeded.
package cleaner

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"
)

// ChatKey identifies a chat (a room, a channel, a conversation).
type ChatKey string

// MessageID is the id the transport assigned to a sent message.
type MessageID int64

// Transport performs the remote side of a delete. Benign failures must be
// reported as *DeleteError with KindNotFound or KindCannotDelete.
type Transport interface {
	DeleteMessage(ctx context.Context, chat ChatKey, id MessageID) error
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger used for swallowed transport failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Cleaner) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors to the cleaner.
func WithMetrics(m *Metrics) Option {
	return func(c *Cleaner) {
		c.metrics = m
	}
}

// Cleaner owns the tracked message ids of every chat it has been bound to.
// It is safe for concurrent use; per-chat work goes through a Scope.
type Cleaner struct {
	limit   int
	mu      sync.RWMutex
	chats   map[ChatKey]*chat
	logger  *log.Logger
	metrics *Metrics
}

// chat is the tracked state of one chat. mu serializes every operation on
// the chat, transport calls included.
type chat struct {
	mu  sync.Mutex
	ids []MessageID
}

// New creates a Cleaner keeping at most limit messages per chat.
func New(limit int, opts ...Option) (*Cleaner, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	c := &Cleaner{
		limit:  limit,
		chats:  make(map[ChatKey]*chat),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cleaner) String() string {
	return fmt.Sprintf("<Cleaner limit:%d>", c.limit)
}

// Limit returns the per-chat capacity.
func (c *Cleaner) Limit() int {
	return c.limit
}

// Bind returns a Scope for key, creating an empty entry the first time the
// key is seen. Binding an already known key keeps its messages.
func (c *Cleaner) Bind(key ChatKey, t Transport) *Scope {
	c.mu.Lock()
	ch, ok := c.chats[key]
	if !ok {
		ch = &chat{}
		c.chats[key] = ch
	}
	c.mu.Unlock()

	return &Scope{cleaner: c, key: key, chat: ch, transport: t}
}

// Messages returns a copy of the ids tracked for key, oldest first.
func (c *Cleaner) Messages(key ChatKey) ([]MessageID, error) {
	c.mu.RLock()
	ch, ok := c.chats[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, key)
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return slices.Clone(ch.ids), nil
}

// Chats returns every key bound so far, sorted.
func (c *Cleaner) Chats() []ChatKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]ChatKey, 0, len(c.chats))
	for k := range c.chats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Scope is a handle on one chat of a Cleaner, obtained per dispatch with
// Bind. The zero value is unbound and every operation on it fails with
// ErrNotBound.
type Scope struct {
	cleaner   *Cleaner
	key       ChatKey
	chat      *chat
	transport Transport
}

// Key returns the chat the scope is bound to.
func (s *Scope) Key() ChatKey {
	if s == nil {
		return ""
	}
	return s.key
}

// Limit returns the capacity of the chat, or 0 for an unbound scope.
func (s *Scope) Limit() int {
	if s.bound() != nil {
		return 0
	}
	return s.cleaner.limit
}

func (s *Scope) bound() error {
	if s == nil || s.cleaner == nil || s.chat == nil {
		return ErrNotBound
	}
	return nil
}

// Messages returns a copy of the tracked ids, oldest first.
func (s *Scope) Messages() ([]MessageID, error) {
	if err := s.bound(); err != nil {
		return nil, err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()
	return slices.Clone(s.chat.ids), nil
}

// Add tracks id. When the chat is full the oldest message is deleted first;
// if that delete fails with a non-benign error, id is not tracked and the
// error is returned.
func (s *Scope) Add(ctx context.Context, id MessageID) error {
	if err := s.bound(); err != nil {
		return err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()

	if len(s.chat.ids) >= s.cleaner.limit {
		res, err := s.deleteOldestLocked(ctx)
		if res.Outcome != OutcomeNone {
			s.cleaner.metrics.IncEviction()
		}
		if err != nil {
			return err
		}
	}
	s.chat.ids = append(s.chat.ids, id)
	s.cleaner.metrics.IncAdded()
	return nil
}

// Delete deletes a tracked message through the transport. The id leaves
// the tracked list once the transport has deleted it or reported a benign
// failure; on any other error it stays tracked and the error is returned.
func (s *Scope) Delete(ctx context.Context, id MessageID) (DeleteResult, error) {
	if err := s.bound(); err != nil {
		return DeleteResult{ID: id}, err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()
	return s.deleteLocked(ctx, id)
}

// DeleteOldest removes the oldest tracked message and deletes it through
// the transport. The id is untracked before the transport is called, so it
// is gone even when the returned error is non-nil.
func (s *Scope) DeleteOldest(ctx context.Context) (DeleteResult, error) {
	if err := s.bound(); err != nil {
		return DeleteResult{}, err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()
	return s.deleteOldestLocked(ctx)
}

// Clear forgets every tracked message without deleting anything remotely
// and returns how many it forgot.
func (s *Scope) Clear() (int, error) {
	if err := s.bound(); err != nil {
		return 0, err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()
	n := len(s.chat.ids)
	s.chat.ids = s.chat.ids[:0]
	return n, nil
}

// Purge deletes every tracked message, oldest first, one at a time. When
// all deletes complete the chat is cleared. A non-benign failure stops the
// loop: the report covers the attempts made so far and the messages not yet
// attempted stay tracked.
func (s *Scope) Purge(ctx context.Context) (PurgeReport, error) {
	if err := s.bound(); err != nil {
		return PurgeReport{}, err
	}
	s.chat.mu.Lock()
	defer s.chat.mu.Unlock()

	s.cleaner.metrics.IncPurge()
	snapshot := slices.Clone(s.chat.ids)
	report := PurgeReport{Results: make([]DeleteResult, 0, len(snapshot))}
	for _, id := range snapshot {
		res, err := s.deleteLocked(ctx, id)
		report.Results = append(report.Results, res)
		if err != nil {
			return report, err
		}
	}
	s.chat.ids = s.chat.ids[:0]
	return report, nil
}

func (s *Scope) deleteLocked(ctx context.Context, id MessageID) (DeleteResult, error) {
	if s.transport == nil {
		return DeleteResult{ID: id}, ErrNoTransport
	}
	idx := slices.Index(s.chat.ids, id)
	if idx < 0 {
		return DeleteResult{ID: id}, fmt.Errorf("%w: %d in %s", ErrNotFound, id, s.key)
	}
	res, err := s.remoteDelete(ctx, id)
	if err != nil {
		return res, err
	}
	s.chat.ids = slices.Delete(s.chat.ids, idx, idx+1)
	return res, nil
}

func (s *Scope) deleteOldestLocked(ctx context.Context) (DeleteResult, error) {
	if s.transport == nil {
		return DeleteResult{}, ErrNoTransport
	}
	if len(s.chat.ids) == 0 {
		return DeleteResult{}, fmt.Errorf("%w: %s", ErrEmpty, s.key)
	}
	id := s.chat.ids[0]
	s.chat.ids = slices.Delete(s.chat.ids, 0, 1)
	return s.remoteDelete(ctx, id)
}

// remoteDelete calls the transport and swallows benign failures.
func (s *Scope) remoteDelete(ctx context.Context, id MessageID) (DeleteResult, error) {
	res := DeleteResult{ID: id}
	err := s.transport.DeleteMessage(ctx, s.key, id)
	switch {
	case err == nil:
		res.Outcome = OutcomeDeleted
	case IsBenign(err):
		res.Outcome = OutcomeSkipped
		res.Err = err
		s.cleaner.logger.Printf("cleaner: cannot delete message %d in %s: %v", id, s.key, err)
	default:
		res.Outcome = OutcomeFailed
		res.Err = err
		s.cleaner.metrics.IncDelete(res.Outcome)
		return res, err
	}
	s.cleaner.metrics.IncDelete(res.Outcome)
	return res, nil
}
