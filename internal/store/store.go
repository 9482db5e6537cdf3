package store

import (
	"errors"

	"github.com/devaloi/chatterbox-cleaner/internal/domain"
)

// ErrNotFound is returned when a message id does not exist in a room.
var ErrNotFound = errors.New("store: message not found")

// Store defines the message persistence interface.
type Store interface {
	// Save persists a message and returns the id assigned to it.
	Save(msg domain.Message) (int64, error)
	// History returns the last `limit` messages for a room, oldest first.
	History(room string, limit int) ([]domain.Message, error)
	// Get returns a single message of a room.
	Get(room string, id int64) (domain.Message, error)
	// Delete removes a single message of a room.
	Delete(room string, id int64) error
	// Close releases any resources held by the store.
	Close() error
}
