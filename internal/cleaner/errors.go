package cleaner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimit is returned by New when the limit is not positive.
	ErrInvalidLimit = errors.New("cleaner: limit must be greater than 0")
	// ErrNotBound is returned when an operation needs a bound chat.
	ErrNotBound = errors.New("cleaner: chat not bound")
	// ErrNotFound is returned when an explicit id is not tracked for the chat.
	ErrNotFound = errors.New("cleaner: message not tracked")
	// ErrEmpty is returned when the oldest message is requested from an empty chat.
	ErrEmpty = errors.New("cleaner: no tracked messages")
	// ErrNoTransport is returned when a delete is requested without a transport.
	ErrNoTransport = errors.New("cleaner: transport not configured")
)

// DeleteErrorKind classifies transport delete failures.
type DeleteErrorKind int

const (
	// KindOther is any failure the cleaner does not recognise as benign.
	KindOther DeleteErrorKind = iota
	// KindNotFound means the message is already gone on the remote side.
	KindNotFound
	// KindCannotDelete means the remote side refuses to delete the message.
	KindCannotDelete
)

func (k DeleteErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCannotDelete:
		return "cannot_delete"
	default:
		return "other"
	}
}

// DeleteError is returned by a Transport to describe why a delete failed.
type DeleteError struct {
	Kind DeleteErrorKind
	Chat ChatKey
	ID   MessageID
	Err  error
}

func (e *DeleteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delete message %d in %s: %s: %v", e.ID, e.Chat, e.Kind, e.Err)
	}
	return fmt.Sprintf("delete message %d in %s: %s", e.ID, e.Chat, e.Kind)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// IsBenign reports whether err is a transport failure the cleaner swallows:
// the message is already gone or cannot be deleted.
func IsBenign(err error) bool {
	var de *DeleteError
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind == KindNotFound || de.Kind == KindCannotDelete
}
