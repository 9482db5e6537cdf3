package hub

import (
	"context"
	"errors"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/store"
)

// ErrNotAuthor is wrapped in the delete error returned for messages the
// transport's author did not write.
var ErrNotAuthor = errors.New("hub: message has a different author")

// Transport deletes messages of one author through the hub. It implements
// cleaner.Transport.
type Transport struct {
	hub    *Hub
	author string
}

// NewTransport returns a Transport that may only delete messages written by
// author.
func NewTransport(h *Hub, author string) *Transport {
	return &Transport{hub: h, author: author}
}

// Author returns the user whose messages the transport deletes.
func (t *Transport) Author() string {
	return t.author
}

// DeleteMessage removes message id from room chat and broadcasts the
// removal to the room.
func (t *Transport) DeleteMessage(ctx context.Context, chat cleaner.ChatKey, id cleaner.MessageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	room := string(chat)

	msg, err := t.hub.Message(room, int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return &cleaner.DeleteError{Kind: cleaner.KindNotFound, Chat: chat, ID: id, Err: err}
	}
	if err != nil {
		return err
	}
	if msg.User != t.author {
		return &cleaner.DeleteError{Kind: cleaner.KindCannotDelete, Chat: chat, ID: id, Err: ErrNotAuthor}
	}

	err = t.hub.Remove(room, int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return &cleaner.DeleteError{Kind: cleaner.KindNotFound, Chat: chat, ID: id, Err: err}
	}
	return err
}
