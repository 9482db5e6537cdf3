package client

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Time allowed for a delete requested by the peer.
	deleteWait = 5 * time.Second
)

// Client is a WebSocket client connected to the hub. It may delete the
// messages it wrote, and only those.
type Client struct {
	hub      *hub.Hub
	conn     *websocket.Conn
	send     chan []byte
	username string
	rooms    map[string]struct{}
	own      *hub.Transport
}

// New creates a new Client.
func New(h *hub.Hub, conn *websocket.Conn, username string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		username: username,
		rooms:    make(map[string]struct{}),
		own:      hub.NewTransport(h, username),
	}
}

// Username returns the client's username.
func (c *Client) Username() string {
	return c.username
}

// Send queues a message to be sent to the WebSocket client.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		// Client send buffer full, drop message.
		log.Printf("client %s: send buffer full, dropping message", c.username)
	}
}

// ReadPump reads messages from the WebSocket connection and routes them to the hub.
func (c *Client) ReadPump() {
	defer func() {
		// Unregister from all rooms on disconnect.
		for room := range c.rooms {
			c.hub.Unregister(c, room)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("client %s: read error: %v", c.username, err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump writes messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// inbound handles one decoded client message. A non-empty return is sent
// back to the client as an error.
type inbound func(c *Client, msg domain.Message) string

var inboundByType = map[string]inbound{
	domain.MsgJoin:   (*Client).join,
	domain.MsgLeave:  (*Client).leave,
	domain.MsgChat:   (*Client).chat,
	domain.MsgDelete: (*Client).remove,
}

func (c *Client) handleMessage(data []byte) {
	msg, err := domain.DecodeMessage(data)
	if err != nil {
		c.sendError("invalid JSON")
		return
	}
	handle, ok := inboundByType[msg.Type]
	if !ok {
		c.sendError("unknown message type: " + msg.Type)
		return
	}
	if problem := handle(c, msg); problem != "" {
		c.sendError(problem)
	}
}

func (c *Client) join(msg domain.Message) string {
	if msg.Room == "" {
		return "room name required"
	}
	c.rooms[msg.Room] = struct{}{}
	c.hub.Register(c, msg.Room)
	return ""
}

func (c *Client) leave(msg domain.Message) string {
	if msg.Room == "" {
		return "room name required"
	}
	delete(c.rooms, msg.Room)
	c.hub.Unregister(c, msg.Room)
	return ""
}

func (c *Client) chat(msg domain.Message) string {
	if msg.Room == "" || msg.Text == "" {
		return "room and text required"
	}
	if !c.member(msg.Room) {
		return "not in room"
	}
	msg.ID = 0
	msg.User = c.username
	msg.Timestamp = time.Now().UTC()
	c.hub.RouteMessage(msg, c)
	return ""
}

// remove deletes a message the client wrote. The hub broadcasts the removal
// to the room, the client included.
func (c *Client) remove(msg domain.Message) string {
	if msg.Room == "" || msg.ID == 0 {
		return "room and id required"
	}
	if !c.member(msg.Room) {
		return "not in room"
	}

	ctx, cancel := context.WithTimeout(context.Background(), deleteWait)
	defer cancel()
	err := c.own.DeleteMessage(ctx, cleaner.ChatKey(msg.Room), cleaner.MessageID(msg.ID))
	var de *cleaner.DeleteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &de) && de.Kind == cleaner.KindNotFound:
		return "message not found"
	case errors.As(err, &de) && de.Kind == cleaner.KindCannotDelete:
		return "cannot delete another user's message"
	default:
		log.Printf("client %s: delete %d in %s: %v", c.username, msg.ID, msg.Room, err)
		return "delete failed"
	}
}

func (c *Client) member(room string) bool {
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) sendError(message string) {
	if data, err := domain.Encode(domain.ErrorMessage{Type: domain.MsgError, Message: message}); err == nil {
		c.Send(data)
	}
}
