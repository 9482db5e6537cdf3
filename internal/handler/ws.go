package handler

import (
	"log"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/devaloi/chatterbox-cleaner/internal/client"
	"github.com/devaloi/chatterbox-cleaner/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS handles WebSocket upgrade requests. Reserved names, such as the
// bot's, cannot be used by clients.
func ServeWS(h *hub.Hub, reserved ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			writeError(w, http.StatusBadRequest, "user query param required")
			return
		}
		if slices.Contains(reserved, user) {
			writeError(w, http.StatusForbidden, "user name reserved")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		c := client.New(h, conn, user)
		go c.ReadPump()
		go c.WritePump()
	}
}
