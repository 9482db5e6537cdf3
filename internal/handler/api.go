package handler

import (
	"encoding/json"
	"net/http"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
	"github.com/devaloi/chatterbox-cleaner/internal/hub"
)

// Health returns a simple health check handler.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ListRooms returns all active rooms with user and tracked reply counts.
func ListRooms(h *hub.Hub, c *cleaner.Cleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := h.ListRooms()
		for i := range rooms {
			rooms[i].Tracked = trackedCount(c, rooms[i].Name)
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// RoomInfo returns details about one room. Registered on /api/rooms/{name}.
func RoomInfo(h *hub.Hub, c *cleaner.Cleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "room name required")
			return
		}

		info := h.RoomInfo(name)
		if info == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		info.Tracked = trackedCount(c, name)
		writeJSON(w, http.StatusOK, info)
	}
}

func trackedCount(c *cleaner.Cleaner, room string) int {
	if c == nil {
		return 0
	}
	ids, err := c.Messages(cleaner.ChatKey(room))
	if err != nil {
		return 0
	}
	return len(ids)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.ErrorMessage{Type: domain.MsgError, Message: msg})
}
