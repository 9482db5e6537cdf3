package handler

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
	"github.com/devaloi/chatterbox-cleaner/internal/domain"
)

// Tracked returns the bot messages the cleaner tracks for a room.
// Registered on /api/rooms/{name}/tracked.
func Tracked(c *cleaner.Cleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "room name required")
			return
		}

		ids, err := c.Messages(cleaner.ChatKey(name))
		if errors.Is(err, cleaner.ErrNotBound) {
			writeError(w, http.StatusNotFound, "room not tracked")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := domain.Tracked{Room: name, Limit: c.Limit(), IDs: make([]int64, len(ids))}
		for i, id := range ids {
			out.IDs[i] = int64(id)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Metrics serves the collectors registered with g.
func Metrics(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
