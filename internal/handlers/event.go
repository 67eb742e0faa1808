package handlers

import (
	"net/http"
	"strconv"

	"github.com/homesentry/homesentry/internal/repository"
	"github.com/rs/zerolog"
)

type EventHandler struct {
	events repository.EventRepository
	logger zerolog.Logger
}

func NewEventHandler(events repository.EventRepository, logger zerolog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// List returns the most recent alert event rows, newest first. The limit
// query parameter is optional and clamped by the repository.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list events")
		http.Error(w, "Failed to list events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}
