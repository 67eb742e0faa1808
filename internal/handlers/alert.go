package handlers

import (
	"net/http"

	"github.com/homesentry/homesentry/internal/alerts"
)

type AlertHandler struct {
	grace *alerts.GraceTracker
}

func NewAlertHandler(grace *alerts.GraceTracker) *AlertHandler {
	return &AlertHandler{grace: grace}
}

// Pending exposes checks that are currently failing but have not yet cleared
// the confirmation threshold. Useful for seeing what is about to alert.
func (h *AlertHandler) Pending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.grace.Pending())
}
