package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/homesentry/homesentry/internal/handlers"
	"github.com/homesentry/homesentry/internal/middleware"
)

// NewRouter sets up the API routes
func NewRouter(
	health *handlers.HealthHandler,
	events *handlers.EventHandler,
	alerts *handlers.AlertHandler,
	jwtSecret string,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route, always open
	router.HandleFunc("/health", health.Check).Methods(http.MethodGet)

	// Read-only API, token-protected when a secret is configured
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.JWTMiddleware(jwtSecret))
	api.HandleFunc("/events", events.List).Methods(http.MethodGet)
	api.HandleFunc("/alerts/pending", alerts.Pending).Methods(http.MethodGet)

	return router
}
