package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handlers bundles everything Register wires into the router.
type Handlers struct {
	Scrape *handlers.ScrapeHandler
	Stream *handlers.StreamHandler
	Image  *handlers.ImageHandler
	Health *handlers.HealthHandler
}

// Register mounts all routes on the router.
func Register(r *mux.Router, h Handlers) {
	r.Use(corsMiddleware)

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	r.HandleFunc("/scrape", h.Scrape.Scrape).Methods(http.MethodGet)
	r.HandleFunc("/scrape/logs", h.Scrape.Logs).Methods(http.MethodGet)
	r.HandleFunc("/sources", h.Scrape.Sources).Methods(http.MethodGet)

	r.HandleFunc("/stream/{contentId}", h.Stream.Resolve).Methods(http.MethodGet)

	// Image variants are mounted last: /{size}/{imageId} would otherwise
	// shadow the named routes above.
	r.HandleFunc("/{size:w200|w500|w1000|original}/{imageId}", h.Image.Variant).Methods(http.MethodGet)
}
