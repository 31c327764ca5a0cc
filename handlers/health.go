package handlers

import (
	"net/http"
	"time"

	"streamvault/internal/database"
)

// HealthHandler reports liveness and store counts.
type HealthHandler struct {
	db      *database.DB
	started time.Time
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Health responds to liveness probes.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.db.CountContent(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  "database unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"content": counts,
	})
}
