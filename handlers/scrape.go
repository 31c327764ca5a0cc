package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"streamvault/internal/database"
	"streamvault/models"
	"streamvault/services/scraper"
	"streamvault/services/sources"
)

// apiVersion is stamped into scrape response metadata.
const apiVersion = "1.0"

// ScrapeHandler exposes the on-demand scrape trigger and its observability
// endpoints.
type ScrapeHandler struct {
	scraperService *scraper.Service
	db             *database.DB
}

func NewScrapeHandler(scraperService *scraper.Service, db *database.DB) *ScrapeHandler {
	return &ScrapeHandler{
		scraperService: scraperService,
		db:             db,
	}
}

// Scrape triggers one source run.
// GET /scrape?source=<name>&limit=<int>&timeout=<seconds>&detailed=<bool>&debug=<bool>&fallback=<bool>
func (h *ScrapeHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	source := q.Get("source")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":             "source parameter required",
			"available_sources": h.scraperService.Sources(),
		})
		return
	}

	req := scraper.Request{
		Source:   source,
		Query:    q.Get("query"),
		Detailed: q.Get("detailed") == "true",
		Fallback: q.Get("fallback") == "true",
	}
	if kind := q.Get("kind"); kind != "" {
		req.Kind = sources.Kind(kind)
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		req.Limit = limit
	}
	if seconds, err := strconv.Atoi(q.Get("timeout")); err == nil && seconds > 0 {
		req.Timeout = time.Duration(seconds) * time.Second
	}
	debug := q.Get("debug") == "true"

	res, err := h.scraperService.Scrape(r.Context(), req)
	if err != nil {
		var unknown *models.UnknownSourceError
		switch {
		case errors.As(err, &unknown):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":             unknown.Error(),
				"available_sources": unknown.Available,
			})
		case errors.Is(err, scraper.ErrSourceBusy):
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":  err.Error(),
				"source": source,
			})
		default:
			body := map[string]interface{}{
				"error":     "scrape failed",
				"source":    source,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}
			if debug {
				body["detail"] = err.Error()
			}
			writeJSON(w, http.StatusInternalServerError, body)
		}
		return
	}

	body := map[string]interface{}{
		"results": res.Records,
		"metadata": map[string]interface{}{
			"source":    source,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"count":     len(res.Records),
			"version":   apiVersion,
		},
	}
	if debug {
		body["run"] = res.Run
	}
	writeJSON(w, http.StatusOK, body)
}

// Sources lists the configured source catalog.
// GET /sources
func (h *ScrapeHandler) Sources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": h.scraperService.Sources(),
		"enabled": h.scraperService.EnabledSources(),
	})
}

// Logs returns recent scrape run journal rows.
// GET /scrape/logs?source=<name>&limit=<int>
func (h *ScrapeHandler) Logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	runs, err := h.db.RecentRuns(r.Context(), q.Get("source"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "failed to load scrape logs",
		})
		return
	}
	if runs == nil {
		runs = []models.ScrapeRun{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
