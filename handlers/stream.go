package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/models"
	"streamvault/services/streaminfo"
)

// StreamHandler serves resolved stream URLs to playback clients.
type StreamHandler struct {
	streamService *streaminfo.Service
}

func NewStreamHandler(streamService *streaminfo.Service) *StreamHandler {
	return &StreamHandler{streamService: streamService}
}

// streamResponse wraps a servable entry in the response envelope.
type streamResponse struct {
	Status string `json:"status"`
	*models.StreamingInfo
}

// Resolve returns the streaming entry for a content id.
// GET /stream/{contentId}
func (h *StreamHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	contentID := mux.Vars(r)["contentId"]
	if contentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status":  "error",
			"message": "contentId required",
		})
		return
	}

	info, err := h.streamService.ResolveStream(r.Context(), contentID)
	if err != nil {
		h.resolveError(w, r, contentID, err)
		return
	}

	writeJSON(w, http.StatusOK, streamResponse{Status: "success", StreamingInfo: info})
}

// resolveError maps resolution failures onto the error envelope. Anything
// a later refresh could repair carries needsRefresh plus the type fallback
// artwork so clients can degrade without a second round trip.
func (h *StreamHandler) resolveError(w http.ResponseWriter, r *http.Request, contentID string, err error) {
	var (
		netErr  *models.NetworkError
		chalErr *models.ChallengeError
	)
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status":      "error",
			"message":     "content not found",
			"content_id":  contentID,
			"fallbackUrl": h.streamService.FallbackURL(r.Context(), contentID),
		})
	case errors.Is(err, models.ErrNeedsRefresh), errors.As(err, &netErr), errors.As(err, &chalErr):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status":       "error",
			"message":      "stream unavailable",
			"content_id":   contentID,
			"fallbackUrl":  h.streamService.FallbackURL(r.Context(), contentID),
			"needsRefresh": true,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":     "error",
			"message":    "failed to resolve stream",
			"content_id": contentID,
		})
	}
}
