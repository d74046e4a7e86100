// Package handlers provides HTTP handlers for snapshot operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
)

// Handler handles snapshot HTTP requests
type Handler struct {
	service   *snapshots.Service
	positions *positions.Repository
	log       zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(service *snapshots.Service, positionsRepo *positions.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		positions: positionsRepo,
		log:       log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleCapture captures a snapshot batch for one owner on demand
// POST /api/snapshots/capture?owner=X
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	batchID, err := h.service.Capture(owner, time.Now())
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Manual snapshot failed")
		h.writeError(w, http.StatusInternalServerError, "failed to capture snapshot")
		return
	}

	if batchID == "" {
		// Nothing to snapshot, or one was just written
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"status":   "captured",
		"batch_id": batchID,
	})
}

// HandleLatest returns the most recent snapshot batch for an owner
// GET /api/snapshots/latest?owner=X
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	last, err := h.positions.LastSnapshotTime(owner)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Latest snapshot lookup failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load latest snapshot")
		return
	}
	if last == nil {
		h.writeError(w, http.StatusNotFound, "no snapshots for owner")
		return
	}

	snaps, err := h.positions.ListSnapshots(owner, last, *last)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Latest snapshot load failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load latest snapshot")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": last,
		"positions": snaps,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
