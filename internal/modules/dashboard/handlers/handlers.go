// Package handlers provides HTTP handlers for the dashboard API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/dashboard"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// defaultRange is used when the request does not name one
const defaultRange = "1M"

// Handler handles dashboard HTTP requests
type Handler struct {
	service *dashboard.Service
	live    *prices.Service
	log     zerolog.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(service *dashboard.Service, live *prices.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		live:    live,
		log:     log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleSnapshot returns the full dashboard for an owner and range
// GET /api/dashboard/snapshot?owner=X&range=1M
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	rangeCode := r.URL.Query().Get("range")
	if rangeCode == "" {
		rangeCode = defaultRange
	}

	snap, err := h.service.BuildDashboard(owner, rangeCode, time.Now())
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidInput) || errors.Is(err, timeseries.ErrInvalidRange) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("owner", owner).Str("range", rangeCode).Msg("Dashboard build failed")
		h.writeError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// HandleCurrent returns the live portfolio value for an owner
// GET /api/dashboard/current?owner=X
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		h.writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	cv, err := h.live.CurrentValue(owner, time.Now())
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Current value failed")
		h.writeError(w, http.StatusInternalServerError, "failed to compute current value")
		return
	}

	h.writeJSON(w, http.StatusOK, cv)
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
