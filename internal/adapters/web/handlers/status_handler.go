package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// StatusHandler serves the read-only BSS and station views.
type StatusHandler struct {
	Service ports.NetworkService
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(service ports.NetworkService) *StatusHandler {
	return &StatusHandler{Service: service}
}

// HandleStatus returns the BSS snapshot.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleStations lists the associated stations.
func (h *StatusHandler) HandleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.Service.Stations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

// HandleStation returns one station by MAC.
func (h *StatusHandler) HandleStation(w http.ResponseWriter, r *http.Request) {
	mac, err := domain.ParseMAC(mux.Vars(r)["mac"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := h.Service.Station(r.Context(), mac)
	if errors.Is(err, domain.ErrStationNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleStationEvents returns the stored history of one station, newest
// first. The limit query parameter caps the result.
func (h *StatusHandler) HandleStationEvents(w http.ResponseWriter, r *http.Request) {
	var mac domain.MAC
	if raw, ok := mux.Vars(r)["mac"]; ok {
		parsed, err := domain.ParseMAC(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		mac = parsed
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.Service.StationEvents(r.Context(), mac, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
