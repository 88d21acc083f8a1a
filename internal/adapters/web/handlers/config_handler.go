package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// ConfigHandler handles the runtime-tunable AP settings
type ConfigHandler struct {
	Service ports.NetworkService
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(service ports.NetworkService) *ConfigHandler {
	return &ConfigHandler{
		Service: service,
	}
}

// HandleGetConfig returns the current settings
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.BSSSettings{
		BeaconGeneration:   &status.BeaconGeneration,
		BeaconIntervalUs:   &status.BeaconIntervalUs,
		BSSColor:           &status.BSSColor,
		NonErpProtection:   &status.NonErpProtection,
		PersistenceEnabled: &status.PersistenceEnabled,
	})
}

// HandleUpdateConfig applies a partial settings update and returns the
// resulting status
func (h *ConfigHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var settings domain.BSSSettings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode settings: %w", err))
		return
	}
	if settings.Empty() {
		writeError(w, http.StatusBadRequest, errors.New("no settings given"))
		return
	}

	status, err := h.Service.UpdateSettings(r.Context(), settings)
	if errors.Is(err, domain.ErrInvalidSettings) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleTogglePersistence toggles data persistence
func (h *ConfigHandler) HandleTogglePersistence(w http.ResponseWriter, r *http.Request) {
	enabled := r.URL.Query().Get("enabled") == "true"
	h.Service.SetPersistenceEnabled(enabled)
	writeJSON(w, http.StatusOK, map[string]any{"status": "persistence_updated", "enabled": enabled})
}
