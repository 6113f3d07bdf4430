package handler

import (
	"context"
	"net/http"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
)

// RewardsSettingsService reads and updates the rewards configuration.
type RewardsSettingsService interface {
	Current(ctx context.Context) (*domain.RewardsConfig, error)
	UpdateSettings(ctx context.Context, values map[string]string) (*domain.RewardsConfig, error)
}

// SettingsHandler handles the rewards configuration endpoints.
type SettingsHandler struct {
	rewardsUC RewardsSettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(rewardsUC RewardsSettingsService) *SettingsHandler {
	return &SettingsHandler{rewardsUC: rewardsUC}
}

// GetRewards returns the configuration in force.
func (h *SettingsHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.rewardsUC.Current(r.Context())
	if err != nil {
		writeDomainError(w, "failed to load rewards configuration", err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// UpdateRewards stores overrides and returns the resulting configuration.
func (h *SettingsHandler) UpdateRewards(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRewardsSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Settings) == 0 {
		writeError(w, http.StatusBadRequest, "no settings given", "")
		return
	}

	cfg, err := h.rewardsUC.UpdateSettings(r.Context(), req.Settings)
	if err != nil {
		writeDomainError(w, "failed to update rewards configuration", err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}
