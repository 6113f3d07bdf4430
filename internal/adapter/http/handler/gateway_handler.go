package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/usecase"
)

// CallbackService processes payment provider notifications.
type CallbackService interface {
	HandleCallback(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error)
	RecordOutcome(ctx context.Context, provider, reference string, status usecase.GatewayStatus) (*usecase.CallbackResult, error)
}

// GatewayHandler handles payment provider callbacks.
type GatewayHandler struct {
	payoutUC CallbackService
}

// NewGatewayHandler creates a new GatewayHandler.
func NewGatewayHandler(payoutUC CallbackService) *GatewayHandler {
	return &GatewayHandler{payoutUC: payoutUC}
}

// Callback verifies a provider notification and applies its outcome. A
// status in the body is recorded first for providers that accept it.
func (h *GatewayHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.GatewayCallbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference", "")
		return
	}

	provider := chi.URLParam(r, "provider")

	var (
		result *usecase.CallbackResult
		err    error
	)
	if req.Status != "" {
		result, err = h.payoutUC.RecordOutcome(r.Context(), provider, req.Reference, usecase.GatewayStatus(req.Status))
	} else {
		result, err = h.payoutUC.HandleCallback(r.Context(), provider, req.Reference)
	}
	if err != nil {
		writeDomainError(w, "failed to process callback", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CallbackFromUseCase(result))
}
