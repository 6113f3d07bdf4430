package handler

import (
	"context"
	"net/http"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	SweepUnsettled(ctx context.Context, limit int) (*usecase.SweepResult, error)
	GenerateReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler exposes the operator reconciliation endpoints.
type ReconciliationHandler struct {
	reconciliationUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationUC: reconciliationUC}
}

// Sweep settles completed entries still missing their balance effect.
func (h *ReconciliationHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req dto.SweepRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = usecase.DefaultSweepBatchSize
	}

	result, err := h.reconciliationUC.SweepUnsettled(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SweepFromUseCase(result))
}

// Report reconciles every account.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReport(r.Context())
	if err != nil {
		writeDomainError(w, "failed to generate report", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReportFromUseCase(report))
}
