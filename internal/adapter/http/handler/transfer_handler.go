package handler

import (
	"context"
	"net/http"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	CreateTransfer(ctx context.Context, input usecase.CreateTransferInput) (*usecase.Transfer, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// Create creates a new transfer.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	transfer, err := h.transferUC.CreateTransfer(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create transfer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromUseCase(transfer))
}
