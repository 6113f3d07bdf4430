package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) (*domain.LedgerEntry, error)
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	MarkEntryCompleted(ctx context.Context, input usecase.MarkCompletedInput) (*usecase.CompletionResult, error)
	CancelEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error)
	FailEntry(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error)
}

// PayoutService hands entries to payment providers.
type PayoutService interface {
	InitiatePayout(ctx context.Context, entryID, provider string) (*domain.LedgerEntry, error)
	InitiateDeposit(ctx context.Context, entryID, provider string) (*domain.LedgerEntry, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC  EntryService
	payoutUC PayoutService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService, payoutUC PayoutService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC, payoutUC: payoutUC}
}

// Create records a new ledger entry.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	entry, err := h.entryUC.CreateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entryUC.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Complete marks a pending or scheduled entry completed and settles it.
// Completing an entry that is already completed is not an error.
func (h *EntryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteEntryRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.entryUC.MarkEntryCompleted(r.Context(), usecase.MarkCompletedInput{
		EntryID:     chi.URLParam(r, "id"),
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		writeDomainError(w, "failed to complete entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CompletionFromUseCase(result))
}

// Cancel cancels a pending or scheduled entry.
func (h *EntryHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to cancel entry", h.entryUC.CancelEntry)
}

// Fail marks a pending or scheduled entry failed.
func (h *EntryHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to fail entry", h.entryUC.FailEntry)
}

func (h *EntryHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	fn func(ctx context.Context, entryID, reason string) (*domain.LedgerEntry, error),
) {
	var req dto.TransitionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := fn(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Payout hands a withdrawal entry to a payment provider.
func (h *EntryHandler) Payout(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, "failed to initiate payout", h.payoutUC.InitiatePayout)
}

// Collect asks a payment provider to collect a deposit entry.
func (h *EntryHandler) Collect(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, "failed to initiate deposit", h.payoutUC.InitiateDeposit)
}

func (h *EntryHandler) initiate(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	fn func(ctx context.Context, entryID, provider string) (*domain.LedgerEntry, error),
) {
	var req dto.InitiatePayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "missing provider", "")
		return
	}

	entry, err := fn(r.Context(), chi.URLParam(r, "id"), req.Provider)
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.EntryFromDomain(entry))
}
