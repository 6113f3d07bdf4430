package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
}

// AccountEntryService lists the entries of an account.
type AccountEntryService interface {
	ListEntriesByAccount(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
}

// AccountReconciler reconciles a single account.
type AccountReconciler interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC  AccountService
	entryUC    AccountEntryService
	reconciler AccountReconciler
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService, entryUC AccountEntryService, reconciler AccountReconciler) *AccountHandler {
	return &AccountHandler{
		accountUC:  accountUC,
		entryUC:    entryUC,
		reconciler: reconciler,
	}
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// ListEntries lists the entries of an account, newest first.
func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.accountUC.GetAccount(r.Context(), id); err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	entries, err := h.entryUC.ListEntriesByAccount(r.Context(), usecase.ListEntriesInput{
		AccountID: id,
		Limit:     parseIntQuery(r, "limit", 20),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Total:   int64(len(entries)),
	})
}

// Reconcile compares the stored balance with the settled entries.
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.ReconcileAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to reconcile account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}
