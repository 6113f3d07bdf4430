package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	RegisterUser(ctx context.Context, input usecase.RegisterUserInput) (*usecase.RegisteredUser, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UserAccountService lists and opens the accounts of a user.
type UserAccountService interface {
	ListUserAccounts(ctx context.Context, userID string) ([]*domain.Account, error)
	OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
}

// UserHandler handles user-related HTTP requests.
type UserHandler struct {
	userUC    UserService
	accountUC UserAccountService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService, accountUC UserAccountService) *UserHandler {
	return &UserHandler{userUC: userUC, accountUC: accountUC}
}

// Register registers a user with its wallet accounts.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	registered, err := h.userUC.RegisterUser(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegisteredUserFromUseCase(registered))
}

// Get retrieves a user by ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUC.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}

// ListAccounts lists the accounts of a user.
func (h *UserHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if _, err := h.userUC.GetUser(r.Context(), userID); err != nil {
		writeDomainError(w, "failed to get user", err)
		return
	}

	accounts, err := h.accountUC.ListUserAccounts(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// OpenAccount opens an extra account for a user.
func (h *UserHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.OpenAccount(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "failed to open account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}
