package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// RankService defines the behavior needed by RankHandler.
type RankService interface {
	CreateRank(ctx context.Context, input usecase.CreateRankInput) (*domain.Rank, error)
	ListRanks(ctx context.Context) ([]*domain.Rank, error)
	ListHistory(ctx context.Context, userID string) ([]*domain.RankHistory, error)
}

// RankHandler handles rank-related HTTP requests.
type RankHandler struct {
	rankUC RankService
}

// NewRankHandler creates a new RankHandler.
func NewRankHandler(rankUC RankService) *RankHandler {
	return &RankHandler{rankUC: rankUC}
}

// Create adds a rank.
func (h *RankHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid rank", err)
		return
	}

	rank, err := h.rankUC.CreateRank(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create rank", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RankFromDomain(rank))
}

// List lists every rank by threshold.
func (h *RankHandler) List(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.rankUC.ListRanks(r.Context())
	if err != nil {
		writeDomainError(w, "failed to list ranks", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RanksFromDomain(ranks))
}

// History lists the ranks a user has achieved.
func (h *RankHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.rankUC.ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to list rank history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RankHistoryFromDomain(history))
}
