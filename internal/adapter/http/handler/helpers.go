package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// idempotencyKeyHeader is read by handlers that persist the key on entries.
const idempotencyKeyHeader = "Idempotency-Key"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError assigns to it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, mapDomainError(err), message, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRankNotFound),
		errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrDuplicateEntry),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrEntryNotCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountClosed),
		errors.Is(err, domain.ErrAccountFrozen),
		errors.Is(err, domain.ErrReferrerNotFound),
		errors.Is(err, domain.ErrMissingBeneficiaryAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrUnknownEntryType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountPrecision),
		errors.Is(err, domain.ErrMetadataTooLarge),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidRank),
		errors.Is(err, domain.ErrInvalidRewardsConfig),
		errors.Is(err, domain.ErrNotPayoutEntry),
		errors.Is(err, domain.ErrOutcomeNotReportable):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrSettingsStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
