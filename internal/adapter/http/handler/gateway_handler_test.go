package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/rewardledger/internal/adapter/http/dto"
	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

type callbackServiceStub struct {
	handleFn func(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error)
	recordFn func(ctx context.Context, provider, reference string, status usecase.GatewayStatus) (*usecase.CallbackResult, error)
}

func (s *callbackServiceStub) HandleCallback(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error) {
	return s.handleFn(ctx, provider, reference)
}

func (s *callbackServiceStub) RecordOutcome(ctx context.Context, provider, reference string, status usecase.GatewayStatus) (*usecase.CallbackResult, error) {
	return s.recordFn(ctx, provider, reference, status)
}

func TestGatewayHandler_Callback_Verifies(t *testing.T) {
	var gotProvider, gotReference string
	handler := NewGatewayHandler(&callbackServiceStub{
		handleFn: func(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error) {
			gotProvider, gotReference = provider, reference
			return &usecase.CallbackResult{
				Entry:   &domain.LedgerEntry{ID: "entry-1", Status: domain.EntryStatusCompleted},
				Status:  usecase.GatewayStatusSucceeded,
				Applied: true,
			}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/gateways/manual/callback", strings.NewReader(`{"reference":"PO-entry-1"}`)), "provider", "manual")
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotProvider != "manual" || gotReference != "PO-entry-1" {
		t.Fatalf("unexpected call provider=%q reference=%q", gotProvider, gotReference)
	}

	var resp dto.CallbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Applied || resp.Status != "succeeded" || resp.Entry.Status != "completed" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGatewayHandler_Callback_RecordsReportedStatus(t *testing.T) {
	var gotStatus usecase.GatewayStatus
	handler := NewGatewayHandler(&callbackServiceStub{
		handleFn: func(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error) {
			t.Fatal("a reported status must go through RecordOutcome")
			return nil, nil
		},
		recordFn: func(ctx context.Context, provider, reference string, status usecase.GatewayStatus) (*usecase.CallbackResult, error) {
			gotStatus = status
			return &usecase.CallbackResult{
				Entry:   &domain.LedgerEntry{ID: "entry-1", Status: domain.EntryStatusFailed},
				Status:  status,
				Applied: true,
			}, nil
		},
	})

	body := strings.NewReader(`{"reference":"PO-entry-1","status":"failed"}`)
	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/gateways/manual/callback", body), "provider", "manual")
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotStatus != usecase.GatewayStatusFailed {
		t.Fatalf("expected failed, got %q", gotStatus)
	}
}

func TestGatewayHandler_Callback_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"missing reference", `{}`, nil, http.StatusBadRequest},
		{"unknown provider", `{"reference":"x"}`, domain.ErrUnknownProvider, http.StatusNotFound},
		{"unknown reference", `{"reference":"x"}`, domain.ErrEntryNotFound, http.StatusNotFound},
		{"not reportable", `{"reference":"x","status":"succeeded"}`, domain.ErrOutcomeNotReportable, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewGatewayHandler(&callbackServiceStub{
				handleFn: func(ctx context.Context, provider, reference string) (*usecase.CallbackResult, error) {
					return nil, tt.err
				},
				recordFn: func(ctx context.Context, provider, reference string, status usecase.GatewayStatus) (*usecase.CallbackResult, error) {
					return nil, tt.err
				},
			})

			req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/gateways/stripe/callback", strings.NewReader(tt.body)), "provider", "stripe")
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			if rec.Code != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}
