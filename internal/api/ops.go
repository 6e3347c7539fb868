package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/oakmarket/expresspay/internal/express"
	"github.com/oakmarket/expresspay/internal/gateway"
	"github.com/oakmarket/expresspay/internal/ledger"
)

// PaymentOps is the slice of the checkout facade the support API drives.
type PaymentOps interface {
	Refund(ctx context.Context, token string, amount *decimal.Decimal, currency string) (ledger.Record, error)
	CaptureAuthorization(ctx context.Context, token, note string) (ledger.Record, error)
	VoidAuthorization(ctx context.Context, token, note string) (ledger.Record, error)
}

type refundRequest struct {
	Token    string `json:"token"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type opRequest struct {
	Token string `json:"token"`
	Note  string `json:"note,omitempty"`
}

// Refunds serves POST /v1/refunds. An absent amount means a full refund.
func (h *Handler) Refunds(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	var amount *decimal.Decimal
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
			return
		}
		amount = &parsed
	}

	rec, err := h.Payments.Refund(r.Context(), req.Token, amount, req.Currency)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// Captures serves POST /v1/captures, capturing the full authorized amount.
func (h *Handler) Captures(w http.ResponseWriter, r *http.Request) {
	h.handleOp(w, r, h.Payments.CaptureAuthorization)
}

// Voids serves POST /v1/voids.
func (h *Handler) Voids(w http.ResponseWriter, r *http.Request) {
	h.handleOp(w, r, h.Payments.VoidAuthorization)
}

func (h *Handler) handleOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (ledger.Record, error)) {
	if !h.ensureAuth(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req opRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	rec, err := op(r.Context(), req.Token, req.Note)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// writeOpError maps facade failures: business rejections are the caller's
// problem, processor failures are upstream's.
func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	var utp *express.UnableToTakePaymentError
	if errors.As(err, &utp) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": utp.Reason})
		return
	}
	var gw *gateway.GatewayError
	if errors.As(err, &gw) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":      gw.Message,
			"error_code": gw.Code,
		})
		return
	}
	h.logger().Error("payment operation failed", map[string]any{"error": err.Error()})
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "payment operation failed"})
}
