// Package api exposes two inbound surfaces: PayPal's instant-update
// shipping callback and the merchant support API over the ledger.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/oakmarket/expresspay/internal/auth"
	"github.com/oakmarket/expresspay/internal/ledger"
	"github.com/oakmarket/expresspay/internal/logging"
)

type Handler struct {
	Auth     auth.Authenticator
	Store    ledger.Store
	Rater    ShippingRater
	Payments PaymentOps
	Log      logging.Logger
}

type transactionView struct {
	ID             string              `json:"id"`
	Operation      string              `json:"operation"`
	Version        string              `json:"version"`
	IsSandbox      bool                `json:"is_sandbox"`
	Amount         string              `json:"amount,omitempty"`
	Currency       string              `json:"currency,omitempty"`
	Ack            string              `json:"ack"`
	CorrelationID  string              `json:"correlation_id,omitempty"`
	Token          string              `json:"token,omitempty"`
	ErrorCode      string              `json:"error_code,omitempty"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	Errors         []ledger.WireError  `json:"errors,omitempty"`
	RawRequest     string              `json:"raw_request"`
	RawResponse    string              `json:"raw_response"`
	ResponseTimeMS float64             `json:"response_time_ms"`
	CreatedAt      time.Time           `json:"created_at"`
}

func viewOf(rec ledger.Record) transactionView {
	v := transactionView{
		ID:             rec.ID,
		Operation:      string(rec.Operation),
		Version:        rec.Version,
		IsSandbox:      rec.IsSandbox,
		Currency:       rec.Currency,
		Ack:            string(rec.Ack),
		CorrelationID:  rec.CorrelationID,
		Token:          rec.Token,
		ErrorCode:      rec.ErrorCode,
		ErrorMessage:   rec.ErrorMessage,
		Errors:         rec.Errors(),
		RawRequest:     rec.RawRequest,
		RawResponse:    rec.RawResponse,
		ResponseTimeMS: rec.ResponseTimeMS,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.Amount != nil {
		v.Amount = rec.Amount.StringFixed(2)
	}
	return v
}

// Transactions serves GET /v1/transactions?token=... for support lookups
// of one checkout session's audit trail.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token query parameter is required"})
		return
	}

	recs, err := h.Store.ByToken(token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger lookup failed"})
		return
	}

	views := make([]transactionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

// TransactionsByCorrelation serves GET /v1/transactions/correlation/{id}.
// Correlation ids are what PayPal support asks for, so this is the lookup
// operators reach for first.
func (h *Handler) TransactionsByCorrelation(w http.ResponseWriter, r *http.Request) {
	if !h.ensureAuth(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/transactions/correlation/")
	id = strings.TrimSuffix(id, "/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	recs, err := h.Store.ByCorrelationID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger lookup failed"})
		return
	}
	if len(recs) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no transaction for correlation id"})
		return
	}

	views := make([]transactionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) logger() logging.Logger {
	if h.Log == nil {
		return logging.Nop{}
	}
	return h.Log
}

func (h *Handler) ensureAuth(w http.ResponseWriter, r *http.Request) bool {
	_, err := h.Auth.Authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
