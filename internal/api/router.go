package api

import (
	"net/http"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/transactions", handler.Transactions)
	mux.HandleFunc("/v1/transactions/correlation/", handler.TransactionsByCorrelation)
	mux.HandleFunc("/v1/refunds", handler.Refunds)
	mux.HandleFunc("/v1/captures", handler.Captures)
	mux.HandleFunc("/v1/voids", handler.Voids)
	mux.HandleFunc("/paypal/shipping-options/", handler.ShippingOptions)
	mux.HandleFunc("/healthz", handler.Health)

	return mux
}
