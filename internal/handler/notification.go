package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

// notificationProcessor is the slice of NotificationService the webhook
// endpoint needs.
type notificationProcessor interface {
	Process(ctx context.Context, n model.PaymentNotification, raw []byte) error
}

// NotificationHandler is the provider webhook endpoint. Anything but a
// 2xx tells the provider to redeliver, so only signature failures and
// malformed payloads are rejected for good; unknown orders come back
// 404 and internal errors 500, both retried upstream.
func NotificationHandler(proc notificationProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}

		var n model.PaymentNotification
		if err := json.Unmarshal(raw, &n); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if n.OrderID == "" || n.TransactionID == "" || n.TransactionStatus == "" || n.SignatureKey == "" {
			http.Error(w, "missing required fields", http.StatusBadRequest)
			return
		}

		err = proc.Process(r.Context(), n, raw)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case errors.Is(err, service.ErrBadSignature):
			http.Error(w, "invalid signature", http.StatusForbidden)
		case errors.Is(err, service.ErrUnrecognizedStatus):
			http.Error(w, "unrecognized transaction status", http.StatusBadRequest)
		case errors.Is(err, service.ErrUnknownOrder):
			http.Error(w, "order not found", http.StatusNotFound)
		default:
			slog.Error("webhook processing failed", "order", n.OrderID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
