package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/mw"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

type checkoutResponse struct {
	Order          *model.Order         `json:"order"`
	PaymentSession *service.SnapSession `json:"payment_session,omitempty"`
}

func CheckoutHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		var shipping service.ShippingInfo
		if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if shipping.Address == "" || shipping.City == "" {
			http.Error(w, "shipping address and city required", http.StatusUnprocessableEntity)
			return
		}

		order, session, err := orderSvc.Checkout(r.Context(), userID, shipping)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyCart):
				http.Error(w, "cart is empty", http.StatusUnprocessableEntity)
			case order != nil:
				// Order exists but the provider call failed; the
				// customer retries via POST /orders/{number}/pay.
				slog.Error("checkout without payment session", "order", order.Number, "error", err)
				writeJSON(w, http.StatusCreated, checkoutResponse{Order: order})
			default:
				slog.Error("checkout failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, checkoutResponse{Order: order, PaymentSession: session})
	}
}

func PayOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		session, err := orderSvc.Pay(r.Context(), userID, chi.URLParam(r, "number"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, service.ErrNotPayable):
				http.Error(w, "order is no longer awaiting payment", http.StatusConflict)
			default:
				slog.Error("payment session failed", "error", err)
				http.Error(w, "payment provider unavailable", http.StatusBadGateway)
			}
			return
		}

		writeJSON(w, http.StatusOK, session)
	}
}

func ListOrdersHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		orders, err := orderSvc.ListByUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

type orderDetailResponse struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment,omitempty"`
}

func GetOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		order, payment, err := orderSvc.GetByNumber(r.Context(), userID, chi.URLParam(r, "number"))
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, orderDetailResponse{Order: order, Payment: payment})
	}
}

// GetPaymentStatusHandler proxies the provider's live transaction view
// for an order the caller owns.
func GetPaymentStatusHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		status, err := orderSvc.ProviderStatus(r.Context(), userID, chi.URLParam(r, "number"))
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			slog.Error("provider status failed", "error", err)
			http.Error(w, "payment provider unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func CancelOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		err := orderSvc.Cancel(r.Context(), userID, chi.URLParam(r, "number"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrOrderNotFound):
				http.Error(w, "order not found", http.StatusNotFound)
			case errors.Is(err, service.ErrNotCancellable):
				http.Error(w, "order can no longer be cancelled", http.StatusConflict)
			default:
				slog.Error("cancel failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
