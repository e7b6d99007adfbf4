package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/mw"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

type cartPutRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func GetCartHandler(cartSvc *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		items, err := cartSvc.Get(r.Context(), userID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		if len(items) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		writeJSON(w, http.StatusOK, items)
	}
}

func PutCartHandler(cartSvc *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		var req cartPutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.ProductID == "" || req.Quantity <= 0 {
			http.Error(w, "product_id and positive quantity required", http.StatusUnprocessableEntity)
			return
		}

		if err := cartSvc.Put(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func RemoveCartItemHandler(cartSvc *service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(mw.UserCtxKey).(string)

		if err := cartSvc.Remove(r.Context(), userID, chi.URLParam(r, "productID")); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
