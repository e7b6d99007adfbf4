package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

func testSnapClient(url string) *SnapClient {
	return &SnapClient{
		snapURL:         url,
		coreURL:         url,
		serverKey:       "SB-Mid-server-testkey",
		enabledPayments: []string{"credit_card", "bank_transfer"},
		expiry:          24 * time.Hour,
		client:          &http.Client{Timeout: time.Second},
	}
}

func TestSnapClient_CreateTransaction(t *testing.T) {
	var gotReq snapRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions", r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "SB-Mid-server-testkey", user)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"snap-token-abc","redirect_url":"https://pay.example/snap-token-abc"}`))
	}))
	defer srv.Close()

	order := model.Order{
		Number:          "ORD-AB12",
		TotalAmount:     150000,
		ShippingAddress: "Jl. Merdeka 1",
		ShippingCity:    "Jakarta",
		PostalCode:      "10110",
		Items: []model.OrderItem{
			{ProductID: "p1", ProductName: "Widget", Price: 50000, Quantity: 3},
		},
	}
	customer := model.User{Name: "Budi", Email: "budi@example.com"}

	session, err := testSnapClient(srv.URL).CreateTransaction(context.Background(), order, customer)
	require.NoError(t, err)

	assert.Equal(t, "snap-token-abc", session.Token)
	assert.Equal(t, "https://pay.example/snap-token-abc", session.RedirectURL)
	assert.NotEmpty(t, session.Raw)

	assert.Equal(t, "ORD-AB12", gotReq.TransactionDetails.OrderID)
	assert.Equal(t, float64(150000), gotReq.TransactionDetails.GrossAmount)
	require.Len(t, gotReq.ItemDetails, 1)
	assert.Equal(t, "Widget", gotReq.ItemDetails[0].Name)
	assert.Equal(t, "budi@example.com", gotReq.CustomerDetails.Email)
	assert.Equal(t, "Jakarta", gotReq.CustomerDetails.ShippingAddress.City)
	assert.Equal(t, []string{"credit_card", "bank_transfer"}, gotReq.EnabledPayments)
	assert.Equal(t, "minutes", gotReq.Expiry.Unit)
	assert.Equal(t, 1440, gotReq.Expiry.Duration)
}

func TestSnapClient_CreateTransaction_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error_messages":["Access denied due to unauthorized transaction"]}`))
	}))
	defer srv.Close()

	_, err := testSnapClient(srv.URL).CreateTransaction(context.Background(), model.Order{Number: "ORD-1"}, model.User{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Access denied due to unauthorized transaction")
}

func TestSnapClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/ORD-AB12/status", r.URL.Path)
		w.Write([]byte(`{
			"order_id": "ORD-AB12",
			"transaction_id": "tx-991",
			"transaction_status": "settlement",
			"payment_type": "bank_transfer",
			"gross_amount": "150000.00",
			"status_code": "200"
		}`))
	}))
	defer srv.Close()

	status, err := testSnapClient(srv.URL).Status(context.Background(), "ORD-AB12")
	require.NoError(t, err)
	assert.Equal(t, "settlement", status.TransactionStatus)
	assert.Equal(t, "tx-991", status.TransactionID)
	assert.Equal(t, "150000.00", status.GrossAmount)
}

func TestSnapClient_Cancel(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/ORD-AB12/cancel", r.URL.Path)
			w.Write([]byte(`{"status_code":"200","status_message":"Success, transaction is canceled"}`))
		}))
		defer srv.Close()

		require.NoError(t, testSnapClient(srv.URL).Cancel(context.Background(), "ORD-AB12"))
	})

	t.Run("provider refuses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPreconditionFailed)
			w.Write([]byte(`{"status_message":"Transaction status cannot be updated"}`))
		}))
		defer srv.Close()

		err := testSnapClient(srv.URL).Cancel(context.Background(), "ORD-AB12")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Transaction status cannot be updated")
	})
}

func TestNewOrderNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		number := newOrderNumber()
		assert.Regexp(t, `^ORD-[0-9A-F]{16}$`, number)
		assert.False(t, seen[number], "duplicate order number %s", number)
		seen[number] = true
	}
}
