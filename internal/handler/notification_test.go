package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

type fakeProcessor struct {
	err    error
	called int
	got    model.PaymentNotification
	raw    []byte
}

func (f *fakeProcessor) Process(_ context.Context, n model.PaymentNotification, raw []byte) error {
	f.called++
	f.got = n
	f.raw = raw
	return f.err
}

const validBody = `{
	"order_id": "ORD-AB12",
	"transaction_id": "tx-991",
	"transaction_status": "settlement",
	"payment_type": "bank_transfer",
	"gross_amount": "150000.00",
	"status_code": "200",
	"signature_key": "deadbeef"
}`

func postNotification(t *testing.T, proc *fakeProcessor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/notification", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NotificationHandler(proc)(rec, req)
	return rec
}

func TestNotificationHandler_Applied(t *testing.T) {
	proc := &fakeProcessor{}
	rec := postNotification(t, proc, validBody)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, proc.called)
	assert.Equal(t, "ORD-AB12", proc.got.OrderID)
	assert.Equal(t, "settlement", proc.got.TransactionStatus)
	assert.JSONEq(t, validBody, string(proc.raw))
}

func TestNotificationHandler_BadPayload(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		proc := &fakeProcessor{}
		rec := postNotification(t, proc, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, proc.called)
	})

	t.Run("missing required fields", func(t *testing.T) {
		proc := &fakeProcessor{}
		rec := postNotification(t, proc, `{"order_id":"ORD-1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, proc.called)
	})
}

func TestNotificationHandler_ProcessorOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"bad signature", service.ErrBadSignature, http.StatusForbidden},
		{"unrecognized status", service.ErrUnrecognizedStatus, http.StatusBadRequest},
		{"unknown order", service.ErrUnknownOrder, http.StatusNotFound},
		{"internal error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{err: tt.err}
			rec := postNotification(t, proc, validBody)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
