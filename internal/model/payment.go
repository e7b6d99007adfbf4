package model

import "time"

// Payment statuses. A payment's status stays consistent with its parent
// order: pending/pending_payment, challenge/pending_verification,
// paid/paid, failed/cancelled, refunded/refunded, expired/expired.
const (
	PaymentPending   = "pending"
	PaymentChallenge = "challenge"
	PaymentPaid      = "paid"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
	PaymentExpired   = "expired"
)

type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PaymentType   string    `json:"payment_type,omitempty"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	SnapToken     string    `json:"snap_token,omitempty"`
	RawResponse   []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PaymentNotification is the webhook payload sent by the payment
// provider. Amount fields arrive as strings and are kept that way for
// signature verification.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
}
