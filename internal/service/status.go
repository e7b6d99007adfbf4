package service

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

// StatusPair is the (payment, order) status a provider notification
// resolves to.
type StatusPair struct {
	Payment string
	Order   string
}

// ErrUnrecognizedStatus marks a webhook whose transaction status is not
// in the mapping table; it is rejected without touching any rows.
var ErrUnrecognizedStatus = errors.New("unrecognized transaction status")

// MapTransactionStatus translates a provider transaction status (plus
// fraud status for card captures) into local statuses.
func MapTransactionStatus(transactionStatus, fraudStatus string) (StatusPair, error) {
	switch transactionStatus {
	case "settlement":
		return StatusPair{model.PaymentPaid, model.OrderPaid}, nil
	case "capture":
		switch fraudStatus {
		case "accept":
			return StatusPair{model.PaymentPaid, model.OrderPaid}, nil
		case "challenge":
			return StatusPair{model.PaymentChallenge, model.OrderPendingVerification}, nil
		default:
			return StatusPair{}, fmt.Errorf("%w: capture with fraud status %q", ErrUnrecognizedStatus, fraudStatus)
		}
	case "pending":
		return StatusPair{model.PaymentPending, model.OrderPendingPayment}, nil
	case "deny", "cancel", "expire":
		return StatusPair{model.PaymentFailed, model.OrderCancelled}, nil
	case "refund", "partial_refund":
		return StatusPair{model.PaymentRefunded, model.OrderRefunded}, nil
	default:
		return StatusPair{}, fmt.Errorf("%w: %q", ErrUnrecognizedStatus, transactionStatus)
	}
}

// CanTransition reports whether an order may move from one status to
// another. Orders only move forward: once paid, cancelled, refunded or
// expired they stay there, except that a pending_verification order can
// still settle or be cancelled.
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case model.OrderPendingPayment:
		return true
	case model.OrderPendingVerification:
		return to == model.OrderPaid || to == model.OrderCancelled
	default:
		return false
	}
}

// VerifySignature checks the provider's signature key: the SHA-512 hex
// digest of order id, status code, gross amount and the shared server
// key, concatenated in that order.
func VerifySignature(n model.PaymentNotification, serverKey string) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
