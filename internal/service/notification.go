package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/events"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

var (
	ErrBadSignature = errors.New("signature mismatch")
	ErrUnknownOrder = errors.New("order not found")
)

// NotificationService reconciles order and payment rows against
// asynchronous provider webhooks. It is the only mutator of those rows
// besides the expiry sweep.
type NotificationService struct {
	db        *sql.DB
	serverKey string
	producer  *events.Producer
}

func NewNotificationService(db *sql.DB, serverKey string, producer *events.Producer) *NotificationService {
	return &NotificationService{db: db, serverKey: serverKey, producer: producer}
}

// Process applies one webhook notification. Duplicate deliveries and
// notifications for orders already past the reported transition are
// acknowledged without re-applying effects. The order row is locked for
// the duration of the transaction, so two concurrent deliveries for the
// same order serialize and the second one hits the idempotency ledger.
func (s *NotificationService) Process(ctx context.Context, n model.PaymentNotification, raw []byte) error {
	if !VerifySignature(n, s.serverKey) {
		slog.Warn("webhook signature mismatch", "order", n.OrderID, "transaction_status", n.TransactionStatus)
		return ErrBadSignature
	}

	target, err := MapTransactionStatus(n.TransactionStatus, n.FraudStatus)
	if err != nil {
		slog.Warn("webhook with unrecognized status", "order", n.OrderID, "transaction_status", n.TransactionStatus, "fraud_status", n.FraudStatus)
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Idempotency ledger: one row per (transaction id, status). A
	// replayed delivery conflicts here and is acked as a success.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payment_notifications (transaction_id, transaction_status, order_number, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, transaction_status) DO NOTHING
	`, n.TransactionID, n.TransactionStatus, n.OrderID, raw)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	if inserted, _ := res.RowsAffected(); inserted == 0 {
		slog.Info("duplicate webhook ignored", "order", n.OrderID, "transaction_id", n.TransactionID, "transaction_status", n.TransactionStatus)
		return nil
	}

	var (
		orderID, orderStatus string
		paymentID            sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
		SELECT o.id, o.status, p.id
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.number = $1
		FOR UPDATE OF o
	`, n.OrderID).Scan(&orderID, &orderStatus, &paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("webhook for unknown order", "order", n.OrderID, "transaction_status", n.TransactionStatus)
		return ErrUnknownOrder
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !paymentID.Valid {
		slog.Warn("webhook for order without payment", "order", n.OrderID, "transaction_status", n.TransactionStatus)
		return ErrUnknownOrder
	}

	if !CanTransition(orderStatus, target.Order) {
		// Already there, or the order reached a terminal state first
		// (e.g. the sweep expired it). Keep the ledger row and ack so
		// the provider stops retrying.
		slog.Info("webhook left order unchanged",
			"order", n.OrderID, "status", orderStatus, "requested", target.Order)
		return tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, target.Order, orderID); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, transaction_id = $2, payment_type = $3, raw_response = $4, updated_at = NOW()
		WHERE id = $5
	`, target.Payment, n.TransactionID, n.PaymentType, raw, paymentID.String); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.Info("webhook applied",
		"order", n.OrderID,
		"transaction_status", n.TransactionStatus,
		"order_status", target.Order,
		"payment_status", target.Payment)

	s.publishTransition(n, target)

	return nil
}

func (s *NotificationService) publishTransition(n model.PaymentNotification, target StatusPair) {
	var topic string
	switch target.Order {
	case model.OrderPaid:
		topic = events.TopicOrderPaid
	case model.OrderCancelled:
		topic = events.TopicOrderCancelled
	case model.OrderRefunded:
		topic = events.TopicOrderRefunded
	default:
		return
	}

	s.producer.Publish(topic, map[string]any{
		"order_number":   n.OrderID,
		"transaction_id": n.TransactionID,
		"order_status":   target.Order,
		"payment_status": target.Payment,
	})
}
