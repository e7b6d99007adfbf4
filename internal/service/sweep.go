package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/events"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

// SweepResult aggregates one expiry sweep run.
type SweepResult struct {
	Expired int
	Skipped int
	Failed  int
}

var errNotExpirable = errors.New("order no longer expirable")

// ExpireStale expires orders that have been awaiting payment longer
// than the configured timeout. Each candidate is handled in its own
// transaction so one bad row does not abort the batch, and the expiry
// condition is re-checked under a row lock so a webhook that just
// marked the order paid wins the race.
func (s *OrderService) ExpireStale(ctx context.Context, batchSize int) (SweepResult, error) {
	var result SweepResult

	cutoff := time.Now().Add(-s.paymentTimeout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT number FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`, model.OrderPendingPayment, cutoff, batchSize)
	if err != nil {
		return result, fmt.Errorf("query stale orders: %w", err)
	}

	var numbers []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			rows.Close()
			return result, fmt.Errorf("scan order number: %w", err)
		}
		numbers = append(numbers, number)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return result, fmt.Errorf("rows iteration failed: %w", err)
	}

	for _, number := range numbers {
		switch err := s.expireOne(ctx, number); {
		case err == nil:
			result.Expired++
		case errors.Is(err, errNotExpirable):
			result.Skipped++
		default:
			result.Failed++
			slog.Error("failed to expire order", "order", number, "error", err)
		}
	}

	return result, nil
}

func (s *OrderService) expireOne(ctx context.Context, number string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		orderID, status string
		createdAt       time.Time
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, status, created_at FROM orders WHERE number = $1 FOR UPDATE
	`, number).Scan(&orderID, &status, &createdAt)
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}

	// Re-derive expiry under the lock: the status or the clock may
	// have moved between selection and here.
	if !ShouldExpire(status, createdAt, time.Now(), s.paymentTimeout) {
		return errNotExpirable
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, model.OrderExpired, orderID); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status = $3
	`, model.PaymentExpired, orderID, model.PaymentPending); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.Info("order expired", "order", number, "created_at", createdAt)
	s.producer.Publish(events.TopicOrderExpired, map[string]any{
		"order_number": number,
		"order_status": model.OrderExpired,
	})

	return nil
}

// ShouldExpire reports whether an order in the given status, created at
// the given time, has outlived the payment timeout. The status check
// goes through CanTransition, so only pending_payment orders qualify: a
// pending_verification order is in the provider's hands and settles or
// cancels, it never times out locally.
func ShouldExpire(status string, createdAt, now time.Time, timeout time.Duration) bool {
	if !CanTransition(status, model.OrderExpired) {
		return false
	}
	return now.Sub(createdAt) > timeout
}
