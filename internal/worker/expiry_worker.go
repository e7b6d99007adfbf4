package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/service"
)

// sweeper is the slice of OrderService the worker needs.
type sweeper interface {
	ExpireStale(ctx context.Context, batchSize int) (service.SweepResult, error)
}

// ExpiryWorker periodically expires orders that stayed unpaid past the
// payment timeout.
type ExpiryWorker struct {
	orders    sweeper
	interval  time.Duration
	batchSize int
}

func NewExpiryWorker(orders sweeper, interval time.Duration, batchSize int) *ExpiryWorker {
	return &ExpiryWorker{
		orders:    orders,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	slog.Info("starting expiry worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ExpiryWorker) runOnce(ctx context.Context) {
	result, err := w.orders.ExpireStale(ctx, w.batchSize)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}

	if result.Expired > 0 || result.Skipped > 0 || result.Failed > 0 {
		slog.Info("expiry sweep finished",
			"expired", result.Expired,
			"skipped", result.Skipped,
			"failed", result.Failed)
	}
}
