package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/events"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrOrderNotFound  = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	ErrNotPayable     = errors.New("order is no longer awaiting payment")
)

type OrderService struct {
	db             *sql.DB
	gateway        *SnapClient
	producer       *events.Producer
	paymentTimeout time.Duration
}

func NewOrderService(db *sql.DB, gateway *SnapClient, producer *events.Producer, paymentTimeout time.Duration) *OrderService {
	return &OrderService{db: db, gateway: gateway, producer: producer, paymentTimeout: paymentTimeout}
}

type ShippingInfo struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Checkout turns the user's cart into an order, empties the cart and
// opens a hosted payment session. The order is created even if the
// provider call fails afterwards; an unpaid order is picked up by the
// expiry sweep eventually.
func (s *OrderService) Checkout(ctx context.Context, userID string, shipping ShippingInfo) (*model.Order, *SnapSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT c.product_id, p.name, p.price, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.name
	`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("query cart: %w", err)
	}

	var (
		items []model.OrderItem
		total float64
	)
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan cart item: %w", err)
		}
		total += item.Price * float64(item.Quantity)
		items = append(items, item)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if len(items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	order := model.Order{
		UserID:          userID,
		Number:          newOrderNumber(),
		TotalAmount:     total,
		Status:          model.OrderPendingPayment,
		ShippingAddress: shipping.Address,
		ShippingCity:    shipping.City,
		PostalCode:      shipping.PostalCode,
		Items:           items,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, number, total_amount, status, shipping_address, shipping_city, postal_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, order.UserID, order.Number, order.TotalAmount, order.Status,
		order.ShippingAddress, order.ShippingCity, order.PostalCode,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, item.ProductID, item.ProductName, item.Price, item.Quantity)
		if err != nil {
			return nil, nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return nil, nil, fmt.Errorf("clear cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit tx: %w", err)
	}

	session, err := s.createPaymentSession(ctx, order)
	if err != nil {
		slog.Error("payment session creation failed after checkout", "order", order.Number, "error", err)
		return &order, nil, fmt.Errorf("create payment session: %w", err)
	}

	return &order, session, nil
}

// Pay opens (or refreshes) a payment session for an existing unpaid
// order, e.g. after a failed provider call at checkout time.
func (s *OrderService) Pay(ctx context.Context, userID, number string) (*SnapSession, error) {
	order, _, err := s.GetByNumber(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderPendingPayment {
		return nil, ErrNotPayable
	}
	return s.createPaymentSession(ctx, *order)
}

// ProviderStatus returns the provider's live view of the order's
// transaction. Read-only: local rows change only through webhooks and
// the expiry sweep.
func (s *OrderService) ProviderStatus(ctx context.Context, userID, number string) (*TransactionStatus, error) {
	order, payment, err := s.GetByNumber(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrOrderNotFound
	}
	return s.gateway.Status(ctx, order.Number)
}

// createPaymentSession calls the provider and persists the Payment row
// recording the session token. This is the one side effect the gateway
// wrapper has beyond the remote call.
func (s *OrderService) createPaymentSession(ctx context.Context, order model.Order) (*SnapSession, error) {
	var customer model.User
	err := s.db.QueryRowContext(ctx, `SELECT name, email FROM users WHERE id = $1`, order.UserID).
		Scan(&customer.Name, &customer.Email)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	session, err := s.gateway.CreateTransaction(ctx, order, customer)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (order_id, amount, status, snap_token, raw_response)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO UPDATE
		SET snap_token = EXCLUDED.snap_token, raw_response = EXCLUDED.raw_response, updated_at = NOW()
	`, order.ID, order.TotalAmount, model.PaymentPending, session.Token, session.Raw)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	slog.Info("payment session created", "order", order.Number, "amount", order.TotalAmount)

	return session, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, number, total_amount, status, shipping_address, shipping_city, postal_code, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Number, &o.TotalAmount, &o.Status,
			&o.ShippingAddress, &o.ShippingCity, &o.PostalCode, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return orders, nil
}

// GetByNumber returns an order with its items, plus the payment row if
// a session was ever opened for it.
func (s *OrderService) GetByNumber(ctx context.Context, userID, number string) (*model.Order, *model.Payment, error) {
	var o model.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, number, total_amount, status, shipping_address, shipping_city, postal_code, created_at
		FROM orders
		WHERE number = $1 AND user_id = $2
	`, number, userID).Scan(&o.ID, &o.UserID, &o.Number, &o.TotalAmount, &o.Status,
		&o.ShippingAddress, &o.ShippingCity, &o.PostalCode, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, price, quantity
		FROM order_items
		WHERE order_id = $1
	`, o.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	var p model.Payment
	var raw []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT id, order_id, transaction_id, payment_type, amount, status, snap_token, raw_response, created_at, updated_at
		FROM payments
		WHERE order_id = $1
	`, o.ID).Scan(&p.ID, &p.OrderID, &p.TransactionID, &p.PaymentType, &p.Amount,
		&p.Status, &p.SnapToken, &raw, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &o, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get payment: %w", err)
	}
	p.RawResponse = raw

	return &o, &p, nil
}

// Cancel voids the provider transaction and marks the order cancelled.
// Only orders still awaiting payment can be cancelled by the customer.
func (s *OrderService) Cancel(ctx context.Context, userID, number string) error {
	order, payment, err := s.GetByNumber(ctx, userID, number)
	if err != nil {
		return err
	}
	if order.Status != model.OrderPendingPayment && order.Status != model.OrderPendingVerification {
		return ErrNotCancellable
	}

	// Cancel remotely first; the provider rejects cancellation of
	// settled transactions, which keeps us from racing a settlement
	// webhook into a lost payment.
	if payment != nil {
		if err := s.gateway.Cancel(ctx, number); err != nil {
			return fmt.Errorf("cancel with provider: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, order.ID).Scan(&status)
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if !CanTransition(status, model.OrderCancelled) {
		return ErrNotCancellable
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, model.OrderCancelled, order.ID); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND status IN ($3, $4)
	`, model.PaymentFailed, order.ID, model.PaymentPending, model.PaymentChallenge); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.Info("order cancelled by customer", "order", number)
	s.producer.Publish(events.TopicOrderCancelled, map[string]any{
		"order_number": number,
		"order_status": model.OrderCancelled,
	})

	return nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
