package model

import "time"

// Order statuses. Transitions are driven only by the notification
// processor and the expiry sweep; see service.CanTransition.
const (
	OrderPendingPayment      = "pending_payment"
	OrderPendingVerification = "pending_verification"
	OrderPaid                = "paid"
	OrderCancelled           = "cancelled"
	OrderRefunded            = "refunded"
	OrderExpired             = "expired"
)

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Number          string      `json:"number"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingCity    string      `json:"shipping_city"`
	PostalCode      string      `json:"postal_code"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
