package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jutionck/e-commerce-mantap-sub001/internal/config"
	"github.com/jutionck/e-commerce-mantap-sub001/internal/model"
)

// SnapClient talks to the hosted-payment provider: session creation,
// status query and cancellation. No retries; provider errors are passed
// through with their message attached.
type SnapClient struct {
	snapURL         string
	coreURL         string
	serverKey       string
	enabledPayments []string
	expiry          time.Duration
	client          *http.Client
}

type SnapSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	Raw         []byte `json:"-"`
}

// TransactionStatus is the provider's view of a transaction, shared by
// the status endpoint and webhook notifications.
type TransactionStatus struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message,omitempty"`
}

func NewSnapClient(cfg *config.Config) *SnapClient {
	snapURL := "https://app.sandbox.midtrans.com/snap/v1"
	coreURL := "https://api.sandbox.midtrans.com/v2"
	if cfg.Environment == "production" {
		snapURL = "https://app.midtrans.com/snap/v1"
		coreURL = "https://api.midtrans.com/v2"
	}

	return &SnapClient{
		snapURL:         snapURL,
		coreURL:         coreURL,
		serverKey:       cfg.ServerKey,
		enabledPayments: cfg.EnabledPayments,
		expiry:          cfg.PaymentTimeout,
		client:          &http.Client{Timeout: 10 * time.Second},
	}
}

type snapItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string  `json:"order_id"`
		GrossAmount float64 `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails     []snapItem `json:"item_details,omitempty"`
	CustomerDetails struct {
		FirstName       string `json:"first_name"`
		Email           string `json:"email"`
		ShippingAddress struct {
			Address    string `json:"address"`
			City       string `json:"city"`
			PostalCode string `json:"postal_code"`
		} `json:"shipping_address"`
	} `json:"customer_details"`
	EnabledPayments []string `json:"enabled_payments,omitempty"`
	Expiry          struct {
		Unit     string `json:"unit"`
		Duration int    `json:"duration"`
	} `json:"expiry"`
}

// CreateTransaction opens a hosted payment session for the order and
// returns the session token the storefront redirects the customer to.
func (c *SnapClient) CreateTransaction(ctx context.Context, order model.Order, customer model.User) (*SnapSession, error) {
	var req snapRequest
	req.TransactionDetails.OrderID = order.Number
	req.TransactionDetails.GrossAmount = order.TotalAmount
	for _, item := range order.Items {
		req.ItemDetails = append(req.ItemDetails, snapItem{
			ID:       item.ProductID,
			Name:     item.ProductName,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	req.CustomerDetails.FirstName = customer.Name
	req.CustomerDetails.Email = customer.Email
	req.CustomerDetails.ShippingAddress.Address = order.ShippingAddress
	req.CustomerDetails.ShippingAddress.City = order.ShippingCity
	req.CustomerDetails.ShippingAddress.PostalCode = order.PostalCode
	req.EnabledPayments = c.enabledPayments
	req.Expiry.Unit = "minutes"
	req.Expiry.Duration = int(c.expiry.Minutes())

	body, err := c.do(ctx, http.MethodPost, c.snapURL+"/transactions", req)
	if err != nil {
		return nil, err
	}

	var session SnapSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	session.Raw = body

	return &session, nil
}

// Status fetches the provider's current view of a transaction by order
// number.
func (c *SnapClient) Status(ctx context.Context, orderNumber string) (*TransactionStatus, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s/status", c.coreURL, orderNumber), nil)
	if err != nil {
		return nil, err
	}

	var status TransactionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &status, nil
}

// Cancel voids a not-yet-settled transaction by order number.
func (c *SnapClient) Cancel(ctx context.Context, orderNumber string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/cancel", c.coreURL, orderNumber), nil)
	return err
}

func (c *SnapClient) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.serverKey, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, providerMessage(body))
	}

	return body, nil
}

// providerMessage pulls the human-readable message out of a provider
// error body, falling back to the raw body.
func providerMessage(body []byte) string {
	var parsed struct {
		StatusMessage string   `json:"status_message"`
		ErrorMessages []string `json:"error_messages"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.StatusMessage != "" {
			return parsed.StatusMessage
		}
		if len(parsed.ErrorMessages) > 0 {
			return strings.Join(parsed.ErrorMessages, "; ")
		}
	}
	return string(bytes.TrimSpace(body))
}
