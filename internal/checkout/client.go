// Package checkout drives a customer through one payment attempt against the
// checkout API: create a session, hand off to the provider, verify the result.
package checkout

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"checkout-backend/internal/domain"
)

// APIError is a non-2xx answer from the checkout API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("checkout api %d: %s", e.Status, e.Message)
}

type OrderRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	ServiceID     string `json:"serviceId"`
	PlanType      string `json:"planType"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	GSTNumber     string `json:"gstNumber,omitempty"`
	Nonce         string `json:"nonce,omitempty"`
}

type Order struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Order   Order  `json:"order"`
	Key     string `json:"key"`
}

type CheckoutRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	ServiceID     string `json:"serviceId"`
	PlanType      string `json:"planType"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail"`
	SuccessURL    string `json:"successUrl"`
	CancelURL     string `json:"cancelUrl"`
	Nonce         string `json:"nonce,omitempty"`
}

type CheckoutSession struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

type CheckoutResponse struct {
	Success bool            `json:"success"`
	Session CheckoutSession `json:"session"`
}

// ProviderResponse is what the payment widget hands back on completion.
type ProviderResponse struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	PaymentID    string `json:"paymentId"`
	OrderID      string `json:"orderId"`
	ReceiptToken string `json:"receiptToken,omitempty"`
}

type sessionResponse struct {
	Success bool                  `json:"success"`
	Session domain.PaymentSession `json:"session"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{http: resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")}
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.post(ctx, "/payments/create-order", req.Nonce, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	var out CheckoutResponse
	if err := c.post(ctx, "/payments/create-checkout-session", req.Nonce, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, resp ProviderResponse) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.post(ctx, "/payments/verify", "", resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Session(ctx context.Context, id string) (*domain.PaymentSession, error) {
	var (
		out  sessionResponse
		fail errorBody
	)
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&fail).
		Get("/payments/sessions/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{Status: res.StatusCode(), Message: fail.Error}
	}
	return &out.Session, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, result any) error {
	var fail errorBody
	r := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&fail)
	if idempotencyKey != "" {
		r.SetHeader("Idempotency-Key", idempotencyKey)
	}
	res, err := r.Post(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		msg := fail.Error
		if msg == "" {
			msg = res.Status()
		}
		return &APIError{Status: res.StatusCode(), Message: msg}
	}
	return nil
}
