package razorpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

const defaultBaseURL = "https://api.razorpay.com"

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Mock      bool
	Timeout   time.Duration
}

// Client creates Razorpay orders. In mock mode it fabricates orders locally and
// never touches the network.
type Client struct {
	keyID string
	mock  bool
	http  *resty.Client
}

func New(cfg Config) (*Client, error) {
	if !cfg.Mock && (strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "") {
		return nil, fmt.Errorf("razorpay config incomplete")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := resty.New().
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Content-Type", "application/json")
	return &Client{keyID: cfg.KeyID, mock: cfg.Mock, http: hc}, nil
}

func (c *Client) Name() domain.Provider { return domain.ProviderDomestic }

type orderReq struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type orderResp struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type errorResp struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateSession(ctx context.Context, req usecase.SessionRequest) (domain.PaymentSession, error) {
	if req.AmountMinor <= 0 {
		return domain.PaymentSession{}, errors.New("amount must be positive")
	}
	if c.mock {
		return c.mockOrder(req), nil
	}
	in := req.Intent
	var out orderResp
	var apiErr errorResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderReq{
			Amount:   req.AmountMinor,
			Currency: in.Currency,
			Receipt:  req.Receipt,
			Notes: map[string]string{
				"serviceId":     in.ServiceID,
				"planType":      string(in.Tier),
				"customerName":  in.CustomerName,
				"customerEmail": in.Email,
				"customerPhone": in.Phone,
			},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/orders")
	if err != nil {
		return domain.PaymentSession{}, fmt.Errorf("razorpay create order: %w", err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error.Description)
		if msg == "" {
			msg = resp.Status()
		}
		return domain.PaymentSession{}, fmt.Errorf("razorpay create order: %s", msg)
	}
	if strings.TrimSpace(out.ID) == "" {
		return domain.PaymentSession{}, fmt.Errorf("razorpay create order: missing order id")
	}
	created := time.Now().UTC()
	if out.CreatedAt > 0 {
		created = time.Unix(out.CreatedAt, 0).UTC()
	}
	return domain.PaymentSession{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Status:      domain.SessionStatus(out.Status),
		Receipt:     out.Receipt,
		ClientKey:   c.keyID,
		CreatedAt:   created,
	}, nil
}

func (c *Client) mockOrder(req usecase.SessionRequest) domain.PaymentSession {
	key := c.keyID
	if key == "" {
		key = "rzp_test_mock"
	}
	return domain.PaymentSession{
		ID:          "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		AmountMinor: req.AmountMinor,
		Currency:    req.Intent.Currency,
		Status:      domain.SessionCreated,
		Receipt:     req.Receipt,
		ClientKey:   key,
		CreatedAt:   time.Now().UTC(),
	}
}
