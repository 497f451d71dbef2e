// Package stripe adapts Stripe Checkout to the redirect payment flow.
package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

type Config struct {
	SecretKey string
	Mock      bool
	// APIURL overrides the Stripe API host. Ignored when Backends is set.
	APIURL   string
	Backends *stripego.Backends
}

type Client struct {
	api  *client.API
	mock bool
}

func New(cfg Config) (*Client, error) {
	if cfg.Mock {
		return &Client{mock: true}, nil
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("stripe secret key required")
	}
	backends := cfg.Backends
	if backends == nil {
		backends = tracedBackends(cfg.APIURL)
	}
	return &Client{api: client.New(cfg.SecretKey, backends)}, nil
}

// tracedBackends routes every Stripe call through an instrumented transport.
func tracedBackends(apiURL string) *stripego.Backends {
	hc := &http.Client{
		Timeout:   80 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	b := stripego.NewBackends(hc)
	if apiURL != "" {
		b.API = stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
			HTTPClient: hc,
			URL:        stripego.String(apiURL),
		})
	}
	return b
}

func (c *Client) Name() domain.Provider { return domain.ProviderInternational }

func (c *Client) CreateSession(ctx context.Context, req usecase.SessionRequest) (domain.PaymentSession, error) {
	if req.AmountMinor <= 0 {
		return domain.PaymentSession{}, errors.New("amount must be positive")
	}
	if c.mock {
		id := "cs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		return domain.PaymentSession{
			ID:          id,
			URL:         withSessionID(req.SuccessURL, id),
			AmountMinor: req.AmountMinor,
			Currency:    strings.ToLower(req.Intent.Currency),
			Status:      domain.SessionOpen,
			Receipt:     req.Receipt,
			CreatedAt:   time.Now().UTC(),
		}, nil
	}
	params := checkoutParams(req)
	params.Context = ctx
	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.PaymentSession{}, err
	}
	created := time.Now().UTC()
	if s.Created > 0 {
		created = time.Unix(s.Created, 0).UTC()
	}
	return domain.PaymentSession{
		ID:          s.ID,
		URL:         s.URL,
		AmountMinor: s.AmountTotal,
		Currency:    string(s.Currency),
		Status:      domain.SessionStatus(s.Status),
		Receipt:     req.Receipt,
		CreatedAt:   created,
	}, nil
}

func checkoutParams(req usecase.SessionRequest) *stripego.CheckoutSessionParams {
	in := req.Intent
	name := in.ServiceID + " - " + string(in.Tier)
	if req.Plan.DisplayLabel != "" {
		name += " (" + req.Plan.DisplayLabel + ")"
	}
	params := &stripego.CheckoutSessionParams{
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency: stripego.String(strings.ToLower(in.Currency)),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(name),
					},
					UnitAmount: stripego.Int64(req.AmountMinor),
				},
				Quantity: stripego.Int64(1),
			},
		},
		SuccessURL:    stripego.String(withSessionID(req.SuccessURL, "{CHECKOUT_SESSION_ID}")),
		CancelURL:     stripego.String(req.CancelURL),
		CustomerEmail: stripego.String(in.Email),
	}
	params.AddMetadata("serviceId", in.ServiceID)
	params.AddMetadata("planType", string(in.Tier))
	params.AddMetadata("receipt", req.Receipt)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params
}

// withSessionID appends session_id to the return URL. The Stripe placeholder is
// kept unescaped so Stripe can substitute it.
func withSessionID(raw, id string) string {
	sep := "?"
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return raw + sep + "session_id=" + id
}
