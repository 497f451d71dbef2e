package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

func request() usecase.SessionRequest {
	return usecase.SessionRequest{
		Intent: domain.OrderIntent{
			Email:     "priya@example.com",
			ServiceID: "international",
			Tier:      domain.TierBasic,
			Amount:    4999,
			Currency:  "USD",
		},
		Plan:           domain.PlanOffering{DisplayLabel: "NRI ITR Filing"},
		AmountMinor:    499900,
		Receipt:        "receipt_1",
		IdempotencyKey: "stripe:abc",
		SuccessURL:     "https://ca.example.com/checkout/success",
		CancelURL:      "https://ca.example.com/checkout?service=international&plan=basic",
	}
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	c, err := New(Config{SecretKey: "sk_test_123"})
	require.NoError(t, err)
	assert.NotNil(t, c.api)
}

func TestCreateSession_Mock(t *testing.T) {
	c, err := New(Config{Mock: true})
	require.NoError(t, err)

	s, err := c.CreateSession(context.Background(), request())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.ID, "cs_"))
	assert.Equal(t, int64(499900), s.AmountMinor)
	assert.Equal(t, "usd", s.Currency)
	assert.Equal(t, domain.SessionOpen, s.Status)

	u, err := url.Parse(s.URL)
	require.NoError(t, err)
	assert.Equal(t, s.ID, u.Query().Get("session_id"))
	assert.Equal(t, "/checkout/success", u.Path)
}

func TestCheckoutParams(t *testing.T) {
	p := checkoutParams(request())
	require.Len(t, p.LineItems, 1)
	li := p.LineItems[0]
	assert.Equal(t, int64(499900), *li.PriceData.UnitAmount)
	assert.Equal(t, "usd", *li.PriceData.Currency)
	assert.Equal(t, "international - basic (NRI ITR Filing)", *li.PriceData.ProductData.Name)
	assert.Equal(t, "https://ca.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}", *p.SuccessURL)
	assert.Equal(t, "priya@example.com", *p.CustomerEmail)
	assert.Equal(t, "international", p.Metadata["serviceId"])
	assert.Equal(t, "stripe:abc", *p.IdempotencyKey)
}

func TestWithSessionID(t *testing.T) {
	assert.Equal(t, "https://x.test/ok?session_id=cs_1", withSessionID("https://x.test/ok", "cs_1"))
	assert.Equal(t, "https://x.test/ok?a=1&session_id=cs_1", withSessionID("https://x.test/ok?a=1", "cs_1"))
}

func TestCreateSession_LiveThroughTracedBackend(t *testing.T) {
	ctx, traceID := tracedContext(t)
	var (
		traceparent string
		path        string
		idemKey     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		path = r.URL.Path
		idemKey = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_live","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_live","amount_total":499900,"currency":"usd","status":"open","created":1767225600}`))
	}))
	defer srv.Close()

	c, err := New(Config{SecretKey: "sk_test_123", APIURL: srv.URL})
	require.NoError(t, err)
	s, err := c.CreateSession(ctx, request())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_live", s.ID)
	assert.Equal(t, int64(499900), s.AmountMinor)
	assert.Equal(t, "/v1/checkout/sessions", path)
	assert.Equal(t, "stripe:abc", idemKey)
	assert.Contains(t, traceparent, traceID)
}

// tracedContext returns a context carrying a sampled span and installs the
// W3C trace context propagator.
func tracedContext(t *testing.T) (context.Context, string) {
	t.Helper()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	t.Cleanup(func() { span.End() })
	return ctx, span.SpanContext().TraceID().String()
}
