package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/internal/catalog"
	"checkout-backend/internal/domain"
)

func newPaymentService() (*PaymentService, *fakeProvider, *fakeProvider, *fakeSessions) {
	dom := &fakeProvider{name: domain.ProviderDomestic}
	intl := &fakeProvider{name: domain.ProviderInternational}
	sessions := &fakeSessions{}
	svc := &PaymentService{
		Catalog: catalog.Default(),
		Providers: map[domain.Provider]PaymentProvider{
			dom.name:  dom,
			intl.name: intl,
		},
		Sessions:    sessions,
		Idempotency: &fakeIdem{},
	}
	return svc, dom, intl, sessions
}

func domesticInput() CreateSessionInput {
	return CreateSessionInput{
		Provider:      domain.ProviderDomestic,
		Amount:        999,
		ServiceID:     "itr-filing",
		Tier:          domain.TierBasic,
		CustomerName:  "Rajesh Sharma",
		CustomerEmail: "rajesh@example.com",
		CustomerPhone: "9876543210",
	}
}

func TestCreateSession_DomesticScenario(t *testing.T) {
	svc, dom, _, sessions := newPaymentService()

	sess, err := svc.CreateSession(context.Background(), domesticInput())
	require.NoError(t, err)
	assert.Equal(t, int64(99900), sess.AmountMinor)
	assert.Equal(t, "INR", sess.Currency)
	assert.Equal(t, domain.ProviderDomestic, sess.Provider)
	assert.Equal(t, int32(1), dom.calls.Load())

	stored, ok, _ := sessions.GetSession(context.Background(), sess.ID)
	require.True(t, ok)
	assert.Equal(t, "itr-filing", stored.ServiceID)
}

func TestCreateSession_MinorUnitsForWholeCatalog(t *testing.T) {
	svc, _, _, _ := newPaymentService()
	for _, s := range catalog.Default().Services() {
		for _, p := range s.Plans {
			in := domesticInput()
			in.ServiceID = p.ServiceID
			in.Tier = p.Tier
			in.Amount = p.Price
			sess, err := svc.CreateSession(context.Background(), in)
			require.NoError(t, err, "%s/%s", p.ServiceID, p.Tier)
			assert.Equal(t, p.Price*100, sess.AmountMinor, "%s/%s", p.ServiceID, p.Tier)
		}
	}
}

func TestCreateSession_MissingFields(t *testing.T) {
	svc, dom, intl, _ := newPaymentService()

	in := domesticInput()
	in.CustomerPhone = ""
	in.Amount = 0
	_, err := svc.CreateSession(context.Background(), in)
	var mf ErrMissingFields
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, ErrMissingFields{"amount", "customerPhone"}, mf)

	_, err = svc.CreateSession(context.Background(), CreateSessionInput{
		Provider:   domain.ProviderInternational,
		Amount:     999,
		ServiceID:  "itr-filing",
		Tier:       domain.TierBasic,
		SuccessURL: "https://example.com/ok",
		CancelURL:  "https://example.com/cancel",
	})
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, ErrMissingFields{"customerEmail"}, mf)

	assert.Zero(t, dom.calls.Load())
	assert.Zero(t, intl.calls.Load())
}

func TestCreateSession_RejectsClientAmount(t *testing.T) {
	svc, dom, _, _ := newPaymentService()
	in := domesticInput()
	in.Amount = 1
	_, err := svc.CreateSession(context.Background(), in)
	var br ErrBadRequest
	require.ErrorAs(t, err, &br)
	assert.Zero(t, dom.calls.Load())

	in = domesticInput()
	in.Tier = "gold"
	_, err = svc.CreateSession(context.Background(), in)
	require.ErrorAs(t, err, &br)
}

func TestCreateSession_ProviderErrorIsDistinct(t *testing.T) {
	svc, dom, _, _ := newPaymentService()
	dom.err = errUpstream

	_, err := svc.CreateSession(context.Background(), domesticInput())
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ProviderDomestic, pe.Provider)
	assert.True(t, errors.Is(err, errUpstream))
	var mf ErrMissingFields
	assert.False(t, errors.As(err, &mf))
}

func TestCreateSession_UnknownProvider(t *testing.T) {
	svc, _, _, _ := newPaymentService()
	in := domesticInput()
	in.Provider = "paypal"
	_, err := svc.CreateSession(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCreateSession_DoubleSubmitYieldsOneSession(t *testing.T) {
	svc, dom, _, _ := newPaymentService()
	in := domesticInput()
	in.Nonce = "n-1"

	first, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), dom.calls.Load())

	in.Nonce = "n-2"
	third, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateSession_ConcurrentDuplicates(t *testing.T) {
	svc, dom, _, _ := newPaymentService()
	dom.delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.CreateSession(context.Background(), domesticInput())
			if err == nil {
				ids[i] = s.ID
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), dom.calls.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCreateSession_ExplicitKeyMismatch(t *testing.T) {
	svc, _, _, _ := newPaymentService()
	in := domesticInput()
	in.IdempotencyKey = "key-1"
	_, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)

	in.ServiceID = "gst"
	in.Amount = 1499
	_, err = svc.CreateSession(context.Background(), in)
	var c ErrConflict
	assert.ErrorAs(t, err, &c)
}

func TestCreateSession_ExplicitKeyRejectsChangedDetails(t *testing.T) {
	cases := map[string]func(*CreateSessionInput){
		"currency": func(in *CreateSessionInput) { in.Currency = "USD" },
		"phone":    func(in *CreateSessionInput) { in.CustomerPhone = "9123456780" },
		"name":     func(in *CreateSessionInput) { in.CustomerName = "Priya Patel" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, dom, _, _ := newPaymentService()
			in := domesticInput()
			in.IdempotencyKey = "key-2"
			first, err := svc.CreateSession(context.Background(), in)
			require.NoError(t, err)
			assert.Empty(t, first.IntentDigest)

			mutate(&in)
			_, err = svc.CreateSession(context.Background(), in)
			var c ErrConflict
			assert.ErrorAs(t, err, &c)
			assert.Equal(t, int32(1), dom.calls.Load())
		})
	}
}

func TestCreateSession_ExplicitKeyReplayNormalizesInput(t *testing.T) {
	svc, dom, _, _ := newPaymentService()
	in := domesticInput()
	in.IdempotencyKey = "key-3"
	first, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)

	in.CustomerEmail = "  RAJESH@example.com "
	in.CustomerPhone = "98765-43210"
	again, err := svc.CreateSession(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Empty(t, again.IntentDigest)
	assert.Equal(t, int32(1), dom.calls.Load())
}

func TestSessionLookup(t *testing.T) {
	svc, _, _, _ := newPaymentService()
	sess, err := svc.CreateSession(context.Background(), domesticInput())
	require.NoError(t, err)

	got, err := svc.Session(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	_, err = svc.Session(context.Background(), "missing")
	var nf ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
