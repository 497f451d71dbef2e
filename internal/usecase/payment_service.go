package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/intent"
	"checkout-backend/internal/money"
)

type PlanLookup interface {
	Lookup(serviceID string, tier domain.Tier) (domain.PlanOffering, bool)
}

// SessionRequest is what a provider adapter receives. AmountMinor is already
// derived from the catalog.
type SessionRequest struct {
	Intent         domain.OrderIntent
	Plan           domain.PlanOffering
	AmountMinor    int64
	Receipt        string
	IdempotencyKey string
	SuccessURL     string
	CancelURL      string
}

type PaymentProvider interface {
	Name() domain.Provider
	CreateSession(ctx context.Context, req SessionRequest) (domain.PaymentSession, error)
}

type SessionRepo interface {
	PutSession(ctx context.Context, s *domain.PaymentSession) error
	GetSession(ctx context.Context, id string) (*domain.PaymentSession, bool, error)
	MarkPaid(ctx context.Context, id string) error
}

// IdempotencyStore remembers the session created for a key. PutIfAbsent returns
// whichever session owns the key after the call.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*domain.PaymentSession, bool, error)
	PutIfAbsent(ctx context.Context, key string, s *domain.PaymentSession, ttl time.Duration) (*domain.PaymentSession, error)
}

type CreateSessionInput struct {
	Provider       domain.Provider
	Amount         int64
	Currency       string
	ServiceID      string
	Tier           domain.Tier
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	TaxID          string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	Nonce          string
}

type PaymentService struct {
	Catalog     PlanLookup
	Providers   map[domain.Provider]PaymentProvider
	Sessions    SessionRepo
	Idempotency IdempotencyStore
	DedupWindow time.Duration
	Now         func() time.Time

	locks keyedMutex
}

const DefaultDedupWindow = 10 * time.Minute

func (s *PaymentService) CreateSession(ctx context.Context, in CreateSessionInput) (domain.PaymentSession, error) {
	provider, ok := s.Providers[in.Provider]
	if !ok {
		return domain.PaymentSession{}, ErrUnknownProvider
	}
	if err := requiredFor(in); err != nil {
		return domain.PaymentSession{}, err
	}
	plan, ok := s.Catalog.Lookup(in.ServiceID, in.Tier)
	if !ok {
		return domain.PaymentSession{}, ErrBadRequest("Unknown service or plan")
	}
	if in.Amount != plan.Price {
		return domain.PaymentSession{}, ErrBadRequest("Amount does not match the selected plan")
	}

	currency := money.NormalizeCurrency(in.Currency)
	if currency == "" {
		currency = defaultCurrency(in.Provider)
	}
	oi := domain.OrderIntent{
		CustomerName: strings.TrimSpace(in.CustomerName),
		Email:        strings.TrimSpace(in.CustomerEmail),
		Phone:        strings.TrimSpace(in.CustomerPhone),
		ServiceID:    plan.ServiceID,
		Tier:         plan.Tier,
		Amount:       plan.Price,
		Currency:     currency,
		TaxID:        strings.TrimSpace(in.TaxID),
		CreatedAt:    s.now(),
	}

	key := idempotencyKey(in.Provider, in.IdempotencyKey, oi, in.Nonce)
	digest := intentDigest(in.Provider, oi)
	unlock := s.locks.Lock(key)
	defer unlock()

	if s.Idempotency != nil {
		cached, found, err := s.Idempotency.Get(ctx, key)
		if err != nil {
			return domain.PaymentSession{}, err
		}
		if found {
			if cached.IntentDigest != digest {
				return domain.PaymentSession{}, ErrConflict("idempotency key mismatch")
			}
			slog.InfoContext(ctx, "payment session replayed", "session_id", cached.ID, "provider", in.Provider)
			return withoutDigest(cached), nil
		}
	}

	sess, err := provider.CreateSession(ctx, SessionRequest{
		Intent:         oi,
		Plan:           plan,
		AmountMinor:    money.ToMinor(plan.Price, currency),
		Receipt:        "receipt_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		IdempotencyKey: key,
		SuccessURL:     in.SuccessURL,
		CancelURL:      in.CancelURL,
	})
	if err != nil {
		return domain.PaymentSession{}, &ProviderError{Provider: in.Provider, Err: err}
	}
	sess.Provider = in.Provider
	sess.ServiceID = oi.ServiceID
	sess.Tier = oi.Tier
	sess.Email = oi.Email
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}

	if s.Idempotency != nil {
		rec := sess
		rec.IntentDigest = digest
		owner, err := s.Idempotency.PutIfAbsent(ctx, key, &rec, s.window())
		if err != nil {
			return domain.PaymentSession{}, err
		}
		if owner != nil && owner.ID != sess.ID {
			if owner.IntentDigest != digest {
				return domain.PaymentSession{}, ErrConflict("idempotency key mismatch")
			}
			return withoutDigest(owner), nil
		}
	}
	if s.Sessions != nil {
		if err := s.Sessions.PutSession(ctx, &sess); err != nil {
			return domain.PaymentSession{}, err
		}
	}
	slog.InfoContext(ctx, "payment session created",
		"session_id", sess.ID,
		"provider", in.Provider,
		"service_id", oi.ServiceID,
		"plan", oi.Tier,
		"amount_minor", sess.AmountMinor,
		"currency", sess.Currency,
	)
	return sess, nil
}

func (s *PaymentService) Session(ctx context.Context, id string) (domain.PaymentSession, error) {
	if strings.TrimSpace(id) == "" {
		return domain.PaymentSession{}, ErrMissingFields{"id"}
	}
	if s.Sessions == nil {
		return domain.PaymentSession{}, ErrNotFound("session")
	}
	sess, ok, err := s.Sessions.GetSession(ctx, id)
	if err != nil {
		return domain.PaymentSession{}, err
	}
	if !ok {
		return domain.PaymentSession{}, ErrNotFound("session")
	}
	return *sess, nil
}

func requiredFor(in CreateSessionInput) error {
	fields := map[string]string{
		"serviceId": in.ServiceID,
		"planType":  string(in.Tier),
	}
	if in.Amount > 0 {
		fields["amount"] = strconv.FormatInt(in.Amount, 10)
	} else {
		fields["amount"] = ""
	}
	switch in.Provider {
	case domain.ProviderDomestic:
		fields["customerName"] = in.CustomerName
		fields["customerEmail"] = in.CustomerEmail
		fields["customerPhone"] = in.CustomerPhone
	case domain.ProviderInternational:
		fields["customerEmail"] = in.CustomerEmail
		fields["successUrl"] = in.SuccessURL
		fields["cancelUrl"] = in.CancelURL
	}
	return missing(fields)
}

func defaultCurrency(p domain.Provider) string {
	if p == domain.ProviderInternational {
		return "USD"
	}
	return "INR"
}

// idempotencyKey scopes an explicit key to the provider, or derives one from the
// intent so that identical resubmissions collapse onto one session.
func idempotencyKey(p domain.Provider, explicit string, oi domain.OrderIntent, nonce string) string {
	if k := strings.TrimSpace(explicit); k != "" {
		return string(p) + ":" + k
	}
	parts := []string{
		string(p),
		strings.ToLower(oi.Email),
		intent.Digits(oi.Phone),
		oi.ServiceID,
		string(oi.Tier),
		oi.Currency,
		strings.TrimSpace(nonce),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return string(p) + ":" + hex.EncodeToString(sum[:])
}

// intentDigest fingerprints every field a replay must match. A reused key
// with any difference is a conflict.
func intentDigest(p domain.Provider, oi domain.OrderIntent) string {
	parts := []string{
		string(p),
		strings.ToLower(oi.Email),
		intent.Digits(oi.Phone),
		strings.ToLower(oi.CustomerName),
		oi.ServiceID,
		string(oi.Tier),
		oi.Currency,
		strconv.FormatInt(oi.Amount, 10),
		strings.ToUpper(oi.TaxID),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func withoutDigest(s *domain.PaymentSession) domain.PaymentSession {
	out := *s
	out.IntentDigest = ""
	return out
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PaymentService) window() time.Duration {
	if s.DedupWindow > 0 {
		return s.DedupWindow
	}
	return DefaultDedupWindow
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*keyLock{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
