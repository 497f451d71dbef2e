package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"checkout-backend/internal/domain"
)

type fakeProvider struct {
	name  domain.Provider
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (p *fakeProvider) Name() domain.Provider { return p.name }

func (p *fakeProvider) CreateSession(ctx context.Context, req SessionRequest) (domain.PaymentSession, error) {
	n := p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return domain.PaymentSession{}, p.err
	}
	return domain.PaymentSession{
		ID:          "sess_" + strconv.Itoa(int(n)),
		AmountMinor: req.AmountMinor,
		Currency:    req.Intent.Currency,
		Status:      domain.SessionCreated,
		Receipt:     req.Receipt,
	}, nil
}

type fakeSessions struct {
	mu sync.Mutex
	m  map[string]*domain.PaymentSession
}

func (r *fakeSessions) PutSession(_ context.Context, s *domain.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = map[string]*domain.PaymentSession{}
	}
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *fakeSessions) GetSession(_ context.Context, id string) (*domain.PaymentSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	return s, ok, nil
}

func (r *fakeSessions) MarkPaid(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return ErrNotFound("session")
	}
	s.Status = domain.SessionPaid
	return nil
}

type fakeIdem struct {
	mu sync.Mutex
	m  map[string]*domain.PaymentSession
}

func (f *fakeIdem) Get(_ context.Context, key string) (*domain.PaymentSession, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.m[key]
	return s, ok, nil
}

func (f *fakeIdem) PutIfAbsent(_ context.Context, key string, s *domain.PaymentSession, _ time.Duration) (*domain.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		f.m = map[string]*domain.PaymentSession{}
	}
	if cur, ok := f.m[key]; ok {
		return cur, nil
	}
	cp := *s
	f.m[key] = &cp
	return &cp, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.VerificationAudit
}

func (a *fakeAudit) SaveVerification(_ context.Context, e *domain.VerificationAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

type funcVerifier func(o, p, s string) (bool, error)

func (f funcVerifier) Verify(o, p, s string) (bool, error) { return f(o, p, s) }

type recordingFulfillment struct {
	got []domain.PaymentVerificationResult
}

func (r *recordingFulfillment) PaymentVerified(_ context.Context, res domain.PaymentVerificationResult) error {
	r.got = append(r.got, res)
	return nil
}

var errUpstream = errors.New("rate limited")
