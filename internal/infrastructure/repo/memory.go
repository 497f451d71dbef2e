package repo

import (
	"context"
	"sync"
	"time"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/usecase"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.PaymentSession
	audits   []domain.VerificationAudit
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]*domain.PaymentSession)}
}

func (r *MemoryRepo) PutSession(_ context.Context, s *domain.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetSession(_ context.Context, id string) (*domain.PaymentSession, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *s
	return &cp, true, nil
}

func (r *MemoryRepo) MarkPaid(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return usecase.ErrNotFound("session")
	}
	s.Status = domain.SessionPaid
	return nil
}

func (r *MemoryRepo) SaveVerification(_ context.Context, a *domain.VerificationAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, *a)
	return nil
}

// Verifications returns audit rows for an order, oldest first.
func (r *MemoryRepo) Verifications(orderID string) []domain.VerificationAudit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.VerificationAudit
	for _, a := range r.audits {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out
}

func (r *MemoryRepo) Close() error { return nil }

type idemEntry struct {
	session   domain.PaymentSession
	expiresAt time.Time
}

// idemSweepEvery is how many inserts pass between sweeps of expired keys.
const idemSweepEvery = 64

// MemoryIdempotencyStore keeps keys in process memory until their TTL passes.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	m       map[string]idemEntry
	inserts int
	Now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{m: make(map[string]idemEntry)}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*domain.PaymentSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return nil, false, nil
	}
	cp := e.session
	return &cp, true, nil
}

func (s *MemoryIdempotencyStore) PutIfAbsent(_ context.Context, key string, sess *domain.PaymentSession, ttl time.Duration) (*domain.PaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.lookup(key); ok {
		cp := e.session
		return &cp, nil
	}
	now := s.now()
	s.inserts++
	if s.inserts%idemSweepEvery == 0 {
		for k, e := range s.m {
			if !now.Before(e.expiresAt) {
				delete(s.m, k)
			}
		}
	}
	s.m[key] = idemEntry{session: *sess, expiresAt: now.Add(ttl)}
	cp := *sess
	return &cp, nil
}

func (s *MemoryIdempotencyStore) lookup(key string) (idemEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return idemEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.m, key)
		return idemEntry{}, false
	}
	return e, true
}

func (s *MemoryIdempotencyStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
