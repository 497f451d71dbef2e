package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"checkout-backend/internal/domain"
)

// RedisIdempotencyStore shares idempotency keys across server instances.
type RedisIdempotencyStore struct {
	client      *redis.Client
	serviceName string
}

func NewRedisIdempotencyStore(addr, serviceName string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
	}
}

func (r *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisIdempotencyStore) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.serviceName, operation, key)
}

func (r *RedisIdempotencyStore) Get(ctx context.Context, key string) (*domain.PaymentSession, bool, error) {
	raw, err := r.client.Get(ctx, r.GenerateKey("idem", key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s domain.PaymentSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode cached session: %w", err)
	}
	return &s, true, nil
}

// PutIfAbsent stores s under key with SETNX. When another writer got there
// first the stored session is returned instead.
func (r *RedisIdempotencyStore) PutIfAbsent(ctx context.Context, key string, s *domain.PaymentSession, ttl time.Duration) (*domain.PaymentSession, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	ok, err := r.client.SetNX(ctx, r.GenerateKey("idem", key), b, ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		cp := *s
		return &cp, nil
	}
	existing, found, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		// expired between SETNX and GET
		cp := *s
		return &cp, nil
	}
	return existing, nil
}

func (r *RedisIdempotencyStore) Close() error { return r.client.Close() }
