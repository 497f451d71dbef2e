// Package app wires configuration into a running checkout server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"checkout-backend/internal/catalog"
	"checkout-backend/internal/config"
	"checkout-backend/internal/domain"
	"checkout-backend/internal/infrastructure/cache"
	"checkout-backend/internal/infrastructure/razorpay"
	"checkout-backend/internal/infrastructure/repo"
	"checkout-backend/internal/infrastructure/stripe"
	"checkout-backend/internal/server"
	"checkout-backend/internal/usecase"
)

type App struct {
	Config  config.Config
	Server  *server.Server
	Store   repo.Store
	closers []func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := repo.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	var idem usecase.IdempotencyStore = repo.NewMemoryIdempotencyStore()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisIdempotencyStore(cfg.RedisAddr, "checkout")
		if err := rc.Ping(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		idem = rc
		a.closers = append(a.closers, rc.Close)
	}

	rzp, err := razorpay.New(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Mock:      cfg.Razorpay.Mock,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	str, err := stripe.New(stripe.Config{SecretKey: cfg.Stripe.SecretKey, Mock: cfg.Stripe.Mock})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	cat := catalog.Default()
	payments := &usecase.PaymentService{
		Catalog: cat,
		Providers: map[domain.Provider]usecase.PaymentProvider{
			rzp.Name(): rzp,
			str.Name(): str,
		},
		Sessions:    store,
		Idempotency: idem,
		DedupWindow: cfg.DedupWindow,
	}

	var verifier usecase.SignatureVerifier
	if cfg.Razorpay.KeySecret != "" {
		verifier = razorpay.Verifier{Secret: cfg.Razorpay.KeySecret}
	} else {
		slog.Warn("RAZORPAY_KEY_SECRET not set: every payment verification will be rejected")
	}
	verify := &usecase.VerifyService{
		Verifier:    verifier,
		Audit:       store,
		Sessions:    store,
		Fulfillment: usecase.LogFulfillment{},
	}

	a.Server = server.New(cfg, server.Deps{
		Catalog:  cat,
		Payments: payments,
		Verify:   verify,
		Receipts: &usecase.ReceiptService{Secret: cfg.ReceiptSecret},
	})
	slog.Info("checkout wired",
		"env", cfg.Env,
		"razorpay_mock", cfg.Razorpay.Mock,
		"stripe_mock", cfg.Stripe.Mock,
		"redis", cfg.RedisAddr != "",
	)
	return a, nil
}

func (a *App) Handler() http.Handler { return a.Server.Handler() }

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
