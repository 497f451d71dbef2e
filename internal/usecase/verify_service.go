package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"checkout-backend/internal/domain"
)

// SignatureVerifier checks a provider callback signature. It must return
// ErrVerifierUnavailable rather than compare against any fallback secret.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) (bool, error)
}

type AuditRepo interface {
	SaveVerification(ctx context.Context, a *domain.VerificationAudit) error
}

// Fulfillment is notified once a payment has been verified.
type Fulfillment interface {
	PaymentVerified(ctx context.Context, r domain.PaymentVerificationResult) error
}

type LogFulfillment struct{}

func (LogFulfillment) PaymentVerified(ctx context.Context, r domain.PaymentVerificationResult) error {
	slog.InfoContext(ctx, "payment ready for fulfillment", "order_id", r.OrderID, "payment_id", r.PaymentID)
	return nil
}

type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
	RequestID string
	ClientIP  string
}

type VerifyService struct {
	Verifier    SignatureVerifier
	Audit       AuditRepo
	Sessions    SessionRepo
	Fulfillment Fulfillment
	Now         func() time.Time
}

func (s *VerifyService) Verify(ctx context.Context, in VerifyInput) (domain.PaymentVerificationResult, error) {
	if err := missing(map[string]string{
		"razorpay_order_id":   in.OrderID,
		"razorpay_payment_id": in.PaymentID,
		"razorpay_signature":  in.Signature,
	}); err != nil {
		return domain.PaymentVerificationResult{}, err
	}
	res := domain.PaymentVerificationResult{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
		CheckedAt: s.now(),
	}
	if s.Verifier == nil {
		return res, ErrVerifierUnavailable
	}
	valid, err := s.Verifier.Verify(in.OrderID, in.PaymentID, in.Signature)
	if err != nil {
		if errors.Is(err, ErrVerifierUnavailable) {
			slog.ErrorContext(ctx, "payment verification refused: no secret configured", "order_id", in.OrderID)
		}
		return res, err
	}
	res.Valid = valid
	s.audit(ctx, in, valid)

	if !valid {
		slog.WarnContext(ctx, "payment verification rejected",
			"order_id", in.OrderID,
			"request_id", in.RequestID,
			"client_ip", in.ClientIP,
		)
		return res, ErrSignatureInvalid
	}

	if s.Sessions != nil {
		if err := s.Sessions.MarkPaid(ctx, in.OrderID); err != nil {
			var nf ErrNotFound
			if !errors.As(err, &nf) {
				slog.ErrorContext(ctx, "mark session paid failed", "order_id", in.OrderID, "error", err)
			}
		}
	}
	if s.Fulfillment != nil {
		if err := s.Fulfillment.PaymentVerified(ctx, res); err != nil {
			slog.ErrorContext(ctx, "fulfillment hook failed", "order_id", in.OrderID, "error", err)
		}
	}
	slog.InfoContext(ctx, "payment verified", "order_id", in.OrderID, "payment_id", in.PaymentID)
	return res, nil
}

func (s *VerifyService) audit(ctx context.Context, in VerifyInput, valid bool) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.SaveVerification(ctx, &domain.VerificationAudit{
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Valid:     valid,
		RequestID: in.RequestID,
		ClientIP:  in.ClientIP,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "audit write failed", "order_id", in.OrderID, "error", err)
	}
}

func (s *VerifyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
