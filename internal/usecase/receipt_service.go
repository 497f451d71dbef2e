package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"checkout-backend/internal/domain"
)

// ReceiptService issues short-lived tokens the success page can present to
// prove a payment was verified.
type ReceiptService struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

type ReceiptClaims struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	jwt.RegisteredClaims
}

var ErrReceiptsDisabled = errors.New("receipts disabled")

func (s *ReceiptService) Enabled() bool {
	return s != nil && s.Secret != ""
}

func (s *ReceiptService) Issue(r domain.PaymentVerificationResult) (string, error) {
	if !s.Enabled() {
		return "", ErrReceiptsDisabled
	}
	if !r.Valid {
		return "", ErrSignatureInvalid
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := ReceiptClaims{
		OrderID:   r.OrderID,
		PaymentID: r.PaymentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   r.PaymentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.Secret))
}

func (s *ReceiptService) Parse(token string) (*ReceiptClaims, error) {
	if !s.Enabled() {
		return nil, ErrReceiptsDisabled
	}
	if token == "" {
		return nil, ErrMissingFields{"token"}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(s.Now))
	}
	var claims ReceiptClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrBadRequest("invalid receipt")
	}
	return &claims, nil
}
