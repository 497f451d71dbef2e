package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"checkout-backend/internal/usecase"
)

// Verifier checks checkout callback signatures: hex(HMAC-SHA256(secret, order|payment)).
type Verifier struct {
	Secret string
}

func Sign(secret, orderID, paymentID string) string {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(m.Sum(nil))
}

func (v Verifier) Verify(orderID, paymentID, signature string) (bool, error) {
	if v.Secret == "" {
		return false, usecase.ErrVerifierUnavailable
	}
	expected := Sign(v.Secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}
