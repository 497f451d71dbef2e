package razorpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/internal/usecase"
)

func TestVerifier_ValidSignature(t *testing.T) {
	v := Verifier{Secret: "s3cret"}
	ok, err := v.Verify("order_1", "pay_1", Sign("s3cret", "order_1", "pay_1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_Deterministic(t *testing.T) {
	assert.Equal(t, Sign("k", "order_1", "pay_1"), Sign("k", "order_1", "pay_1"))
	assert.Equal(t, "65219a93f3f6ab8a5f6962209ec83d04e29cd18b30fffd7e1a2aade3a72c199e", Sign("key", "order_1", "pay_1"))
}

func TestVerifier_DifferentSecret(t *testing.T) {
	ok, err := Verifier{Secret: "s3cret"}.Verify("order_1", "pay_1", Sign("other", "order_1", "pay_1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifier_SingleCharacterTamper(t *testing.T) {
	v := Verifier{Secret: "s3cret"}
	good := Sign("s3cret", "order_1", "pay_1")
	for i := range good {
		b := []byte(good)
		if b[i] == 'a' {
			b[i] = 'b'
		} else {
			b[i] = 'a'
		}
		ok, err := v.Verify("order_1", "pay_1", string(b))
		require.NoError(t, err)
		assert.False(t, ok, "tampered at %d", i)
	}
	ok, _ := v.Verify("order_2", "pay_1", good)
	assert.False(t, ok)
	ok, _ = v.Verify("order_1", "pay_2", good)
	assert.False(t, ok)
}

func TestVerifier_FailsClosed(t *testing.T) {
	ok, err := Verifier{}.Verify("order_1", "pay_1", Sign("", "order_1", "pay_1"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, usecase.ErrVerifierUnavailable)
}
