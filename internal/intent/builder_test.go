package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/internal/catalog"
	"checkout-backend/internal/domain"
)

func validForm() CheckoutForm {
	return CheckoutForm{
		Name:         "  Priya Patel ",
		Email:        "priya@example.com",
		Phone:        "98765-43210",
		TaxID:        "22aaaaa0000a1z5",
		AgreeToTerms: true,
		ServiceID:    "itr-filing",
		Tier:         domain.TierBasic,
	}
}

func TestBuild_Valid(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := Builder{Catalog: catalog.Default(), Now: func() time.Time { return fixed }}

	in, errs := b.Build(validForm())
	require.Nil(t, errs)
	assert.Equal(t, "Priya Patel", in.CustomerName)
	assert.Equal(t, "+919876543210", in.Phone)
	assert.Equal(t, int64(999), in.Amount)
	assert.Equal(t, "INR", in.Currency)
	assert.Equal(t, "22AAAAA0000A1Z5", in.TaxID)
	assert.Equal(t, fixed, in.CreatedAt)
}

func TestBuild_DefaultsTierToBasic(t *testing.T) {
	f := validForm()
	f.ServiceID = "gst"
	f.Tier = ""
	in, errs := Builder{Catalog: catalog.Default()}.Build(f)
	require.Nil(t, errs)
	assert.Equal(t, domain.TierBasic, in.Tier)
	assert.Equal(t, int64(1499), in.Amount)
}

func TestBuild_ReturnsAllErrorsAtOnce(t *testing.T) {
	in, errs := Builder{Catalog: catalog.Default()}.Build(CheckoutForm{
		Name:      "   ",
		Email:     "not-an-email",
		Phone:     "12345",
		ServiceID: "unknown",
	})
	assert.Equal(t, domain.OrderIntent{}, in)
	assert.Len(t, errs, 5)
	for _, field := range []string{"name", "email", "phone", "agreeToTerms", "plan"} {
		assert.Contains(t, errs, field)
	}
}

func TestBuild_PhoneLengthClass(t *testing.T) {
	b := Builder{Catalog: catalog.Default()}
	for phone, ok := range map[string]bool{
		"9876543210":       true,
		"(987) 654-3210":   true,
		"98765432101":      false,
		"987654321":        false,
		"+91 98765 43210":  false,
		"":                 false,
	} {
		f := validForm()
		f.Phone = phone
		_, errs := b.Build(f)
		_, bad := errs["phone"]
		assert.Equal(t, !ok, bad, "phone %q", phone)
	}
}
