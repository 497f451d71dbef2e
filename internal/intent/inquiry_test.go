package intent

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/internal/catalog"
)

func TestValidateInquiry(t *testing.T) {
	ok := InquiryForm{
		Name:        "Amit",
		Email:       "amit@example.com",
		CountryCode: "+44",
		Phone:       "20 7946 0958",
		ServiceID:   "gst",
		Consent:     true,
	}
	assert.Nil(t, ValidateInquiry(ok))

	errs := ValidateInquiry(InquiryForm{Email: "x@y", Phone: "12345"})
	assert.Equal(t, "Name is required", errs["name"])
	assert.Equal(t, "Please enter a valid email", errs["email"])
	assert.Equal(t, "Please enter a valid phone number", errs["phone"])
	assert.Equal(t, "Please select a service", errs["service"])
	assert.Equal(t, "Please accept the terms", errs["consent"])

	errs = ValidateInquiry(InquiryForm{})
	assert.Equal(t, "Email is required", errs["email"])
	assert.Equal(t, "Phone number is required", errs["phone"])
}

func TestWhatsAppLink(t *testing.T) {
	f := InquiryForm{
		Name:        "Sneha Gupta",
		Email:       "sneha@example.com",
		CountryCode: "+1",
		Phone:       "5550100",
		ServiceID:   "itr-filing",
		ClientType:  "nri",
		Message:     "Need help with DTAA & refunds",
	}
	link := WhatsAppLink("+91 95891 67567", f, catalog.Default())
	require.True(t, strings.HasPrefix(link, "https://wa.me/919589167567?text="))
	assert.NotContains(t, link, "+")

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "*Service Required:* ITR Filing")
	assert.Contains(t, text, "*Client Type:* NRI")
	assert.Contains(t, text, "*Phone:* +1 5550100")
	assert.True(t, strings.HasSuffix(text, "*Additional Details:*\nNeed help with DTAA & refunds"))
}
