// Package intent turns raw checkout and inquiry form input into validated values.
// Validation is pure: no I/O, no partial results.
package intent

import (
	"regexp"
	"strings"
	"time"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/money"
)

var (
	emailPattern         = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	checkoutPhonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	inquiryPhonePattern  = regexp.MustCompile(`^[0-9]{6,15}$`)
	nonDigit             = regexp.MustCompile(`\D`)
)

const DomesticCountryCode = "+91"

type PlanLookup interface {
	Lookup(serviceID string, tier domain.Tier) (domain.PlanOffering, bool)
}

type CheckoutForm struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	TaxID        string      `json:"gstNumber"`
	AgreeToTerms bool        `json:"agreeToTerms"`
	ServiceID    string      `json:"serviceId"`
	Tier         domain.Tier `json:"planType"`
	Currency     string      `json:"currency"`
}

type Builder struct {
	Catalog PlanLookup
	Now     func() time.Time
}

// Build validates the form and returns every failing field at once.
func (b Builder) Build(f CheckoutForm) (domain.OrderIntent, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	if !ValidEmail(f.Email) {
		errs["email"] = "Valid email is required"
	}
	digits := Digits(f.Phone)
	if !checkoutPhonePattern.MatchString(digits) {
		errs["phone"] = "Valid 10-digit phone is required"
	}
	if !f.AgreeToTerms {
		errs["agreeToTerms"] = "You must agree to the terms"
	}
	tier := f.Tier
	if tier == "" {
		tier = domain.TierBasic
	}
	plan, ok := b.Catalog.Lookup(f.ServiceID, tier)
	if !ok {
		errs["plan"] = "The selected service or plan is not available"
	}
	if len(errs) > 0 {
		return domain.OrderIntent{}, errs
	}
	currency := money.NormalizeCurrency(f.Currency)
	if currency == "" {
		currency = "INR"
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return domain.OrderIntent{
		CustomerName: strings.TrimSpace(f.Name),
		Email:        strings.TrimSpace(f.Email),
		Phone:        DomesticCountryCode + digits,
		ServiceID:    plan.ServiceID,
		Tier:         plan.Tier,
		Amount:       plan.Price,
		Currency:     currency,
		TaxID:        strings.ToUpper(strings.TrimSpace(f.TaxID)),
		CreatedAt:    now().UTC(),
	}, nil
}

func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && emailPattern.MatchString(s)
}

func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}
