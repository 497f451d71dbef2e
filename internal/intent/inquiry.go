package intent

import (
	"fmt"
	"net/url"
	"strings"

	"checkout-backend/internal/domain"
)

type ServiceLookup interface {
	Service(id string) (domain.Service, bool)
}

type InquiryForm struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone"`
	ServiceID   string `json:"service"`
	ClientType  string `json:"clientType"`
	Message     string `json:"message"`
	Consent     bool   `json:"consent"`
}

var clientTypeLabels = map[string]string{
	"individual": "Individual",
	"business":   "Business",
	"startup":    "Startup",
	"nri":        "NRI",
}

// CountryCodes are the dialing prefixes offered on the inquiry form.
var CountryCodes = []string{
	"+91", "+1", "+44", "+971", "+65", "+61", "+49", "+33",
	"+81", "+86", "+966", "+974", "+968", "+973", "+965",
}

func ValidateInquiry(f InquiryForm) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	switch {
	case strings.TrimSpace(f.Email) == "":
		errs["email"] = "Email is required"
	case !ValidEmail(f.Email):
		errs["email"] = "Please enter a valid email"
	}
	switch {
	case strings.TrimSpace(f.Phone) == "":
		errs["phone"] = "Phone number is required"
	case !inquiryPhonePattern.MatchString(Digits(f.Phone)):
		errs["phone"] = "Please enter a valid phone number"
	}
	if f.ServiceID == "" {
		errs["service"] = "Please select a service"
	}
	if !f.Consent {
		errs["consent"] = "Please accept the terms"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// InquiryMessage formats the text handed to the messaging deep link.
func InquiryMessage(f InquiryForm, services ServiceLookup) string {
	serviceName := f.ServiceID
	if s, ok := services.Service(f.ServiceID); ok && s.ShortTitle != "" {
		serviceName = s.ShortTitle
	}
	clientType := f.ClientType
	if l, ok := clientTypeLabels[f.ClientType]; ok {
		clientType = l
	}
	code := f.CountryCode
	if code == "" {
		code = DomesticCountryCode
	}
	var b strings.Builder
	b.WriteString("Hi, I'm interested in your CA services.\n\n")
	fmt.Fprintf(&b, "*Name:* %s\n", strings.TrimSpace(f.Name))
	fmt.Fprintf(&b, "*Email:* %s\n", strings.TrimSpace(f.Email))
	fmt.Fprintf(&b, "*Phone:* %s %s\n", code, strings.TrimSpace(f.Phone))
	fmt.Fprintf(&b, "*Service Required:* %s\n", serviceName)
	fmt.Fprintf(&b, "*Client Type:* %s\n", clientType)
	if msg := strings.TrimSpace(f.Message); msg != "" {
		fmt.Fprintf(&b, "\n*Additional Details:*\n%s", msg)
	}
	return b.String()
}

func WhatsAppLink(number string, f InquiryForm, services ServiceLookup) string {
	text := strings.ReplaceAll(url.QueryEscape(InquiryMessage(f, services)), "+", "%20")
	return "https://wa.me/" + Digits(number) + "?text=" + text
}
