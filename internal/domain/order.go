package domain

import "time"

type Provider string

const (
	ProviderDomestic      Provider = "razorpay"
	ProviderInternational Provider = "stripe"
)

// OrderIntent is the validated description of a purchase. Amount always comes
// from the catalog, never from the client.
type OrderIntent struct {
	CustomerName string    `json:"customerName"`
	Email        string    `json:"customerEmail"`
	Phone        string    `json:"customerPhone"`
	ServiceID    string    `json:"serviceId"`
	Tier         Tier      `json:"planType"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	TaxID        string    `json:"taxId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SessionStatus string

const (
	SessionCreated SessionStatus = "created"
	SessionOpen    SessionStatus = "open"
	SessionPaid    SessionStatus = "paid"
)

// PaymentSession is the provider-issued handle for one payment attempt.
// ClientKey is the publishable key used to open the widget and is never a secret.
type PaymentSession struct {
	ID          string        `json:"id"`
	Provider    Provider      `json:"provider"`
	AmountMinor int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Status      SessionStatus `json:"status"`
	Receipt     string        `json:"receipt,omitempty"`
	URL         string        `json:"url,omitempty"`
	ClientKey   string        `json:"key,omitempty"`
	ServiceID   string        `json:"serviceId"`
	Tier        Tier          `json:"planType"`
	Email       string        `json:"customerEmail"`
	CreatedAt   time.Time     `json:"createdAt"`

	// IntentDigest travels only with idempotency records.
	IntentDigest string `json:"intentDigest,omitempty"`
}

type PaymentVerificationResult struct {
	OrderID   string    `json:"orderId"`
	PaymentID string    `json:"paymentId"`
	Signature string    `json:"-"`
	Valid     bool      `json:"valid"`
	CheckedAt time.Time `json:"checkedAt"`
}

// VerificationAudit is the persisted trace of one verification attempt.
type VerificationAudit struct {
	OrderID   string    `json:"orderId"`
	PaymentID string    `json:"paymentId"`
	Valid     bool      `json:"valid"`
	RequestID string    `json:"requestId"`
	ClientIP  string    `json:"clientIp"`
	CreatedAt time.Time `json:"createdAt"`
}

// FieldErrors maps a form field to a user-facing message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 1 {
		for _, msg := range e {
			return msg
		}
	}
	return "invalid form fields"
}
