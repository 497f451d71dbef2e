package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/intent"
)

type State string

const (
	StateIdle                       State = "idle"
	StateValidating                 State = "validating"
	StateSessionCreating            State = "session_creating"
	StateAwaitingProviderCompletion State = "awaiting_provider_completion"
	StateVerifying                  State = "verifying"
	StateSucceeded                  State = "succeeded"
	StateFailed                     State = "failed"
)

// Busy reports whether the pay action must stay disabled.
func (s State) Busy() bool {
	switch s {
	case StateValidating, StateSessionCreating, StateAwaitingProviderCompletion, StateVerifying:
		return true
	}
	return false
}

type Method string

const (
	MethodWidget   Method = "razorpay"
	MethodRedirect Method = "stripe"
)

const (
	msgPaymentFailed      = "Payment failed. Please try again."
	msgVerificationFailed = "Payment verification failed. Please contact support."
	msgCancelled          = "Payment was cancelled."
)

var (
	ErrBusy              = errors.New("checkout: a payment is already in progress")
	ErrAlreadySucceeded  = errors.New("checkout: payment already completed")
	ErrNoPendingRedirect = errors.New("checkout: no redirect payment is pending")
)

// API is the slice of the checkout API the flow talks to.
type API interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	Verify(ctx context.Context, resp ProviderResponse) (*VerifyResponse, error)
	Session(ctx context.Context, id string) (*domain.PaymentSession, error)
}

type Catalog interface {
	intent.PlanLookup
	intent.ServiceLookup
}

// Outcome is what the checkout page renders after a step.
type Outcome struct {
	State        State
	FieldErrors  domain.FieldErrors
	Message      string
	OrderID      string
	PaymentID    string
	SessionID    string
	RedirectURL  string
	ReceiptToken string
}

// Flow is the checkout form state machine for one customer. Catalog data is
// held by the caller and survives Reset.
type Flow struct {
	API          API
	Catalog      Catalog
	Widget       *WidgetDriver
	Redirect     *RedirectDriver
	MerchantName string
	SuccessURL   string
	CancelURL    string
	NewNonce     func() string
	// OnStateChange, when set, is called after every transition.
	OnStateChange func(State)

	mu             sync.Mutex
	state          State
	pendingSession string
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current()
}

// Reset returns a finished or failed flow to Idle. It is a no-op while busy.
func (f *Flow) Reset() {
	f.mu.Lock()
	if f.current().Busy() {
		f.mu.Unlock()
		return
	}
	f.pendingSession = ""
	f.mu.Unlock()
	f.set(StateIdle)
}

// Submit runs one payment attempt. Validation failures return to Idle with
// field errors. For the redirect method the flow stops in
// AwaitingProviderCompletion until CompleteRedirect is called.
func (f *Flow) Submit(ctx context.Context, method Method, form intent.CheckoutForm) (Outcome, error) {
	if err := f.begin(); err != nil {
		return Outcome{State: f.State()}, err
	}

	if method == MethodRedirect && strings.TrimSpace(form.Currency) == "" {
		form.Currency = "USD"
	}
	oi, errs := intent.Builder{Catalog: f.Catalog}.Build(form)
	if errs != nil {
		f.set(StateIdle)
		return Outcome{State: StateIdle, FieldErrors: errs}, nil
	}

	f.set(StateSessionCreating)
	nonce := f.nonce()
	switch method {
	case MethodWidget:
		return f.payWithWidget(ctx, oi, nonce)
	case MethodRedirect:
		return f.payWithRedirect(ctx, oi, nonce)
	default:
		return f.fail("Unsupported payment method"), nil
	}
}

func (f *Flow) payWithWidget(ctx context.Context, oi domain.OrderIntent, nonce string) (Outcome, error) {
	created, err := f.API.CreateOrder(ctx, OrderRequest{
		Amount:        oi.Amount,
		Currency:      oi.Currency,
		ServiceID:     oi.ServiceID,
		PlanType:      string(oi.Tier),
		CustomerName:  oi.CustomerName,
		CustomerEmail: oi.Email,
		CustomerPhone: oi.Phone,
		GSTNumber:     oi.TaxID,
		Nonce:         nonce,
	})
	if err != nil {
		slog.WarnContext(ctx, "create order failed", "error", err)
		return f.fail(userMessage(err, msgPaymentFailed)), nil
	}

	f.set(StateAwaitingProviderCompletion)
	completed := make(chan ProviderResponse, 1)
	err = f.Widget.Open(ctx, WidgetConfig{
		Key:         created.Key,
		Amount:      created.Order.Amount,
		Currency:    created.Order.Currency,
		Name:        f.MerchantName,
		Description: f.describe(oi),
		OrderID:     created.Order.ID,
		Prefill:     Prefill{Name: oi.CustomerName, Email: oi.Email, Contact: oi.Phone},
		Notes:       map[string]string{"serviceId": oi.ServiceID, "planType": string(oi.Tier)},
	}, func(r ProviderResponse) {
		select {
		case completed <- r:
		default:
		}
	})
	if err != nil {
		slog.WarnContext(ctx, "payment widget failed", "order_id", created.Order.ID, "error", err)
		return f.fail(msgPaymentFailed), nil
	}

	var resp ProviderResponse
	select {
	case resp = <-completed:
	case <-ctx.Done():
		return f.fail(msgCancelled), ctx.Err()
	}

	f.set(StateVerifying)
	verified, err := f.API.Verify(ctx, resp)
	if err != nil || !verified.Success {
		slog.WarnContext(ctx, "payment verification failed", "order_id", resp.OrderID, "error", err)
		out := f.fail(msgVerificationFailed)
		out.OrderID = created.Order.ID
		return out, nil
	}
	f.set(StateSucceeded)
	return Outcome{
		State:        StateSucceeded,
		OrderID:      verified.OrderID,
		PaymentID:    verified.PaymentID,
		ReceiptToken: verified.ReceiptToken,
	}, nil
}

func (f *Flow) payWithRedirect(ctx context.Context, oi domain.OrderIntent, nonce string) (Outcome, error) {
	created, err := f.API.CreateCheckoutSession(ctx, CheckoutRequest{
		Amount:        oi.Amount,
		Currency:      oi.Currency,
		ServiceID:     oi.ServiceID,
		PlanType:      string(oi.Tier),
		CustomerName:  oi.CustomerName,
		CustomerEmail: oi.Email,
		SuccessURL:    f.SuccessURL,
		CancelURL:     f.CancelURL,
		Nonce:         nonce,
	})
	if err != nil {
		slog.WarnContext(ctx, "create checkout session failed", "error", err)
		return f.fail(userMessage(err, msgPaymentFailed)), nil
	}
	if !created.Success || created.Session.URL == "" {
		return f.fail(msgPaymentFailed), nil
	}

	f.mu.Lock()
	f.pendingSession = created.Session.ID
	f.mu.Unlock()
	f.set(StateAwaitingProviderCompletion)

	if err := f.Redirect.Redirect(ctx, created.Session.URL); err != nil {
		slog.WarnContext(ctx, "redirect failed", "session_id", created.Session.ID, "error", err)
		return f.fail(msgPaymentFailed), nil
	}
	return Outcome{
		State:       StateAwaitingProviderCompletion,
		SessionID:   created.Session.ID,
		RedirectURL: created.Session.URL,
	}, nil
}

// CompleteRedirect finishes a redirect payment from the URL the provider sent
// the customer back to.
func (f *Flow) CompleteRedirect(ctx context.Context, returnURL string) (Outcome, error) {
	f.mu.Lock()
	pending := f.pendingSession
	if f.current() != StateAwaitingProviderCompletion || pending == "" {
		f.mu.Unlock()
		return Outcome{State: f.State()}, ErrNoPendingRedirect
	}
	f.mu.Unlock()

	id, err := SessionIDFromReturnURL(returnURL)
	if err != nil || id != pending {
		return f.fail(msgVerificationFailed), nil
	}

	f.set(StateVerifying)
	sess, err := f.API.Session(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "session lookup failed", "session_id", id, "error", err)
		return f.fail(msgVerificationFailed), nil
	}
	f.mu.Lock()
	f.pendingSession = ""
	f.mu.Unlock()
	f.set(StateSucceeded)
	return Outcome{State: StateSucceeded, SessionID: sess.ID}, nil
}

func (f *Flow) begin() error {
	f.mu.Lock()
	switch s := f.current(); {
	case s.Busy():
		f.mu.Unlock()
		return ErrBusy
	case s == StateSucceeded:
		f.mu.Unlock()
		return ErrAlreadySucceeded
	}
	f.state = StateValidating
	f.mu.Unlock()
	f.notify(StateValidating)
	return nil
}

func (f *Flow) fail(msg string) Outcome {
	f.set(StateFailed)
	return Outcome{State: StateFailed, Message: msg}
}

func (f *Flow) set(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	f.notify(s)
}

// notify runs without f.mu held so the callback may read the flow.
func (f *Flow) notify(s State) {
	if f.OnStateChange != nil {
		f.OnStateChange(s)
	}
}

func (f *Flow) current() State {
	if f.state == "" {
		return StateIdle
	}
	return f.state
}

func (f *Flow) nonce() string {
	if f.NewNonce != nil {
		return f.NewNonce()
	}
	return uuid.NewString()
}

func (f *Flow) describe(oi domain.OrderIntent) string {
	title := oi.ServiceID
	if svc, ok := f.Catalog.Service(oi.ServiceID); ok && svc.ShortTitle != "" {
		title = svc.ShortTitle
	}
	if plan, ok := f.Catalog.Lookup(oi.ServiceID, oi.Tier); ok && plan.DisplayLabel != "" {
		return title + " - " + plan.DisplayLabel
	}
	return title
}

// userMessage surfaces the API's own 4xx text and hides everything else.
func userMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
