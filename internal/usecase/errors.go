package usecase

import (
	"errors"
	"strings"

	"checkout-backend/internal/domain"
)

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

// ErrBadRequest is a client-correctable rejection whose text is safe to show.
type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

// ErrMissingFields lists the absent request fields.
type ErrMissingFields []string

func (e ErrMissingFields) Error() string {
	return "missing required fields: " + strings.Join(e, ", ")
}

// ProviderError wraps any failure reported by a payment provider.
type ProviderError struct {
	Provider domain.Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return string(e.Provider) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

var (
	ErrSignatureInvalid    = errors.New("invalid payment signature")
	ErrVerifierUnavailable = errors.New("payment verifier not configured")
	ErrUnknownProvider     = errors.New("unknown payment provider")
)

func missing(fields map[string]string) error {
	var out ErrMissingFields
	for _, name := range sortedKeys(fields) {
		if strings.TrimSpace(fields[name]) == "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
