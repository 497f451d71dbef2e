package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

const DefaultThemeColor = "#1340eb"

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// WidgetConfig is handed to the provider overlay.
type WidgetConfig struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	ThemeColor  string            `json:"theme_color"`
}

// Overlay opens the provider's payment UI. It calls onComplete with the raw
// provider response once the customer finishes paying.
type Overlay interface {
	Open(ctx context.Context, cfg WidgetConfig, onComplete func(ProviderResponse)) error
}

var ErrScriptLoad = errors.New("payment widget failed to load")

// WidgetDriver opens the in-page payment overlay. It never validates the
// provider response.
type WidgetDriver struct {
	Loader  *ScriptLoader
	Overlay Overlay
}

func (d *WidgetDriver) Open(ctx context.Context, cfg WidgetConfig, onComplete func(ProviderResponse)) error {
	if d.Loader != nil {
		if err := d.Loader.Load(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrScriptLoad, err)
		}
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = DefaultThemeColor
	}
	return d.Overlay.Open(ctx, cfg, onComplete)
}

// Navigator sends the customer to another page.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

type RedirectDriver struct {
	Navigator Navigator
}

func (d *RedirectDriver) Redirect(ctx context.Context, target string) error {
	if target == "" {
		return errors.New("checkout session has no redirect url")
	}
	return d.Navigator.Navigate(ctx, target)
}

// SessionIDFromReturnURL reads the session_id the provider appends to the
// success URL.
func SessionIDFromReturnURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse return url: %w", err)
	}
	id := u.Query().Get("session_id")
	if id == "" {
		return "", errors.New("return url has no session_id")
	}
	return id, nil
}
