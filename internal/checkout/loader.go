package checkout

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const WidgetScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

// DefaultLoadTimeout bounds one script load attempt.
const DefaultLoadTimeout = 15 * time.Second

// ScriptFetcher retrieves a provider script.
type ScriptFetcher interface {
	Fetch(ctx context.Context, url string) error
}

// HTTPFetcher fetches scripts over HTTP and treats any non-2xx answer as a
// load failure.
type HTTPFetcher struct {
	Client *resty.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string) error {
	c := f.Client
	if c == nil {
		c = resty.New().
			SetTimeout(DefaultLoadTimeout).
			SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	}
	res, err := c.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("load script %s: %w", url, err)
	}
	if res.IsError() {
		return fmt.Errorf("load script %s: status %d", url, res.StatusCode())
	}
	return nil
}

type loadCall struct {
	done chan struct{}
	err  error
}

// ScriptLoader loads one script at most once per loader. Concurrent callers
// wait on the same in-flight load. A failed load is reported to every waiter
// and forgotten so the next Load tries again. An attempt that outlives Timeout
// fails with context.DeadlineExceeded even if the fetcher ignores its context.
type ScriptLoader struct {
	URL     string
	Fetcher ScriptFetcher
	Timeout time.Duration

	mu     sync.Mutex
	call   *loadCall
	loaded bool
}

func NewScriptLoader(url string, f ScriptFetcher) *ScriptLoader {
	return &ScriptLoader{URL: url, Fetcher: f}
}

func (l *ScriptLoader) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.loaded {
		l.mu.Unlock()
		return nil
	}
	call := l.call
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		l.call = call
		go l.run(call)
	}
	l.mu.Unlock()

	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loaded reports whether a load has completed successfully.
func (l *ScriptLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *ScriptLoader) run(call *loadCall) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fetched := make(chan error, 1)
	go func() { fetched <- l.fetcher().Fetch(ctx, l.URL) }()
	var err error
	select {
	case err = <-fetched:
	case <-ctx.Done():
		err = fmt.Errorf("load script %s: %w", l.URL, ctx.Err())
	}

	l.mu.Lock()
	call.err = err
	if err == nil {
		l.loaded = true
	}
	l.call = nil
	l.mu.Unlock()
	close(call.done)
}

func (l *ScriptLoader) fetcher() ScriptFetcher {
	if l.Fetcher != nil {
		return l.Fetcher
	}
	return HTTPFetcher{}
}
