package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-backend/internal/config"
	"checkout-backend/internal/infrastructure/repo"
)

func TestNew_Defaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.IsType(t, &repo.MemoryRepo{}, a.Store)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_SQLite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.DatabaseURL = "sqlite://" + filepath.Join(t.TempDir(), "checkout.db")
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.IsType(t, &repo.SQLiteRepo{}, a.Store)

	body := `{"amount":999,"serviceId":"itr-filing","planType":"basic","customerName":"A","customerEmail":"a@b.co","customerPhone":"9876543210"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/create-order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestNew_LiveRazorpayNeedsKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Razorpay.Mock = false
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_BadDatabaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = "mysql://nope"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
