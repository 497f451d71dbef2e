package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 5000, c.Port)
	assert.Equal(t, 10*time.Minute, c.DedupWindow)
	assert.Empty(t, c.Razorpay.KeySecret)
	assert.Nil(t, c.TrustedProxies)
	assert.NoError(t, c.Validate())
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("CHECKOUT_PORT", "8081")
	t.Setenv("CHECKOUT_LOG_JSON", "false")
	t.Setenv("CHECKOUT_DEDUP_WINDOW", "30s")
	t.Setenv("RAZORPAY_KEY_SECRET", "s3cret")
	t.Setenv("RAZORPAY_MOCK", "0")

	c := EnvDefaults()
	assert.Equal(t, 8081, c.Port)
	assert.False(t, c.LogJSON)
	assert.Equal(t, 30*time.Second, c.DedupWindow)
	assert.Equal(t, "s3cret", c.Razorpay.KeySecret)
	assert.False(t, c.Razorpay.Mock)
}

func TestEnvDefaults_RateAndProxies(t *testing.T) {
	t.Setenv("CHECKOUT_RATE_LIMIT", "2.5")
	t.Setenv("CHECKOUT_RATE_BURST", "4")
	t.Setenv("CHECKOUT_TRUSTED_PROXIES", " 10.0.0.0/8, ,127.0.0.1 ")

	c := EnvDefaults()
	assert.Equal(t, 2.5, c.RateLimit)
	assert.Equal(t, 4, c.RateBurst)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, c.TrustedProxies)
	assert.NoError(t, c.Validate())
}

func TestEnvDefaults_IgnoresGarbage(t *testing.T) {
	t.Setenv("CHECKOUT_PORT", "abc")
	t.Setenv("CHECKOUT_LOG_JSON", "maybe")
	t.Setenv("CHECKOUT_RATE_BURST", "lots")
	c := EnvDefaults()
	assert.Equal(t, 5000, c.Port)
	assert.Equal(t, 10, c.RateBurst)
	assert.True(t, c.LogJSON)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: staging
port: 7000
dedup_window: 2m
rate_burst: 3
trusted_proxies:
  - 172.16.0.0/12
razorpay:
  key_id: rzp_test_file
  mock: false
stripe:
  mock: true
`), 0o644))
	t.Setenv("CHECKOUT_PORT", "7100")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Env)
	assert.Equal(t, 7100, c.Port)
	assert.Equal(t, 2*time.Minute, c.DedupWindow)
	assert.Equal(t, 3, c.RateBurst)
	assert.Equal(t, []string{"172.16.0.0/12"}, c.TrustedProxies)
	assert.Equal(t, "rzp_test_file", c.Razorpay.KeyID)
	assert.False(t, c.Razorpay.Mock)
	assert.Equal(t, "https://api.razorpay.com", c.Razorpay.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"dev without secret", func(c *Config) {}, ""},
		{"prod without secret", func(c *Config) { c.Env = "prod" }, "RAZORPAY_KEY_SECRET"},
		{"prod live razorpay without id", func(c *Config) {
			c.Env = "prod"
			c.Razorpay.KeySecret = "s"
			c.Razorpay.Mock = false
		}, "RAZORPAY_KEY_ID"},
		{"prod live stripe without key", func(c *Config) {
			c.Env = "prod"
			c.Razorpay.KeySecret = "s"
			c.Stripe.Mock = false
		}, "STRIPE_SECRET_KEY"},
		{"prod configured", func(c *Config) {
			c.Env = "prod"
			c.Razorpay.KeySecret = "s"
		}, ""},
		{"bad port", func(c *Config) { c.Port = 0 }, "invalid port"},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} }, "invalid trusted proxy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
