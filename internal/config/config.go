package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Mock      bool
}

type StripeConfig struct {
	SecretKey string
	Mock      bool
}

type Config struct {
	Env            string
	Port           int
	LogJSON        bool
	LogLevel       string
	ReceiptSecret  string
	DatabaseURL    string
	RedisAddr      string
	DedupWindow    time.Duration
	RateLimit      float64
	RateBurst      int
	TrustedProxies []string
	OTLPEndpoint   string
	PublicBaseURL  string
	WhatsAppNumber string
	Razorpay       RazorpayConfig
	Stripe         StripeConfig
}

func Default() Config {
	return Config{
		Env:            "dev",
		Port:           5000,
		LogJSON:        true,
		LogLevel:       "info",
		DedupWindow:    10 * time.Minute,
		RateLimit:      5,
		RateBurst:      10,
		PublicBaseURL:  "http://localhost:3000",
		WhatsAppNumber: "919876543210",
		Razorpay: RazorpayConfig{
			BaseURL: "https://api.razorpay.com",
			Mock:    true,
		},
		Stripe: StripeConfig{Mock: true},
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

// Load applies an optional YAML file over the defaults and the environment
// over both.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = fromFile(c, path); err != nil {
			return Config{}, err
		}
	}
	return fromEnv(c), nil
}

func fromFile(c Config, path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	boolean := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	str("env", &c.Env)
	if v.IsSet("port") {
		c.Port = v.GetInt("port")
	}
	boolean("log_json", &c.LogJSON)
	str("log_level", &c.LogLevel)
	str("receipt_secret", &c.ReceiptSecret)
	str("database_url", &c.DatabaseURL)
	str("redis_addr", &c.RedisAddr)
	if v.IsSet("dedup_window") {
		c.DedupWindow = v.GetDuration("dedup_window")
	}
	if v.IsSet("rate_limit") {
		c.RateLimit = v.GetFloat64("rate_limit")
	}
	if v.IsSet("rate_burst") {
		c.RateBurst = v.GetInt("rate_burst")
	}
	if v.IsSet("trusted_proxies") {
		c.TrustedProxies = v.GetStringSlice("trusted_proxies")
	}
	str("otlp_endpoint", &c.OTLPEndpoint)
	str("public_base_url", &c.PublicBaseURL)
	str("whatsapp_number", &c.WhatsAppNumber)
	str("razorpay.key_id", &c.Razorpay.KeyID)
	str("razorpay.key_secret", &c.Razorpay.KeySecret)
	str("razorpay.base_url", &c.Razorpay.BaseURL)
	boolean("razorpay.mock", &c.Razorpay.Mock)
	str("stripe.secret_key", &c.Stripe.SecretKey)
	boolean("stripe.mock", &c.Stripe.Mock)
	return c, nil
}

func fromEnv(c Config) Config {
	if v := os.Getenv("CHECKOUT_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("CHECKOUT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("CHECKOUT_LOG_JSON"); v != "" {
		c.LogJSON = parseBool(v, c.LogJSON)
	}
	if v := os.Getenv("CHECKOUT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CHECKOUT_RECEIPT_SECRET"); v != "" {
		c.ReceiptSecret = v
	}
	if v := os.Getenv("CHECKOUT_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("CHECKOUT_REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("CHECKOUT_DEDUP_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DedupWindow = d
		}
	}
	if v := os.Getenv("CHECKOUT_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit = f
		}
	}
	if v := os.Getenv("CHECKOUT_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("CHECKOUT_TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("CHECKOUT_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
	if v := os.Getenv("CHECKOUT_PUBLIC_BASE_URL"); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv("CHECKOUT_WHATSAPP_NUMBER"); v != "" {
		c.WhatsAppNumber = v
	}
	if v := os.Getenv("RAZORPAY_KEY_ID"); v != "" {
		c.Razorpay.KeyID = v
	}
	if v := os.Getenv("RAZORPAY_KEY_SECRET"); v != "" {
		c.Razorpay.KeySecret = v
	}
	if v := os.Getenv("RAZORPAY_BASE_URL"); v != "" {
		c.Razorpay.BaseURL = v
	}
	if v := os.Getenv("RAZORPAY_MOCK"); v != "" {
		c.Razorpay.Mock = parseBool(v, c.Razorpay.Mock)
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_MOCK"); v != "" {
		c.Stripe.Mock = parseBool(v, c.Stripe.Mock)
	}
	return c
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate reports settings the server must not start with. Outside prod a
// missing Razorpay secret is allowed and verification rejects every call.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.DedupWindow <= 0 {
		errs = append(errs, errors.New("dedup window must be positive"))
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("invalid trusted proxy %q", p))
			}
		}
	}
	if c.IsProd() {
		if c.Razorpay.KeySecret == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_SECRET is required in prod"))
		}
		if !c.Razorpay.Mock && c.Razorpay.KeyID == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID is required when razorpay is live"))
		}
		if !c.Stripe.Mock && c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required when stripe is live"))
		}
	}
	return errors.Join(errs...)
}
