package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"checkout-backend/internal/catalog"
	"checkout-backend/internal/config"
	"checkout-backend/internal/usecase"
)

// Deps are the collaborators the HTTP boundary forwards to.
type Deps struct {
	Catalog  *catalog.Catalog
	Payments *usecase.PaymentService
	Verify   *usecase.VerifyService
	Receipts *usecase.ReceiptService
}

type Server struct {
	cfg     config.Config
	deps    Deps
	engine  *gin.Engine
	limiter *ipLimiter
}

func New(cfg config.Config, deps Deps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	engine := gin.New()
	// Forwarded headers only count when the peer is a configured proxy.
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		slog.Error("invalid trusted proxies, trusting none", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		engine:  engine,
		limiter: newIPLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.routes()
	return s
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.engine, "checkout-backend")
}

func (s *Server) routes() {
	s.engine.Use(requestID(), s.recovery(), s.cors(), requestLog())

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/catalog", s.handleCatalog)
	s.engine.GET("/catalog/:serviceId", s.handleCatalogService)
	s.engine.POST("/inquiries", s.handleInquiry)

	payments := s.engine.Group("/payments", s.rateLimit())
	{
		payments.POST("/create-order", s.handleCreateOrder)
		payments.POST("/create-checkout-session", s.handleCreateCheckoutSession)
		payments.POST("/verify", s.handleVerify)
		payments.GET("/sessions/:id", s.handleGetSession)
		payments.GET("/receipt", s.handleReceipt)
	}
}

func (s *Server) err(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) json(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

// fail maps a usecase error onto the public error shape. providerMsg is the
// text used when an upstream provider or an unexpected fault failed the call.
func (s *Server) fail(c *gin.Context, err error, providerMsg string) {
	var (
		missing  usecase.ErrMissingFields
		bad      usecase.ErrBadRequest
		conflict usecase.ErrConflict
		notFound usecase.ErrNotFound
		provider *usecase.ProviderError
	)
	switch {
	case errors.As(err, &missing):
		s.err(c, http.StatusBadRequest, "Missing required fields")
	case errors.As(err, &bad):
		s.err(c, http.StatusBadRequest, string(bad))
	case errors.Is(err, usecase.ErrSignatureInvalid):
		s.err(c, http.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, usecase.ErrUnknownProvider):
		s.err(c, http.StatusBadRequest, "Unknown payment provider")
	case errors.As(err, &conflict):
		s.err(c, http.StatusConflict, string(conflict))
	case errors.As(err, &notFound):
		s.err(c, http.StatusNotFound, capitalize(notFound.Error()))
	case errors.Is(err, usecase.ErrReceiptsDisabled):
		s.err(c, http.StatusNotFound, "Receipts are not enabled")
	case errors.As(err, &provider):
		slog.ErrorContext(c.Request.Context(), "provider call failed",
			"provider", provider.Provider,
			"request_id", c.GetString(requestIDKey),
			"error", provider.Err,
		)
		s.err(c, http.StatusBadGateway, providerMsg)
	case errors.Is(err, usecase.ErrVerifierUnavailable):
		s.err(c, http.StatusServiceUnavailable, "Payment verification unavailable")
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
		msg := providerMsg
		if msg == "" {
			msg = "Something went wrong. Please try again."
		}
		s.err(c, http.StatusInternalServerError, msg)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
