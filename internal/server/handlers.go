package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkout-backend/internal/domain"
	"checkout-backend/internal/intent"
	"checkout-backend/internal/usecase"
)

const idempotencyHeader = "Idempotency-Key"

func (s *Server) handleHealth(c *gin.Context) {
	s.json(c, http.StatusOK, gin.H{"status": "ok", "env": s.cfg.Env})
}

func (s *Server) handleCatalog(c *gin.Context) {
	s.json(c, http.StatusOK, gin.H{"services": s.deps.Catalog.Services()})
}

func (s *Server) handleCatalogService(c *gin.Context) {
	svc, ok := s.deps.Catalog.Service(c.Param("serviceId"))
	if !ok {
		s.err(c, http.StatusNotFound, "Service not found")
		return
	}
	s.json(c, http.StatusOK, svc)
}

type createOrderReq struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ServiceID      string `json:"serviceId"`
	PlanType       string `json:"planType"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
	GSTNumber      string `json:"gstNumber"`
	Nonce          string `json:"nonce"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type orderView struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := s.deps.Payments.CreateSession(c.Request.Context(), usecase.CreateSessionInput{
		Provider:       domain.ProviderDomestic,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ServiceID:      req.ServiceID,
		Tier:           domain.Tier(req.PlanType),
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		TaxID:          req.GSTNumber,
		IdempotencyKey: idempotencyKeyOf(c, req.IdempotencyKey),
		Nonce:          req.Nonce,
	})
	if err != nil {
		s.fail(c, err, "Failed to create order")
		return
	}
	s.json(c, http.StatusOK, gin.H{
		"success": true,
		"order": orderView{
			ID:        sess.ID,
			Amount:    sess.AmountMinor,
			Currency:  sess.Currency,
			Receipt:   sess.Receipt,
			Status:    string(sess.Status),
			CreatedAt: sess.CreatedAt.Unix(),
		},
		"key": sess.ClientKey,
	})
}

type createCheckoutReq struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ServiceID      string `json:"serviceId"`
	PlanType       string `json:"planType"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	SuccessURL     string `json:"successUrl"`
	CancelURL      string `json:"cancelUrl"`
	Nonce          string `json:"nonce"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type sessionView struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

func (s *Server) handleCreateCheckoutSession(c *gin.Context) {
	var req createCheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := s.deps.Payments.CreateSession(c.Request.Context(), usecase.CreateSessionInput{
		Provider:       domain.ProviderInternational,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ServiceID:      req.ServiceID,
		Tier:           domain.Tier(req.PlanType),
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		IdempotencyKey: idempotencyKeyOf(c, req.IdempotencyKey),
		Nonce:          req.Nonce,
	})
	if err != nil {
		s.fail(c, err, "Failed to create checkout session")
		return
	}
	s.json(c, http.StatusOK, gin.H{
		"success": true,
		"session": sessionView{
			ID:          sess.ID,
			URL:         sess.URL,
			AmountTotal: sess.AmountMinor,
			Currency:    sess.Currency,
			Status:      string(sess.Status),
		},
	})
}

type verifyReq struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := s.deps.Verify.Verify(c.Request.Context(), usecase.VerifyInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		RequestID: c.GetString(requestIDKey),
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		s.fail(c, err, "Failed to verify payment")
		return
	}
	body := gin.H{
		"success":   true,
		"message":   "Payment verified successfully",
		"paymentId": res.PaymentID,
		"orderId":   res.OrderID,
	}
	if s.deps.Receipts.Enabled() {
		token, err := s.deps.Receipts.Issue(res)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "receipt issue failed", "order_id", res.OrderID, "error", err)
		} else {
			body["receiptToken"] = token
		}
	}
	s.json(c, http.StatusOK, body)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.deps.Payments.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	s.json(c, http.StatusOK, gin.H{"success": true, "session": sess})
}

func (s *Server) handleReceipt(c *gin.Context) {
	claims, err := s.deps.Receipts.Parse(c.Query("token"))
	if err != nil {
		s.fail(c, err, "")
		return
	}
	s.json(c, http.StatusOK, gin.H{
		"success":   true,
		"orderId":   claims.OrderID,
		"paymentId": claims.PaymentID,
		"issuedAt":  claims.IssuedAt.Time,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

func (s *Server) handleInquiry(c *gin.Context) {
	var form intent.InquiryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		s.err(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := intent.ValidateInquiry(form); errs != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "Please correct the highlighted fields",
			"fields": errs,
		})
		return
	}
	slog.InfoContext(c.Request.Context(), "inquiry received", "service", form.ServiceID, "client_type", form.ClientType)
	s.json(c, http.StatusOK, gin.H{
		"success": true,
		"url":     intent.WhatsAppLink(s.cfg.WhatsAppNumber, form, s.deps.Catalog),
	})
}

func idempotencyKeyOf(c *gin.Context, body string) string {
	if v := strings.TrimSpace(c.GetHeader(idempotencyHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(body)
}
