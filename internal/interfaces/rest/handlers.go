// Package rest exposes the connector's HTTP surfaces: the session-scoped
// endpoints the checkout enabler calls, and the bearer-token operations
// endpoints the checkout platform calls during order processing.
package rest

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
	"github.com/velstore/giftcard-connector/internal/domain"
)

type Handler struct {
	service       application.GiftCardService
	commerce      application.CommerceClient
	jwtSecret     []byte
	requiredScope string
	sessionHeader string
	logger        *slog.Logger
}

func NewHandler(
	service application.GiftCardService,
	commerce application.CommerceClient,
	cfg config.SecurityConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:       service,
		commerce:      commerce,
		jwtSecret:     []byte(cfg.JWTSecret),
		requiredScope: cfg.RequiredScope,
		sessionHeader: cfg.SessionHeader,
		logger:        logger,
	}
}

// Balance always answers 200; invalid cards come back as a non-Valid state
// with field-level errors the enabler renders inline.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, application.NewInvalidInputError(err))
		return
	}

	result := h.service.Balance(r.Context(), req.Code, req.SecurityCode)
	WriteJSON(w, http.StatusOK, toBalanceResponse(result))
}

// Redeem authorizes a gift card against the session's cart. Failures are
// encoded in the 200 response body.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, application.NewInvalidInputError(err))
		return
	}

	result := h.service.Redeem(r.Context(), application.RedeemCommand{
		CartID:       cartIDFromContext(r.Context()),
		Code:         req.Code,
		SecurityCode: req.SecurityCode,
		Amount: domain.Money{
			CentAmount:   req.Amount.CentAmount,
			CurrencyCode: req.Amount.CurrencyCode,
		},
		OrderID: req.OrderID,
		Meta: application.RequestMeta{
			ClientIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		},
	})

	WriteJSON(w, http.StatusOK, redeemResponse{
		IsSuccess:        result.Success,
		PaymentReference: result.PaymentReference,
		RedemptionID:     result.RedemptionID,
		ErrorMessage:     result.ErrorMessage,
	})
}

// RemovePayment detaches a pending gift card payment from checkout.
func (h *Handler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		WriteError(w, application.NewNotFoundError("payment", paymentID))
		return
	}

	if err := h.service.RemovePayment(r.Context(), paymentID); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// clientIP prefers the forwarding header set by the ingress.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
