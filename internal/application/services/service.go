// Package services implements the gift-card redemption state machine: the
// sequence of validation, balance check, payment authorization,
// consolidation of repeated redemptions, capture-time redemption, and
// compensating refund/cancel logic.
package services

import (
	"log/slog"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
)

// paymentMethod identifies gift-card payments on the payment record.
const paymentMethod = "giftcard"

// RedemptionService drives one (cart, gift-card-code) pair through
// Unapplied -> Authorized -> Captured -> Refunded. Authorization reserves
// nothing upstream: funds move only at capture, when the order exists.
type RedemptionService struct {
	commerce         application.CommerceClient
	upstream         application.UpstreamClient
	encryptor        application.Encryptor
	currency         string
	paymentInterface string
	healthTimeout    time.Duration
	logger           *slog.Logger
}

func NewRedemptionService(
	commerce application.CommerceClient,
	upstream application.UpstreamClient,
	encryptor application.Encryptor,
	cfg *config.Config,
	logger *slog.Logger,
) *RedemptionService {
	return &RedemptionService{
		commerce:         commerce,
		upstream:         upstream,
		encryptor:        encryptor,
		currency:         cfg.Primary.Currency,
		paymentInterface: cfg.Primary.PaymentInterface,
		healthTimeout:    cfg.Upstream.HealthTimeout,
		logger:           logger,
	}
}

var _ application.GiftCardService = (*RedemptionService)(nil)
