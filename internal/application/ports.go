package application

import (
	"context"
	"time"

	"github.com/velstore/giftcard-connector/internal/domain"
)

// UpstreamBalanceRequest is a balance probe against the issuer. Amounts on
// this boundary are decimal dollars; the service converts to cents
// immediately on the way in.
type UpstreamBalanceRequest struct {
	PAN string
	PIN string
}

type UpstreamBalanceResponse struct {
	// Amount is the card balance in dollars, not cents.
	Amount float64 `json:"amount"`
}

type UpstreamRedeemRequest struct {
	PAN         string
	PIN         string
	Amount      float64
	ReferenceID string
	Reason      string
	OrderID     string
}

type UpstreamRedeemResponse struct {
	ReferenceID string `json:"reference_id"`
}

type UpstreamRefundRequest struct {
	PAN         string
	PIN         string
	Amount      float64
	Currency    string
	ReferenceID string
	Program     string
	OrderID     string
}

type UpstreamRefundResponse struct {
	ReferenceID string `json:"reference_id"`
}

type HealthcheckResult struct {
	Status  string // "UP" or "DOWN"
	Details map[string]any
}

// UpstreamClient is the port for the external gift-card issuer. Balance
// checks and transactions live on different servers upstream; the client
// hides that split.
type UpstreamClient interface {
	// Healthcheck never returns an error; connectivity problems come back
	// as a DOWN status with details.
	Healthcheck(ctx context.Context) *HealthcheckResult
	Balance(ctx context.Context, req UpstreamBalanceRequest) (*UpstreamBalanceResponse, error)
	Redeem(ctx context.Context, req UpstreamRedeemRequest) (*UpstreamRedeemResponse, error)
	Refund(ctx context.Context, req UpstreamRefundRequest) (*UpstreamRefundResponse, error)
	// CardCurrency is the fixed currency the issuer's cards are
	// denominated in.
	CardCurrency() string
}

// TransactionChange mutates a single transaction on a payment record.
type TransactionChange struct {
	TransactionID string
	State         domain.TransactionState // "" leaves the state untouched
	Amount        *domain.Money           // nil leaves the amount untouched
	InteractionID string                  // "" leaves the interaction id untouched
}

// PaymentUpdate is one optimistic-concurrency mutation batch against a
// payment record. Version must match the record's current version; the
// commerce platform rejects stale writers with ErrVersionConflict.
type PaymentUpdate struct {
	Version             int64
	ChangeAmountPlanned *domain.Money
	SetInterfaceID      string
	AddTransactions     []domain.TransactionDraft
	ChangeTransaction   *TransactionChange
	SetCustomFields     map[string]string
}

// CommerceClient is the port for the cart/payment/order collaborator. The
// commerce platform owns persistence and versioning; the connector only
// mutates through it.
type CommerceClient interface {
	GetCartIDFromSession(ctx context.Context, sessionID string) (string, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	CreatePayment(ctx context.Context, draft domain.PaymentDraft) (*domain.Payment, error)
	AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error
	UpdatePayment(ctx context.Context, paymentID string, update PaymentUpdate) (*domain.Payment, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	// Ping verifies credentials and connectivity for health reporting.
	Ping(ctx context.Context) error
}

// Encryptor is the port for PIN at-rest encryption.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// RequestMeta carries audit context resolved at the HTTP boundary.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// RedeemCommand asks for a gift card to be applied (authorized, not
// captured) against a cart. CartID is resolved from the session at the HTTP
// boundary and passed down explicitly.
type RedeemCommand struct {
	CartID       string
	Code         string
	SecurityCode string
	Amount       domain.Money
	OrderID      string
	Meta         RequestMeta
}

// RedeemResult is always populated; failures are encoded, not thrown, so
// the enabler can render field-level messages.
type RedeemResult struct {
	Success          bool
	PaymentReference string
	RedemptionID     string
	ErrorMessage     string
}

// ModificationOutcome is the provider response for capture/cancel/refund.
type ModificationOutcome string

const (
	OutcomeApproved ModificationOutcome = "approved"
	OutcomeRejected ModificationOutcome = "rejected"
)

// ModificationCommand targets one payment for capture, cancel, refund, or
// reverse. A zero Amount means "the full planned amount".
type ModificationCommand struct {
	PaymentID string
	Amount    domain.Money
	OrderID   string
}

type ModificationResult struct {
	Outcome      ModificationOutcome
	PSPReference string
}

// HealthCheck is one named probe inside the aggregated status report.
type HealthCheck struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type StatusResult struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Metadata  StatusMetadata `json:"metadata"`
	Checks    []HealthCheck  `json:"checks"`
}

// StatusMetadata identifies the connector on the operations dashboard.
type StatusMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
}

// GiftCardService is the connector's core contract: validation, balance
// classification, two-phase redemption, and compensating modifications.
type GiftCardService interface {
	Balance(ctx context.Context, code, securityCode string) *domain.BalanceResult
	Redeem(ctx context.Context, cmd RedeemCommand) *RedeemResult
	Capture(ctx context.Context, cmd ModificationCommand) (*ModificationResult, error)
	Cancel(ctx context.Context, cmd ModificationCommand) (*ModificationResult, error)
	Refund(ctx context.Context, cmd ModificationCommand) (*ModificationResult, error)
	Reverse(ctx context.Context, cmd ModificationCommand) (*ModificationResult, error)
	RemovePayment(ctx context.Context, paymentID string) error
	Status(ctx context.Context) *StatusResult
}
