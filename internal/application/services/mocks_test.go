package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
	"github.com/velstore/giftcard-connector/internal/domain"
)

// fakeCommerce is an in-memory CommerceClient. Every method delegates to an
// overridable function field; the defaults serve a mutable payment store so
// most tests only override what they exercise.
type fakeCommerce struct {
	carts    map[string]*domain.Cart
	payments map[string]*domain.Payment
	nextID   int

	GetCartFn             func(ctx context.Context, cartID string) (*domain.Cart, error)
	GetPaymentFn          func(ctx context.Context, paymentID string) (*domain.Payment, error)
	CreatePaymentFn       func(ctx context.Context, draft domain.PaymentDraft) (*domain.Payment, error)
	AddPaymentFn          func(ctx context.Context, cartID string, cartVersion int64, paymentID string) error
	UpdatePaymentFn       func(ctx context.Context, paymentID string, update application.PaymentUpdate) (*domain.Payment, error)
	GetOrderByPaymentIDFn func(ctx context.Context, paymentID string) (*domain.Order, error)
	PingFn                func(ctx context.Context) error

	updateCalls []application.PaymentUpdate
}

func newFakeCommerce() *fakeCommerce {
	return &fakeCommerce{
		carts:    make(map[string]*domain.Cart),
		payments: make(map[string]*domain.Payment),
	}
}

func (f *fakeCommerce) seedCart(id string) *domain.Cart {
	cart := &domain.Cart{ID: id, Version: 1, Currency: "CAD"}
	f.carts[id] = cart
	return cart
}

func (f *fakeCommerce) seedPayment(p *domain.Payment) {
	f.payments[p.ID] = p
}

func (f *fakeCommerce) GetCartIDFromSession(ctx context.Context, sessionID string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeCommerce) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if f.GetCartFn != nil {
		return f.GetCartFn(ctx, cartID)
	}
	cart, ok := f.carts[cartID]
	if !ok {
		return nil, fmt.Errorf("cart %s not found", cartID)
	}
	return cart, nil
}

func (f *fakeCommerce) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if f.GetPaymentFn != nil {
		return f.GetPaymentFn(ctx, paymentID)
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	return p, nil
}

func (f *fakeCommerce) CreatePayment(ctx context.Context, draft domain.PaymentDraft) (*domain.Payment, error) {
	if f.CreatePaymentFn != nil {
		return f.CreatePaymentFn(ctx, draft)
	}
	f.nextID++
	p := &domain.Payment{
		ID:               "payment-" + strconv.Itoa(f.nextID),
		Version:          1,
		AmountPlanned:    draft.AmountPlanned,
		PaymentInterface: draft.PaymentInterface,
		Method:           draft.Method,
		CustomFields:     draft.CustomFields,
		CreatedAt:        time.Now(),
	}
	for i, tx := range draft.Transactions {
		p.Transactions = append(p.Transactions, domain.Transaction{
			ID:            fmt.Sprintf("%s-tx-%d", p.ID, i+1),
			Type:          tx.Type,
			State:         tx.State,
			Amount:        tx.Amount,
			InteractionID: tx.InteractionID,
		})
	}
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakeCommerce) AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error {
	if f.AddPaymentFn != nil {
		return f.AddPaymentFn(ctx, cartID, cartVersion, paymentID)
	}
	cart, ok := f.carts[cartID]
	if !ok {
		return fmt.Errorf("cart %s not found", cartID)
	}
	cart.PaymentIDs = append(cart.PaymentIDs, paymentID)
	cart.Version++
	return nil
}

func (f *fakeCommerce) UpdatePayment(ctx context.Context, paymentID string, update application.PaymentUpdate) (*domain.Payment, error) {
	f.updateCalls = append(f.updateCalls, update)
	if f.UpdatePaymentFn != nil {
		return f.UpdatePaymentFn(ctx, paymentID, update)
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	if update.Version != p.Version {
		return nil, application.ErrVersionConflict
	}
	if update.ChangeAmountPlanned != nil {
		p.AmountPlanned = *update.ChangeAmountPlanned
	}
	if update.SetInterfaceID != "" {
		p.InterfaceID = update.SetInterfaceID
	}
	for i, tx := range update.AddTransactions {
		p.Transactions = append(p.Transactions, domain.Transaction{
			ID:            fmt.Sprintf("%s-tx-%d", p.ID, len(p.Transactions)+i+1),
			Type:          tx.Type,
			State:         tx.State,
			Amount:        tx.Amount,
			InteractionID: tx.InteractionID,
		})
	}
	if ch := update.ChangeTransaction; ch != nil {
		for i := range p.Transactions {
			if p.Transactions[i].ID != ch.TransactionID {
				continue
			}
			if ch.State != "" {
				p.Transactions[i].State = ch.State
			}
			if ch.Amount != nil {
				p.Transactions[i].Amount = *ch.Amount
			}
			if ch.InteractionID != "" {
				p.Transactions[i].InteractionID = ch.InteractionID
			}
		}
	}
	for k, v := range update.SetCustomFields {
		if p.CustomFields == nil {
			p.CustomFields = make(map[string]string)
		}
		p.CustomFields[k] = v
	}
	p.Version++
	return p, nil
}

func (f *fakeCommerce) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	if f.GetOrderByPaymentIDFn != nil {
		return f.GetOrderByPaymentIDFn(ctx, paymentID)
	}
	return nil, fmt.Errorf("no order for payment %s", paymentID)
}

func (f *fakeCommerce) Ping(ctx context.Context) error {
	if f.PingFn != nil {
		return f.PingFn(ctx)
	}
	return nil
}

// fakeUpstream is an UpstreamClient whose responses are set per test.
type fakeUpstream struct {
	BalanceFn     func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error)
	RedeemFn      func(ctx context.Context, req application.UpstreamRedeemRequest) (*application.UpstreamRedeemResponse, error)
	RefundFn      func(ctx context.Context, req application.UpstreamRefundRequest) (*application.UpstreamRefundResponse, error)
	HealthcheckFn func(ctx context.Context) *application.HealthcheckResult
	currency      string

	balanceCalls []application.UpstreamBalanceRequest
	redeemCalls  []application.UpstreamRedeemRequest
	refundCalls  []application.UpstreamRefundRequest
}

func (f *fakeUpstream) Healthcheck(ctx context.Context) *application.HealthcheckResult {
	if f.HealthcheckFn != nil {
		return f.HealthcheckFn(ctx)
	}
	return &application.HealthcheckResult{Status: "UP"}
}

func (f *fakeUpstream) Balance(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
	f.balanceCalls = append(f.balanceCalls, req)
	if f.BalanceFn != nil {
		return f.BalanceFn(ctx, req)
	}
	return &application.UpstreamBalanceResponse{Amount: 50.00}, nil
}

func (f *fakeUpstream) Redeem(ctx context.Context, req application.UpstreamRedeemRequest) (*application.UpstreamRedeemResponse, error) {
	f.redeemCalls = append(f.redeemCalls, req)
	if f.RedeemFn != nil {
		return f.RedeemFn(ctx, req)
	}
	return &application.UpstreamRedeemResponse{ReferenceID: "issuer-ref-1"}, nil
}

func (f *fakeUpstream) Refund(ctx context.Context, req application.UpstreamRefundRequest) (*application.UpstreamRefundResponse, error) {
	f.refundCalls = append(f.refundCalls, req)
	if f.RefundFn != nil {
		return f.RefundFn(ctx, req)
	}
	return &application.UpstreamRefundResponse{ReferenceID: "issuer-rollback-1"}, nil
}

func (f *fakeUpstream) CardCurrency() string {
	if f.currency == "" {
		return "CAD"
	}
	return f.currency
}

// fakeEncryptor reverses the string so ciphertext differs from plaintext
// without real key material.
type fakeEncryptor struct {
	EncryptFn func(plaintext string) (string, error)
	DecryptFn func(ciphertext string) (string, error)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func (f *fakeEncryptor) Encrypt(plaintext string) (string, error) {
	if f.EncryptFn != nil {
		return f.EncryptFn(plaintext)
	}
	return "enc:" + reverse(plaintext), nil
}

func (f *fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	if f.DecryptFn != nil {
		return f.DecryptFn(ciphertext)
	}
	if len(ciphertext) < 4 || ciphertext[:4] != "enc:" {
		return "", fmt.Errorf("malformed ciphertext")
	}
	return reverse(ciphertext[4:]), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Primary: config.Primary{
			Env:              "test",
			Currency:         "CAD",
			PaymentInterface: "giftcard-connector",
		},
		Upstream: config.UpstreamConfig{
			HealthTimeout: 2 * time.Second,
		},
	}
}

func newTestService(commerce *fakeCommerce, up *fakeUpstream, enc *fakeEncryptor) *RedemptionService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedemptionService(commerce, up, enc, testConfig(), logger)
}
