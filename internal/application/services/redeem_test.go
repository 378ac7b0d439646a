package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
)

func redeemCmd(cartID string, cents int64) application.RedeemCommand {
	return application.RedeemCommand{
		CartID:       cartID,
		Code:         testCode,
		SecurityCode: testPIN,
		Amount:       domain.Money{CentAmount: cents, CurrencyCode: "CAD"},
		Meta: application.RequestMeta{
			ClientIP:  "10.0.0.1",
			UserAgent: "test-agent",
		},
	}
}

func TestRedeem_CreatesPendingPayment(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 50.00}, nil
		},
	}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	require.True(t, result.Success, result.ErrorMessage)
	require.NotEmpty(t, result.PaymentReference)

	payment := commerce.payments[result.PaymentReference]
	require.NotNil(t, payment)
	assert.Equal(t, int64(500), payment.AmountPlanned.CentAmount)
	assert.Equal(t, "giftcard-connector", payment.PaymentInterface)
	assert.Equal(t, "giftcard", payment.Method)

	// Code stays plaintext as the consolidation key, the PIN must not.
	assert.Equal(t, testCode, payment.CustomField(domain.FieldGiftCardCode))
	assert.NotEqual(t, testPIN, payment.CustomField(domain.FieldGiftCardPin))
	assert.NotEmpty(t, payment.CustomField(domain.FieldGiftCardPin))
	assert.Equal(t, "10.0.0.1", payment.CustomField(domain.FieldClientIP))
	assert.Equal(t, "test-agent", payment.CustomField(domain.FieldUserAgent))
	assert.NotEmpty(t, payment.CustomField(domain.FieldTransactionDate))

	require.Len(t, payment.Transactions, 1)
	assert.Equal(t, domain.TransactionAuthorization, payment.Transactions[0].Type)
	assert.Equal(t, domain.TransactionSuccess, payment.Transactions[0].State)
	assert.Equal(t, int64(500), payment.Transactions[0].Amount.CentAmount)

	assert.Contains(t, commerce.carts["cart-1"].PaymentIDs, payment.ID)
}

func TestRedeem_NoFundsMoveAtAuthorization(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	require.True(t, result.Success)
	assert.Empty(t, up.redeemCalls, "authorization must not redeem upstream")
}

func TestRedeem_ConsolidatesSameCard(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 10.00}, nil
		},
	}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	first := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))
	require.True(t, first.Success, first.ErrorMessage)

	second := svc.Redeem(context.Background(), redeemCmd("cart-1", 300))
	require.True(t, second.Success, second.ErrorMessage)

	assert.Equal(t, first.PaymentReference, second.PaymentReference,
		"same card in same cart must consolidate, not duplicate")

	payment := commerce.payments[first.PaymentReference]
	assert.Equal(t, int64(800), payment.AmountPlanned.CentAmount)

	auth := payment.AuthorizationTransaction()
	require.NotNil(t, auth)
	assert.Equal(t, int64(800), auth.Amount.CentAmount)

	assert.Len(t, commerce.carts["cart-1"].PaymentIDs, 1)
}

func TestRedeem_ConsolidationGuardsTotalAgainstBalance(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 7.00}, nil
		},
	}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	first := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))
	require.True(t, first.Success)

	// 500 already applied + 300 more = 800 > 700 available.
	second := svc.Redeem(context.Background(), redeemCmd("cart-1", 300))

	assert.False(t, second.Success)
	assert.Contains(t, second.ErrorMessage, "Insufficient gift card balance")
	assert.Contains(t, second.ErrorMessage, "700")
	assert.Contains(t, second.ErrorMessage, "800")

	payment := commerce.payments[first.PaymentReference]
	assert.Equal(t, int64(500), payment.AmountPlanned.CentAmount, "failed redemption must not mutate the payment")
}

func TestRedeem_CapturedPaymentDoesNotConsolidate(t *testing.T) {
	commerce := newFakeCommerce()
	cart := commerce.seedCart("cart-1")
	captured := &domain.Payment{
		ID:            "payment-captured",
		Version:       2,
		AmountPlanned: domain.Money{CentAmount: 500, CurrencyCode: "CAD"},
		CustomFields:  map[string]string{domain.FieldGiftCardCode: testCode},
		Transactions: []domain.Transaction{
			{ID: "tx-1", Type: domain.TransactionAuthorization, State: domain.TransactionSuccess},
			{ID: "tx-2", Type: domain.TransactionCharge, State: domain.TransactionSuccess},
		},
	}
	commerce.seedPayment(captured)
	cart.PaymentIDs = append(cart.PaymentIDs, captured.ID)

	svc := newTestService(commerce, &fakeUpstream{}, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 300))

	require.True(t, result.Success, result.ErrorMessage)
	assert.NotEqual(t, captured.ID, result.PaymentReference,
		"captured payment must not absorb new redemptions")
	assert.Equal(t, int64(500), captured.AmountPlanned.CentAmount)
}

func TestRedeem_RemovedPaymentDoesNotConsolidate(t *testing.T) {
	commerce := newFakeCommerce()
	cart := commerce.seedCart("cart-1")
	removed := &domain.Payment{
		ID:            "payment-removed",
		Version:       2,
		AmountPlanned: domain.Money{CentAmount: 500, CurrencyCode: "CAD"},
		CustomFields:  map[string]string{domain.FieldGiftCardCode: testCode},
		Transactions: []domain.Transaction{
			{ID: "tx-1", Type: domain.TransactionAuthorization, State: domain.TransactionFailure},
		},
	}
	commerce.seedPayment(removed)
	cart.PaymentIDs = append(cart.PaymentIDs, removed.ID)

	svc := newTestService(commerce, &fakeUpstream{}, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 300))

	require.True(t, result.Success, result.ErrorMessage)
	assert.NotEqual(t, removed.ID, result.PaymentReference)
	assert.Equal(t, int64(500), removed.AmountPlanned.CentAmount)
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 2.00}, nil
		},
	}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "Insufficient gift card balance")
	assert.Empty(t, commerce.payments, "no payment may be created on failure")
}

func TestRedeem_ValidationShortCircuits(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	up := &fakeUpstream{}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	cmd := redeemCmd("cart-1", 500)
	cmd.Code = "not-a-number"

	result := svc.Redeem(context.Background(), cmd)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Empty(t, up.balanceCalls, "invalid input must not reach the issuer")
	assert.Empty(t, commerce.payments)
}

func TestRedeem_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(newFakeCommerce(), &fakeUpstream{}, &fakeEncryptor{})

	cmd := redeemCmd("cart-1", 0)
	result := svc.Redeem(context.Background(), cmd)

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "positive")
}

func TestRedeem_UnreadablePaymentFailsTheRedeem(t *testing.T) {
	commerce := newFakeCommerce()
	cart := commerce.seedCart("cart-1")
	cart.PaymentIDs = append(cart.PaymentIDs, "payment-gone")
	commerce.GetPaymentFn = func(ctx context.Context, paymentID string) (*domain.Payment, error) {
		return nil, assert.AnError
	}
	up := &fakeUpstream{}
	svc := newTestService(commerce, up, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	assert.False(t, result.Success,
		"an unreadable payment hides how much the card already covers")
	assert.Contains(t, result.ErrorMessage, "existing payments")
	assert.Empty(t, up.balanceCalls)
}

func TestRedeem_VersionConflictIsRetryable(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	commerce.AddPaymentFn = func(ctx context.Context, cartID string, cartVersion int64, paymentID string) error {
		return application.ErrVersionConflict
	}
	svc := newTestService(commerce, &fakeUpstream{}, &fakeEncryptor{})

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "retry")
}

func TestRedeem_EncryptionFailureAborts(t *testing.T) {
	commerce := newFakeCommerce()
	commerce.seedCart("cart-1")
	enc := &fakeEncryptor{
		EncryptFn: func(plaintext string) (string, error) {
			return "", assert.AnError
		},
	}
	svc := newTestService(commerce, &fakeUpstream{}, enc)

	result := svc.Redeem(context.Background(), redeemCmd("cart-1", 500))

	assert.False(t, result.Success)
	assert.Empty(t, commerce.payments, "payment must not be created with an unencrypted PIN")
}
