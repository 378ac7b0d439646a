package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
)

const (
	testCode = "6036280000000000001"
	testPIN  = "1234"
)

func TestBalance_ValidCard(t *testing.T) {
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			assert.Equal(t, testCode, req.PAN)
			assert.Equal(t, testPIN, req.PIN)
			return &application.UpstreamBalanceResponse{Amount: 25.00}, nil
		},
	}
	svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

	result := svc.Balance(context.Background(), testCode, testPIN)

	assert.Equal(t, domain.BalanceValid, result.State)
	require.NotNil(t, result.Amount)
	assert.Equal(t, int64(2500), result.Amount.CentAmount)
	assert.Equal(t, "CAD", result.Amount.CurrencyCode)
}

func TestBalance_ConvertsDollarsToCents(t *testing.T) {
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 10.99}, nil
		},
	}
	svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

	result := svc.Balance(context.Background(), testCode, testPIN)

	require.NotNil(t, result.Amount)
	assert.Equal(t, int64(1099), result.Amount.CentAmount)
}

func TestBalance_ZeroBalance(t *testing.T) {
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 0}, nil
		},
	}
	svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

	result := svc.Balance(context.Background(), testCode, testPIN)

	assert.Equal(t, domain.BalanceZeroBalance, result.State)
	assert.Nil(t, result.Amount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ZeroBalance", result.Errors[0].Code)
}

func TestBalance_CurrencyMismatch(t *testing.T) {
	up := &fakeUpstream{
		currency: "USD",
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return &application.UpstreamBalanceResponse{Amount: 25.00}, nil
		},
	}
	svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

	result := svc.Balance(context.Background(), testCode, testPIN)

	assert.Equal(t, domain.BalanceCurrencyNotMatch, result.State)
}

func TestBalance_InvalidInputNeverCallsUpstream(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		pin      string
		wantCode string
	}{
		{"empty code", "", testPIN, "Required"},
		{"non numeric code", "abc123", testPIN, "InvalidCardNumber"},
		{"too short code", "123456789012", testPIN, "InvalidCardNumber"},
		{"missing pin", testCode, "", "MissingSecurityCode"},
		{"non numeric pin", testCode, "12ab", "InvalidPIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{}
			svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

			result := svc.Balance(context.Background(), tt.code, tt.pin)

			assert.False(t, result.IsValid())
			require.Len(t, result.Errors, 1)
			assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			assert.Empty(t, up.balanceCalls, "invalid input must not reach the issuer")
		})
	}
}

func TestBalance_UpstreamFailureClassified(t *testing.T) {
	up := &fakeUpstream{
		BalanceFn: func(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(newFakeCommerce(), up, &fakeEncryptor{})

	result := svc.Balance(context.Background(), testCode, testPIN)

	assert.Equal(t, domain.BalanceGenericError, result.State)
}
