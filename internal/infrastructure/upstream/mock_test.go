package upstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velstore/giftcard-connector/internal/application"
)

func TestMockClient_RedeemDrawsDownBalance(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 20.00})

	resp, err := m.Redeem(context.Background(), application.UpstreamRedeemRequest{
		PAN: "9999", PIN: "0000", Amount: 8.00,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ReferenceID)

	bal, err := m.Balance(context.Background(), application.UpstreamBalanceRequest{PAN: "9999", PIN: "0000"})
	require.NoError(t, err)
	assert.InDelta(t, 12.00, bal.Amount, 0.001)
}

func TestMockClient_RefundRequiresKnownReference(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 20.00})

	_, err := m.Refund(context.Background(), application.UpstreamRefundRequest{
		PAN: "9999", PIN: "0000", Amount: 8.00, ReferenceID: "never-issued",
	})
	require.Error(t, err)
	upErr, ok := IsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, 404, upErr.StatusCode)
}

func TestMockClient_RefundRestoresBalance(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 20.00})

	redeemed, err := m.Redeem(context.Background(), application.UpstreamRedeemRequest{
		PAN: "9999", PIN: "0000", Amount: 8.00,
	})
	require.NoError(t, err)

	_, err = m.Refund(context.Background(), application.UpstreamRefundRequest{
		PAN: "9999", PIN: "0000", Amount: 8.00, ReferenceID: redeemed.ReferenceID,
	})
	require.NoError(t, err)

	bal, err := m.Balance(context.Background(), application.UpstreamBalanceRequest{PAN: "9999", PIN: "0000"})
	require.NoError(t, err)
	assert.InDelta(t, 20.00, bal.Amount, 0.001)
}

func TestMockClient_WrongPIN(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 20.00})

	_, err := m.Balance(context.Background(), application.UpstreamBalanceRequest{PAN: "9999", PIN: "1111"})

	upErr, ok := IsUpstreamError(err)
	require.True(t, ok)
	assert.Contains(t, upErr.Body, "Invalid Card or pin")
}

func TestMockClient_ExpiredCard(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 20.00, Expired: true})

	_, err := m.Balance(context.Background(), application.UpstreamBalanceRequest{PAN: "9999", PIN: "0000"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestMockClient_InsufficientFunds(t *testing.T) {
	m := NewMockClient("CAD")
	m.SeedCard("9999", MockCard{PIN: "0000", Balance: 5.00})

	_, err := m.Redeem(context.Background(), application.UpstreamRedeemRequest{
		PAN: "9999", PIN: "0000", Amount: 8.00,
	})

	upErr, ok := IsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, 400, upErr.StatusCode)
}
