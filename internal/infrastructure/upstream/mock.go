package upstream

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/velstore/giftcard-connector/internal/application"
)

// MockCard is one fixture card held by the mock issuer.
type MockCard struct {
	PIN     string
	Balance float64 // dollars
	Expired bool
}

// MockClient is an in-memory stand-in for the issuer, used for local
// development and demos. Cards are explicit fixtures seeded via SeedCard;
// behavior is never encoded in card-number syntax.
type MockClient struct {
	mu           sync.Mutex
	cards        map[string]*MockCard
	redemptions  map[string]float64 // reference id -> redeemed dollars
	cardCurrency string
}

func NewMockClient(cardCurrency string) *MockClient {
	m := &MockClient{
		cards:        make(map[string]*MockCard),
		redemptions:  make(map[string]float64),
		cardCurrency: cardCurrency,
	}
	// Default development fixtures.
	m.SeedCard("6006491234567890123", MockCard{PIN: "1234", Balance: 100.00})
	m.SeedCard("6006491234567890456", MockCard{PIN: "1234", Balance: 0})
	m.SeedCard("6006491234567890789", MockCard{PIN: "1234", Balance: 50.00, Expired: true})
	return m
}

func (m *MockClient) SeedCard(pan string, card MockCard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := card
	m.cards[pan] = &c
}

func (m *MockClient) CardCurrency() string {
	return m.cardCurrency
}

func (m *MockClient) Healthcheck(_ context.Context) *application.HealthcheckResult {
	return &application.HealthcheckResult{
		Status:  "UP",
		Details: map[string]any{"mode": "mock"},
	}
}

func (m *MockClient) Balance(_ context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, err := m.lookup(req.PAN, req.PIN)
	if err != nil {
		return nil, err
	}
	return &application.UpstreamBalanceResponse{Amount: card.Balance}, nil
}

func (m *MockClient) Redeem(_ context.Context, req application.UpstreamRedeemRequest) (*application.UpstreamRedeemResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, err := m.lookup(req.PAN, req.PIN)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 || req.Amount > card.Balance {
		return nil, &Error{Endpoint: "redeem", StatusCode: 400, Body: "insufficient balance"}
	}

	card.Balance -= req.Amount
	ref := "mock-redemption-" + uuid.NewString()
	m.redemptions[ref] = req.Amount
	return &application.UpstreamRedeemResponse{ReferenceID: ref}, nil
}

func (m *MockClient) Refund(_ context.Context, req application.UpstreamRefundRequest) (*application.UpstreamRefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	card, err := m.lookup(req.PAN, req.PIN)
	if err != nil {
		return nil, err
	}
	if _, ok := m.redemptions[req.ReferenceID]; !ok {
		return nil, &Error{Endpoint: "refund", StatusCode: 404, Body: "unknown reference id"}
	}

	card.Balance += req.Amount
	return &application.UpstreamRefundResponse{ReferenceID: "mock-rollback-" + uuid.NewString()}, nil
}

// lookup must be called with the mutex held.
func (m *MockClient) lookup(pan, pin string) (*MockCard, error) {
	card, ok := m.cards[strings.TrimSpace(pan)]
	if !ok || card.PIN != strings.TrimSpace(pin) {
		return nil, &Error{Endpoint: "balance", StatusCode: 404, Body: "Invalid Card or pin"}
	}
	if card.Expired {
		return nil, fmt.Errorf("the gift card is expired")
	}
	return card, nil
}
