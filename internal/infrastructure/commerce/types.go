package commerce

import (
	"time"

	"github.com/velstore/giftcard-connector/internal/domain"
)

// Wire representations of the commerce platform's resources. Only the
// fields the connector reads are mapped.

type moneyResource struct {
	CentAmount   int64  `json:"centAmount"`
	CurrencyCode string `json:"currencyCode"`
}

func toMoneyResource(m domain.Money) moneyResource {
	return moneyResource{CentAmount: m.CentAmount, CurrencyCode: m.CurrencyCode}
}

func (m moneyResource) toDomain() domain.Money {
	return domain.Money{CentAmount: m.CentAmount, CurrencyCode: m.CurrencyCode}
}

type reference struct {
	ID string `json:"id"`
}

type cartResource struct {
	ID          string        `json:"id"`
	Version     int64         `json:"version"`
	TotalPrice  moneyResource `json:"totalPrice"`
	PaymentInfo *struct {
		Payments []reference `json:"payments"`
	} `json:"paymentInfo"`
}

func (c cartResource) toDomain() *domain.Cart {
	cart := &domain.Cart{
		ID:       c.ID,
		Version:  c.Version,
		Currency: c.TotalPrice.CurrencyCode,
	}
	if c.PaymentInfo != nil {
		for _, ref := range c.PaymentInfo.Payments {
			cart.PaymentIDs = append(cart.PaymentIDs, ref.ID)
		}
	}
	return cart
}

type transactionResource struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	State         string        `json:"state"`
	Amount        moneyResource `json:"amount"`
	InteractionID string        `json:"interactionId,omitempty"`
}

type customFieldsResource struct {
	Fields map[string]string `json:"fields"`
}

type paymentMethodInfoResource struct {
	PaymentInterface string `json:"paymentInterface,omitempty"`
	Method           string `json:"method,omitempty"`
}

type paymentResource struct {
	ID                string                    `json:"id"`
	Version           int64                     `json:"version"`
	InterfaceID       string                    `json:"interfaceId,omitempty"`
	AmountPlanned     moneyResource             `json:"amountPlanned"`
	PaymentMethodInfo paymentMethodInfoResource `json:"paymentMethodInfo"`
	Custom            *customFieldsResource     `json:"custom,omitempty"`
	Transactions      []transactionResource     `json:"transactions,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

func (p paymentResource) toDomain() *domain.Payment {
	payment := &domain.Payment{
		ID:               p.ID,
		Version:          p.Version,
		InterfaceID:      p.InterfaceID,
		AmountPlanned:    p.AmountPlanned.toDomain(),
		PaymentInterface: p.PaymentMethodInfo.PaymentInterface,
		Method:           p.PaymentMethodInfo.Method,
		CreatedAt:        p.CreatedAt,
	}
	if p.Custom != nil {
		payment.CustomFields = p.Custom.Fields
	}
	for _, tx := range p.Transactions {
		payment.Transactions = append(payment.Transactions, domain.Transaction{
			ID:            tx.ID,
			Type:          domain.TransactionType(tx.Type),
			State:         domain.TransactionState(tx.State),
			Amount:        tx.Amount.toDomain(),
			InteractionID: tx.InteractionID,
		})
	}
	return payment
}

type orderResource struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

type sessionResource struct {
	ActiveCart *struct {
		CartRef reference `json:"cartRef"`
	} `json:"activeCart"`
}

// updateAction is one entry in a payment/cart update request.
type updateAction map[string]any

type updateRequest struct {
	Version int64          `json:"version"`
	Actions []updateAction `json:"actions"`
}

type pagedResult[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}
