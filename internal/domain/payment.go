// Package domain holds the gift-card connector's domain types: money,
// balance-check outcomes, and the payment aggregate owned by the external
// commerce platform.
package domain

import "time"

// TransactionType mirrors the commerce platform's payment transaction types.
type TransactionType string

const (
	TransactionAuthorization TransactionType = "Authorization"
	TransactionCharge        TransactionType = "Charge"
	TransactionRefund        TransactionType = "Refund"
)

// TransactionState mirrors the commerce platform's transaction states.
type TransactionState string

const (
	TransactionInitial TransactionState = "Initial"
	TransactionSuccess TransactionState = "Success"
	TransactionFailure TransactionState = "Failure"
)

// Custom field keys stored on gift-card payments. The code is kept in
// plaintext as a consolidation lookup key; the PIN is stored encrypted.
const (
	FieldGiftCardCode    = "giftCardCode"
	FieldGiftCardPin     = "giftCardPin"
	FieldClientIP        = "clientIp"
	FieldUserAgent       = "userAgent"
	FieldTransactionDate = "transactionDate"
)

type Transaction struct {
	ID            string
	Type          TransactionType
	State         TransactionState
	Amount        Money
	InteractionID string
}

// TransactionDraft describes a transaction to append to a payment.
type TransactionDraft struct {
	Type          TransactionType
	State         TransactionState
	Amount        Money
	InteractionID string
}

// Payment is the commerce platform's payment record extended with the
// connector's custom fields. The connector never owns its persistence; it
// mutates the record through the commerce client, which enforces optimistic
// concurrency via Version.
type Payment struct {
	ID               string
	Version          int64
	InterfaceID      string
	AmountPlanned    Money
	PaymentInterface string
	Method           string
	CustomFields     map[string]string
	Transactions     []Transaction
	CreatedAt        time.Time
}

// PaymentDraft is the shape of a new payment record.
type PaymentDraft struct {
	AmountPlanned    Money
	PaymentInterface string
	Method           string
	CustomFields     map[string]string
	Transactions     []TransactionDraft
}

// CustomField returns the named custom field, or "" when absent.
func (p *Payment) CustomField(name string) string {
	if p.CustomFields == nil {
		return ""
	}
	return p.CustomFields[name]
}

// HasChargeTransaction reports whether the payment has been captured. A
// payment without a Charge transaction is still in its authorized,
// consolidatable state.
func (p *Payment) HasChargeTransaction() bool {
	for _, tx := range p.Transactions {
		if tx.Type == TransactionCharge {
			return true
		}
	}
	return false
}

// AuthorizationTransaction returns the payment's Authorization transaction,
// or nil if none was recorded.
func (p *Payment) AuthorizationTransaction() *Transaction {
	for i := range p.Transactions {
		if p.Transactions[i].Type == TransactionAuthorization {
			return &p.Transactions[i]
		}
	}
	return nil
}

// LastTransactionOf returns the most recently appended transaction of the
// given type and state, or nil.
func (p *Payment) LastTransactionOf(txType TransactionType, state TransactionState) *Transaction {
	for i := len(p.Transactions) - 1; i >= 0; i-- {
		if p.Transactions[i].Type == txType && p.Transactions[i].State == state {
			return &p.Transactions[i]
		}
	}
	return nil
}

// Cart is the slice of the commerce platform's cart the connector needs:
// identity, version for optimistic concurrency, and payment references.
type Cart struct {
	ID         string
	Version    int64
	Currency   string
	PaymentIDs []string
}

// Order is the commerce platform's order, looked up by payment id so the
// upstream issuer can be told which order a capture belongs to.
type Order struct {
	ID          string
	OrderNumber string
}
