package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
	"github.com/velstore/giftcard-connector/internal/infrastructure/metrics"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
)

// Redeem applies a gift card to a cart: authorization only. It validates
// the credential, verifies the balance covers the requested amount plus
// anything already applied from the same card, and records a pending
// payment with an Authorization transaction. No funds move here; the
// upstream redemption happens at capture, once the order exists, so an
// abandoned cart never charges the card.
func (s *RedemptionService) Redeem(ctx context.Context, cmd application.RedeemCommand) *application.RedeemResult {
	result := s.redeem(ctx, cmd)
	metrics.IncRedemption(result.Success)
	return result
}

func (s *RedemptionService) redeem(ctx context.Context, cmd application.RedeemCommand) *application.RedeemResult {
	s.logger.Info("authorizing gift card payment",
		"code", upstream.MaskPAN(cmd.Code),
		"amount_cents", cmd.Amount.CentAmount,
		"cart_id", cmd.CartID,
	)

	if fail := validateRedeemInputs(cmd); fail != nil {
		return fail
	}

	cart, err := s.commerce.GetCart(ctx, cmd.CartID)
	if err != nil {
		s.logger.Error("failed to load cart", "cart_id", cmd.CartID, "error", err)
		return redeemFailure("Failed to load cart")
	}

	// Consolidation lookup: an uncaptured payment for the same card in
	// this cart absorbs the new amount instead of spawning a duplicate.
	// O(payments in cart); carts hold few payments.
	existing, err := s.findConsolidatablePayment(ctx, cart, cmd.Code)
	if err != nil {
		s.logger.Error("failed to scan cart payments", "cart_id", cart.ID, "error", err)
		return redeemFailure("Failed to inspect existing payments")
	}

	var alreadyApplied int64
	if existing != nil {
		alreadyApplied = existing.AmountPlanned.CentAmount
	}

	balance := s.balance(ctx, cmd.Code, cmd.SecurityCode)
	if !balance.IsValid() {
		return redeemFailure(balance.FirstErrorMessage("Invalid gift card"))
	}

	required := alreadyApplied + cmd.Amount.CentAmount
	if balance.Amount.CentAmount < required {
		return redeemFailure(fmt.Sprintf(
			"Insufficient gift card balance: available %d, requested %d",
			balance.Amount.CentAmount, required,
		))
	}

	if existing != nil {
		return s.consolidate(ctx, existing, cmd.Amount)
	}
	return s.createPendingPayment(ctx, cart, cmd)
}

func validateRedeemInputs(cmd application.RedeemCommand) *application.RedeemResult {
	if err := domain.ValidateCardNumber(cmd.Code); err != nil {
		return redeemFailure(err.Error())
	}
	if cmd.SecurityCode == "" {
		return redeemFailure("PIN is required")
	}
	if err := domain.ValidatePIN(cmd.SecurityCode); err != nil {
		return redeemFailure(err.Error())
	}
	if cmd.Amount.CentAmount <= 0 {
		return redeemFailure("Redemption amount must be positive")
	}
	return nil
}

// findConsolidatablePayment scans the cart for a payment carrying the same
// gift-card code that has not been captured yet. Once a payment has a
// Charge transaction it is capture-isolated: a new redemption of the same
// code gets a fresh payment.
func (s *RedemptionService) findConsolidatablePayment(ctx context.Context, cart *domain.Cart, code string) (*domain.Payment, error) {
	for _, paymentID := range cart.PaymentIDs {
		payment, err := s.commerce.GetPayment(ctx, paymentID)
		if err != nil {
			// Skipping an unreadable payment would under-count what this
			// card already has applied, so the whole redeem fails instead.
			return nil, fmt.Errorf("checking payment %s: %w", paymentID, err)
		}
		if payment.CustomField(domain.FieldGiftCardCode) != code {
			continue
		}
		if payment.HasChargeTransaction() {
			continue
		}
		// A payment whose authorization was voided by removal is dead; it
		// stays on the cart but absorbs nothing.
		if auth := payment.AuthorizationTransaction(); auth != nil && auth.State == domain.TransactionFailure {
			continue
		}
		return payment, nil
	}
	return nil, nil
}

// consolidate raises the existing payment's planned amount by the newly
// requested amount and brings its Authorization transaction up to the new
// total. The update is keyed on the payment's version; a concurrent writer
// loses and must retry.
func (s *RedemptionService) consolidate(ctx context.Context, existing *domain.Payment, amount domain.Money) *application.RedeemResult {
	newTotal := domain.Money{
		CentAmount:   existing.AmountPlanned.CentAmount + amount.CentAmount,
		CurrencyCode: existing.AmountPlanned.CurrencyCode,
	}

	update := application.PaymentUpdate{
		Version:             existing.Version,
		ChangeAmountPlanned: &newTotal,
	}
	if auth := existing.AuthorizationTransaction(); auth != nil {
		update.ChangeTransaction = &application.TransactionChange{
			TransactionID: auth.ID,
			Amount:        &newTotal,
		}
	}

	updated, err := s.commerce.UpdatePayment(ctx, existing.ID, update)
	if err != nil {
		if errors.Is(err, application.ErrVersionConflict) {
			s.logger.Warn("consolidation lost version race", "payment_id", existing.ID)
			return redeemFailure("Payment was modified concurrently, please retry")
		}
		s.logger.Error("failed to consolidate payment", "payment_id", existing.ID, "error", err)
		return redeemFailure("Failed to update existing gift card payment")
	}

	s.logger.Info("gift card already applied - consolidated into existing payment",
		"payment_id", updated.ID,
		"added_cents", amount.CentAmount,
		"new_total_cents", newTotal.CentAmount,
	)

	return &application.RedeemResult{
		Success:          true,
		PaymentReference: updated.ID,
	}
}

// createPendingPayment records a fresh authorized-but-uncaptured payment:
// planned amount, plaintext code as lookup key, encrypted PIN, audit
// metadata, and a successful Authorization transaction. The payment is then
// attached to the cart.
func (s *RedemptionService) createPendingPayment(ctx context.Context, cart *domain.Cart, cmd application.RedeemCommand) *application.RedeemResult {
	encryptedPIN, err := s.encryptor.Encrypt(cmd.SecurityCode)
	if err != nil {
		s.logger.Error("failed to encrypt PIN", "error", err)
		return redeemFailure("Failed to secure gift card credentials")
	}

	draft := domain.PaymentDraft{
		AmountPlanned:    cmd.Amount,
		PaymentInterface: s.paymentInterface,
		Method:           paymentMethod,
		CustomFields: map[string]string{
			domain.FieldGiftCardCode:    cmd.Code,
			domain.FieldGiftCardPin:     encryptedPIN,
			domain.FieldClientIP:        cmd.Meta.ClientIP,
			domain.FieldUserAgent:       cmd.Meta.UserAgent,
			domain.FieldTransactionDate: time.Now().UTC().Format(time.RFC3339),
		},
		Transactions: []domain.TransactionDraft{
			{
				Type:   domain.TransactionAuthorization,
				State:  domain.TransactionSuccess,
				Amount: cmd.Amount,
			},
		},
	}

	payment, err := s.commerce.CreatePayment(ctx, draft)
	if err != nil {
		s.logger.Error("failed to create payment", "error", err)
		return redeemFailure("Failed to create gift card payment")
	}

	if err := s.commerce.AddPayment(ctx, cart.ID, cart.Version, payment.ID); err != nil {
		if errors.Is(err, application.ErrVersionConflict) {
			s.logger.Warn("cart changed while adding payment", "cart_id", cart.ID, "payment_id", payment.ID)
			return redeemFailure("Cart was modified concurrently, please retry")
		}
		s.logger.Error("failed to add payment to cart", "cart_id", cart.ID, "payment_id", payment.ID, "error", err)
		return redeemFailure("Failed to add gift card payment to cart")
	}

	s.logger.Info("payment authorized and added to cart",
		"payment_id", payment.ID,
		"code", upstream.MaskPAN(cmd.Code),
		"amount_cents", cmd.Amount.CentAmount,
	)

	return &application.RedeemResult{
		Success:          true,
		PaymentReference: payment.ID,
	}
}

func redeemFailure(message string) *application.RedeemResult {
	return &application.RedeemResult{
		Success:      false,
		ErrorMessage: message,
	}
}
