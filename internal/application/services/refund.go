package services

import (
	"context"
	"errors"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
	"github.com/velstore/giftcard-connector/internal/infrastructure/metrics"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
)

// Refund returns captured funds to the gift card. A Refund transaction is
// recorded in Initial state before the issuer call and flipped to Success
// or Failure afterwards, so a crash mid-refund leaves a visible trace.
func (s *RedemptionService) Refund(ctx context.Context, cmd application.ModificationCommand) (*application.ModificationResult, error) {
	result, err := s.refund(ctx, cmd, "refund")
	if err == nil {
		metrics.IncModification("refund", string(result.Outcome))
	}
	return result, err
}

// Cancel undoes a capture. The issuer has no void primitive, so cancel is a
// refund of the captured amount.
func (s *RedemptionService) Cancel(ctx context.Context, cmd application.ModificationCommand) (*application.ModificationResult, error) {
	result, err := s.refund(ctx, cmd, "cancel")
	if err == nil {
		metrics.IncModification("cancel", string(result.Outcome))
	}
	return result, err
}

// Reverse is the platform's "undo whichever of capture/refund applies"
// operation. For gift cards both paths end in a refund.
func (s *RedemptionService) Reverse(ctx context.Context, cmd application.ModificationCommand) (*application.ModificationResult, error) {
	result, err := s.refund(ctx, cmd, "reverse")
	if err == nil {
		metrics.IncModification("reverse", string(result.Outcome))
	}
	return result, err
}

func (s *RedemptionService) refund(ctx context.Context, cmd application.ModificationCommand, action string) (*application.ModificationResult, error) {
	payment, err := s.commerce.GetPayment(ctx, cmd.PaymentID)
	if err != nil {
		s.logger.Error("refund: failed to load payment", "action", action, "payment_id", cmd.PaymentID, "error", err)
		return nil, application.NewNotFoundError("payment", cmd.PaymentID)
	}

	code := payment.CustomField(domain.FieldGiftCardCode)
	pinCipher := payment.CustomField(domain.FieldGiftCardPin)
	if code == "" || pinCipher == "" {
		s.logger.Error("refund: payment is missing gift card credentials", "action", action, "payment_id", payment.ID)
		return rejected(payment.InterfaceID), nil
	}

	// InterfaceID is the issuer's redemption reference from capture. A
	// payment that was never captured has nothing to refund.
	if payment.InterfaceID == "" {
		s.logger.Error("refund: payment was never captured", "action", action, "payment_id", payment.ID)
		return rejected(payment.InterfaceID), nil
	}

	pin, err := s.encryptor.Decrypt(pinCipher)
	if err != nil {
		s.logger.Error("refund: failed to decrypt PIN", "action", action, "payment_id", payment.ID, "error", err)
		return rejected(payment.InterfaceID), nil
	}

	amount := cmd.Amount
	if amount.IsZero() {
		amount = payment.AmountPlanned
	}

	orderID := cmd.OrderID
	if orderID == "" {
		if order, err := s.commerce.GetOrderByPaymentID(ctx, payment.ID); err == nil && order != nil {
			orderID = order.ID
		}
	}

	payment, pending, err := s.recordPendingRefund(ctx, payment, amount)
	if err != nil {
		s.logger.Error("refund: failed to record pending refund", "action", action, "payment_id", payment.ID, "error", err)
		if errors.Is(err, application.ErrVersionConflict) {
			// No funds have moved yet; the platform can safely retry.
			return nil, application.NewVersionConflictError(err)
		}
		return rejected(payment.InterfaceID), nil
	}

	resp, upstreamErr := s.upstream.Refund(ctx, application.UpstreamRefundRequest{
		PAN:         code,
		PIN:         pin,
		Amount:      domain.CentsToDollars(amount.CentAmount),
		Currency:    amount.CurrencyCode,
		ReferenceID: payment.InterfaceID,
		OrderID:     orderID,
	})

	if upstreamErr != nil {
		s.logger.Error("refund: issuer refund failed",
			"action", action,
			"payment_id", payment.ID,
			"code", upstream.MaskPAN(code),
			"error", upstreamErr,
		)
		s.settleRefund(ctx, payment, pending, domain.TransactionFailure, "")
		return rejected(payment.InterfaceID), nil
	}

	s.settleRefund(ctx, payment, pending, domain.TransactionSuccess, resp.ReferenceID)

	s.logger.Info("refund approved",
		"action", action,
		"payment_id", payment.ID,
		"issuer_reference", resp.ReferenceID,
		"amount_cents", amount.CentAmount,
	)

	return &application.ModificationResult{
		Outcome:      application.OutcomeApproved,
		PSPReference: resp.ReferenceID,
	}, nil
}

// recordPendingRefund appends an Initial Refund transaction and returns the
// refreshed payment along with the new transaction.
func (s *RedemptionService) recordPendingRefund(ctx context.Context, payment *domain.Payment, amount domain.Money) (*domain.Payment, *domain.Transaction, error) {
	updated, err := s.commerce.UpdatePayment(ctx, payment.ID, application.PaymentUpdate{
		Version: payment.Version,
		AddTransactions: []domain.TransactionDraft{
			{
				Type:   domain.TransactionRefund,
				State:  domain.TransactionInitial,
				Amount: amount,
			},
		},
	})
	if err != nil {
		return payment, nil, err
	}
	pending := updated.LastTransactionOf(domain.TransactionRefund, domain.TransactionInitial)
	return updated, pending, nil
}

// settleRefund flips the pending Refund transaction to its final state.
// Best effort: the issuer's answer is already final, a failed bookkeeping
// write only costs audit fidelity.
func (s *RedemptionService) settleRefund(ctx context.Context, payment *domain.Payment, pending *domain.Transaction, state domain.TransactionState, interactionID string) {
	if pending == nil {
		return
	}
	_, err := s.commerce.UpdatePayment(ctx, payment.ID, application.PaymentUpdate{
		Version: payment.Version,
		ChangeTransaction: &application.TransactionChange{
			TransactionID: pending.ID,
			State:         state,
			InteractionID: interactionID,
		},
	})
	if err != nil {
		s.logger.Warn("refund: failed to record final transaction state",
			"payment_id", payment.ID,
			"transaction_id", pending.ID,
			"state", string(state),
			"error", err,
		)
	}
}
