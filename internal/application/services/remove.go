package services

import (
	"context"
	"errors"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
)

// RemovePayment detaches a not-yet-captured gift card from checkout. The
// payment record stays on the platform for audit; its Authorization
// transaction is flipped to Failure so it can never consolidate or capture.
func (s *RedemptionService) RemovePayment(ctx context.Context, paymentID string) error {
	payment, err := s.commerce.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("remove: failed to load payment", "payment_id", paymentID, "error", err)
		return application.NewNotFoundError("payment", paymentID)
	}

	if payment.HasChargeTransaction() {
		s.logger.Warn("remove requested for a captured payment, refusing", "payment_id", paymentID)
		return application.NewInvalidInputError(errors.New("payment already captured"))
	}

	auth := payment.AuthorizationTransaction()
	if auth == nil {
		s.logger.Warn("remove: payment has no authorization transaction", "payment_id", paymentID)
		return nil
	}

	_, err = s.commerce.UpdatePayment(ctx, payment.ID, application.PaymentUpdate{
		Version: payment.Version,
		ChangeTransaction: &application.TransactionChange{
			TransactionID: auth.ID,
			State:         domain.TransactionFailure,
		},
	})
	if err != nil {
		s.logger.Error("remove: failed to void authorization", "payment_id", paymentID, "error", err)
		return application.NewInternalError(err)
	}

	s.logger.Info("gift card payment removed from checkout", "payment_id", paymentID)
	return nil
}
