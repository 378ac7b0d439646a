package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
	"github.com/velstore/giftcard-connector/internal/infrastructure/metrics"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
)

// Capture moves the authorized funds off the gift card. It re-reads the
// payment for its stored credentials, decrypts the PIN, and calls the
// issuer's redeem endpoint. On success the payment gets the issuer
// reference as its interface id plus a successful Charge transaction,
// which permanently excludes it from consolidation.
//
// Capture is not idempotent: a second capture of the same payment issues a
// second redemption upstream. The checkout platform calls capture exactly
// once per payment; protection against replays belongs there.
func (s *RedemptionService) Capture(ctx context.Context, cmd application.ModificationCommand) (*application.ModificationResult, error) {
	result, err := s.capture(ctx, cmd)
	if err == nil {
		metrics.IncModification("capture", string(result.Outcome))
	}
	return result, err
}

func (s *RedemptionService) capture(ctx context.Context, cmd application.ModificationCommand) (*application.ModificationResult, error) {
	payment, err := s.commerce.GetPayment(ctx, cmd.PaymentID)
	if err != nil {
		s.logger.Error("capture: failed to load payment", "payment_id", cmd.PaymentID, "error", err)
		return nil, application.NewNotFoundError("payment", cmd.PaymentID)
	}

	code := payment.CustomField(domain.FieldGiftCardCode)
	pinCipher := payment.CustomField(domain.FieldGiftCardPin)
	if code == "" || pinCipher == "" {
		s.logger.Error("capture: payment is missing gift card credentials", "payment_id", payment.ID)
		return rejected(payment.InterfaceID), nil
	}

	pin, err := s.encryptor.Decrypt(pinCipher)
	if err != nil {
		s.logger.Error("capture: failed to decrypt PIN", "payment_id", payment.ID, "error", err)
		return rejected(payment.InterfaceID), nil
	}

	amount := cmd.Amount
	if amount.IsZero() {
		amount = payment.AmountPlanned
	}

	redemptionID := uuid.NewString()
	resp, err := s.upstream.Redeem(ctx, application.UpstreamRedeemRequest{
		PAN:         code,
		PIN:         pin,
		Amount:      domain.CentsToDollars(amount.CentAmount),
		ReferenceID: redemptionID,
		OrderID:     cmd.OrderID,
	})
	if err != nil {
		s.logger.Error("capture: issuer redeem failed",
			"payment_id", payment.ID,
			"code", upstream.MaskPAN(code),
			"error", err,
		)
		return rejected(payment.InterfaceID), nil
	}

	update := application.PaymentUpdate{
		Version:        payment.Version,
		SetInterfaceID: resp.ReferenceID,
		AddTransactions: []domain.TransactionDraft{
			{
				Type:          domain.TransactionCharge,
				State:         domain.TransactionSuccess,
				Amount:        amount,
				InteractionID: resp.ReferenceID,
			},
		},
	}
	if _, err := s.commerce.UpdatePayment(ctx, payment.ID, update); err != nil {
		// Funds already moved. Reject so the platform surfaces the failure
		// rather than completing an order whose payment record is stale.
		s.logger.Error("capture: funds redeemed but payment update failed",
			"payment_id", payment.ID,
			"issuer_reference", resp.ReferenceID,
			"error", err,
		)
		return rejected(resp.ReferenceID), nil
	}

	s.logger.Info("capture approved",
		"payment_id", payment.ID,
		"issuer_reference", resp.ReferenceID,
		"amount_cents", amount.CentAmount,
	)

	return &application.ModificationResult{
		Outcome:      application.OutcomeApproved,
		PSPReference: resp.ReferenceID,
	}, nil
}

// rejected echoes the payment's issuer reference when one exists, so the
// platform can still correlate the rejection with the upstream redemption.
func rejected(pspReference string) *application.ModificationResult {
	return &application.ModificationResult{
		Outcome:      application.OutcomeRejected,
		PSPReference: pspReference,
	}
}
