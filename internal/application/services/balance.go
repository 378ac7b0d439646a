package services

import (
	"context"
	"errors"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
	"github.com/velstore/giftcard-connector/internal/infrastructure/metrics"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
)

// Balance validates the credential, checks the card's balance with the
// issuer, and classifies the outcome. Failures are encoded in the result,
// never thrown: the enabler renders them as field-level messages.
func (s *RedemptionService) Balance(ctx context.Context, code, securityCode string) *domain.BalanceResult {
	result := s.balance(ctx, code, securityCode)
	metrics.IncBalanceCheck(string(result.State))
	return result
}

func (s *RedemptionService) balance(ctx context.Context, code, securityCode string) *domain.BalanceResult {
	s.logger.Info("checking balance for gift card", "code", upstream.MaskPAN(code))

	if result := validateCredential(code, securityCode); result != nil {
		return result
	}

	resp, err := s.upstream.Balance(ctx, application.UpstreamBalanceRequest{
		PAN: code,
		PIN: securityCode,
	})
	if err != nil {
		s.logger.Error("balance check failed", "code", upstream.MaskPAN(code), "error", err)
		return classifyBalanceError(err)
	}

	// The issuer reports dollars; everything past this point is cents.
	balanceCents := domain.DollarsToCents(resp.Amount)

	s.logger.Info("balance check successful",
		"code", upstream.MaskPAN(code),
		"balance_cents", balanceCents,
	)

	if balanceCents == 0 {
		return domain.BalanceFailure(domain.BalanceZeroBalance,
			"ZeroBalance", "Gift card has zero balance")
	}

	cardCurrency := s.upstream.CardCurrency()
	if s.currency != "" && s.currency != cardCurrency {
		return domain.BalanceFailure(domain.BalanceCurrencyNotMatch,
			"CurrencyNotMatch", "Gift card currency does not match cart currency")
	}

	return domain.ValidBalance(domain.Money{
		CentAmount:   balanceCents,
		CurrencyCode: cardCurrency,
	})
}

// validateCredential runs the fail-fast syntax checks. Invalid input never
// reaches the issuer. A nil return means the credential is well-formed.
func validateCredential(code, securityCode string) *domain.BalanceResult {
	if securityCode == "" {
		return domain.BalanceFailure(domain.BalanceGenericError,
			domain.ErrCodeMissingSecurityCode, "Security code (PIN) is required")
	}
	if err := domain.ValidateCardNumber(code); err != nil {
		return validationFailure(err, domain.ErrCodeInvalidCardNumber)
	}
	if err := domain.ValidatePIN(securityCode); err != nil {
		return validationFailure(err, domain.ErrCodeInvalidPIN)
	}
	return nil
}

func validationFailure(err error, fallbackCode string) *domain.BalanceResult {
	code := fallbackCode
	message := err.Error()
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	}
	return domain.BalanceFailure(domain.BalanceGenericError, code, message)
}
