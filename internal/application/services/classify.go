package services

import (
	"net/http"
	"strings"

	"github.com/velstore/giftcard-connector/internal/domain"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
)

// classifyBalanceError maps an upstream failure to a balance result. The
// issuer's API has no structured error codes, so this is a best-effort
// heuristic over HTTP status and response text; the fallback branch catches
// everything the heuristics miss. Each branch is tested independently so a
// future response-format change fails a test instead of silently
// misclassifying.
func classifyBalanceError(err error) *domain.BalanceResult {
	if upErr, ok := upstream.IsUpstreamError(err); ok {
		switch {
		case upErr.StatusCode == http.StatusUnauthorized:
			return domain.BalanceFailure(domain.BalanceGenericError,
				"Unauthorized", "Invalid API credentials")
		case upErr.StatusCode == http.StatusNotFound:
			return domain.BalanceFailure(domain.BalanceNotFound,
				"NotFound", "Gift card not found")
		case strings.Contains(strings.ToLower(upErr.Body), "invalid"):
			// The issuer answers "Invalid Card or pin" as plain text
			// with a non-404 status.
			return domain.BalanceFailure(domain.BalanceNotFound,
				"InvalidCardOrPin", "Invalid gift card number or PIN")
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "expired") {
		return domain.BalanceFailure(domain.BalanceExpired,
			"Expired", "Gift card has expired")
	}

	return domain.BalanceFailure(domain.BalanceGenericError,
		"GenericError", "Failed to check gift card balance")
}
