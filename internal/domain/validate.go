package domain

import "strings"

// isDigits reports whether s is non-empty and matches ^\d+$.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateCardNumber checks gift-card-number syntax: required, numeric, and
// longer than 12 digits. It performs no I/O; every caller runs it before any
// upstream call so invalid input never reaches the issuer.
func ValidateCardNumber(code string) error {
	trimmed := strings.TrimSpace(code)

	if trimmed == "" {
		return &DomainError{Code: ErrCodeRequired, Message: "Gift card number is required"}
	}
	if !isDigits(trimmed) {
		return &DomainError{Code: ErrCodeInvalidCardNumber, Message: "Gift card number must be numeric"}
	}
	if len(trimmed) <= 12 {
		return &DomainError{Code: ErrCodeInvalidCardNumber, Message: "Gift card number must be more than 12 characters"}
	}
	return nil
}

// ValidatePIN checks PIN syntax: required and numeric.
func ValidatePIN(pin string) error {
	trimmed := strings.TrimSpace(pin)

	if trimmed == "" {
		return &DomainError{Code: ErrCodeMissingSecurityCode, Message: "PIN is required"}
	}
	if !isDigits(trimmed) {
		return &DomainError{Code: ErrCodeInvalidPIN, Message: "PIN must be numeric"}
	}
	return nil
}
