package domain

// BalanceState is the closed set of outcomes a balance check can produce.
type BalanceState string

const (
	BalanceValid            BalanceState = "Valid"
	BalanceZeroBalance      BalanceState = "ZeroBalance"
	BalanceCurrencyNotMatch BalanceState = "CurrencyNotMatch"
	BalanceExpired          BalanceState = "Expired"
	BalanceNotFound         BalanceState = "NotFound"
	BalanceGenericError     BalanceState = "GenericError"
)

// StatusError is a single field-level error descriptor attached to a
// non-valid balance result.
type StatusError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BalanceResult is the outcome of a balance check. Amount is set if and
// only if State is BalanceValid.
type BalanceResult struct {
	State  BalanceState
	Errors []StatusError
	Amount *Money
}

func ValidBalance(amount Money) *BalanceResult {
	return &BalanceResult{State: BalanceValid, Amount: &amount}
}

func BalanceFailure(state BalanceState, code, message string) *BalanceResult {
	return &BalanceResult{
		State:  state,
		Errors: []StatusError{{Code: code, Message: message}},
	}
}

func (r *BalanceResult) IsValid() bool {
	return r.State == BalanceValid
}

// FirstErrorMessage returns the message of the first attached error, or a
// fallback when the result carries none.
func (r *BalanceResult) FirstErrorMessage(fallback string) string {
	if len(r.Errors) > 0 && r.Errors[0].Message != "" {
		return r.Errors[0].Message
	}
	return fallback
}
