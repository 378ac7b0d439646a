package rest

import "github.com/velstore/giftcard-connector/internal/domain"

// Wire shapes for the session-scoped endpoints consumed by the checkout
// enabler. Field names are part of the enabler contract.

type balanceRequest struct {
	Code         string `json:"code"`
	SecurityCode string `json:"securityCode"`
}

type balanceResponse struct {
	State  string         `json:"state"`
	Errors []statusError  `json:"errors,omitempty"`
	Amount *moneyResponse `json:"amount,omitempty"`
}

type statusError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type moneyResponse struct {
	CentAmount   int64  `json:"centAmount"`
	CurrencyCode string `json:"currencyCode"`
}

func toBalanceResponse(result *domain.BalanceResult) balanceResponse {
	resp := balanceResponse{State: string(result.State)}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, statusError{Code: e.Code, Message: e.Message})
	}
	if result.Amount != nil {
		resp.Amount = &moneyResponse{
			CentAmount:   result.Amount.CentAmount,
			CurrencyCode: result.Amount.CurrencyCode,
		}
	}
	return resp
}

type redeemRequest struct {
	Code         string      `json:"code"`
	SecurityCode string      `json:"securityCode"`
	Amount       moneyClaim  `json:"amount"`
	OrderID      string      `json:"orderId,omitempty"`
}

type moneyClaim struct {
	CentAmount   int64  `json:"centAmount"`
	CurrencyCode string `json:"currencyCode"`
}

type redeemResponse struct {
	IsSuccess        bool   `json:"isSuccess"`
	PaymentReference string `json:"paymentReference,omitempty"`
	RedemptionID     string `json:"redemptionId,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
}

type modificationRequest struct {
	Actions []modificationAction `json:"actions"`
}

type modificationAction struct {
	Action  string      `json:"action"`
	Amount  *moneyClaim `json:"amount,omitempty"`
	OrderID string      `json:"orderId,omitempty"`
}

type modificationResponse struct {
	Outcomes []modificationOutcome `json:"outcomes"`
}

type modificationOutcome struct {
	Action       string `json:"action"`
	Outcome      string `json:"outcome"`
	PSPReference string `json:"pspReference,omitempty"`
}
