package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/domain"
)

// Modification actions the checkout platform sends during order
// processing.
const (
	actionCapture = "capturePayment"
	actionCancel  = "cancelPayment"
	actionRefund  = "refundPayment"
	actionReverse = "reversePayment"
)

// Status reports aggregated connectivity for the operations dashboard.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	result := h.service.Status(r.Context())

	status := http.StatusOK
	if result.Status != "UP" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, result)
}

// ModifyPayment dispatches capture/cancel/refund/reverse actions on one
// payment. The platform sends actions as a list; they run in order and a
// transport-level failure aborts the batch. Rejections come back 200 with
// outcome "rejected"; errors in locating the payment or a malformed request
// use HTTP status codes.
func (h *Handler) ModifyPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	var req modificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, application.NewInvalidInputError(err))
		return
	}
	if len(req.Actions) == 0 {
		WriteError(w, application.NewInvalidInputError(errors.New("at least one action is required")))
		return
	}

	resp := modificationResponse{}
	for _, action := range req.Actions {
		cmd := application.ModificationCommand{
			PaymentID: paymentID,
			OrderID:   action.OrderID,
		}
		if action.Amount != nil {
			cmd.Amount = domain.Money{
				CentAmount:   action.Amount.CentAmount,
				CurrencyCode: action.Amount.CurrencyCode,
			}
		}

		var (
			result *application.ModificationResult
			err    error
		)
		switch action.Action {
		case actionCapture:
			result, err = h.service.Capture(r.Context(), cmd)
		case actionCancel:
			result, err = h.service.Cancel(r.Context(), cmd)
		case actionRefund:
			result, err = h.service.Refund(r.Context(), cmd)
		case actionReverse:
			result, err = h.service.Reverse(r.Context(), cmd)
		default:
			WriteError(w, application.NewInvalidInputError(errors.New("unknown action "+action.Action)))
			return
		}

		if err != nil {
			WriteError(w, err)
			return
		}

		resp.Outcomes = append(resp.Outcomes, modificationOutcome{
			Action:       action.Action,
			Outcome:      string(result.Outcome),
			PSPReference: result.PSPReference,
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}
