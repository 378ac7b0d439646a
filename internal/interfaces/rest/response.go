package rest

import (
	"encoding/json"
	"net/http"

	"github.com/velstore/giftcard-connector/internal/application"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError maps application errors to HTTP responses. Only the
// operations surface uses this; the session-scoped endpoints answer 200
// with structured failure payloads.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, application.ToHTTPStatus(err), ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: err.Error(),
		},
	})
}
