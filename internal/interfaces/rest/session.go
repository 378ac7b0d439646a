package rest

import (
	"context"
	"net/http"

	"github.com/velstore/giftcard-connector/internal/application"
)

type contextKey string

const cartIDKey contextKey = "cartID"

// sessionGuard authenticates the enabler's requests: the session id header
// is resolved against the commerce platform, and the session's active cart
// becomes the request's cart. No session, no cart, no access.
func (h *Handler) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(h.sessionHeader)
		if sessionID == "" {
			WriteError(w, application.NewUnauthorizedError())
			return
		}

		cartID, err := h.commerce.GetCartIDFromSession(r.Context(), sessionID)
		if err != nil {
			h.logger.Warn("session resolution failed", "error", err)
			WriteError(w, application.NewUnauthorizedError())
			return
		}

		ctx := context.WithValue(r.Context(), cartIDKey, cartID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func cartIDFromContext(ctx context.Context) string {
	cartID, _ := ctx.Value(cartIDKey).(string)
	return cartID
}
