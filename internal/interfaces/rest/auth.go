package rest

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/velstore/giftcard-connector/internal/application"
)

type operationsClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// jwtGuard protects the operations surface. Tokens are HS256 bearer JWTs
// minted by the checkout platform; the configured scope must appear in the
// token's space-separated scope claim.
func (h *Handler) jwtGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			WriteError(w, application.NewUnauthorizedError())
			return
		}

		claims := &operationsClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimSpace(header[7:]),
			claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return h.jwtSecret, nil
			},
		)
		if err != nil || !token.Valid {
			WriteError(w, application.NewUnauthorizedError())
			return
		}

		if !hasScope(claims.Scope, h.requiredScope) {
			h.logger.Warn("operations token missing required scope", "required", h.requiredScope)
			WriteError(w, application.NewUnauthorizedError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func hasScope(scopes, required string) bool {
	for _, s := range strings.Fields(scopes) {
		if s == required {
			return true
		}
	}
	return false
}
