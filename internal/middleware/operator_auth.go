package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// TokenValidator verifies operator JWTs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

const roleOperator = "operator"

// OperatorAuth admits requests carrying a valid operator token.
func OperatorAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, ok := operatorToken(r.Context(), tokens, raw)
			if !ok {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), id)))
		})
	}
}

// OperatorOrAgentAuth admits an operator token first and falls back to an
// agent API key.
func OperatorOrAgentAuth(tokens TokenValidator, keys APIKeyRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			if id, ok := operatorToken(r.Context(), tokens, raw); ok {
				next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), id)))
				return
			}
			if ag, ok := lookupAgent(r.Context(), keys, raw); ok {
				next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), ag)))
				return
			}
			http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func operatorToken(ctx context.Context, tokens TokenValidator, raw string) (uuid.UUID, bool) {
	id, role, err := tokens.ValidateToken(ctx, raw)
	if err != nil || role != roleOperator {
		return uuid.Nil, false
	}
	return id, true
}
