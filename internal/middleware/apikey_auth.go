package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harshaldxb/leadengine/internal/models"
	"github.com/harshaldxb/leadengine/internal/repository"
)

type contextKey string

const (
	ctxAgentKey    contextKey = "agent"
	ctxOperatorKey contextKey = "operator"
)

// APIKeyRepo is the interface used by API key auth middleware.
type APIKeyRepo interface {
	FindByKeyHash(ctx context.Context, keyHash string) (*repository.APIKeyWithAgent, error)
}

// APIKeyAuth authenticates field agents by hashing the Bearer token
// (SHA-256) and looking it up in agent_api_keys. On success the agent is
// set into request context.
func APIKeyAuth(apiKeyRepo APIKeyRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			ag, ok := lookupAgent(r.Context(), apiKeyRepo, raw)
			if !ok {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAgent(r.Context(), ag)))
		})
	}
}

func lookupAgent(ctx context.Context, repo APIKeyRepo, raw string) (*models.AgentProfile, bool) {
	result, err := repo.FindByKeyHash(ctx, HashKey(raw))
	if err != nil || result == nil {
		return nil, false
	}
	return &result.Agent, true
}

// AgentFromCtx returns the authenticated agent, or nil.
func AgentFromCtx(ctx context.Context) *models.AgentProfile {
	ag, _ := ctx.Value(ctxAgentKey).(*models.AgentProfile)
	return ag
}

// WithAgent returns a context carrying the given agent.
func WithAgent(ctx context.Context, ag *models.AgentProfile) context.Context {
	return context.WithValue(ctx, ctxAgentKey, ag)
}

// OperatorFromCtx returns the authenticated operator id.
func OperatorFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxOperatorKey).(uuid.UUID)
	return id, ok
}

// WithOperator returns a context carrying the operator id.
func WithOperator(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxOperatorKey, id)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// HashKey is the digest stored for an agent API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
