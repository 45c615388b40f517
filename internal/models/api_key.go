package models

import (
	"github.com/google/uuid"
)

// AgentAPIKey authenticates a field agent. Only the SHA-256 hash is stored.
type AgentAPIKey struct {
	ID        uuid.UUID `json:"id"`
	AgentID   string    `json:"agent_id"`
	KeyHash   string    `json:"-"`
	KeyPrefix string    `json:"key_prefix"`
	IsActive  bool      `json:"is_active"`
}
