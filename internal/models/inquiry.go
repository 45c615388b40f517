package models

import "time"

// Inquiry attribution status enums.
const (
	InquiryActive  = "ACTIVE"
	InquiryExpired = "EXPIRED"
)

// DefaultInquiryWindow is how long the agent who brought a client stays
// eligible for the loyalty share.
const DefaultInquiryWindow = 24 * time.Hour

// InquiryAttribution records which agent first engaged a client.
type InquiryAttribution struct {
	ClientID  string    `json:"client_id"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

// ActiveAt reports whether the attribution is ACTIVE and not past expiry.
func (a *InquiryAttribution) ActiveAt(now time.Time) bool {
	return a.Status == InquiryActive && now.Before(a.ExpiresAt)
}
