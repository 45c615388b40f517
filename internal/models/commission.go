package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scenario names a commission split template.
type Scenario string

const (
	ScenarioHarshalOnly         Scenario = "HARSHAL_ONLY"
	ScenarioSingleAgent         Scenario = "SINGLE_AGENT"
	ScenarioInquiryPlusProperty Scenario = "INQUIRY_PLUS_PROPERTY"
	ScenarioDeveloperDirect     Scenario = "DEVELOPER_DIRECT"
	ScenarioRMEnterprise        Scenario = "RM_ENTERPRISE"
)

// Role is a participant slot within a split.
type Role string

const (
	RolePlatform      Role = "harshal"
	RoleAgent         Role = "agent"
	RoleInquiryAgent  Role = "inquiry_agent"
	RolePropertyAgent Role = "property_agent"
	RoleDeveloper     Role = "developer"
	RoleRM            Role = "rm"
)

// PlatformEntityID is the participant id recorded for the platform share.
const PlatformEntityID = "HARSHAL_DXB"

// Split is one participant's share of the pool.
type Split struct {
	ParticipantID string          `json:"participant_id"`
	Amount        decimal.Decimal `json:"amount"`
	Percentage    int             `json:"percentage"`
}

// CommissionRecord is the write-once audit record of a resolved deal.
type CommissionRecord struct {
	ID        uuid.UUID       `json:"id"`
	DealID    string          `json:"deal_id"`
	DealValue decimal.Decimal `json:"deal_value"`
	Pool      decimal.Decimal `json:"commission_pool"`
	DealType  DealType        `json:"deal_type"`
	Scenario  Scenario        `json:"scenario"`
	Splits    map[Role]Split  `json:"splits"`
	CreatedAt time.Time       `json:"created_at"`
}
