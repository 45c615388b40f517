package execution

import (
	"context"
	"fmt"

	"github.com/harshaldxb/leadengine/internal/services"
)

// InsertFunc enqueues a lead alert job. cmd/api binds it to the river client
// once the client exists.
type InsertFunc func(ctx context.Context, args NotifyAgentArgs) error

// RiverGateway hands each alert to river so delivery survives restarts and
// is retried on failure.
type RiverGateway struct {
	Insert InsertFunc
}

func NewRiverGateway(insert InsertFunc) *RiverGateway {
	return &RiverGateway{Insert: insert}
}

// Send enqueues n for agentID. It returns once the job is stored, not once
// the agent has been reached.
func (g *RiverGateway) Send(ctx context.Context, agentID string, n services.LeadNotification) error {
	if err := g.Insert(ctx, NotifyAgentArgs{AuctionID: n.AuctionID, AgentID: agentID, Lead: n}); err != nil {
		return fmt.Errorf("enqueue lead alert: %w", err)
	}
	return nil
}
