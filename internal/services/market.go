package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// recentDealsWindow is how many recent assignments feed the response-time
// average.
const recentDealsWindow = 10

// MarketListings aggregates verified supply for a location.
type MarketListings interface {
	MarketStats(ctx context.Context, location string) (int, decimal.Decimal, error)
}

// AssignmentHistory lists winner response times of recent assignments.
type AssignmentHistory interface {
	RecentWinnerResponseTimes(ctx context.Context, location string, limit int) ([]time.Duration, error)
}

// MarketReporter builds per-location transparency reports.
type MarketReporter struct {
	Listings    MarketListings
	Assignments AssignmentHistory
	Now         func() time.Time
	Logger      *slog.Logger
}

func NewMarketReporter(listings MarketListings, assignments AssignmentHistory, logger *slog.Logger) *MarketReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketReporter{Listings: listings, Assignments: assignments, Now: time.Now, Logger: logger}
}

// Report counts market-priced listings and averages their price, and
// averages the winning response time over the last ten assignments.
func (m *MarketReporter) Report(ctx context.Context, location string) (*models.MarketReport, error) {
	loc := models.NormalizeLocation(location)
	if loc == "" {
		return nil, apperr.NewValidation("location", "required")
	}

	count, avgPrice, err := m.Listings.MarketStats(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("market stats: %w", err)
	}
	times, err := m.Assignments.RecentWinnerResponseTimes(ctx, loc, recentDealsWindow)
	if err != nil {
		return nil, fmt.Errorf("recent assignments: %w", err)
	}

	var avgSeconds float64
	if len(times) > 0 {
		var total time.Duration
		for _, d := range times {
			total += d
		}
		avgSeconds = math.Round(total.Seconds()/float64(len(times))*10) / 10
	}

	report := &models.MarketReport{
		Location:           loc,
		VerifiedProperties: count,
		AveragePrice:       avgPrice.Round(2),
		RecentDeals:        len(times),
		AvgResponseSeconds: avgSeconds,
		GeneratedAt:        m.Now().UTC(),
	}
	m.Logger.Info("market report built", "location", loc, "verified_properties", count, "recent_deals", len(times))
	return report, nil
}
