package services

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harshaldxb/leadengine/internal/apperr"
	"github.com/harshaldxb/leadengine/internal/models"
)

// MinPlatformPercentage is the platform margin floor on every split.
const MinPlatformPercentage = 30

var (
	hundred = decimal.NewFromInt(100)

	rentalRate  = decimal.RequireFromString("0.05")
	saleRate    = decimal.RequireFromString("0.02")
	defaultRate = decimal.RequireFromString("0.03")

	minimumPool = map[models.DealType]decimal.Decimal{
		models.DealRental:    decimal.NewFromInt(1000),
		models.DealSale:      decimal.NewFromInt(4000),
		models.DealDeveloper: decimal.NewFromInt(10000),
	}
)

type roleShare struct {
	role models.Role
	pct  int
}

var scenarioTemplates = map[models.Scenario][]roleShare{
	models.ScenarioHarshalOnly: {
		{models.RolePlatform, 100},
	},
	models.ScenarioSingleAgent: {
		{models.RoleAgent, 60},
		{models.RolePlatform, 40},
	},
	models.ScenarioInquiryPlusProperty: {
		{models.RoleInquiryAgent, 20},
		{models.RolePropertyAgent, 40},
		{models.RolePlatform, 40},
	},
	models.ScenarioDeveloperDirect: {
		{models.RoleDeveloper, 70},
		{models.RolePlatform, 30},
	},
	models.ScenarioRMEnterprise: {
		{models.RoleRM, 50},
		{models.RolePlatform, 50},
	},
}

// CommissionCalculator turns a closed deal into a split of its commission pool.
type CommissionCalculator struct {
	Now    func() time.Time
	Logger *slog.Logger
}

// NewCommissionCalculator returns a calculator using the wall clock.
func NewCommissionCalculator(logger *slog.Logger) *CommissionCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommissionCalculator{Now: time.Now, Logger: logger}
}

// CommissionPool returns dealValue times the deal type's rate, raised to the
// deal type's minimum.
func CommissionPool(dealValue decimal.Decimal, dealType models.DealType) (decimal.Decimal, error) {
	floor, ok := minimumPool[dealType]
	if !ok {
		return decimal.Zero, apperr.NewValidation("deal_type", fmt.Sprintf("unknown deal type %q", dealType))
	}
	rate := defaultRate
	switch dealType {
	case models.DealRental:
		rate = rentalRate
	case models.DealSale:
		rate = saleRate
	}
	pool := dealValue.Mul(rate)
	if pool.LessThan(floor) {
		pool = floor
	}
	return pool, nil
}

// SplitAmount is pool * pct / 100 rounded half-up to fils.
func SplitAmount(pool decimal.Decimal, pct int) decimal.Decimal {
	return pool.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
}

// SelectScenario picks the template for a deal: HARSHAL_ONLY for inventory
// the platform owns, INQUIRY_PLUS_PROPERTY when a different agent brought
// the client, otherwise SINGLE_AGENT.
func SelectScenario(direct bool, inquiryAgent *string) models.Scenario {
	switch {
	case direct:
		return models.ScenarioHarshalOnly
	case inquiryAgent != nil:
		return models.ScenarioInquiryPlusProperty
	}
	return models.ScenarioSingleAgent
}

// SelectScenario is the method form of the package function.
func (c *CommissionCalculator) SelectScenario(direct bool, inquiryAgent *string) models.Scenario {
	return SelectScenario(direct, inquiryAgent)
}

// Calculate computes and validates the split for a deal. participants maps
// every non-platform role of the scenario to a participant id.
func (c *CommissionCalculator) Calculate(dealValue decimal.Decimal, dealType models.DealType, scenario models.Scenario, participants map[models.Role]string) (*models.CommissionRecord, error) {
	if !dealValue.IsPositive() {
		return nil, apperr.NewValidation("deal_value", "must be positive")
	}
	tmpl, ok := scenarioTemplates[scenario]
	if !ok {
		return nil, apperr.NewValidation("scenario", fmt.Sprintf("unknown scenario %q", scenario))
	}
	pool, err := CommissionPool(dealValue, dealType)
	if err != nil {
		return nil, err
	}

	splits := make(map[models.Role]models.Split, len(tmpl))
	for _, rs := range tmpl {
		id := models.PlatformEntityID
		if rs.role != models.RolePlatform {
			id = participants[rs.role]
			if id == "" {
				return nil, apperr.NewValidation("participants", fmt.Sprintf("missing %s for %s", rs.role, scenario))
			}
		}
		splits[rs.role] = models.Split{
			ParticipantID: id,
			Amount:        SplitAmount(pool, rs.pct),
			Percentage:    rs.pct,
		}
	}

	rec := &models.CommissionRecord{
		ID:        uuid.New(),
		DealValue: dealValue,
		Pool:      pool,
		DealType:  dealType,
		Scenario:  scenario,
		Splits:    splits,
		CreatedAt: c.Now().UTC(),
	}
	if err := c.Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate re-checks a record: percentages sum to 100, the platform holds at
// least 30, and each amount equals its share of the pool.
func (c *CommissionCalculator) Validate(rec *models.CommissionRecord) error {
	if err := checkRecord(rec); err != nil {
		c.Logger.Error("commission invariant violated",
			"deal_id", rec.DealID, "scenario", rec.Scenario, "pool", rec.Pool.String(),
			"splits", rec.Splits, "error", err)
		return err
	}
	return nil
}

func checkRecord(rec *models.CommissionRecord) error {
	if len(rec.Splits) == 0 {
		return &apperr.InvariantViolation{Check: "splits", Detail: "no splits"}
	}
	total := 0
	for _, s := range rec.Splits {
		total += s.Percentage
	}
	if total != 100 {
		return &apperr.InvariantViolation{Check: "percentage_sum", Detail: fmt.Sprintf("sum is %d", total)}
	}
	platform, ok := rec.Splits[models.RolePlatform]
	if !ok || platform.Percentage < MinPlatformPercentage {
		return &apperr.InvariantViolation{Check: "platform_floor", Detail: fmt.Sprintf("platform share %d%% below %d%%", platform.Percentage, MinPlatformPercentage)}
	}

	roles := make([]string, 0, len(rec.Splits))
	for r := range rec.Splits {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		s := rec.Splits[models.Role(r)]
		want := SplitAmount(rec.Pool, s.Percentage)
		if !s.Amount.Equal(want) {
			return &apperr.InvariantViolation{Check: "amount", Detail: fmt.Sprintf("%s amount %s, want %s", r, s.Amount, want)}
		}
	}
	return nil
}
