package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProbabilityPlaces is the scale probabilities are stored with (DECIMAL(4,3))
const ProbabilityPlaces = 3

// Probability converts a ratio to its stored form
func Probability(p float64) decimal.Decimal {
	return decimal.NewFromFloat(p).Round(ProbabilityPlaces)
}

// SimulationSummary is the persisted result of one forecast over a period
type SimulationSummary struct {
	ID                  int64           `json:"id"`
	ProductID           uuid.UUID       `json:"product_id"`
	ProbabilityMissing  decimal.Decimal `json:"probability_losses_by_missing"`
	ProbabilityNoSpace  decimal.Decimal `json:"probability_losses_by_nospace"`
	ProbabilityExpired  decimal.Decimal `json:"probability_losses_by_expirat"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	FirstDateWithLosses *time.Time      `json:"first_date_with_losses,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`

	Days []SimulationSummaryDay `json:"days,omitempty"`
}

// HasLoss reports whether any loss mode has a probability above zero
func (s SimulationSummary) HasLoss() bool {
	return s.ProbabilityMissing.IsPositive() ||
		s.ProbabilityNoSpace.IsPositive() ||
		s.ProbabilityExpired.IsPositive()
}

// SimulationSummaryDay is the per date breakdown of a SimulationSummary
type SimulationSummaryDay struct {
	SummaryID          int64           `json:"product_simulation_summary_id"`
	Date               time.Time       `json:"date"`
	ProbabilityMissing decimal.Decimal `json:"probability_losses_by_missing"`
	ProbabilityNoSpace decimal.Decimal `json:"probability_losses_by_nospace"`
	ProbabilityExpired decimal.Decimal `json:"probability_losses_by_expirat"`
}
