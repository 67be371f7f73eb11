package forecast

import (
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/simulation"
)

// BuildSummary turns aggregated outcomes into the persisted summary of a
// product. start and end bound the period when the outcomes are empty.
func BuildSummary(productID uuid.UUID, start, end time.Time, outcomes simulation.Outcomes) contracts.SimulationSummary {
	summary := contracts.SimulationSummary{
		ProductID:          productID,
		ProbabilityMissing: contracts.Probability(0),
		ProbabilityNoSpace: contracts.Probability(0),
		ProbabilityExpired: contracts.Probability(0),
		StartDate:          start,
		EndDate:            end,
	}

	period, ok := outcomes.Period()
	if !ok {
		return summary
	}

	summary.ProbabilityMissing = contracts.Probability(period.Missing)
	summary.ProbabilityNoSpace = contracts.Probability(period.NoSpace)
	summary.ProbabilityExpired = contracts.Probability(period.Expired)
	summary.StartDate = period.Start
	summary.EndDate = period.End
	summary.FirstDateWithLosses = period.FirstLossDate

	for _, d := range outcomes.Sorted() {
		summary.Days = append(summary.Days, contracts.SimulationSummaryDay{
			Date:               d.Date,
			ProbabilityMissing: contracts.Probability(d.Missing),
			ProbabilityNoSpace: contracts.Probability(d.NoSpace),
			ProbabilityExpired: contracts.Probability(d.Expired),
		})
	}

	return summary
}
