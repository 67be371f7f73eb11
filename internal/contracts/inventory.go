package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GeneralConf is one row of system wide simulation defaults.
// The newest row is the effective one.
type GeneralConf struct {
	ID                               int32           `json:"id"`
	DefaultSimulationForecastDays    int             `json:"default_simulation_forecast_days"`
	DefaultScenarioRandomRangeFactor decimal.Decimal `json:"default_scenario_random_range_factor"`
	DefaultMaximumHistoricDays       int             `json:"default_maximum_historic_days"`
}

// ProductProps holds per product limits and optional overrides of GeneralConf
type ProductProps struct {
	ID                        uuid.UUID           `json:"id"`
	SimulationForecastDays    *int                `json:"simulation_forecast_days,omitempty"`
	ScenarioRandomRangeFactor decimal.NullDecimal `json:"scenario_random_range_factor"`
	MaximumHistoricDays       *int                `json:"maximum_historic_days,omitempty"`
	MaximumQuantity           int64               `json:"maximum_quantity"`
	MinimumQuantity           int64               `json:"minimum_quantity"`
	BatchExpirationDays       *int                `json:"new_batch_default_expiration_days,omitempty"`
	Active                    bool                `json:"active"`
}

// ForecastDays returns the product override or the general default.
func (p ProductProps) ForecastDays(conf GeneralConf) int {
	if p.SimulationForecastDays != nil {
		return *p.SimulationForecastDays
	}
	return conf.DefaultSimulationForecastDays
}

// RandomRangeFactor returns the product override or the general default.
func (p ProductProps) RandomRangeFactor(conf GeneralConf) decimal.Decimal {
	if p.ScenarioRandomRangeFactor.Valid {
		return p.ScenarioRandomRangeFactor.Decimal
	}
	return conf.DefaultScenarioRandomRangeFactor
}

// HistoricDays returns the product override or the general default.
func (p ProductProps) HistoricDays(conf GeneralConf) int {
	if p.MaximumHistoricDays != nil {
		return *p.MaximumHistoricDays
	}
	return conf.DefaultMaximumHistoricDays
}

// LifetimeDays returns the expiration period of new batches, or fallback when unset.
func (p ProductProps) LifetimeDays(fallback int) int {
	if p.BatchExpirationDays != nil && *p.BatchExpirationDays > 0 {
		return *p.BatchExpirationDays
	}
	return fallback
}

// ProductBatch is a stored stock batch of a product
type ProductBatch struct {
	ID           int64      `json:"id"`
	ProductID    uuid.UUID  `json:"product_id"`
	EntryDate    time.Time  `json:"entry_date"`
	DeadlineDate time.Time  `json:"deadline_date"`
	FinishedDate *time.Time `json:"finished_date,omitempty"`
	IsFinished   bool       `json:"is_finished"`
	Quantity     int64      `json:"quantity"`
}
