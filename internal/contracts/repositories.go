package contracts

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wonny/stocksim/internal/simulation"
)

// ⭐ SSOT: repository interfaces are defined here only

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// GeneralConfRepository reads system wide defaults
type GeneralConfRepository interface {
	FindLast(ctx context.Context) (*GeneralConf, error)
	FindAll(ctx context.Context) ([]GeneralConf, error)
}

// ProductPropsRepository reads product properties
type ProductPropsRepository interface {
	FindAll(ctx context.Context) ([]ProductProps, error)
	FindAllByStatus(ctx context.Context, active bool) ([]ProductProps, error)
	FindOne(ctx context.Context, id uuid.UUID) (*ProductProps, error)
}

// ProductBatchRepository reads stored batches
type ProductBatchRepository interface {
	FindAll(ctx context.Context) ([]ProductBatch, error)
	FindAllByProduct(ctx context.Context, productID uuid.UUID) ([]ProductBatch, error)
}

// MovementHistoryRepository reads averaged movement history
type MovementHistoryRepository interface {
	AggregateByProductAndWeeks(ctx context.Context, productID uuid.UUID, weeks []int) ([]simulation.MovementRecord, error)
}

// SummaryRepository stores and reads simulation summaries
type SummaryRepository interface {
	Save(ctx context.Context, summary *SimulationSummary) (int64, error)
	FindAll(ctx context.Context) ([]SimulationSummary, error)
	FindAllByProduct(ctx context.Context, productID uuid.UUID) ([]SimulationSummary, error)
	FindDays(ctx context.Context, summaryID int64) ([]SimulationSummaryDay, error)
}
