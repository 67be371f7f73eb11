package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/pkg/database"
)

// SummaryRepository stores simulation summaries and their daily breakdown
type SummaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a repository over pool
func NewSummaryRepository(pool *pgxpool.Pool) *SummaryRepository {
	return &SummaryRepository{pool: pool}
}

// Save inserts the summary and its days in one transaction and returns the new id.
// summary.ID, CreatedAt and every day's SummaryID are filled in only after commit.
func (r *SummaryRepository) Save(ctx context.Context, summary *contracts.SimulationSummary) (int64, error) {
	var (
		id        int64
		createdAt time.Time
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO product_simulation_summary
				(product_id, probability_losses_by_missing, probability_losses_by_nospace,
				 probability_losses_by_expirat, start_date, end_date, first_date_with_losses)
			VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5, $6, $7)
			RETURNING id, created_at`

		if err := tx.QueryRow(ctx, query,
			summary.ProductID,
			summary.ProbabilityMissing.String(),
			summary.ProbabilityNoSpace.String(),
			summary.ProbabilityExpired.String(),
			summary.StartDate, summary.EndDate, summary.FirstDateWithLosses,
		).Scan(&id, &createdAt); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}

		if len(summary.Days) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		dayQuery := `
			INSERT INTO product_simulation_summary_by_day
				(product_simulation_summary_id, date, probability_losses_by_missing,
				 probability_losses_by_nospace, probability_losses_by_expirat)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)`

		for _, d := range summary.Days {
			batch.Queue(dayQuery, id, d.Date,
				d.ProbabilityMissing.String(), d.ProbabilityNoSpace.String(), d.ProbabilityExpired.String())
		}

		br := tx.SendBatch(ctx, batch)
		for range summary.Days {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert summary day: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}

	summary.ID = id
	summary.CreatedAt = createdAt
	for i := range summary.Days {
		summary.Days[i].SummaryID = id
	}
	return id, nil
}

const summaryColumns = `
	id, product_id,
	probability_losses_by_missing::text, probability_losses_by_nospace::text, probability_losses_by_expirat::text,
	start_date, end_date, first_date_with_losses, created_at`

// FindAll returns every summary, newest first
func (r *SummaryRepository) FindAll(ctx context.Context) ([]contracts.SimulationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM product_simulation_summary
		ORDER BY id DESC`

	return r.querySummaries(ctx, query)
}

// FindAllByProduct returns the summaries of one product, newest first
func (r *SummaryRepository) FindAllByProduct(ctx context.Context, productID uuid.UUID) ([]contracts.SimulationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM product_simulation_summary
		WHERE product_id = $1
		ORDER BY id DESC`

	return r.querySummaries(ctx, query, productID)
}

// FindDays returns the daily breakdown of a summary in date order
func (r *SummaryRepository) FindDays(ctx context.Context, summaryID int64) ([]contracts.SimulationSummaryDay, error) {
	query := `
		SELECT product_simulation_summary_id, date,
			probability_losses_by_missing::text, probability_losses_by_nospace::text, probability_losses_by_expirat::text
		FROM product_simulation_summary_by_day
		WHERE product_simulation_summary_id = $1
		ORDER BY date`

	rows, err := r.pool.Query(ctx, query, summaryID)
	if err != nil {
		return nil, fmt.Errorf("query summary days: %w", err)
	}
	defer rows.Close()

	var days []contracts.SimulationSummaryDay
	for rows.Next() {
		var (
			d                         contracts.SimulationSummaryDay
			missing, noSpace, expired string
		)
		if err := rows.Scan(&d.SummaryID, &d.Date, &missing, &noSpace, &expired); err != nil {
			return nil, fmt.Errorf("scan summary day: %w", err)
		}
		if err := parseProbabilities(missing, noSpace, expired,
			&d.ProbabilityMissing, &d.ProbabilityNoSpace, &d.ProbabilityExpired); err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

func (r *SummaryRepository) querySummaries(ctx context.Context, query string, args ...any) ([]contracts.SimulationSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []contracts.SimulationSummary
	for rows.Next() {
		var (
			s                         contracts.SimulationSummary
			missing, noSpace, expired string
			firstLoss                 *time.Time
		)
		if err := rows.Scan(
			&s.ID, &s.ProductID, &missing, &noSpace, &expired,
			&s.StartDate, &s.EndDate, &firstLoss, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if err := parseProbabilities(missing, noSpace, expired,
			&s.ProbabilityMissing, &s.ProbabilityNoSpace, &s.ProbabilityExpired); err != nil {
			return nil, err
		}
		s.FirstDateWithLosses = firstLoss
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func parseProbabilities(missing, noSpace, expired string, dst ...*decimal.Decimal) error {
	for i, raw := range []string{missing, noSpace, expired} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse probability %q: %w", raw, err)
		}
		*dst[i] = d
	}
	return nil
}

var _ contracts.SummaryRepository = (*SummaryRepository)(nil)
