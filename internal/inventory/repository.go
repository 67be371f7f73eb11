package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/simulation"
)

// GeneralConfRepository reads general_conf
type GeneralConfRepository struct {
	pool *pgxpool.Pool
}

// NewGeneralConfRepository creates a repository over pool
func NewGeneralConfRepository(pool *pgxpool.Pool) *GeneralConfRepository {
	return &GeneralConfRepository{pool: pool}
}

const generalConfColumns = `
	id, default_simulation_forecast_days,
	default_scenario_random_range_factor::text, default_maximum_historic_days`

// FindLast returns the newest configuration row
func (r *GeneralConfRepository) FindLast(ctx context.Context) (*contracts.GeneralConf, error) {
	query := `SELECT ` + generalConfColumns + `
		FROM general_conf
		ORDER BY id DESC
		LIMIT 1`

	conf, err := scanGeneralConf(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("general conf: %w", contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("find last general conf: %w", err)
	}

	return conf, nil
}

// FindAll returns every configuration row, oldest first
func (r *GeneralConfRepository) FindAll(ctx context.Context) ([]contracts.GeneralConf, error) {
	query := `SELECT ` + generalConfColumns + `
		FROM general_conf
		ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query general conf: %w", err)
	}
	defer rows.Close()

	var confs []contracts.GeneralConf
	for rows.Next() {
		conf, err := scanGeneralConf(rows)
		if err != nil {
			return nil, fmt.Errorf("scan general conf: %w", err)
		}
		confs = append(confs, *conf)
	}

	return confs, rows.Err()
}

func scanGeneralConf(row pgx.Row) (*contracts.GeneralConf, error) {
	var (
		c      contracts.GeneralConf
		factor string
	)
	if err := row.Scan(&c.ID, &c.DefaultSimulationForecastDays, &factor, &c.DefaultMaximumHistoricDays); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(factor)
	if err != nil {
		return nil, fmt.Errorf("parse random range factor %q: %w", factor, err)
	}
	c.DefaultScenarioRandomRangeFactor = d

	return &c, nil
}

// ProductPropsRepository reads product_props
type ProductPropsRepository struct {
	pool *pgxpool.Pool
}

// NewProductPropsRepository creates a repository over pool
func NewProductPropsRepository(pool *pgxpool.Pool) *ProductPropsRepository {
	return &ProductPropsRepository{pool: pool}
}

const productPropsColumns = `
	id, simulation_forecast_days, scenario_random_range_factor::text,
	maximum_historic_days, maximum_quantity, minimum_quantity,
	new_batch_default_expiration_days, active`

// FindAll returns every product
func (r *ProductPropsRepository) FindAll(ctx context.Context) ([]contracts.ProductProps, error) {
	query := `SELECT ` + productPropsColumns + `
		FROM product_props
		ORDER BY id`

	return r.query(ctx, query)
}

// FindAllByStatus returns the products whose active flag equals active
func (r *ProductPropsRepository) FindAllByStatus(ctx context.Context, active bool) ([]contracts.ProductProps, error) {
	query := `SELECT ` + productPropsColumns + `
		FROM product_props
		WHERE active = $1
		ORDER BY id`

	return r.query(ctx, query, active)
}

// FindOne returns a single product
func (r *ProductPropsRepository) FindOne(ctx context.Context, id uuid.UUID) (*contracts.ProductProps, error) {
	query := `SELECT ` + productPropsColumns + `
		FROM product_props
		WHERE id = $1`

	p, err := scanProductProps(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}

	return p, nil
}

func (r *ProductPropsRepository) query(ctx context.Context, query string, args ...any) ([]contracts.ProductProps, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query product props: %w", err)
	}
	defer rows.Close()

	var products []contracts.ProductProps
	for rows.Next() {
		p, err := scanProductProps(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product props: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

func scanProductProps(row pgx.Row) (*contracts.ProductProps, error) {
	var (
		p                              contracts.ProductProps
		forecastDays, historic, expiry *int32
		factor                         *string
	)
	if err := row.Scan(
		&p.ID, &forecastDays, &factor, &historic,
		&p.MaximumQuantity, &p.MinimumQuantity, &expiry, &p.Active,
	); err != nil {
		return nil, err
	}

	p.SimulationForecastDays = intOrNil(forecastDays)
	p.MaximumHistoricDays = intOrNil(historic)
	p.BatchExpirationDays = intOrNil(expiry)

	if factor != nil {
		d, err := decimal.NewFromString(*factor)
		if err != nil {
			return nil, fmt.Errorf("parse random range factor %q: %w", *factor, err)
		}
		p.ScenarioRandomRangeFactor = decimal.NewNullDecimal(d)
	}

	return &p, nil
}

func intOrNil(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// ProductBatchRepository reads product_batch
type ProductBatchRepository struct {
	pool *pgxpool.Pool
}

// NewProductBatchRepository creates a repository over pool
func NewProductBatchRepository(pool *pgxpool.Pool) *ProductBatchRepository {
	return &ProductBatchRepository{pool: pool}
}

const productBatchColumns = `
	id, product_id, entry_date, deadline_date, finished_date, is_finished, quantity`

// FindAll returns every batch, finished ones included
func (r *ProductBatchRepository) FindAll(ctx context.Context) ([]contracts.ProductBatch, error) {
	query := `SELECT ` + productBatchColumns + `
		FROM product_batch
		ORDER BY product_id, entry_date, id`

	return r.query(ctx, query)
}

// FindAllByProduct returns the unfinished batches of a product, oldest entry first
func (r *ProductBatchRepository) FindAllByProduct(ctx context.Context, productID uuid.UUID) ([]contracts.ProductBatch, error) {
	query := `SELECT ` + productBatchColumns + `
		FROM product_batch
		WHERE product_id = $1
		  AND NOT is_finished
		ORDER BY entry_date, id`

	return r.query(ctx, query, productID)
}

func (r *ProductBatchRepository) query(ctx context.Context, query string, args ...any) ([]contracts.ProductBatch, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query product batches: %w", err)
	}
	defer rows.Close()

	var batches []contracts.ProductBatch
	for rows.Next() {
		var b contracts.ProductBatch
		if err := rows.Scan(
			&b.ID, &b.ProductID, &b.EntryDate, &b.DeadlineDate,
			&b.FinishedDate, &b.IsFinished, &b.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan product batch: %w", err)
		}
		batches = append(batches, b)
	}

	return batches, rows.Err()
}

// MovementHistoryRepository reads product_mov_hist
type MovementHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewMovementHistoryRepository creates a repository over pool
func NewMovementHistoryRepository(pool *pgxpool.Pool) *MovementHistoryRepository {
	return &MovementHistoryRepository{pool: pool}
}

// AggregateByProductAndWeeks averages entry and withdrawal quantities per
// (week_of_year, day_of_week) for the given weeks. Weeks may wrap the year end.
func (r *MovementHistoryRepository) AggregateByProductAndWeeks(ctx context.Context, productID uuid.UUID, weeks []int) ([]simulation.MovementRecord, error) {
	if len(weeks) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			week_of_year,
			day_of_week,
			AVG(entry_qty)::text,
			AVG(withdrawal_qty)::text
		FROM product_mov_hist
		WHERE product_id = $1
		  AND week_of_year = ANY($2::int[])
		GROUP BY week_of_year, day_of_week
		ORDER BY week_of_year, day_of_week`

	weekParams := make([]int32, len(weeks))
	for i, w := range weeks {
		weekParams[i] = int32(w)
	}

	rows, err := r.pool.Query(ctx, query, productID, weekParams)
	if err != nil {
		return nil, fmt.Errorf("query movement history: %w", err)
	}
	defer rows.Close()

	var records []simulation.MovementRecord
	for rows.Next() {
		var (
			week, dow         int32
			entry, withdrawal string
		)
		if err := rows.Scan(&week, &dow, &entry, &withdrawal); err != nil {
			return nil, fmt.Errorf("scan movement history: %w", err)
		}

		rec := simulation.MovementRecord{WeekOfYear: int(week), DayOfWeek: int(dow)}
		if rec.Entry, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("parse entry average %q: %w", entry, err)
		}
		if rec.Withdrawal, err = decimal.NewFromString(withdrawal); err != nil {
			return nil, fmt.Errorf("parse withdrawal average %q: %w", withdrawal, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

var (
	_ contracts.GeneralConfRepository     = (*GeneralConfRepository)(nil)
	_ contracts.ProductPropsRepository    = (*ProductPropsRepository)(nil)
	_ contracts.ProductBatchRepository    = (*ProductBatchRepository)(nil)
	_ contracts.MovementHistoryRepository = (*MovementHistoryRepository)(nil)
)
