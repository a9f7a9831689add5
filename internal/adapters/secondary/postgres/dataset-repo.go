package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"fuel-blend-prediction-service/internal/core/domain"
	output "fuel-blend-prediction-service/internal/core/ports/output"
)

// Querier is the part of *pgxpool.Pool used by the dataset repository
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

var _ Querier = (*pgxpool.Pool)(nil)

type datasetRepo struct {
	db    Querier
	table string
}

// NewDatasetRepository creates a DatasetSource reading a whole table.
// table may be schema qualified ("public.test_data").
func NewDatasetRepository(db Querier, table string) output.DatasetSource {
	return &datasetRepo{db: db, table: table}
}

func (r *datasetRepo) Describe() string {
	return "postgres://" + r.table
}

func (r *datasetRepo) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrDataSource, err)
	}
	return nil
}

func (r *datasetRepo) selectAll() string {
	return "SELECT * FROM " + pgx.Identifier(strings.Split(r.table, ".")).Sanitize()
}

func (r *datasetRepo) Load(ctx context.Context) (*domain.Frame, error) {
	rows, err := r.db.Query(ctx, r.selectAll())
	if err != nil {
		return nil, r.wrap(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, r.wrap(err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap(err)
	}

	frame, err := domain.NewFrame(columns, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDataSource, r.table, err)
	}
	return frame, nil
}

func (r *datasetRepo) wrap(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: table %s does not exist: %w", domain.ErrDataSource, r.table, err)
	}
	return fmt.Errorf("%w: select from %s: %w", domain.ErrDataSource, r.table, err)
}

// normalizeValue maps pgx decoded values onto the scalars a Frame carries.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, time.Time, map[string]any, []any:
		return t
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return finite(float64(t))
	case float64:
		return finite(t)
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return finite(f.Float64)
	case [16]byte:
		return uuid.UUID(t).String()
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// finite drops NaN and infinities, which have no JSON encoding.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
