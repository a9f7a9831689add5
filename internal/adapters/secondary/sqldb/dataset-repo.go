package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"fuel-blend-prediction-service/internal/core/domain"
	output "fuel-blend-prediction-service/internal/core/ports/output"
)

// Supported database/sql driver names
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PoolConfig tunes the database/sql connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a lazily connecting pool; nothing is dialled until first use.
func Open(driver, dsn string, pool PoolConfig) (*sql.DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

type datasetRepo struct {
	db     *sql.DB
	driver string
	table  string
}

// NewDatasetRepository creates a DatasetSource that reads a whole table
// through database/sql.
func NewDatasetRepository(db *sql.DB, driver, table string) output.DatasetSource {
	return &datasetRepo{db: db, driver: driver, table: table}
}

func (r *datasetRepo) Describe() string {
	return r.driver + "://" + r.table
}

func (r *datasetRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrDataSource, err)
	}
	return nil
}

func (r *datasetRepo) selectAll() string {
	return "SELECT * FROM " + quoteIdentifier(r.driver, r.table)
}

func (r *datasetRepo) Load(ctx context.Context) (*domain.Frame, error) {
	rows, err := r.db.QueryContext(ctx, r.selectAll())
	if err != nil {
		return nil, fmt.Errorf("%w: select from %s: %w", domain.ErrDataSource, r.table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: column types of %s: %w", domain.ErrDataSource, r.table, err)
	}
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}

	var data [][]any
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrDataSource, r.table, err)
		}
		for i, v := range raw {
			raw[i] = convertValue(types[i].DatabaseTypeName(), v)
		}
		data = append(data, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrDataSource, r.table, err)
	}

	frame, err := domain.NewFrame(columns, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDataSource, r.table, err)
	}
	return frame, nil
}

// quoteIdentifier quotes each dot separated part of a table name. Names are
// validated by config before they get here.
func quoteIdentifier(driver, name string) string {
	q := `"`
	if driver == DriverMySQL {
		q = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// convertValue turns driver values into Frame scalars. Drivers that hand back
// raw bytes (mysql text protocol, numeric columns in lib/pq) are parsed by
// the column's database type name.
func convertValue(dbType string, v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, time.Time:
		return t
	case float64:
		return finite(t)
	case []byte:
		return convertBytes(strings.ToUpper(dbType), string(t))
	default:
		return fmt.Sprint(t)
	}
}

func convertBytes(dbType, s string) any {
	switch {
	case strings.Contains(dbType, "INT"):
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case strings.Contains(dbType, "DECIMAL"), strings.Contains(dbType, "NUMERIC"),
		strings.Contains(dbType, "FLOAT"), strings.Contains(dbType, "DOUBLE"),
		strings.Contains(dbType, "REAL"):
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return finite(f)
		}
	case dbType == "BOOL", dbType == "BOOLEAN":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
