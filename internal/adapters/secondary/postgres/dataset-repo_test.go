package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-blend-prediction-service/internal/core/domain"
)

type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not supported") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	row := r.data[r.pos-1]
	out := make([]any, len(row))
	copy(out, row)
	return out, nil
}

type fakeQuerier struct {
	rows    pgx.Rows
	err     error
	pingErr error
	sql     string
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func (q *fakeQuerier) Ping(ctx context.Context) error { return q.pingErr }

func fields(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

func TestDatasetRepo_Load(t *testing.T) {
	id := uuid.New()
	q := &fakeQuerier{rows: &fakeRows{
		fields: fields("ID", "Component1_fraction", "Batch"),
		data: [][]any{
			{int32(1), pgtype.Numeric{Int: big.NewInt(25), Exp: -2, Valid: true}, [16]byte(id)},
			{int32(2), pgtype.Numeric{}, nil},
		},
	}}

	frame, err := NewDatasetRepository(q, "public.test_data").Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM "public"."test_data"`, q.sql)
	assert.Equal(t, []string{"ID", "Component1_fraction", "Batch"}, frame.Columns)
	assert.Equal(t, []any{int64(1), 0.25, id.String()}, frame.Rows[0])
	assert.Equal(t, []any{int64(2), nil, nil}, frame.Rows[1])
}

func TestDatasetRepo_LoadEmptyTable(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: fields("ID", "x")}}

	frame, err := NewDatasetRepository(q, "test_data").Load(context.Background())
	require.NoError(t, err)
	assert.True(t, frame.Empty())
	assert.Equal(t, []string{"ID", "x"}, frame.Columns)
}

func TestDatasetRepo_MissingTable(t *testing.T) {
	q := &fakeQuerier{err: &pgconn.PgError{Code: "42P01", Message: `relation "test_data" does not exist`}}

	_, err := NewDatasetRepository(q, "test_data").Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataSource)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestDatasetRepo_RowsError(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: fields("x"), err: errors.New("conn reset")}}

	_, err := NewDatasetRepository(q, "test_data").Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataSource)
}

func TestDatasetRepo_Ping(t *testing.T) {
	q := &fakeQuerier{pingErr: errors.New("dial tcp: connection refused")}
	repo := NewDatasetRepository(q, "test_data")

	assert.ErrorIs(t, repo.Ping(context.Background()), domain.ErrDataSource)
	assert.Equal(t, "postgres://test_data", repo.Describe())
}

func TestNormalizeValue(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"int16", int16(3), int64(3)},
		{"float32", float32(0.5), 0.5},
		{"bytes", []byte("abc"), "abc"},
		{"time", now, now},
		{"numeric nan", pgtype.Numeric{NaN: true, Valid: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.in))
		})
	}
}
