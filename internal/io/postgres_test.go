package io

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"etl-tools/internal/frame"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// fakeRows serves a fixed result set through the pgx.Rows interface.
type fakeRows struct {
	columns []string
	data    [][]any
	pos     int
	err     error
	closed  bool
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Scan(...any) error             { return errors.New("scan not supported") }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
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

// fakeQuerier records the last query and returns rows or err.
type fakeQuerier struct {
	rows      *fakeRows
	err       error
	gotSQL    string
	gotArgs   []any
	sawBudget bool
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.gotSQL, q.gotArgs = sql, args
	_, q.sawBudget = ctx.Deadline()
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

type numericValue string

func (n numericValue) Value() (driver.Value, error) { return string(n), nil }

type nullValue struct{}

func (nullValue) Value() (driver.Value, error) { return nil, nil }

type labelValue struct{ s string }

func (l labelValue) String() string { return "label:" + l.s }

func TestLoadQuery_Success(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	q := &fakeQuerier{rows: &fakeRows{
		columns: []string{"id", "amount", "created", "note"},
		data: [][]any{
			{int32(1), numericValue("10.50"), ts, nil},
			{int32(2), numericValue("3"), ts.Add(time.Hour), "late"},
		},
	}}
	log, logs := observedLogger()

	tbl, err := LoadQuery(context.Background(), log, q, "SELECT id, amount,\n  created, note FROM orders WHERE id > $1", WithArgs(0))
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []any{0}, q.gotArgs)
	assert.True(t, q.sawBudget)
	assert.True(t, q.rows.closed)

	assert.Equal(t, []string{"id", "amount", "created", "note"}, frame.ColumnNames(tbl))
	wantTypes := []arrow.Type{arrow.INT64, arrow.FLOAT64, arrow.TIMESTAMP, arrow.STRING}
	for i, want := range wantTypes {
		assert.Equal(t, want, tbl.Schema().Field(i).Type.ID(), "column %d", i)
	}

	info := messages(logs, zapcore.InfoLevel)
	require.Len(t, info, 2)
	assert.Equal(t, "Loading query SELECT id, amount, created, note FROM orders WHERE id > $1.", info[0])
	assert.Regexp(t, `^Query loaded 2 rows in \d+\.\d{2} sec\.$`, info[1])
}

func TestLoadQuery_KeepsCallerDeadline(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{columns: []string{"a"}, data: [][]any{{int64(1)}}}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tbl, err := LoadQuery(ctx, nil, q, "SELECT 1 AS a")
	require.NoError(t, err)
	tbl.Release()
	assert.True(t, q.sawBudget)
}

func TestLoadQuery_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		q       Querier
		wantErr string
	}{
		{"no connection", nil, "no database connection"},
		{"query error", &fakeQuerier{err: errors.New("relation does not exist")}, "relation does not exist"},
		{"iteration error", &fakeQuerier{rows: &fakeRows{columns: []string{"a"}, err: errors.New("conn reset")}}, "error during row iteration"},
		{"no columns", &fakeQuerier{rows: &fakeRows{}}, "query returned no columns"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, logs := observedLogger()
			tbl, err := LoadQuery(context.Background(), log, tc.q, "SELECT a FROM t")
			assert.Nil(t, tbl)
			assert.ErrorContains(t, err, tc.wantErr)

			errLines := messages(logs, zapcore.ErrorLevel)
			require.Len(t, errLines, 1)
			assert.True(t, strings.HasPrefix(errLines[0], "Error reading query SELECT a FROM t - Error type: "))
		})
	}
}

func TestLoadQuery_FilterAndColumns(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		columns: []string{"region", "qty", "code"},
		data: [][]any{
			{"EU", int64(5), "001"},
			{"US", int64(7), "002"},
			{"EU", int64(1), "003"},
		},
	}}

	tbl, err := LoadQuery(context.Background(), nil, q, "SELECT * FROM sales",
		WithColumns("code", "qty"),
		WithSchemaOverrides(frame.Overrides{"code": frame.String}),
		WithFilter("qty > 2"),
	)
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, [][]string{{"001", "5"}, {"002", "7"}}, frame.Strings(tbl, -1))
}

func TestNormalizeValue(t *testing.T) {
	uuid := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"int32", int32(7), int32(7)},
		{"string", "x", "x"},
		{"time", ts, ts},
		{"uuid", uuid, "12345678-9abc-def0-0123-456789abcdef"},
		{"valuer", numericValue("1.5"), "1.5"},
		{"null valuer", nullValue{}, nil},
		{"stringer", labelValue{"a"}, "label:a"},
		{"other", []int{1, 2}, "[1 2]"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeValue(tc.in))
		})
	}
}

func TestConnect_Failure(t *testing.T) {
	orig := pgxPoolNewFunc
	t.Cleanup(func() { pgxPoolNewFunc = orig })
	pgxPoolNewFunc = func(ctx context.Context, connString string) (*pgxpool.Pool, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	log, logs := observedLogger()
	pool, err := Connect(context.Background(), log, "postgres://etl:s3cret@db:5432/warehouse")
	assert.Nil(t, pool)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), "connection refused")

	errLines := messages(logs, zapcore.ErrorLevel)
	require.Len(t, errLines, 1)
	assert.NotContains(t, errLines[0], "s3cret")
}
