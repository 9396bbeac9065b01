package io

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"etl-tools/internal/frame"
	"etl-tools/internal/util"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgxPoolNewFunc allows overriding pgxpool.New in tests.
var pgxPoolNewFunc = pgxpool.New

// DefaultQueryTimeout bounds a LoadQuery run when the context carries no deadline.
const DefaultQueryTimeout = 60 * time.Second

// Connect opens a connection pool and checks it with a ping. Credentials in
// connStr are masked in every message.
func Connect(ctx context.Context, log *zap.Logger, connStr string) (*pgxpool.Pool, error) {
	log = orConsole(log)
	masked := util.MaskCredentials(connStr)
	log.Debug(fmt.Sprintf("Connecting to %s.", masked))

	pool, err := pgxPoolNewFunc(ctx, connStr)
	if err != nil {
		err = fmt.Errorf("failed to create connection pool (using %s): %w", masked, err)
		log.Error(err.Error())
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		err = fmt.Errorf("failed to reach database (using %s): %w", masked, err)
		log.Error(err.Error())
		return nil, err
	}
	return pool, nil
}

// LoadQuery runs query on q and loads the result set into a table. Driver values
// keep their type where the frame model has one: integers become Int64, floats
// Float64, timestamps Datetime. Everything else is stored as text unless the
// text itself infers to a narrower type.
func LoadQuery(ctx context.Context, log *zap.Logger, q Querier, query string, opts ...Option) (arrow.Table, error) {
	log = orConsole(log)
	o := newLoadOptions(opts)
	label := "query " + util.Snippet([]byte(query))

	start := time.Now()
	log.Info(fmt.Sprintf("Loading %s.", label))
	tbl, err := loadQuery(ctx, log, q, query, label, o)
	if err != nil {
		logReadFailure(log, label, err)
		return nil, err
	}
	log.Info(fmt.Sprintf("Query loaded %d rows in %s sec.", tbl.NumRows(), elapsed(start)))
	return tbl, nil
}

func loadQuery(ctx context.Context, log *zap.Logger, q Querier, query, label string, o loadOptions) (arrow.Table, error) {
	if q == nil {
		return nil, errors.New("no database connection")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultQueryTimeout)
		defer cancel()
	}

	rows, err := q.Query(ctx, query, o.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	header := make([]string, len(fds))
	for i, fd := range fds {
		header[i] = fd.Name
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row values: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("query timed out: %w", err)
		}
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	if len(header) == 0 {
		return nil, errors.New("query returned no columns")
	}

	fo, err := o.frameOptions(log, label)
	if err != nil {
		return nil, err
	}
	tbl, stats, err := frame.BuildValues(header, data, fo)
	if err != nil {
		return nil, err
	}
	summarizeSkipped(log, label, stats)
	return tbl, nil
}

// normalizeValue reduces driver specific values (numerics, UUIDs, intervals)
// to plain Go values the frame model understands.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, time.Time,
		int, int8, int16, int32, int64, uint8, uint16, uint32, uint, uint64,
		float32, float64, []byte:
		return v
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return nil
		}
		return normalizeValue(dv)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// queryLoader adapts LoadQuery to the Loader interface.
type queryLoader struct {
	q     Querier
	query string
	opts  []Option
}

func (l *queryLoader) Load(ctx context.Context, log *zap.Logger) (arrow.Table, error) {
	return LoadQuery(ctx, log, l.q, l.query, l.opts...)
}
