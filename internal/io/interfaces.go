package io

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	// ErrEmptyFile is returned when a source holds no header and no data.
	ErrEmptyFile = errors.New("no data in file")
	// ErrInvalidCompression is returned for unknown codecs or out of range levels.
	ErrInvalidCompression = errors.New("invalid compression")
)

// Loader reads one configured source into a table.
// Implementations log their own progress and failures on the given logger.
type Loader interface {
	// Load returns the table, or nil together with the error that was logged.
	// The caller owns the table and must Release it.
	Load(ctx context.Context, log *zap.Logger) (arrow.Table, error)
}

// Querier runs a SQL query. *pgx.Conn, *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
