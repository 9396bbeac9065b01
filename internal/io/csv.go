package io

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"etl-tools/internal/frame"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
)

// LoadFile reads a delimited text file with a header row into a table.
//
// Column types are inferred from the data unless overridden. Rows with the wrong
// number of fields, broken quoting or values that do not fit the column type are
// skipped. On failure one error line is logged and a nil table is returned along
// with the error.
func LoadFile(log *zap.Logger, path string, opts ...Option) (arrow.Table, error) {
	log = orConsole(log)
	o := newLoadOptions(opts)

	start := time.Now()
	log.Info(fmt.Sprintf("Loading file %s.", path))
	tbl, err := loadCSV(log, path, o)
	if err != nil {
		logReadFailure(log, path, err)
		return nil, err
	}
	log.Info(fmt.Sprintf("File %s loaded in %s sec.", path, elapsed(start)))
	return tbl, nil
}

func loadCSV(log *zap.Logger, path string, o loadOptions) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, rows, err := readRecords(log, f, path, o)
	if err != nil {
		return nil, err
	}

	fo, err := o.frameOptions(log, path)
	if err != nil {
		return nil, err
	}
	tbl, stats, err := frame.BuildStrings(header, rows, fo)
	if err != nil {
		return nil, err
	}
	summarizeSkipped(log, path, stats)
	return tbl, nil
}

// readRecords returns the header and every record that parsed. Records with
// broken quoting are dropped here; width checks happen while building.
func readRecords(log *zap.Logger, r io.Reader, path string, o loadOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = o.delimiter
	if o.comment != 0 {
		reader.Comment = o.comment
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows [][]string
	var broken int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				broken++
				log.Debug(fmt.Sprintf("Skipping line %d of %s: %v", perr.StartLine, path, perr.Err))
				continue
			}
			return nil, nil, err
		}
		rows = append(rows, rec)
	}
	if broken > 0 {
		log.Warn(fmt.Sprintf("Skipped %d unparseable lines in %s.", broken, path))
	}
	return header, rows, nil
}

// fileLoader adapts LoadFile to the Loader interface.
type fileLoader struct {
	path string
	opts []Option
}

func (l *fileLoader) Load(_ context.Context, log *zap.Logger) (arrow.Table, error) {
	return LoadFile(log, l.path, l.opts...)
}
