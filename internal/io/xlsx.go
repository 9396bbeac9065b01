package io

import (
	"context"
	"fmt"
	"os"
	"time"

	"etl-tools/internal/frame"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// LoadSheet reads one worksheet of an Excel workbook into a table. The first row
// is the header. Rows shorter than the header are padded with empty cells.
// Inference, overrides, column selection and the error policy match LoadFile.
func LoadSheet(log *zap.Logger, path string, opts ...Option) (arrow.Table, error) {
	log = orConsole(log)
	o := newLoadOptions(opts)

	start := time.Now()
	log.Info(fmt.Sprintf("Loading file %s.", path))
	tbl, err := loadSheet(log, path, o)
	if err != nil {
		logReadFailure(log, path, err)
		return nil, err
	}
	log.Info(fmt.Sprintf("File %s loaded in %s sec.", path, elapsed(start)))
	return tbl, nil
}

func loadSheet(log *zap.Logger, path string, o loadOptions) (arrow.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn(fmt.Sprintf("Failed to close workbook %s: %v", path, err))
		}
	}()

	sheet, err := pickSheet(f, o.sheet)
	if err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("Reading sheet '%s' of %s.", sheet, path))

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet '%s': %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	header := rows[0]
	data := rows[1:]
	for i, row := range data {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			data[i] = padded
		}
	}

	fo, err := o.frameOptions(log, path)
	if err != nil {
		return nil, err
	}
	tbl, stats, err := frame.BuildStrings(header, data, fo)
	if err != nil {
		return nil, err
	}
	summarizeSkipped(log, path, stats)
	return tbl, nil
}

// pickSheet returns name if the workbook has it, otherwise the active sheet.
func pickSheet(f *excelize.File, name string) (string, error) {
	if name != "" {
		for _, s := range f.GetSheetList() {
			if s == name {
				return name, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found", name)
	}
	if active := f.GetSheetName(f.GetActiveSheetIndex()); active != "" {
		return active, nil
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptyFile
	}
	return sheets[0], nil
}

// sheetLoader adapts LoadSheet to the Loader interface.
type sheetLoader struct {
	path string
	opts []Option
}

func (l *sheetLoader) Load(_ context.Context, log *zap.Logger) (arrow.Table, error) {
	return LoadSheet(log, l.path, l.opts...)
}
