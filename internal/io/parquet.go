package io

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"etl-tools/internal/frame"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"
)

// DefaultCompression is the codec WriteParquet uses when none is given.
const DefaultCompression = "zstd"

var codecsByName = map[string]compress.Compression{
	"uncompressed": compress.Codecs.Uncompressed,
	"none":         compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"lz4":          compress.Codecs.Lz4Raw,
	"lz4_raw":      compress.Codecs.Lz4Raw,
	"zstd":         compress.Codecs.Zstd,
}

// levelRange is the inclusive level range of codecs that take a level.
type levelRange struct{ min, max int }

var codecLevels = map[compress.Compression]levelRange{
	compress.Codecs.Zstd:   {1, 22},
	compress.Codecs.Gzip:   {0, 9},
	compress.Codecs.Brotli: {0, 11},
}

// ParseCompression looks up a codec by name, case-insensitively.
func ParseCompression(name string) (compress.Compression, error) {
	if name == "" {
		name = DefaultCompression
	}
	c, ok := codecsByName[strings.ToLower(name)]
	if !ok {
		return compress.Codecs.Uncompressed, fmt.Errorf("%w: unknown codec '%s'", ErrInvalidCompression, name)
	}
	return c, nil
}

// MaxCompressionLevel returns the highest level of codec, and false for codecs without levels.
func MaxCompressionLevel(codec compress.Compression) (int, bool) {
	r, ok := codecLevels[codec]
	return r.max, ok
}

// writerProperties resolves the codec and level of a write.
func writerProperties(o writeOptions) (*parquet.WriterProperties, error) {
	codec, err := ParseCompression(o.compression)
	if err != nil {
		return nil, err
	}
	props := []parquet.WriterProperty{parquet.WithCompression(codec)}
	if r, ok := codecLevels[codec]; ok {
		level := r.max
		if o.level != nil {
			level = *o.level
		}
		if level < r.min || level > r.max {
			return nil, fmt.Errorf("%w: level %d out of range %d-%d for %s", ErrInvalidCompression, level, r.min, r.max, codec)
		}
		props = append(props, parquet.WithCompressionLevel(level))
	}
	return parquet.NewWriterProperties(props...), nil
}

// WriteParquet writes tbl to path as a Parquet file, creating parent directories.
// The arrow schema is stored in the file so column types survive a round trip.
// A partially written file is left in place on failure.
func WriteParquet(log *zap.Logger, tbl arrow.Table, path string, opts ...WriteOption) error {
	log = orConsole(log)
	o := writeOptions{compression: DefaultCompression, rowGroupSize: parquet.DefaultMaxRowGroupLen}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	log.Info(fmt.Sprintf("Writing file %s.", path))
	if err := writeParquet(tbl, path, o); err != nil {
		logWriteFailure(log, path, err)
		return err
	}
	log.Info(fmt.Sprintf("File %s written in %s sec.", path, elapsed(start)))
	return nil
}

func writeParquet(tbl arrow.Table, path string, o writeOptions) error {
	if tbl == nil {
		return errors.New("no table to write")
	}
	props, err := writerProperties(o)
	if err != nil {
		return err
	}
	if o.rowGroupSize <= 0 {
		return fmt.Errorf("row group size must be positive, got %d", o.rowGroupSize)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for '%s': %w", path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	// WriteTable closes f once the footer is written; the deferred close only
	// matters when it fails before that.
	defer f.Close()

	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	return pqarrow.WriteTable(tbl, f, o.rowGroupSize, props, arrowProps)
}

// ReadParquet reads a Parquet file, optionally only the named columns in that order.
// On failure one error line is logged and a nil table is returned with the error.
func ReadParquet(log *zap.Logger, path string, columns ...string) (arrow.Table, error) {
	log = orConsole(log)
	log.Debug(fmt.Sprintf("Reading file %s.", path))
	tbl, err := readParquet(path, columns)
	if err != nil {
		logReadFailure(log, path, err)
		return nil, err
	}
	return tbl, nil
}

func readParquet(path string, columns []string) (arrow.Table, error) {
	rdr, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{Parallel: false, BatchSize: 64 * 1024}, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}

	indices, err := leafIndices(rdr, fr.Manifest, columns)
	if err != nil {
		return nil, err
	}
	groups := make([]int, rdr.NumRowGroups())
	for i := range groups {
		groups[i] = i
	}

	raw, err := fr.ReadRowGroups(context.Background(), indices, groups)
	if err != nil {
		return nil, err
	}
	defer raw.Release()

	tbl := frame.StripMetadata(raw)
	if len(columns) == 0 {
		return tbl, nil
	}
	defer tbl.Release()
	return frame.Select(tbl, columns...)
}

// ParquetSchema returns the arrow schema and row count of a Parquet file without reading its data.
func ParquetSchema(path string) (*arrow.Schema, int64, error) {
	rdr, err := openParquet(path)
	if err != nil {
		return nil, 0, err
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, 0, err
	}
	sc, err := fr.Schema()
	if err != nil {
		return nil, 0, err
	}
	fields := sc.Fields()
	for i := range fields {
		fields[i].Metadata = arrow.Metadata{}
	}
	return arrow.NewSchema(fields, nil), rdr.NumRows(), nil
}

func openParquet(path string) (*file.Reader, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, ErrEmptyFile
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rdr, err := file.NewParquetReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rdr, nil
}

// leafIndices resolves top-level column names to the leaf columns that store
// them; a nested column spans several leaves.
func leafIndices(rdr *file.Reader, manifest *pqarrow.SchemaManifest, columns []string) ([]int, error) {
	if len(columns) == 0 {
		all := make([]int, rdr.MetaData().Schema.NumColumns())
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	byName := make(map[string]*pqarrow.SchemaField, len(manifest.Fields))
	for i := range manifest.Fields {
		f := &manifest.Fields[i]
		byName[f.Field.Name] = f
	}
	var missing []string
	indices := make([]int, 0, len(columns))
	for _, name := range columns {
		f, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		indices = appendLeaves(indices, f)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", frame.ErrUnknownColumn, strings.Join(missing, ", "))
	}
	return indices, nil
}

func appendLeaves(dst []int, f *pqarrow.SchemaField) []int {
	if f.IsLeaf() {
		return append(dst, f.ColIndex)
	}
	for i := range f.Children {
		dst = appendLeaves(dst, &f.Children[i])
	}
	return dst
}
