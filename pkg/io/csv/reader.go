// Package csv provides CSV reading of time series and writing of detection results.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader reads rows of numeric samples from CSV files.
type Reader struct {
	closer    io.Closer
	reader    *csv.Reader
	hasHeader bool
	headers   []string

	// Column selection; all columns when both are unset
	column      string
	columnIndex int
	line        int
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithColumn selects a single column by header name.
func WithColumn(name string) Option {
	return func(r *Reader) {
		r.column = name
	}
}

// WithColumnIndex selects a single column by zero-based position.
func WithColumnIndex(i int) Option {
	return func(r *Reader) {
		r.columnIndex = i
	}
}

// NewReader creates a new CSV reader for filename.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFrom(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file

	return r, nil
}

// NewReaderFrom creates a CSV reader over an arbitrary stream.
func NewReaderFrom(src io.Reader, opts ...Option) (*Reader, error) {
	r := &Reader{
		reader:      csv.NewReader(src),
		hasHeader:   true,
		columnIndex: -1,
	}
	r.reader.TrimLeadingSpace = true

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			return nil, fmt.Errorf("csv: reading header: %w", err)
		}
		r.headers = headers
		r.line++
	}

	if r.column != "" {
		if !r.hasHeader {
			return nil, fmt.Errorf("csv: column %q selected by name but file has no header", r.column)
		}
		r.columnIndex = -1
		for i, h := range r.headers {
			if strings.TrimSpace(h) == r.column {
				r.columnIndex = i
				break
			}
		}
		if r.columnIndex < 0 {
			return nil, fmt.Errorf("csv: column %q not found in header %v", r.column, r.headers)
		}
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all rows. A malformed row is an error rather than being
// skipped, since skipping would shift the time index of later rows.
func (r *Reader) Read() ([][]float64, error) {
	var data [][]float64

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		r.line++

		row, err := r.parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", r.line, err)
		}
		data = append(data, row)
	}

	if len(data) == 0 {
		return nil, errors.New("csv: no data rows")
	}

	return data, nil
}

// Stream returns a channel of rows for real-time processing.
// Malformed rows are dropped.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	out := make(chan []float64, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				record, err := r.reader.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					continue
				}

				row, err := r.parseRow(record)
				if err != nil {
					continue
				}

				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// parseRow converts the selected fields of a record to floats.
func (r *Reader) parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}

	if r.columnIndex >= 0 {
		if r.columnIndex >= len(record) {
			return nil, fmt.Errorf("row has %d fields, column %d requested", len(record), r.columnIndex)
		}
		record = record[r.columnIndex : r.columnIndex+1]
	}

	row := make([]float64, len(record))
	for i, val := range record {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, err
		}
		row[i] = f
	}
	return row, nil
}
