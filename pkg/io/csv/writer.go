package csv

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	gio "github.com/hed1ad/goguardts/pkg/io"
)

var (
	_ gio.Reader = (*Reader)(nil)
	_ gio.Writer = (*Writer)(nil)
)

var header = []string{"index", "score", "label", "left_index", "right_index"}

// Writer writes detection results as CSV rows.
type Writer struct {
	closer io.Closer
	writer *csv.Writer
}

// NewWriter creates a result writer on filename, truncating it.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w, err := NewWriterTo(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.closer = file

	return w, nil
}

// NewWriterTo creates a result writer on dst and writes the header row.
// Closing the Writer flushes but does not close dst.
func NewWriterTo(dst io.Writer) (*Writer, error) {
	w := &Writer{writer: csv.NewWriter(dst)}
	if err := w.writer.Write(header); err != nil {
		return nil, err
	}
	return w, nil
}

// Write outputs a single result.
func (w *Writer) Write(result gio.Result) error {
	label := "0"
	if result.IsAnomaly {
		label = "1"
	}

	return w.writer.Write([]string{
		strconv.Itoa(result.Index),
		strconv.FormatFloat(result.Score, 'g', -1, 64),
		label,
		strconv.Itoa(result.LeftIndex),
		strconv.Itoa(result.RightIndex),
	})
}

// WriteAll outputs multiple results.
func (w *Writer) WriteAll(results []gio.Result) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Flush writes buffered rows to the destination.
func (w *Writer) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes buffered rows and releases resources.
func (w *Writer) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
