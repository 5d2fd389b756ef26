// Package csv provides CSV reading of usage uploads and consumer tables, and
// CSV writing of scored results.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	tgio "github.com/hed1ad/theftguard/pkg/io"
	"github.com/hed1ad/theftguard/pkg/records"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = records.ErrMissingColumn

// idColumns is the number of leading identifier columns in a usage upload:
// consumer number, then area.
const idColumns = 2

// Reader reads usage rows from CSV. The first two columns identify the
// consumer and area; every further column is one interval reading.
type Reader struct {
	closer    io.Closer
	reader    *csv.Reader
	hasHeader bool
	headers   []string
	width     int
	err       error
}

var _ tgio.UsageReader = (*Reader)(nil)

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// NewReader opens filename for reading.
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

// NewReaderFrom reads from src, e.g. an uploaded file.
func NewReaderFrom(src io.Reader, opts ...Option) (*Reader, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	r := &Reader{
		reader:    cr,
		hasHeader: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err == io.EOF {
			return nil, errors.New("empty usage file")
		}
		if err != nil {
			return nil, err
		}
		if len(headers) < idColumns {
			return nil, fmt.Errorf("%w: usage file needs consumer and area columns, got %d columns",
				ErrMissingColumn, len(headers))
		}
		r.headers = headers
		r.width = len(headers)
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// ReadingColumns returns the names of the reading columns.
func (r *Reader) ReadingColumns() []string {
	if len(r.headers) <= idColumns {
		return nil
	}
	return r.headers[idColumns:]
}

// Read returns all rows.
func (r *Reader) Read() ([]records.UsageRow, error) {
	var rows []records.UsageRow

	for {
		row, err := r.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Stream returns a channel of rows. Reading stops at the first malformed
// record; Err reports it once the channel is closed.
func (r *Reader) Stream(ctx context.Context) (<-chan records.UsageRow, error) {
	out := make(chan records.UsageRow, 100)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				row, err := r.next()
				if err == io.EOF {
					return
				}
				if err != nil {
					r.err = err
					return
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

// Err returns the error that ended a Stream, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// next reads one record and fixes its width. Short records are padded with
// blanks, which extraction later coerces to zero.
func (r *Reader) next() (records.UsageRow, error) {
	record, err := r.reader.Read()
	if err != nil {
		return records.UsageRow{}, err
	}

	if r.width == 0 {
		r.width = max(len(record), idColumns)
	}
	if len(record) > r.width {
		line, _ := r.reader.FieldPos(0)
		return records.UsageRow{}, fmt.Errorf("line %d: %d fields, expected at most %d", line, len(record), r.width)
	}

	fields := make([]string, r.width)
	copy(fields, record)

	return records.UsageRow{
		ConsNo:   fields[0],
		AreaID:   fields[1],
		Readings: fields[idColumns:],
	}, nil
}
