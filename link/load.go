package link

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// Column names the loader understands.
const (
	ColumnURL        = "URL"
	ColumnCategory   = "Category"
	ColumnStreamType = "Stream Type"
)

var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrNoHeader is returned for input without a header row.
	ErrNoHeader = errors.New("input has no header row")
	// ErrMissingURLColumn is returned when the header lacks a URL column.
	ErrMissingURLColumn = errors.New("input has no URL column")
	// ErrTooManyFields is returned for a row with data beyond the header.
	ErrTooManyFields = errors.New("row has more cells than the header")
)

// LoadCSV reads the CSV file at path. The file is memory-mapped read-only so
// large link lists are parsed without an intermediate copy.
func LoadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrNoHeader
	}

	mapped, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap input: %w", err)
	}
	table, parseErr := ParseCSV(bytes.NewReader(mapped))
	if unmapErr := mapped.Unmap(); unmapErr != nil && parseErr == nil {
		return nil, fmt.Errorf("unmap input: %w", unmapErr)
	}
	return table, parseErr
}

// ParseCSV parses CSV text into a Table. Rows shorter than the header are
// padded with empty cells. A row with non-empty cells beyond the header width
// is rejected with ErrTooManyFields; empty trailing cells are dropped.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &Table{Header: header}
	urlCol := table.Column(ColumnURL)
	if urlCol < 0 {
		return nil, ErrMissingURLColumn
	}
	categoryCol := table.Column(ColumnCategory)
	streamCol := table.Column(ColumnStreamType)

	for {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Records)+2, readErr)
		}
		if extra := row[min(len(row), len(header)):]; hasContent(extra) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d cells, header has %d",
				ErrTooManyFields, line, len(row), len(header))
		}
		fields := make([]string, len(header))
		copy(fields, row)

		rec := Record{
			URL:        fields[urlCol],
			StreamType: DefaultStreamType,
			Fields:     fields,
		}
		if categoryCol >= 0 {
			rec.Category = fields[categoryCol]
		}
		if streamCol >= 0 {
			rec.RawStreamType = fields[streamCol]
			rec.StreamType = ParseStreamType(rec.RawStreamType)
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

func hasContent(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
