package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// ErrEmptyTable is returned when a CSV has no header row.
var ErrEmptyTable = errors.New("data: csv has no header")

// ErrMalformed wraps CSV syntax errors such as an unterminated quote.
var ErrMalformed = errors.New("data: malformed csv")

// Table is a CSV held as raw strings, addressed by header name.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table and its column index. Duplicate header names keep
// the first occurrence.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		if _, ok := t.index[h]; !ok {
			t.index[h] = i
		}
	}
	return t
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Column returns the position of col, or -1.
func (t *Table) Column(col string) int {
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Value returns the cell at row r for column col. Short rows yield "".
func (t *Table) Value(r int, col string) string {
	i := t.Column(col)
	if i < 0 || i >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][i]
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ReadCSV reads a header row followed by data rows. Ragged rows are allowed;
// missing trailing cells read as empty. Cell text is kept as written; only a
// leading byte order mark is stripped from the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, readError("header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(fmt.Sprintf("row %d", len(rows)+1), err)
		}
		rows = append(rows, rec)
	}
	return NewTable(header, rows), nil
}

// readError tags CSV syntax errors with ErrMalformed; anything else is an
// I/O failure of the underlying reader.
func readError(where string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: read %s: %w", ErrMalformed, where, err)
	}
	return fmt.Errorf("data: read %s: %w", where, err)
}

// ReadCSVFile opens path on fs and reads it with ReadCSV.
func ReadCSVFile(fs afero.Fs, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}
