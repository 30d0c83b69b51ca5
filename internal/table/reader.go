package table

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/xuri/excelize/v2"
)

// ReadOptions tunes file reading.
type ReadOptions struct {
	// Sheet selects the worksheet of an XLSX workbook. The first sheet is
	// used when empty.
	Sheet string
}

// ReadFile reads a CSV, XLSX or JSON table, choosing the reader by extension.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var t *Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		t, err = ReadCSV(f)
	case ".xlsx", ".xlsm":
		t, err = ReadXLSX(f, opts.Sheet)
	case ".json":
		t, err = ReadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %q (expected .csv, .xlsx or .json)", common.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	t.Source = path
	return t, nil
}

// ReadCSV reads a header row followed by data rows. Numeric-looking cells
// become float64 and blank cells become missing.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return FromStringRows(rows)
}

// ReadXLSX reads a worksheet of an XLSX workbook.
func ReadXLSX(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrEmptyTable)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return FromStringRows(rows)
}

// FromStringRows builds a table from a header row plus data rows of text.
func FromStringRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, common.ErrEmptyTable
	}

	header := rows[0]
	width := len(header)
	for _, row := range rows[1:] {
		if len(row) > width {
			width = len(row)
		}
	}

	t := &Table{Columns: make([]Column, width)}
	for i := range t.Columns {
		if i < len(header) {
			label := strings.TrimSpace(header[i])
			t.Columns[i].Label = label
			t.Columns[i].HasLabel = label != "" && !IsMissing(label)
		}
		t.Columns[i].Values = make([]any, 0, len(rows)-1)
	}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		for i := range t.Columns {
			var cell any
			if i < len(row) {
				cell = ParseCell(row[i])
			}
			t.Columns[i].Values = append(t.Columns[i].Values, cell)
		}
	}

	if t.Rows() == 0 {
		return nil, common.ErrEmptyTable
	}
	t.InferKinds()
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ReadJSON reads an array of objects. Columns follow the key order of the
// first object, then the order in which new keys appear.
func ReadJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var keys []string
	var rows []map[string]any
	seen := make(map[string]bool)

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make(map[string]any)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("failed to parse JSON: %w", err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, fmt.Errorf("failed to parse JSON: unexpected token %v", tok)
			}
			var value any
			if err := dec.Decode(&value); err != nil {
				return nil, fmt.Errorf("failed to parse JSON value for %q: %w", key, err)
			}
			row[key] = jsonCell(value)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return FromRecords(keys, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse JSON: unexpected end of input")
		}
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("failed to parse JSON: expected %q, got %v", want, tok)
	}
	return nil
}

func jsonCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case string:
		return ParseCell(x)
	case bool:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// FromRecords builds a table from key→value rows. When keys is nil the
// column order is the sorted union of all keys.
func FromRecords(keys []string, rows []map[string]any) (*Table, error) {
	if len(rows) == 0 {
		return nil, common.ErrEmptyTable
	}
	if keys == nil {
		set := make(map[string]bool)
		for _, row := range rows {
			for k := range row {
				if !set[k] {
					set[k] = true
					keys = append(keys, k)
				}
			}
		}
		sort.Strings(keys)
	}

	t := &Table{Columns: make([]Column, len(keys))}
	for i, k := range keys {
		label := strings.TrimSpace(k)
		t.Columns[i] = Column{
			Label:    label,
			HasLabel: label != "" && !IsMissing(label),
			Values:   make([]any, len(rows)),
		}
		for j, row := range rows {
			v := row[k]
			if s, ok := v.(string); ok {
				v = ParseCell(s)
			}
			if IsMissing(v) {
				v = nil
			}
			t.Columns[i].Values[j] = v
		}
	}
	t.InferKinds()
	return t, nil
}

// FromRows builds a table from key→value rows with sorted column order.
func FromRows(rows []map[string]any) (*Table, error) {
	return FromRecords(nil, rows)
}
