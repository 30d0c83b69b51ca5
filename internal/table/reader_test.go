package table

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/carbonsync/internal/common"
)

func TestReadCSV(t *testing.T) {
	input := "Date,Energy (kWh), Notes\n" +
		"2023-01-01,100,ok\n" +
		"\n" +
		"2023-02-01,,late\n" +
		"2023-03-01,NaN\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, tbl.Columns, 3)
	assert.Equal(t, []string{"Date", "Energy (kWh)", "Notes"}, tbl.Labels())
	assert.Equal(t, 3, tbl.Rows())

	assert.Equal(t, KindString, tbl.Columns[0].Kind)
	assert.Equal(t, KindNumeric, tbl.Columns[1].Kind)
	assert.Equal(t, []any{100.0, nil, nil}, tbl.Columns[1].Values)
	assert.Equal(t, []any{"ok", "late", nil}, tbl.Columns[2].Values)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,energy\n"))
	assert.ErrorIs(t, err, common.ErrEmptyTable)
}

func TestReadJSON_KeyOrder(t *testing.T) {
	input := `[
		{"month": "2023-01", "energy": 10, "waste": "3.5"},
		{"month": "2023-02", "energy": null, "water": 7}
	]`

	tbl, err := ReadJSON(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"month", "energy", "waste", "water"}, tbl.Labels())
	assert.Equal(t, []any{10.0, nil}, tbl.Columns[1].Values)
	assert.Equal(t, []any{3.5, nil}, tbl.Columns[2].Values)
	assert.Equal(t, []any{nil, 7.0}, tbl.Columns[3].Values)
}

func TestReadJSON_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"a": 1}`},
		{"truncated", `[{"a": 1}`},
		{"empty input", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadJSON(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, common.ErrEmptyTable)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Month", "Scope 2 (MWh)"},
		{"2023-01-01", 1.5},
		{"2023-02-01", 2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Month", "Scope 2 (MWh)"}, tbl.Labels())
	assert.Equal(t, []any{1.5, 2.0}, tbl.Columns[1].Values)

	_, err = ReadXLSX(bytes.NewReader(buf.Bytes()), "Missing")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "plant.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date,energy\n2023-01-01,5\n"), 0o600))

	tbl, err := ReadFile(csvPath, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, csvPath, tbl.Source)

	parquet := filepath.Join(dir, "plant.parquet")
	require.NoError(t, os.WriteFile(parquet, []byte("x"), 0o600))
	_, err = ReadFile(parquet, ReadOptions{})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestFromRows(t *testing.T) {
	tbl, err := FromRows([]map[string]any{
		{"waste": 4, "date": "2023-01-01"},
		{"date": "2023-02-01", "energy": "n/a"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "energy", "waste"}, tbl.Labels())
	assert.Equal(t, KindEmpty, tbl.Columns[1].Kind)
	assert.Equal(t, KindNumeric, tbl.Columns[2].Kind)

	_, err = FromRows(nil)
	assert.ErrorIs(t, err, common.ErrEmptyTable)
}

func TestCells(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{" 12.5 ", 12.5},
		{"1e3", 1000.0},
		{"", nil},
		{"N/A", nil},
		{"Inf", "Inf"},
		{"2023-01-01", "2023-01-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCell(tt.in), "ParseCell(%q)", tt.in)
	}

	for _, v := range []any{nil, math.NaN(), " ", "null", "#N/A"} {
		assert.True(t, IsMissing(v), "IsMissing(%v)", v)
	}
	assert.False(t, IsMissing(0.0))

	f, ok := ToFloat(" 3 ")
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	_, ok = ToFloat(math.Inf(1))
	assert.False(t, ok)
	_, ok = ToFloat(true)
	assert.False(t, ok)
}
