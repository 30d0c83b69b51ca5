package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/service"
	"github.com/Veraticus/carbonsync/internal/table"
)

func TestWriteSample(t *testing.T) {
	series := service.Sample(42, 6)
	header := service.DisplayHeader()

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSample(&buf, formatCSV, series))

		tbl, err := table.ReadCSV(&buf)
		require.NoError(t, err)
		assert.Equal(t, header, tbl.Labels())
		assert.Equal(t, 6, tbl.Rows())
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSample(&buf, formatXLSX, series))

		tbl, err := table.ReadXLSX(&buf, sampleSheet)
		require.NoError(t, err)
		assert.Equal(t, header, tbl.Labels())
		assert.Equal(t, 6, tbl.Rows())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSample(&buf, formatJSON, series))

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 6)
		assert.Equal(t, "2023-01-01", rows[0][header[0]])
	})

	t.Run("unsupported", func(t *testing.T) {
		err := writeSample(&bytes.Buffer{}, "parquet", series)
		assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	})
}

func TestSampleCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := sampleCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--months", "3", "--seed", "1"})

	require.NoError(t, cmd.Execute())

	tbl, err := table.ReadCSV(&out)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Rows())

	cmd = sampleCmd()
	cmd.SetArgs([]string{"--months", "0"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	assert.ErrorIs(t, cmd.Execute(), common.ErrInvalidInput)
}
