package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/service"
)

// Sample file formats.
const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
	formatJSON = "json"
)

const sampleSheet = "Emissions"

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a demonstration emissions table",
		Long: `Write a synthetic monthly table with seasonal activity data and the
emissions they produce. The table uses human-readable column headers, so it
exercises the same column detection as real uploads:

  carbonsync sample --out demo.xlsx
  carbonsync normalize demo.xlsx --save`,
		Args: cobra.NoArgs,
		RunE: runSample,
	}

	cmd.Flags().Int("months", service.DefaultSampleMonths, "number of months to generate")
	cmd.Flags().Uint64("seed", 42, "random seed")
	cmd.Flags().String("out", "", "output file; format from extension (.csv, .xlsx, .json)")
	cmd.Flags().String("format", formatCSV, "format when writing to stdout (csv, json)")
	cmd.Flags().Bool("save", false, "also save the sample as a dataset")
	cmd.Flags().String("name", "sample", "dataset name when saving")

	return cmd
}

func runSample(cmd *cobra.Command, _ []string) error {
	months, _ := cmd.Flags().GetInt("months")
	seed, _ := cmd.Flags().GetUint64("seed")
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	name, _ := cmd.Flags().GetString("name")

	if months < 1 {
		return fmt.Errorf("%w: --months must be positive", common.ErrInvalidInput)
	}

	series := service.Sample(seed, months)

	if save {
		ctx := cmd.Context()
		s, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer s.Close()

		ds := &model.Dataset{Name: name, Source: "sample"}
		if err := s.store.SaveDataset(ctx, ds, series, nil); err != nil {
			return fmt.Errorf("failed to save sample: %w", err)
		}
		slog.Info(service.MsgSample, "dataset", ds.ID, "rows", ds.RowCount)
	}

	if out == "" {
		if format == formatXLSX {
			return fmt.Errorf("%w: xlsx output needs --out", common.ErrInvalidInput)
		}
		return writeSample(cmd.OutOrStdout(), format, series)
	}

	format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", out, err)
	}
	f, err := os.Create(out) //nolint:gosec // path comes from the user's own flag
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := writeSample(f, format, series); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	slog.Info(service.MsgSample, "path", out, "rows", len(series))
	return nil
}

// writeSample writes series in display-column form.
func writeSample(w io.Writer, format string, series model.Series) error {
	header := service.DisplayHeader()
	rows := service.DisplayRows(series)

	switch format {
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = cellText(v)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()

	case formatJSON:
		objects := make([]map[string]any, len(rows))
		for i, row := range rows {
			obj := make(map[string]any, len(header))
			for j, v := range row {
				obj[header[j]] = v
			}
			objects[i] = obj
		}
		return writeJSON(w, objects)

	case formatXLSX:
		return writeSampleXLSX(w, header, rows)

	default:
		return fmt.Errorf("%w: %q (expected csv, xlsx or json)", common.ErrUnsupportedFormat, format)
	}
}

func writeSampleXLSX(w io.Writer, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sampleSheet); err != nil {
		return err
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sampleSheet, "A1", &headerRow); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sampleSheet, cell, &row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func cellText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
