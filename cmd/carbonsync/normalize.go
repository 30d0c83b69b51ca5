package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Veraticus/carbonsync/internal/cli"
	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/service"
	"github.com/Veraticus/carbonsync/internal/table"
)

func normalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [files...]",
		Short: "Map operational tables onto the canonical emissions schema",
		Long: `Read CSV, XLSX or JSON tables, detect which column holds which activity,
convert units and dates, and print the canonical rows with summary statistics.

Glob patterns are expanded, so "normalize data/*.csv" processes every file.
With --save each normalized table is stored as a dataset for later forecasts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runNormalize,
	}

	cmd.Flags().String("sheet", "", "worksheet to read from XLSX files (default: first sheet)")
	cmd.Flags().Bool("save", false, "save each normalized table as a dataset")
	cmd.Flags().String("name", "", "dataset name (default: file name; only with a single file)")
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json)")
	cmd.Flags().String("out", "", "write the canonical JSON to this file (only with a single file)")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	sheet, _ := cmd.Flags().GetString("sheet")
	save, _ := cmd.Flags().GetBool("save")
	name, _ := cmd.Flags().GetString("name")
	output, _ := cmd.Flags().GetString("output")
	outFile, _ := cmd.Flags().GetString("out")

	if err := validateOutput(output); err != nil {
		return err
	}

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) > 1 && (name != "" || outFile != "") {
		return fmt.Errorf("%w: --name and --out need a single input file, got %d", common.ErrInvalidInput, len(paths))
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	s, err := openSession(ctx, save)
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	progress := cli.NewProgress(cmd.ErrOrStderr(), len(paths), "Normalizing")

	for i, path := range paths {
		handler.SetPending(len(paths) - i)
		progress.Describe(filepath.Base(path))

		t, err := table.ReadFile(path, table.ReadOptions{Sheet: sheet})
		if err != nil {
			return err
		}

		resp, err := s.svc.Normalize(ctx, t)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if save {
			ds, err := saveNormalized(ctx, s, path, name, resp)
			if err != nil {
				return err
			}
			slog.Info("Saved dataset", "id", ds.ID, "name", ds.Name, "rows", ds.RowCount)
		}

		if outFile != "" {
			if err := writeJSONFile(outFile, resp); err != nil {
				return err
			}
			slog.Info("Wrote canonical data", "path", outFile, "rows", len(resp.Data))
		}

		if err := printNormalized(w, output, path, resp); err != nil {
			return err
		}

		progress.Step()
	}
	handler.SetPending(0)

	return nil
}

func saveNormalized(ctx context.Context, s *session, path, name string, resp *service.NormalizeResponse) (*model.Dataset, error) {
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	ds := &model.Dataset{Name: name, Source: path}
	if err := s.store.SaveDataset(ctx, ds, resp.Data, resp.Mapping); err != nil {
		return nil, fmt.Errorf("failed to save dataset %q: %w", name, err)
	}
	return ds, nil
}

func printNormalized(w io.Writer, output, path string, resp *service.NormalizeResponse) error {
	if output == outputJSON {
		return writeJSON(w, resp)
	}

	notes := []string{cli.FormatSuccess(resp.Message), fmt.Sprintf("%d rows", resp.Summary.TotalRows)}
	if resp.MergedRows > 0 {
		notes = append(notes, fmt.Sprintf("%d duplicate-date rows averaged", resp.MergedRows))
	}
	if resp.SyntheticDates > 0 {
		notes = append(notes, cli.FormatWarning(fmt.Sprintf("%d dates synthesized", resp.SyntheticDates)))
	}
	for _, f := range model.NumericFields {
		if n := resp.Imputed[f]; n > 0 {
			notes = append(notes, fmt.Sprintf("%d %s values imputed", n, f))
		}
	}
	if len(resp.MissingFields) > 0 {
		missing := lo.Map(resp.MissingFields, func(f model.Field, _ int) string { return string(f) })
		notes = append(notes, "zero-filled: "+strings.Join(missing, ", "))
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n",
		cli.RenderBox(cli.FolderIcon+" "+filepath.Base(path), strings.Join(notes, "\n")),
		cli.RenderMapping(resp.Mapping),
		cli.RenderSummary(resp.Summary))
	return err
}
