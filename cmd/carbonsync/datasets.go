package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/carbonsync/internal/cli"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/normalize"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "ds"},
		Short:   "Manage saved datasets",
	}

	cmd.AddCommand(datasetsListCmd())
	cmd.AddCommand(datasetsShowCmd())
	cmd.AddCommand(datasetsDeleteCmd())

	return cmd
}

func datasetsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			if err := validateOutput(output); err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			datasets, err := s.store.ListDatasets(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}

			w := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(w, datasets)
			}
			if len(datasets) == 0 {
				_, err = fmt.Fprintln(w, cli.FormatInfo("No datasets saved yet. Use 'carbonsync normalize --save' to add one."))
				return err
			}
			_, err = fmt.Fprintln(w, cli.RenderDatasets(datasets))
			return err
		},
	}
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json)")
	return cmd
}

func datasetsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a dataset's mapping, statistics and stored runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output, _ := cmd.Flags().GetString("output")
			if err := validateOutput(output); err != nil {
				return err
			}

			s, err := openSession(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			ds, err := s.store.GetDataset(ctx, args[0])
			if err != nil {
				return err
			}
			series, err := s.store.GetSeries(ctx, ds.ID)
			if err != nil {
				return err
			}
			mappings, err := s.store.GetMappings(ctx, ds.ID)
			if err != nil {
				return err
			}
			runs, err := s.store.ListRuns(ctx, ds.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(w, struct {
					Dataset *model.Dataset        `json:"dataset"`
					Summary model.Summary         `json:"summary"`
					Mapping []model.ColumnMapping `json:"mapping"`
					Runs    []model.ForecastRun   `json:"runs"`
					Data    model.Series          `json:"data"`
				}{ds, normalize.Summarize(series), mappings, runs, series})
			}
			return printDataset(w, ds, series, mappings, runs)
		},
	}
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json)")
	return cmd
}

func printDataset(w io.Writer, ds *model.Dataset, series model.Series, mappings []model.ColumnMapping, runs []model.ForecastRun) error {
	info := fmt.Sprintf("ID: %s\nSource: %s\nRows: %d\nCreated: %s",
		ds.ID, ds.Source, ds.RowCount, ds.CreatedAt.Local().Format("2006-01-02 15:04"))
	if len(series) > 0 {
		info += fmt.Sprintf("\nRange: %s to %s",
			series[0].Date.Format(model.DateLayout), series.LastDate().Format(model.DateLayout))
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n%s\n",
		cli.RenderBox(ds.Name, info),
		cli.RenderMapping(mappings),
		cli.RenderSummary(normalize.Summarize(series))); err != nil {
		return err
	}

	if len(runs) == 0 {
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			string(r.Kind),
			r.Model,
			strconv.Itoa(r.Horizon),
			strconv.FormatBool(r.UsedFallback),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	_, err := fmt.Fprintln(w, cli.RenderTable([]string{"Kind", "Model", "Horizon", "Fallback", "Created"}, rows))
	return err
}

func datasetsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dataset and its stored runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			yes, _ := cmd.Flags().GetBool("yes")

			s, err := openSession(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			ds, err := s.store.GetDataset(ctx, args[0])
			if err != nil {
				return err
			}

			if !yes {
				confirmed, err := cli.Confirm(ctx, cli.NewLineReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Delete dataset %q (%d rows)?", ds.Name, ds.RowCount))
				if err != nil {
					return err
				}
				if !confirmed {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted."))
					return err
				}
			}

			if err := s.store.DeleteDataset(ctx, ds.ID); err != nil {
				return fmt.Errorf("failed to delete dataset: %w", err)
			}
			slog.Info("Deleted dataset", "id", ds.ID, "name", ds.Name)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s", ds.Name)))
			return err
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}
