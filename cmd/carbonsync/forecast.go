package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/carbonsync/internal/cli"
	"github.com/Veraticus/carbonsync/internal/config"
	"github.com/Veraticus/carbonsync/internal/service"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast monthly emissions and rank their drivers",
		Long: `Project emissions for the coming months from a normalized series.

The series comes either from a file (--input, normalized first unless it is
the JSON written by "normalize --out") or from a saved dataset (--dataset).
A seasonal model is tried first; short or degenerate series fall back to a
linear trend. Driver impacts and reduction suggestions are printed with it.`,
		RunE: runForecast,
	}

	addSeriesFlags(cmd)

	return cmd
}

// addSeriesFlags registers the input selection and output flags shared by
// forecast and optimize.
func addSeriesFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "table or canonical JSON file to forecast")
	cmd.Flags().StringP("dataset", "d", "", "saved dataset ID to forecast")
	cmd.Flags().Int("horizon", config.DefaultHorizon, "number of months to forecast (default: forecast.horizon)")
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json)")
	cmd.Flags().Bool("cache", false, "reuse and store results in the database (default: forecast.cache)")
}

// applyCacheFlag lets an explicit --cache override forecast.cache.
func applyCacheFlag(cmd *cobra.Command) {
	if cmd.Flags().Changed("cache") {
		cache, _ := cmd.Flags().GetBool("cache")
		viper.Set(config.KeyCache, cache)
	}
}

// horizonFlag prefers an explicit --horizon over the configured default.
func horizonFlag(cmd *cobra.Command, p *config.Pipeline) int {
	if cmd.Flags().Changed("horizon") {
		horizon, _ := cmd.Flags().GetInt("horizon")
		return horizon
	}
	return p.Horizon
}

func runForecast(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	input, _ := cmd.Flags().GetString("input")
	datasetID, _ := cmd.Flags().GetString("dataset")
	output, _ := cmd.Flags().GetString("output")

	if err := validateOutput(output); err != nil {
		return err
	}

	applyCacheFlag(cmd)
	s, err := openSession(ctx, datasetID != "")
	if err != nil {
		return err
	}
	defer s.Close()

	series, err := loadSeries(ctx, s, input, datasetID)
	if err != nil {
		return err
	}

	resp, err := s.svc.Forecast(ctx, service.ForecastRequest{
		DatasetID:     datasetID,
		Series:        series,
		HorizonMonths: horizonFlag(cmd, s.pipeline),
	})
	if err != nil {
		return err
	}

	if output == outputJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return printForecast(cmd.OutOrStdout(), resp)
}

func printForecast(w io.Writer, resp *service.ForecastResponse) error {
	status := fmt.Sprintf("Model: %s", resp.Model)
	if resp.UsedFallback {
		status += " " + cli.FormatWarning("(fallback)")
	}
	if resp.Cached {
		status += " " + cli.SubtleStyle.Render("(cached)")
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle(cli.ChartIcon + " Emissions forecast"))
	b.WriteString("\n" + status + "\n")
	b.WriteString(cli.RenderForecast(resp.Forecast) + "\n")

	if len(resp.Impacts) > 0 {
		b.WriteString(cli.BoldStyle.Render("Driver impacts") + "\n")
		b.WriteString(cli.RenderImpacts(resp.Impacts) + "\n")
	}

	if len(resp.Suggestions) > 0 {
		b.WriteString(cli.BoldStyle.Render("Suggestions") + "\n")
		for _, s := range resp.Suggestions {
			b.WriteString("  • " + s + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
