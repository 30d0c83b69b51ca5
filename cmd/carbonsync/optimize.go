package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/carbonsync/internal/cli"
	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/service"
)

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Simulate reductions of emission drivers",
		Long: `Estimate how much emissions would fall if some drivers were reduced.

Each --reduce names a driver and a percentage, for example
  carbonsync optimize --dataset 3f2a... --reduce energy_kwh=10 --reduce fuel_l=25

Drivers with no positive effect on emissions are reported as skipped.`,
		RunE: runOptimize,
	}

	addSeriesFlags(cmd)
	cmd.Flags().StringArrayP("reduce", "r", nil, "driver=percent reduction (repeatable)")
	cmd.Flags().Bool("baseline", false, "also print the unreduced forecast")

	return cmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	input, _ := cmd.Flags().GetString("input")
	datasetID, _ := cmd.Flags().GetString("dataset")
	output, _ := cmd.Flags().GetString("output")
	specs, _ := cmd.Flags().GetStringArray("reduce")
	baseline, _ := cmd.Flags().GetBool("baseline")

	if err := validateOutput(output); err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("%w: at least one --reduce is required", common.ErrInvalidInput)
	}

	reductions, err := parseReductions(specs)
	if err != nil {
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

	resp, err := s.svc.Optimize(ctx, service.OptimizeRequest{
		DatasetID:     datasetID,
		Series:        series,
		Suggestions:   reductions,
		HorizonMonths: horizonFlag(cmd, s.pipeline),
	})
	if err != nil {
		return err
	}

	if output == outputJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return printOptimization(cmd.OutOrStdout(), resp, baseline)
}

func printOptimization(w io.Writer, resp *service.OptimizeResponse, baseline bool) error {
	var b strings.Builder
	b.WriteString(cli.FormatTitle("Optimized forecast"))
	if resp.Cached {
		b.WriteString(" " + cli.SubtleStyle.Render("(cached)"))
	}
	b.WriteString("\n" + cli.RenderForecast(resp.OptimizedForecast) + "\n")

	if baseline && len(resp.BaselineForecast) > 0 {
		b.WriteString(cli.BoldStyle.Render("Baseline") + "\n")
		b.WriteString(cli.RenderForecast(resp.BaselineForecast) + "\n")
	}

	b.WriteString(cli.RenderSavings(resp.Savings) + "\n")

	for _, f := range resp.Skipped {
		b.WriteString(cli.FormatWarning(fmt.Sprintf("Skipped %s: reducing it does not lower emissions", f)) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
