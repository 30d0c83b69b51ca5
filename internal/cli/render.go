package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/carbonsync/internal/model"
)

// RenderTable renders rows under headers with the theme's table styles.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.String()
}

// FormatNumber prints v with at most four decimals and no trailing zeros.
func FormatNumber(v float64) string {
	out := strconv.FormatFloat(v, 'f', 4, 64)
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if out == "-0" {
		return "0"
	}
	return out
}

// RenderSummary renders per-field statistics of a normalized series.
func RenderSummary(s model.Summary) string {
	rows := make([][]string, 0, len(model.NumericFields))
	for _, f := range model.NumericFields {
		rows = append(rows, []string{
			f.DisplayName(),
			FormatNumber(s.Mean[f]),
			FormatNumber(s.Min[f]),
			FormatNumber(s.Max[f]),
			FormatNumber(s.Std[f]),
		})
	}
	return RenderTable([]string{"Field", "Mean", "Min", "Max", "Std"}, rows)
}

// RenderMapping renders how source columns were assigned to fields.
func RenderMapping(mappings []model.ColumnMapping) string {
	rows := make([][]string, len(mappings))
	for i, m := range mappings {
		label := m.SourceLabel
		if label == "" {
			label = SubtleStyle.Render("(unlabeled)")
		}
		rows[i] = []string{strconv.Itoa(m.Position), label, string(m.Field), m.Unit, m.Stage}
	}
	return RenderTable([]string{"Column", "Label", "Field", "Unit", "Stage"}, rows)
}

// RenderForecast renders forecast points with their bands.
func RenderForecast(points []model.ForecastPoint) string {
	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{
			p.Date.Format(model.DateLayout),
			FormatNumber(p.PredictedEmissions),
			FormatNumber(p.LowerBound),
			FormatNumber(p.UpperBound),
		}
	}
	return RenderTable([]string{"Date", "Predicted", "Lower", "Upper"}, rows)
}

// RenderImpacts renders ranked driver impacts.
func RenderImpacts(impacts model.Impacts) string {
	rows := make([][]string, len(impacts))
	for i, im := range impacts {
		rows[i] = []string{
			im.Driver.DisplayName(),
			FormatNumber(im.Coefficient),
			FormatNumber(im.MeanValue),
			FormatNumber(im.ImpactScore),
		}
	}
	return RenderTable([]string{"Driver", "Coefficient", "Mean", "Impact"}, rows)
}

// RenderSavings summarizes an optimization result in one line.
func RenderSavings(s model.Savings) string {
	return fmt.Sprintf("%s %s total (%s%%)",
		BoldStyle.Render("Savings:"),
		FormatNumber(s.Total),
		FormatNumber(s.Percentage))
}

// RenderDatasets renders stored datasets.
func RenderDatasets(datasets []model.Dataset) string {
	rows := make([][]string, len(datasets))
	for i, ds := range datasets {
		rows[i] = []string{
			ds.ID,
			ds.Name,
			strconv.Itoa(ds.RowCount),
			ds.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	return RenderTable([]string{"ID", "Name", "Rows", "Created"}, rows)
}
