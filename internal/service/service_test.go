package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/config"
	"github.com/Veraticus/carbonsync/internal/forecast"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/normalize"
	"github.com/Veraticus/carbonsync/internal/table"
	"github.com/Veraticus/carbonsync/internal/testutil"
)

func fallbackOnly(opts ...Option) *Service {
	return New(normalize.New(nil, nil), forecast.NewEngine(), opts...)
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := fallbackOnly()

	tbl, err := table.FromRecords([]string{"month", "energy_kwh", "emissions_co2e"}, []map[string]any{
		{"month": "2023-01", "energy_kwh": 100.0, "emissions_co2e": 10.0},
		{"month": "2023-02", "energy_kwh": 110.0, "emissions_co2e": 11.0},
		{"month": "2023-03", "energy_kwh": 120.0, "emissions_co2e": 12.0},
	})
	require.NoError(t, err)

	norm, err := svc.Normalize(ctx, tbl)
	require.NoError(t, err)
	require.Len(t, norm.Data, 3)
	assert.Equal(t, MsgNormalized, norm.Message)
	assert.Equal(t, 3, norm.Summary.TotalRows)
	assert.Contains(t, norm.MissingFields, model.FieldWaste)

	res, err := svc.Forecast(ctx, ForecastRequest{Series: norm.Data, HorizonMonths: 1})
	require.NoError(t, err)

	require.Len(t, res.Forecast, 1)
	assert.Equal(t, testutil.Month(2023, time.April), res.Forecast[0].Date)
	assert.Greater(t, res.Forecast[0].PredictedEmissions, 12.0)
	assert.Less(t, res.Forecast[0].PredictedEmissions, 14.0)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "linear", res.Model)
	// Three rows are too few to attribute.
	assert.Empty(t, res.Impacts)
	assert.Empty(t, res.Suggestions)
	assert.False(t, res.Cached)
}

func TestService_Forecast_Seasonal(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	p, err := config.LoadFrom(v)
	require.NoError(t, err)
	svc := FromPipeline(p)

	res, err := svc.Forecast(context.Background(), ForecastRequest{
		Series:        testutil.SeasonalSeries(24),
		HorizonMonths: 6,
	})
	require.NoError(t, err)

	assert.False(t, res.UsedFallback)
	assert.Equal(t, "seasonal", res.Model)
	assert.Len(t, res.Forecast, 6)
	assert.Len(t, res.Impacts, len(model.DriverFields))
	assert.LessOrEqual(t, len(res.Suggestions), 3)
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	svc := fallbackOnly()
	series := testutil.SeasonalSeries(6)

	tests := []struct {
		run       func() error
		wantErr   error
		name      string
		wantClass common.ErrorClass
	}{
		{
			name: "two rows",
			run: func() error {
				_, err := svc.Forecast(ctx, ForecastRequest{Series: series[:2], HorizonMonths: 3})
				return err
			},
			wantErr:   common.ErrInsufficientData,
			wantClass: common.ClassInput,
		},
		{
			name: "duplicate date",
			run: func() error {
				dup := series.Clone()
				dup[1].Date = dup[0].Date
				_, err := svc.Forecast(ctx, ForecastRequest{Series: dup, HorizonMonths: 3})
				return err
			},
			wantErr:   common.ErrDuplicateDate,
			wantClass: common.ClassInput,
		},
		{
			name: "unknown regressor",
			run: func() error {
				_, err := svc.Optimize(ctx, OptimizeRequest{
					Series:        series,
					Suggestions:   []model.Reduction{{Regressor: "solar", ReductionPct: 10}},
					HorizonMonths: 3,
				})
				return err
			},
			wantErr:   common.ErrInvalidInput,
			wantClass: common.ClassInput,
		},
		{
			name: "no date column",
			run: func() error {
				tbl := &table.Table{}
				_, err := svc.Normalize(ctx, tbl)
				return err
			},
			wantErr:   common.ErrSchema,
			wantClass: common.ClassInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)

			var userErr *common.UserError
			require.True(t, errors.As(err, &userErr))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantClass, userErr.Class)
			assert.Equal(t, 400, common.ClassOf(err).StatusCode())
		})
	}
}

func TestService_Optimize(t *testing.T) {
	svc := fallbackOnly()

	res, err := svc.Optimize(context.Background(), OptimizeRequest{
		Series:        testutil.SeasonalSeries(12),
		Suggestions:   []model.Reduction{{Regressor: model.FieldEnergy, ReductionPct: 50}},
		HorizonMonths: 3,
	})
	require.NoError(t, err)

	assert.Len(t, res.OptimizedForecast, 3)
	assert.GreaterOrEqual(t, res.Savings.Percentage, 0.0)
}

func TestService_RunCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := fallbackOnly(WithRunStore(db.Storage))
	series := testutil.SeasonalSeries(12)

	first, err := svc.Forecast(ctx, ForecastRequest{Series: series, HorizonMonths: 4})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Forecast(ctx, ForecastRequest{Series: series, HorizonMonths: 4})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	second.Cached = false
	assert.Equal(t, first, second)

	// A different horizon or different rows never reuse the run.
	other, err := svc.Forecast(ctx, ForecastRequest{Series: series, HorizonMonths: 5})
	require.NoError(t, err)
	assert.False(t, other.Cached)

	changed := series.Clone()
	changed[0].EmissionsCO2e++
	other, err = svc.Forecast(ctx, ForecastRequest{Series: changed, HorizonMonths: 4})
	require.NoError(t, err)
	assert.False(t, other.Cached)

	req := OptimizeRequest{
		Series:        series,
		Suggestions:   []model.Reduction{{Regressor: model.FieldEnergy, ReductionPct: 20}},
		HorizonMonths: 4,
	}
	opt, err := svc.Optimize(ctx, req)
	require.NoError(t, err)
	assert.False(t, opt.Cached)

	opt, err = svc.Optimize(ctx, req)
	require.NoError(t, err)
	assert.True(t, opt.Cached)

	req.Suggestions[0].ReductionPct = 30
	opt, err = svc.Optimize(ctx, req)
	require.NoError(t, err)
	assert.False(t, opt.Cached)

	runs, err := db.Storage.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestService_RunsLinkToDataset(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := fallbackOnly(WithRunStore(db.Storage))

	ds := db.SeedDataset("plant-a", testutil.SeasonalSeries(12))
	series, err := db.Storage.GetSeries(ctx, ds.ID)
	require.NoError(t, err)

	_, err = svc.Forecast(ctx, ForecastRequest{DatasetID: ds.ID, Series: series, HorizonMonths: 3})
	require.NoError(t, err)

	runs, err := db.Storage.ListRuns(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunForecast, runs[0].Kind)
	assert.Equal(t, ds.Fingerprint, runs[0].Fingerprint)

	require.NoError(t, db.Storage.DeleteDataset(ctx, ds.ID))
	runs, err = db.Storage.ListRuns(ctx, ds.ID)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

type brokenRuns struct{}

func (brokenRuns) SaveRun(context.Context, *model.ForecastRun) error {
	return errors.New("disk full")
}

func (brokenRuns) FindRun(context.Context, string, int, model.RunKind) (*model.ForecastRun, error) {
	return &model.ForecastRun{Payload: []byte("not json")}, nil
}

func TestService_RunCacheFailuresAreIgnored(t *testing.T) {
	svc := fallbackOnly(WithRunStore(brokenRuns{}))

	res, err := svc.Forecast(context.Background(), ForecastRequest{
		Series:        testutil.SeasonalSeries(6),
		HorizonMonths: 2,
	})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, res.Forecast, 2)
}

func TestSample(t *testing.T) {
	a := Sample(7, 0)
	b := Sample(7, DefaultSampleMonths)

	require.Len(t, a, DefaultSampleMonths)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Sample(8, DefaultSampleMonths))

	assert.Equal(t, testutil.Month(2023, time.January), a[0].Date)
	assert.Equal(t, testutil.Month(2024, time.December), a[23].Date)
	for _, r := range a {
		for _, f := range model.NumericFields {
			assert.GreaterOrEqual(t, r.Value(f), 0.0, "%s on %s", f, r.Date)
		}
	}

	resp := SampleResponse(a)
	assert.Equal(t, MsgSample, resp.Message)
	assert.Equal(t, DefaultSampleMonths, resp.Summary.TotalRows)
}

func TestSample_DisplayRoundTrip(t *testing.T) {
	ctx := context.Background()
	series := Sample(1, 12)

	header := DisplayHeader()
	rows := make([]map[string]any, len(series))
	for i, values := range DisplayRows(series) {
		rows[i] = make(map[string]any, len(header))
		for j, label := range header {
			rows[i][label] = values[j]
		}
	}
	assert.Equal(t, "waste (tons)", header[3])
	assert.InDelta(t, series[0].WasteKG/1000, rows[0]["waste (tons)"], 1e-12)

	tbl, err := table.FromRecords(header, rows)
	require.NoError(t, err)

	resp, err := fallbackOnly().Normalize(ctx, tbl)
	require.NoError(t, err)
	require.Len(t, resp.Data, len(series))
	assert.Empty(t, resp.MissingFields)

	for i := range series {
		assert.Equal(t, series[i].Date, resp.Data[i].Date)
		for _, f := range model.NumericFields {
			assert.InDelta(t, series[i].Value(f), resp.Data[i].Value(f), 1e-6, "%s row %d", f, i)
		}
	}
}
