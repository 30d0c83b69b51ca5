package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/carbonsync/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{name: "valid string", str: "test", paramName: "param"},
		{name: "empty string", str: "", paramName: "param", wantErr: true},
		{name: "whitespace only", str: "   ", paramName: "param", wantErr: true},
		{name: "string with spaces", str: "  test  ", paramName: "param"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateDataset(t *testing.T) {
	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		wantErr error
		dataset *model.Dataset
		name    string
		series  model.Series
	}{
		{
			name:    "valid dataset",
			dataset: &model.Dataset{Name: "plant-a"},
			series:  model.Series{{Date: jan}, {Date: feb}},
		},
		{
			name:    "nil dataset",
			series:  model.Series{{Date: jan}},
			wantErr: ErrNilParameter,
		},
		{
			name:    "blank name",
			dataset: &model.Dataset{Name: "  "},
			series:  model.Series{{Date: jan}},
			wantErr: ErrInvalidDataset,
		},
		{
			name:    "no records",
			dataset: &model.Dataset{Name: "plant-a"},
			wantErr: ErrEmptySlice,
		},
		{
			name:    "repeated date",
			dataset: &model.Dataset{Name: "plant-a"},
			series:  model.Series{{Date: jan}, {Date: jan}},
			wantErr: ErrInvalidDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDataset(tt.dataset, tt.series)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateDataset() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateDataset() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRun(t *testing.T) {
	valid := func() *model.ForecastRun {
		return &model.ForecastRun{
			Fingerprint: "abc",
			Horizon:     12,
			Kind:        model.RunForecast,
			Model:       "linear",
			Payload:     []byte(`{}`),
		}
	}

	tests := []struct {
		wantErr error
		mutate  func(*model.ForecastRun) *model.ForecastRun
		name    string
	}{
		{name: "valid run", mutate: func(r *model.ForecastRun) *model.ForecastRun { return r }},
		{name: "nil run", mutate: func(*model.ForecastRun) *model.ForecastRun { return nil }, wantErr: ErrNilParameter},
		{name: "missing fingerprint", mutate: func(r *model.ForecastRun) *model.ForecastRun { r.Fingerprint = ""; return r }, wantErr: ErrInvalidRun},
		{name: "zero horizon", mutate: func(r *model.ForecastRun) *model.ForecastRun { r.Horizon = 0; return r }, wantErr: ErrInvalidRun},
		{name: "unknown kind", mutate: func(r *model.ForecastRun) *model.ForecastRun { r.Kind = "backtest"; return r }, wantErr: ErrInvalidRun},
		{name: "empty payload", mutate: func(r *model.ForecastRun) *model.ForecastRun { r.Payload = nil; return r }, wantErr: ErrInvalidRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRun(tt.mutate(valid()))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateRun() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRun() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
