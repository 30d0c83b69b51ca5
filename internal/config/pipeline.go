package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/carbonsync/internal/common"
	"github.com/Veraticus/carbonsync/internal/dates"
	"github.com/Veraticus/carbonsync/internal/forecast"
	"github.com/Veraticus/carbonsync/internal/model"
	"github.com/Veraticus/carbonsync/internal/schema"
)

// Viper keys.
const (
	KeyLogLevel     = "logging.level"
	KeyLogFormat    = "logging.format"
	KeyDatabasePath = "database.path"
	KeyHorizon      = "forecast.horizon"
	KeyPrimary      = "forecast.primary"
	KeyFourierOrder = "forecast.fourier_order"
	KeyRidgeLambda  = "forecast.ridge_lambda"
	KeyMinRows      = "forecast.min_rows"
	KeyCache        = "forecast.cache"
	KeyDateFormats  = "normalize.date_formats"
	KeyAliasFile    = "normalize.alias_file"
)

// Defaults.
const (
	DefaultConfigDir = "~/.config/carbonsync"
	DefaultDatabase  = DefaultConfigDir + "/carbonsync.db"
	DefaultHorizon   = 12
)

// Primary strategy names accepted by forecast.primary.
const (
	PrimarySeasonal = "seasonal"
	PrimaryNone     = "none"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	seasonal := forecast.DefaultSeasonalConfig()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyDatabasePath, DefaultDatabase)
	v.SetDefault(KeyHorizon, DefaultHorizon)
	v.SetDefault(KeyPrimary, PrimarySeasonal)
	v.SetDefault(KeyFourierOrder, seasonal.FourierOrder)
	v.SetDefault(KeyRidgeLambda, seasonal.RidgeLambda)
	v.SetDefault(KeyMinRows, seasonal.MinRows)
	v.SetDefault(KeyCache, false)
}

// Pipeline is the resolved configuration of the normalization and
// forecasting pipeline. It is built once and not modified afterwards.
type Pipeline struct {
	Aliases      *schema.AliasTable
	Formats      *dates.Formats
	DatabasePath string
	Seasonal     forecast.SeasonalConfig
	Horizon      int
	Cache        bool
}

// Load builds the pipeline configuration from the global viper instance.
func Load() (*Pipeline, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds the pipeline configuration from v.
func LoadFrom(v *viper.Viper) (*Pipeline, error) {
	p := &Pipeline{
		DatabasePath: ExpandPath(v.GetString(KeyDatabasePath)),
		Horizon:      v.GetInt(KeyHorizon),
		Cache:        v.GetBool(KeyCache),
		Seasonal: forecast.SeasonalConfig{
			FourierOrder: v.GetInt(KeyFourierOrder),
			RidgeLambda:  v.GetFloat64(KeyRidgeLambda),
			MinRows:      v.GetInt(KeyMinRows),
		},
	}

	switch primary := strings.ToLower(v.GetString(KeyPrimary)); primary {
	case PrimarySeasonal, "":
		p.Seasonal.Enabled = true
	case PrimaryNone:
		p.Seasonal.Enabled = false
	default:
		return nil, fmt.Errorf("%w: %s must be %q or %q, got %q",
			common.ErrInvalidConfig, KeyPrimary, PrimarySeasonal, PrimaryNone, primary)
	}

	if p.Horizon < 1 {
		return nil, fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyHorizon)
	}
	if p.Seasonal.RidgeLambda < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyRidgeLambda)
	}

	p.Formats = dates.DefaultFormats()
	if layouts := v.GetStringSlice(KeyDateFormats); len(layouts) > 0 {
		formats, err := dates.NewFormats(layouts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyDateFormats, err)
		}
		p.Formats = formats
	}

	p.Aliases = schema.DefaultAliases()
	if path := v.GetString(KeyAliasFile); path != "" {
		extra, err := LoadAliasFile(ExpandPath(path))
		if err != nil {
			return nil, err
		}
		p.Aliases = p.Aliases.Extend(extra)
	}

	return p, nil
}

// aliasFile is the YAML layout of an alias override file:
//
//	aliases:
//	  - pattern: scope 2 kwh
//	    field: energy_kwh
//	  - pattern: landfill (t)
//	    field: waste_kg
//	    unit: tons
type aliasFile struct {
	Aliases []struct {
		Pattern string `yaml:"pattern"`
		Field   string `yaml:"field"`
		Unit    string `yaml:"unit"`
	} `yaml:"aliases"`
}

// LoadAliasFile reads extra alias rules from a YAML file.
func LoadAliasFile(path string) ([]schema.Alias, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	return ParseAliases(data)
}

// ParseAliases decodes alias rules from YAML.
func ParseAliases(data []byte) ([]schema.Alias, error) {
	var file aliasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: alias file: %w", common.ErrInvalidConfig, err)
	}

	rules := make([]schema.Alias, 0, len(file.Aliases))
	for i, a := range file.Aliases {
		if strings.TrimSpace(a.Pattern) == "" {
			return nil, fmt.Errorf("%w: alias %d has no pattern", common.ErrInvalidConfig, i+1)
		}
		field, err := model.ParseField(a.Field)
		if err != nil {
			return nil, fmt.Errorf("%w: alias %q: %w", common.ErrInvalidConfig, a.Pattern, err)
		}
		rule := schema.Alias{Pattern: a.Pattern, Field: field}
		if a.Unit != "" {
			unit, err := schema.ParseUnit(a.Unit)
			if err != nil {
				return nil, fmt.Errorf("%w: alias %q: %w", common.ErrInvalidConfig, a.Pattern, err)
			}
			rule.Unit = unit
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Engine returns the forecast engine described by the configuration.
func (p *Pipeline) Engine() *forecast.Engine {
	if !p.Seasonal.Enabled {
		return forecast.NewEngine()
	}
	return forecast.NewEngine(forecast.NewSeasonal(p.Seasonal))
}
