// Package config assembles the application configuration from flags,
// environment variables and an optional config file.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"deal-matching-service/internal/matcher"
	"deal-matching-service/internal/reporter"
	apperrors "deal-matching-service/pkg/errors"
	"deal-matching-service/pkg/logger"
)

// Config holds the runtime configuration of the dealmatch CLI.
type Config struct {
	DatabaseURL  string                  `json:"database_url"`
	Limit        int                     `json:"limit"`
	OutputFormat string                  `json:"output_format"`
	LogLevel     string                  `json:"log_level"`
	LogFormat    string                  `json:"log_format"`
	Matching     *matcher.MatchingConfig `json:"matching"`
}

// Load builds the configuration from the given viper instance,
// applying defaults for anything unset.
func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("limit", matcher.DefaultCandidateLimit)
	v.SetDefault("output-format", string(reporter.FormatConsole))
	v.SetDefault("log-level", string(logger.InfoLevel))
	v.SetDefault("log-format", string(logger.TextFormat))

	cfg := &Config{
		DatabaseURL:  v.GetString("database-url"),
		Limit:        v.GetInt("limit"),
		OutputFormat: v.GetString("output-format"),
		LogLevel:     v.GetString("log-level"),
		LogFormat:    v.GetString("log-format"),
		Matching:     CreateMatchingConfig(v),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateMatchingConfig builds the matching configuration, starting
// from the production defaults and applying any overrides present in
// the viper instance.
func CreateMatchingConfig(v *viper.Viper) *matcher.MatchingConfig {
	cfg := matcher.DefaultMatchingConfig()

	overrides := map[string]func(float64){
		"matching.phone_weight":              func(val float64) { cfg.PhoneWeight = val },
		"matching.email_weight":              func(val float64) { cfg.EmailWeight = val },
		"matching.contractor_weight":         func(val float64) { cfg.ContractorWeight = val },
		"matching.brand_model_weight":        func(val float64) { cfg.BrandModelWeight = val },
		"matching.insurance_channel_weight":  func(val float64) { cfg.InsuranceChannelWeight = val },
		"matching.expense_contractor_weight": func(val float64) { cfg.ExpenseContractorWeight = val },
		"matching.similarity_threshold":      func(val float64) { cfg.SimilarityThreshold = val },
	}
	for key, apply := range overrides {
		if v.IsSet(key) {
			apply(v.GetFloat64(key))
		}
	}
	if v.IsSet("matching.date_tolerance_days") {
		cfg.DateToleranceDays = v.GetInt("matching.date_tolerance_days")
	}

	return cfg
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "limit", c.Limit, nil).
			WithSuggestion("limit must be a positive number of candidates")
	}
	if !reporter.ValidFormat(c.OutputFormat) {
		return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "output-format", c.OutputFormat, nil).
			WithSuggestion("valid formats: console, json")
	}
	if c.Matching != nil {
		if err := c.Matching.Validate(); err != nil {
			return apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "matching", err.Error(), err)
		}
	}
	return nil
}

// LoggerConfig derives the logger configuration.
func (c *Config) LoggerConfig(verbose bool) *logger.Config {
	cfg := logger.DefaultConfig()
	if c.LogLevel != "" {
		cfg.Level = logger.Level(strings.ToLower(c.LogLevel))
	}
	if c.LogFormat != "" {
		cfg.Format = logger.Format(strings.ToLower(c.LogFormat))
	}
	if verbose {
		cfg.Level = logger.DebugLevel
	}
	return cfg
}
