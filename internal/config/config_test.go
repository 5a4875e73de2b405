package config

import (
	"testing"

	"github.com/spf13/viper"

	"deal-matching-service/internal/matcher"
	"deal-matching-service/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	v.Set("database-url", "postgres://localhost/crm")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Limit != matcher.DefaultCandidateLimit {
		t.Errorf("Limit = %d, expected %d", cfg.Limit, matcher.DefaultCandidateLimit)
	}
	if cfg.OutputFormat != "console" {
		t.Errorf("OutputFormat = %q, expected console", cfg.OutputFormat)
	}
	if cfg.Matching == nil {
		t.Fatal("Matching config not populated")
	}
	if cfg.Matching.PhoneWeight != matcher.PhoneMatchWeight {
		t.Errorf("PhoneWeight = %f, expected default %f", cfg.Matching.PhoneWeight, matcher.PhoneMatchWeight)
	}
}

func TestLoadRejectsInvalidLimit(t *testing.T) {
	v := viper.New()
	v.Set("limit", -5)

	if _, err := Load(v); err == nil {
		t.Error("expected an error for a negative limit")
	}
}

func TestLoadRejectsInvalidFormat(t *testing.T) {
	v := viper.New()
	v.Set("output-format", "yaml")

	if _, err := Load(v); err == nil {
		t.Error("expected an error for an unknown output format")
	}
}

func TestCreateMatchingConfigOverrides(t *testing.T) {
	v := viper.New()
	v.Set("matching.phone_weight", 0.9)
	v.Set("matching.similarity_threshold", 0.7)
	v.Set("matching.date_tolerance_days", 45)

	cfg := CreateMatchingConfig(v)

	if cfg.PhoneWeight != 0.9 {
		t.Errorf("PhoneWeight = %f, expected 0.9", cfg.PhoneWeight)
	}
	if cfg.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %f, expected 0.7", cfg.SimilarityThreshold)
	}
	if cfg.DateToleranceDays != 45 {
		t.Errorf("DateToleranceDays = %d, expected 45", cfg.DateToleranceDays)
	}
	if cfg.EmailWeight != matcher.EmailMatchWeight {
		t.Errorf("EmailWeight = %f, expected the untouched default", cfg.EmailWeight)
	}
}

func TestLoadRejectsInvalidMatchingOverride(t *testing.T) {
	v := viper.New()
	v.Set("matching.phone_weight", 1.5)

	if _, err := Load(v); err == nil {
		t.Error("expected an error for a weight above 1")
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := &Config{LogLevel: "WARN", LogFormat: "JSON"}

	logCfg := cfg.LoggerConfig(false)
	if logCfg.Level != logger.WarnLevel {
		t.Errorf("Level = %q, expected warn", logCfg.Level)
	}
	if logCfg.Format != logger.JSONFormat {
		t.Errorf("Format = %q, expected json", logCfg.Format)
	}

	if verbose := cfg.LoggerConfig(true); verbose.Level != logger.DebugLevel {
		t.Errorf("verbose Level = %q, expected debug", verbose.Level)
	}
}
