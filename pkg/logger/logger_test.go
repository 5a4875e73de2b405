package logger

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != InfoLevel {
		t.Errorf("Level = %q, expected info", cfg.Level)
	}
	if cfg.Format != TextFormat {
		t.Errorf("Format = %q, expected text", cfg.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"debug preset", DebugConfig(), false},
		{"unknown level", &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"unknown format", &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"unknown output", &Config{Level: InfoLevel, Format: TextFormat, Output: "socket"}, true},
		{"file output without path", &Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected a validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dealmatch.log")
	cfg := &Config{Level: DebugLevel, Format: JSONFormat, Output: FileOutput, File: path}

	log, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	log.WithField("policy_id", 42).Info("test entry")
}

func TestNewLoggerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewLogger(&Config{Level: "loud"}); err == nil {
		t.Error("expected an error for an invalid config")
	}
}

func TestWithFieldsChaining(t *testing.T) {
	log, err := NewLogger(DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	// Chained loggers must be independent of the parent.
	child := log.WithComponent("matcher").WithFields(Fields{"policy_id": 1})
	child.Debug("not printed at info level")
	log.Info("parent unaffected")
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	log, err := NewLogger(DebugConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	SetGlobalLogger(log)

	if GetGlobalLogger() != log {
		t.Error("global logger not replaced")
	}
}
