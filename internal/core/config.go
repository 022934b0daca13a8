// Package core contains the business logic for the goal companion,
// including the goal and task stores, progress reconciliation, goal
// extraction from assistant text, and the goal-creation relay.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/goal-companion/pkg/models"
)

// ConfigFileName is the name of the global configuration file in the base path.
const ConfigFileName = ".goalconfig"

// ConfigurationManager loads and validates the .goalconfig file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the root directory where .goalconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Extraction: models.ExtractionConfig{
			TitleMaxLength:       defaultTitleMaxLength,
			DescriptionMaxLength: defaultDescriptionMaxLength,
			DefaultDeadlineDays:  defaultDeadlineDays,
		},
		Relay: models.RelayConfig{MaxDepth: DefaultRelayMaxDepth},
		Dedup: models.DedupConfig{Window: DefaultDedupWindow},
		Alerts: models.AlertConfig{
			AtRiskDays: 7,
			AtRiskRate: 50,
			StallDays:  14,
		},
		AI: models.AIConfig{
			Provider:  "none",
			Model:     "gemini-2.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Log: models.LogConfig{Level: "info"},
	}
}

// LoadGlobalConfig reads .goalconfig (or .goalconfig.yaml) from the base path
// using Viper. If no file exists, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	plain := filepath.Join(cm.basePath, ConfigFileName)
	if info, err := os.Stat(plain); err == nil && !info.IsDir() {
		v.SetConfigFile(plain)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(cm.basePath)
	}

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("extraction.title_max_length", cfg.Extraction.TitleMaxLength)
	v.SetDefault("extraction.description_max_length", cfg.Extraction.DescriptionMaxLength)
	v.SetDefault("extraction.default_deadline_days", cfg.Extraction.DefaultDeadlineDays)
	v.SetDefault("relay.max_depth", cfg.Relay.MaxDepth)
	v.SetDefault("dedup.window", cfg.Dedup.Window)
	v.SetDefault("alerts.at_risk_days", cfg.Alerts.AtRiskDays)
	v.SetDefault("alerts.at_risk_rate", cfg.Alerts.AtRiskRate)
	v.SetDefault("alerts.stall_days", cfg.Alerts.StallDays)
	v.SetDefault("ai.provider", cfg.AI.Provider)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.api_key_env", cfg.AI.APIKeyEnv)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("notifications.slack.webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg.Extraction.TitleMaxLength = v.GetInt("extraction.title_max_length")
	cfg.Extraction.DescriptionMaxLength = v.GetInt("extraction.description_max_length")
	cfg.Extraction.DefaultDeadlineDays = v.GetInt("extraction.default_deadline_days")
	cfg.Relay.MaxDepth = v.GetInt("relay.max_depth")
	cfg.Dedup.Window = v.GetDuration("dedup.window")
	cfg.Alerts.AtRiskDays = v.GetInt("alerts.at_risk_days")
	cfg.Alerts.AtRiskRate = v.GetInt("alerts.at_risk_rate")
	cfg.Alerts.StallDays = v.GetInt("alerts.stall_days")
	cfg.AI.Provider = v.GetString("ai.provider")
	cfg.AI.Model = v.GetString("ai.model")
	cfg.AI.APIKeyEnv = v.GetString("ai.api_key_env")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Notifications.SlackWebhookURL = v.GetString("notifications.slack.webhook_url")

	return cfg, nil
}

var (
	validProviders = map[string]bool{"none": true, "gemini": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// ValidateConfig checks cfg for invalid values and reports every problem
// found in a single error.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Extraction.TitleMaxLength < 4 {
		errs = append(errs, fmt.Sprintf("extraction.title_max_length must be at least 4, got %d", cfg.Extraction.TitleMaxLength))
	}
	if cfg.Extraction.DescriptionMaxLength < 4 {
		errs = append(errs, fmt.Sprintf("extraction.description_max_length must be at least 4, got %d", cfg.Extraction.DescriptionMaxLength))
	}
	if cfg.Extraction.DefaultDeadlineDays < 1 {
		errs = append(errs, fmt.Sprintf("extraction.default_deadline_days must be positive, got %d", cfg.Extraction.DefaultDeadlineDays))
	}
	if cfg.Relay.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("relay.max_depth must be at least 1, got %d", cfg.Relay.MaxDepth))
	}
	if cfg.Dedup.Window <= 0 {
		errs = append(errs, fmt.Sprintf("dedup.window must be positive, got %s", cfg.Dedup.Window))
	} else if cfg.Dedup.Window > time.Hour {
		errs = append(errs, fmt.Sprintf("dedup.window must not exceed 1h, got %s", cfg.Dedup.Window))
	}
	if cfg.Alerts.AtRiskDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.at_risk_days must be non-negative, got %d", cfg.Alerts.AtRiskDays))
	}
	if cfg.Alerts.StallDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.stall_days must be non-negative, got %d", cfg.Alerts.StallDays))
	}
	if cfg.Alerts.AtRiskRate < 0 || cfg.Alerts.AtRiskRate > 100 {
		errs = append(errs, fmt.Sprintf("alerts.at_risk_rate must be between 0 and 100, got %d", cfg.Alerts.AtRiskRate))
	}
	if !validProviders[cfg.AI.Provider] {
		errs = append(errs, fmt.Sprintf("ai.provider %q is invalid, must be one of: none, gemini", cfg.AI.Provider))
	}
	if cfg.AI.Provider == "gemini" && cfg.AI.Model == "" {
		errs = append(errs, "ai.model must not be empty when ai.provider is gemini")
	}
	if cfg.AI.Provider == "gemini" && cfg.AI.APIKeyEnv == "" {
		errs = append(errs, "ai.api_key_env must not be empty when ai.provider is gemini")
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
