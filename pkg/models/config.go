package models

import "time"

// ExtractionConfig tunes the goal extraction engine.
type ExtractionConfig struct {
	TitleMaxLength       int `yaml:"title_max_length" mapstructure:"title_max_length"`
	DescriptionMaxLength int `yaml:"description_max_length" mapstructure:"description_max_length"`
	DefaultDeadlineDays  int `yaml:"default_deadline_days" mapstructure:"default_deadline_days"`
}

// RelayConfig tunes the goal-creation event relay.
type RelayConfig struct {
	MaxDepth int `yaml:"max_depth" mapstructure:"max_depth"`
}

// DedupConfig controls how duplicate goal drafts are collapsed.
type DedupConfig struct {
	Window time.Duration `yaml:"window" mapstructure:"window"`
}

// AlertConfig holds thresholds for goal deadline alerts.
type AlertConfig struct {
	AtRiskDays int `yaml:"at_risk_days" mapstructure:"at_risk_days"`
	AtRiskRate int `yaml:"at_risk_rate" mapstructure:"at_risk_rate"`
	StallDays  int `yaml:"stall_days" mapstructure:"stall_days"`
}

// AIConfig selects the text-completion backend used by the chat companion.
type AIConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// NotificationConfig holds outbound alert notification settings.
type NotificationConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
}

// GlobalConfig holds system-wide settings read from .goalconfig via Viper.
type GlobalConfig struct {
	Extraction    ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Relay         RelayConfig        `yaml:"relay" mapstructure:"relay"`
	Dedup         DedupConfig        `yaml:"dedup" mapstructure:"dedup"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	AI            AIConfig           `yaml:"ai" mapstructure:"ai"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
