package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultInvitationTTLDays is how long group invitations stay open when
// the config file does not say otherwise.
const DefaultInvitationTTLDays = 7

// Config represents the application configuration
type Config struct {
	DatabaseURL         string `yaml:"databaseURL" validate:"required"`
	GmailSender         string `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
	InvitationTTLDays   int    `yaml:"invitationTTLDays,omitempty" validate:"omitempty,min=1"`
	NotificationBaseURL string `yaml:"notificationBaseURL,omitempty" validate:"omitempty,url"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration with an environment
// suffix. For example, env="test" will look for "portal_config.test.yaml".
// It looks for the config file in the current directory first, then in the
// user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.InvitationTTLDays == 0 {
		cfg.InvitationTTLDays = DefaultInvitationTTLDays
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// findConfigFile searches for portal_config.yaml in current directory and
// home directory, with an optional environment suffix
func findConfigFile(env string) (string, error) {
	configFileName := "portal_config.yaml"
	if env != "" {
		configFileName = "portal_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
