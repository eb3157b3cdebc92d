// Package config loads runtime settings from the environment and the
// user's preference file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. LEDGERBOOK_DB_PATH.
const EnvPrefix = "LEDGERBOOK"

// Config holds process settings.
type Config struct {
	DBPath       string `envconfig:"DB_PATH" default:"ledgerbook.db" validate:"required"`
	SettingsPath string `envconfig:"SETTINGS_PATH" default:"settings.json" validate:"required"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFilePath  string `envconfig:"LOG_FILE_PATH"`
	ReplaceMode  string `envconfig:"REPLACE_MODE" default:"sequential" validate:"oneof=sequential atomic"`
	StrictImport bool   `envconfig:"STRICT_IMPORT" default:"false"`
	RemoteURL    string `envconfig:"REMOTE_URL" validate:"omitempty,url"`
	RemoteToken  string `envconfig:"REMOTE_TOKEN"`
	RemoteFile   string `envconfig:"REMOTE_FILE"`
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8420" validate:"required"`
}

// Load reads envFile (if it exists) into the environment, then processes
// LEDGERBOOK_* variables. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	c := &Config{}
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// HasRemote reports whether a remote slot is configured.
func (c *Config) HasRemote() bool {
	return c.RemoteURL != "" || c.RemoteFile != ""
}
