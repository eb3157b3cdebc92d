package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

// DefaultAppName names the application in backups when no preference is set.
const DefaultAppName = "Invoice Manager"

// Preferences is the user preference file.
type Preferences struct {
	AppName string `json:"appName" validate:"required,max=100"`
}

// DefaultPreferences returns the preferences used when no file exists.
func DefaultPreferences() Preferences {
	return Preferences{AppName: DefaultAppName}
}

// LoadPreferences reads the preference file at path. A missing file or an
// empty appName yields the defaults.
func LoadPreferences(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if strings.TrimSpace(p.AppName) == "" {
		p.AppName = DefaultAppName
	}
	return p, nil
}

// SavePreferences writes p to path, replacing the file.
func SavePreferences(path string, p Preferences) error {
	p.AppName = strings.TrimSpace(p.AppName)
	if err := validator.New().Struct(p); err != nil {
		return ledgererr.Wrap(ledgererr.CodeInvalidInput, "save preferences", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create preferences dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
