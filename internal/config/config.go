// Copyright 2025 NandFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config locates the config directory and loads settings.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nandfs/internal/artifacts"
)

// getConfigDir returns the config directory path.
// Uses NANDFS_CONFIG_DIR env var if set, otherwise defaults to ~/.nandfs.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("NANDFS_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nandfs")
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// InitConfigDir initializes the config directory with default files
func InitConfigDir() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default settings file if not exists (using embedded template)
	settingsPath := SettingsPath()
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, artifacts.GlobalSettings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}
	return nil
}

// Settings represents the global nandfs settings
type Settings struct {
	Image          string `yaml:"image"`            // Configured image file (relative to config dir)
	LogLevel       string `yaml:"log_level"`        // Log level: trace, debug, info, warn, off (default: off)
	CLIBusyTimeout int    `yaml:"cli_busy_timeout"` // SQLite busy_timeout for CLI (ms), 0 = use default
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.Image == "" {
		s.Image = "nand.img"
	}
	if s.LogLevel == "" {
		s.LogLevel = "off"
	}
}

// ImagePath returns the absolute path of the configured image file.
func (s *Settings) ImagePath() string {
	if filepath.IsAbs(s.Image) {
		return s.Image
	}
	return filepath.Join(getConfigDir(), s.Image)
}

// loadDefaultSettings parses default settings from the embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	settings.ApplyDefaults()
	return settings
}

// LoadSettings loads the settings from the config directory. Always reads
// from file to get the latest config. Falls back to embedded defaults if
// the file doesn't exist.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			settings := loadDefaultSettings()
			return &settings, nil
		}
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	settings.ApplyDefaults()
	return &settings, nil
}

// SaveSettings saves the settings to the config directory
func SaveSettings(settings *Settings) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	header := []byte("# NandFS settings\n# See: nandfs --help\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}
