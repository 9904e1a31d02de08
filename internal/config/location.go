package config

import (
	"os"
	"path/filepath"
)

// ConfigEnv overrides the configuration file location.
const ConfigEnv = "RADSCRIPT_CONFIG"

// GetConfigPath returns $RADSCRIPT_CONFIG, or ~/.radscript/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnv); configPath != "" {
		return configPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".radscript", "config"), nil
}
