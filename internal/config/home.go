package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the directory holding config.yaml and run logs.
const HomeEnv = "CODECBENCH_HOME"

// Home returns the codecbench home directory
// Priority order:
//  1. CODECBENCH_HOME environment variable (if set)
//  2. .codecbench in the current working directory
func Home() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, ".codecbench"), nil
}

// LoadDefault loads config.yaml from the home directory, falling back to
// defaults when it does not exist.
func LoadDefault() (*Config, error) {
	home, err := Home()
	if err != nil {
		return nil, err
	}
	return LoadConfig(filepath.Join(home, "config.yaml"))
}
