package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env files next to the config file and in the working
// directory. Variables already set in the environment win.
func LoadEnv(configPath string) ([]string, error) {
	candidates := make([]string, 0, 2)
	if strings.TrimSpace(configPath) != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}

	loaded := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, path := range candidates {
		path = filepath.Clean(path)
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("stat env file %q: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load env file %q: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// APIKey reads the provider key from the environment variable named by envName.
func APIKey(envName string) (string, error) {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return "", nil
	}
	value := strings.TrimSpace(os.Getenv(envName))
	if value == "" {
		return "", fmt.Errorf("%s is not set", envName)
	}
	return value, nil
}
