package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file yields defaults and a warning.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded, err := loadFile(resolvedPath)
	if errors.Is(err, os.ErrNotExist) {
		return Loaded{
			Path:   resolvedPath,
			Config: Default(),
			Warnings: []Warning{{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			}},
		}, nil
	}
	return loaded, err
}

func loadFile(path string) (Loaded, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{}, err
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{
		Path:     path,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}
