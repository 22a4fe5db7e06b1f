// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and watches ~/.sortvis/sortvis.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalid is returned when the file parses but fails validation.
	ErrInvalid = errors.New("invalid config")

	// ErrExists is returned by WriteDefault when the file exists and force is off.
	ErrExists = errors.New("config file already exists")
)

var validate = validator.New()

// DefaultPath returns ~/.sortvis/sortvis.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".sortvis", "sortvis.yaml"), nil
}

// Load reads the config at path, creating it with defaults on first run.
//
// # Description
//
// An empty path means DefaultPath. Keys missing from the file keep their
// default values. The result is validated.
//
// # Outputs
//
//   - SortvisConfig: The loaded configuration.
//   - bool: True if the file was created by this call.
//   - error: Read, parse, or validation failure (wrapping ErrInvalid).
func Load(path string) (SortvisConfig, bool, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return SortvisConfig{}, false, err
		}
		path = p
	}

	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return SortvisConfig{}, false, err
		}
		created = true
	}

	cfg, err := read(path)
	return cfg, created, err
}

// read parses and validates path without creating it.
func read(path string) (SortvisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SortvisConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SortvisConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return SortvisConfig{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg SortvisConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// WriteDefault writes DefaultConfig to path. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	return createDefault(path)
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
