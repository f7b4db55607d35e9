// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package config

import (
	"os"
	"path/filepath"
)

const (
	appName        = "nextblog-auth"
	configFileName = "config.yaml"
)

// Dir returns the XDG config directory for nextblog-auth.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultFile returns Dir()/config.yaml when that file exists, or "".
func DefaultFile(getenv func(string) string) string {
	path := filepath.Join(Dir(getenv), configFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
