// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package users loads and persists per-subscriber YAML record files.
// Each file holds one saved search plus the watermark of the last
// successfully delivered run.
package users

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sonar/pkg/types"
)

// recordExt is the extension user record files must carry to be picked up
// from a directory.
const recordExt = ".yaml"

// Load reads one user record file. The returned record remembers its path so
// Save can rewrite it in place; the path itself is never serialized.
func Load(path string) (*types.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading user file %s: %w", path, err)
	}

	var u types.User
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parsing user file %s: %w", path, err)
	}
	if u.Name == "" || u.Email == "" || u.Query == "" {
		return nil, fmt.Errorf("user file %s: user, email_address and search_query are required", path)
	}

	u.Path = path
	return &u, nil
}

// LoadDir returns the paths of all user record files in dir, sorted by name.
// It does not load them: the caller loads one at a time so a malformed file
// only skips that user.
func LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading users directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// Save rewrites the user's record file in full. The runtime-only Path field
// carries a yaml:"-" tag, so the written form never contains it.
func Save(u *types.User) error {
	if u.Path == "" {
		return fmt.Errorf("user %s has no record path", u.Name)
	}

	data, err := yaml.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshaling user %s: %w", u.Name, err)
	}
	if err := os.WriteFile(u.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing user file %s: %w", u.Path, err)
	}
	return nil
}
