// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads SMTP credentials from a directory of plain-text
// files. Each file represents one secret: the filename is the key and the
// trimmed contents are the value. Keeping credentials out of config.yaml
// means configuration and user records can be committed freely.
//
// Supported key files: smtp-username, smtp-password.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	usernameFile = "smtp-username"
	passwordFile = "smtp-password"
)

// Credentials holds optional SMTP AUTH credentials. Both fields empty means
// the relay is used unauthenticated.
type Credentials struct {
	Username string
	Password string
}

// Load reads SMTP credentials from dir. A missing directory or missing key
// files are not errors; Load returns zero Credentials. An unreadable key
// file is logged and skipped.
func Load(dir string, log *slog.Logger) (Credentials, error) {
	var creds Credentials

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if name != usernameFile && name != passwordFile {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "key", name, "err", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		switch name {
		case usernameFile:
			creds.Username = value
		case passwordFile:
			creds.Password = value
		}
	}

	return creds, nil
}
