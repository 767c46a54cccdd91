// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory is one secret: the filename is the key name and
// the trimmed file contents are the value.
//
// Supported key files: anthropic-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

const (
	// AnthropicKeyFile names the file holding the Anthropic API key.
	AnthropicKeyFile = "anthropic-api-key"

	// AnthropicKeyEnv is consulted when the key file is absent.
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *slog.Logger) (map[string]string, error) {
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// AnthropicKey returns the Anthropic API key from the secrets in dir, or
// from the ANTHROPIC_API_KEY environment variable. An empty result means no
// key is configured.
func AnthropicKey(dir string, log *slog.Logger) (string, error) {
	s, err := Load(dir, log)
	if err != nil {
		return "", err
	}
	if key := s[AnthropicKeyFile]; key != "" {
		return key, nil
	}
	return strings.TrimSpace(os.Getenv(AnthropicKeyEnv)), nil
}
