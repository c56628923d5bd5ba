// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text
// files: the filename is the key name, the trimmed file contents the
// value. Environment variables override file values.
//
// Supported key file: llm-api-key (bearer token for an authenticated
// inference server; local Ollama needs none).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secrets maps key names to values.
type Secrets map[string]string

// envVar converts a key file name to its environment override, e.g.
// "llm-api-key" to "BOOKGEN_LLM_API_KEY".
func envVar(key string) string {
	return "BOOKGEN_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir. A missing directory is not an error;
// Load returns an empty map. Unreadable files produce a warning on
// stderr but do not abort.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[entry.Name()] = value
		}
	}

	return s, nil
}

// Value returns the secret for key, preferring the environment override
// over the loaded file value. Missing keys return the empty string.
func (s Secrets) Value(key string) string {
	if v := os.Getenv(envVar(key)); v != "" {
		return v
	}
	return s[key]
}
