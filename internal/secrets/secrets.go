// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognised key files: openai-api-key, anthropic-api-key, gemini-api-key, redis-password.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/sciqa/pkg/types"
)

// Key file names understood by Apply.
const (
	OpenAIKey     = "openai-api-key"
	AnthropicKey  = "anthropic-api-key"
	GeminiKey     = "gemini-api-key"
	RedisPassword = "redis-password"
)

// Warnings receives messages about unreadable secret files.
var Warnings io.Writer = os.Stderr

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning but do not abort.
func Load(dir string) (map[string]string, error) {
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
			fmt.Fprintf(Warnings, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg from loaded secrets. A value already set
// by the config file or environment wins over the secret file. It returns
// the sorted names of the secrets that were applied.
func Apply(cfg *types.Config, secrets map[string]string) []string {
	targets := map[string]*string{
		OpenAIKey:     &cfg.Model.OpenAI.APIKey,
		AnthropicKey:  &cfg.Model.Anthropic.APIKey,
		GeminiKey:     &cfg.Model.Gemini.APIKey,
		RedisPassword: &cfg.Cache.RedisPassword,
	}

	var applied []string
	for key, dst := range targets {
		v, ok := secrets[key]
		if !ok || *dst != "" {
			continue
		}
		*dst = v
		applied = append(applied, key)
	}
	sort.Strings(applied)
	return applied
}
