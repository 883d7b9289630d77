// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package creds resolves API keys and credentials. Each credential is named
// by its conventional environment variable (SAM_API_KEY, DISCORD_WEBHOOK_URL,
// DISCORD_TOKEN, DISCORD_CHANNEL_ID, SMTP_PASS); the environment wins, with
// a fallback to a plain-text file of the same name under the secrets
// directory.
package creds

import (
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir is the fallback directory of plain-text credential files.
// The filename is the credential name and the trimmed contents the value.
var SecretsDir = ".secrets"

// Resolve returns the named credential, or "" when it is configured nowhere.
func Resolve(name string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}

	data, err := os.ReadFile(filepath.Join(SecretsDir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ResolveToken returns a Discord bot token with any "Bot " prefix stripped,
// since the API client adds the prefix itself.
func ResolveToken(name string) string {
	token := Resolve(name)
	if len(token) >= 4 && strings.EqualFold(token[:4], "bot ") {
		token = strings.TrimSpace(token[4:])
	}
	return token
}
