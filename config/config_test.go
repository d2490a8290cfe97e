package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envNames = []string{
	"PORT", "IMAP_HOST", "IMAP_PORT", "IMAP_USERNAME", "IMAP_PASSWORD", "IMAP_FOLDER",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_ENCRYPTION",
	"FROM_NAME", "FROM_EMAIL", "SESSION_SECRET", "SESSION_DB", "LOG_LEVEL", "INBOX_LIMIT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("IMAP_HOST", "imap.example.com")
	t.Setenv("IMAP_USERNAME", "me@example.com")
	t.Setenv("IMAP_PASSWORD", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "imap.example.com:993", cfg.IMAP.Address())
	assert.Equal(t, "INBOX", cfg.IMAP.Folder)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Server)
	assert.Equal(t, "smtp.example.com:465", cfg.SMTP.Address())
	assert.Equal(t, "me@example.com", cfg.SMTP.Username)
	assert.Equal(t, "secret", cfg.SMTP.Password)
	assert.False(t, cfg.SMTP.UseSTARTTLS())
	assert.Equal(t, "me@example.com", cfg.Identity.Email)
	assert.Equal(t, 25, cfg.Inbox.Limit)
	assert.Equal(t, 300, cfg.Inbox.CacheTTL)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
port = 8080

[imap]
server = "mail.example.org"
username = "file-user"
folder = "Archive"

[smtp]
server = "relay.example.org"
port = 587
encryption = "STARTTLS"

[identity]
name = "File Name"

[inbox]
limit = 10
`)
	t.Setenv("IMAP_USERNAME", "env-user@example.org")
	t.Setenv("PORT", "9090")
	t.Setenv("FROM_EMAIL", "sender@example.org")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-user@example.org", cfg.IMAP.Username)
	assert.Equal(t, "Archive", cfg.IMAP.Folder)
	assert.Equal(t, "relay.example.org:587", cfg.SMTP.Address())
	assert.True(t, cfg.SMTP.UseSTARTTLS())
	assert.Equal(t, "File Name", cfg.Identity.Name)
	assert.Equal(t, "sender@example.org", cfg.Identity.Email)
	assert.Equal(t, 10, cfg.Inbox.Limit)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{
			name: "missing imap host",
			env:  map[string]string{"IMAP_USERNAME": "me@example.com"},
		},
		{
			name: "missing username",
			env:  map[string]string{"IMAP_HOST": "imap.example.com"},
		},
		{
			name: "bad encryption",
			env: map[string]string{
				"IMAP_HOST": "imap.example.com", "IMAP_USERNAME": "me@example.com",
				"SMTP_ENCRYPTION": "tls13",
			},
		},
		{
			name: "bad port",
			env: map[string]string{
				"IMAP_HOST": "imap.example.com", "IMAP_USERNAME": "me@example.com",
				"SMTP_PORT": "not-a-number",
			},
		},
		{
			name: "port out of range",
			env: map[string]string{
				"IMAP_HOST": "imap.example.com", "IMAP_USERNAME": "me@example.com",
				"IMAP_PORT": "70000",
			},
		},
		{
			name: "zero limit",
			env: map[string]string{
				"IMAP_HOST": "imap.example.com", "IMAP_USERNAME": "me@example.com",
				"INBOX_LIMIT": "0",
			},
		},
		{
			name: "malformed file",
			file: "[imap\nserver = ",
		},
		{
			name: "ssl without certificate",
			file: "[imap]\nserver = \"imap.example.com\"\nusername = \"me@example.com\"\n[ssl]\nenabled = true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := LoadConfig(path)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestSMTPGetPort(t *testing.T) {
	assert.Equal(t, 465, (&SMTPConfig{Encryption: EncryptionSSL}).GetPort())
	assert.Equal(t, 587, (&SMTPConfig{Encryption: EncryptionSTARTTLS}).GetPort())
	assert.Equal(t, 2525, (&SMTPConfig{Port: 2525}).GetPort())
}

func TestGetSecurityHeaders(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.GetSecurityHeaders())

	cfg.SSL.Enabled = true
	cfg.SSL.Domain = "mail.example.com"
	assert.Equal(t, "max-age=31536000; includeSubDomains", cfg.GetSecurityHeaders()["Strict-Transport-Security"])
}
