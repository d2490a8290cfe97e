package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	EncryptionSSL      = "ssl"
	EncryptionSTARTTLS = "starttls"
)

type ServerConfig struct {
	Port          int    `toml:"port"`
	SessionSecret string `toml:"session_secret"` // encrypts the session cookie when set
	SessionDB     string `toml:"session_db"`     // bbolt file for sessions, memory when empty
	RateLimit     int    `toml:"rate_limit"`     // requests per minute per client
}

type IMAPConfig struct {
	Server      string `toml:"server"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Folder      string `toml:"folder"`
	UseSTARTTLS bool   `toml:"use_starttls"` // false dials implicit TLS (993)
}

type SMTPConfig struct {
	Server     string `toml:"server"`
	Port       int    `toml:"port"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Encryption string `toml:"encryption"` // "ssl" for port 465, "starttls" for port 587
}

type IdentityConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

type InboxConfig struct {
	Limit    int `toml:"limit"`
	CacheTTL int `toml:"cache_ttl"` // seconds a fetched message is reused, 0 disables
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type SSLConfig struct {
	Enabled    bool   `toml:"enabled"`
	CertFile   string `toml:"cert_file"`    // Path to fullchain.pem
	KeyFile    string `toml:"key_file"`     // Path to privkey.pem
	Domain     string `toml:"domain"`       // Domain name for HSTS
	HSTSMaxAge int    `toml:"hsts_max_age"` // Max age for HSTS in seconds
}

type Config struct {
	Server   ServerConfig   `toml:"server"`
	IMAP     IMAPConfig     `toml:"imap"`
	SMTP     SMTPConfig     `toml:"smtp"`
	Identity IdentityConfig `toml:"identity"`
	Inbox    InboxConfig    `toml:"inbox"`
	Log      LogConfig      `toml:"log"`
	SSL      SSLConfig      `toml:"ssl"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value
func Default() *Config {
	var config Config

	config.Server.Port = 3000
	config.Server.RateLimit = 120

	config.IMAP.Port = 993
	config.IMAP.Folder = "INBOX"

	config.SMTP.Port = 465
	config.SMTP.Encryption = EncryptionSSL

	config.Inbox.Limit = 25
	config.Inbox.CacheTTL = 300

	config.Log.Level = "info"

	config.SSL.HSTSMaxAge = 31536000 // 1 year

	return &config
}

// LoadConfig builds the configuration from defaults, the optional TOML
// file at path and then the environment. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	config.derive()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides file values with the environment variables the
// service has always used
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"IMAP_HOST":       &c.IMAP.Server,
		"IMAP_USERNAME":   &c.IMAP.Username,
		"IMAP_PASSWORD":   &c.IMAP.Password,
		"IMAP_FOLDER":     &c.IMAP.Folder,
		"SMTP_HOST":       &c.SMTP.Server,
		"SMTP_USERNAME":   &c.SMTP.Username,
		"SMTP_PASSWORD":   &c.SMTP.Password,
		"SMTP_ENCRYPTION": &c.SMTP.Encryption,
		"FROM_NAME":       &c.Identity.Name,
		"FROM_EMAIL":      &c.Identity.Email,
		"SESSION_SECRET":  &c.Server.SessionSecret,
		"SESSION_DB":      &c.Server.SessionDB,
		"LOG_LEVEL":       &c.Log.Level,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":        &c.Server.Port,
		"IMAP_PORT":   &c.IMAP.Port,
		"SMTP_PORT":   &c.SMTP.Port,
		"INBOX_LIMIT": &c.Inbox.Limit,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("environment variable %s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) derive() {
	c.SMTP.Encryption = strings.ToLower(strings.TrimSpace(c.SMTP.Encryption))

	// If SMTP server is not specified, derive it from IMAP server
	if c.SMTP.Server == "" {
		c.SMTP.Server = c.IMAP.Server
		// Convert imap.server.com to smtp.server.com
		if len(c.SMTP.Server) > 5 && c.SMTP.Server[:5] == "imap." {
			c.SMTP.Server = "smtp" + c.SMTP.Server[4:]
		}
	}
	if c.SMTP.Username == "" {
		c.SMTP.Username = c.IMAP.Username
		if c.SMTP.Password == "" {
			c.SMTP.Password = c.IMAP.Password
		}
	}
	if c.Identity.Email == "" {
		c.Identity.Email = c.SMTP.Username
	}
}

// Validate reports the first setting the service cannot run without
func (c *Config) Validate() error {
	if c.IMAP.Server == "" {
		return fmt.Errorf("IMAP server is required")
	}
	if c.IMAP.Username == "" {
		return fmt.Errorf("IMAP username is required")
	}
	if c.IMAP.Folder == "" {
		return fmt.Errorf("IMAP folder is required")
	}
	if c.Identity.Email == "" {
		return fmt.Errorf("sender address is required (FROM_EMAIL or SMTP username)")
	}
	if c.SMTP.Encryption != EncryptionSSL && c.SMTP.Encryption != EncryptionSTARTTLS {
		return fmt.Errorf("SMTP encryption must be %q or %q, got %q", EncryptionSSL, EncryptionSTARTTLS, c.SMTP.Encryption)
	}
	for name, port := range map[string]int{"server": c.Server.Port, "IMAP": c.IMAP.Port, "SMTP": c.SMTP.Port} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s port %d is out of range", name, port)
		}
	}
	if c.Inbox.Limit <= 0 {
		return fmt.Errorf("inbox limit must be positive, got %d", c.Inbox.Limit)
	}

	if c.SSL.Enabled {
		if err := c.ValidateSSL(); err != nil {
			return fmt.Errorf("SSL configuration error: %w", err)
		}
	}
	return nil
}

// UseSTARTTLS reports whether SMTP upgrades a plain connection
func (c *SMTPConfig) UseSTARTTLS() bool {
	return c.Encryption == EncryptionSTARTTLS
}

// Helper method to get the appropriate SMTP port based on encryption
func (c *SMTPConfig) GetPort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.UseSTARTTLS() {
		return 587 // STARTTLS port
	}
	return 465 // SSL/TLS port
}

// Address returns host:port for dialing
func (c *SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server, c.GetPort())
}

// Address returns host:port for dialing
func (c *IMAPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// ValidateSSL checks if the SSL configuration is valid
func (c *Config) ValidateSSL() error {
	if !c.SSL.Enabled {
		return nil
	}

	if c.SSL.CertFile == "" {
		return fmt.Errorf("SSL certificate file path is required")
	}

	if c.SSL.KeyFile == "" {
		return fmt.Errorf("SSL key file path is required")
	}

	// Try loading the certificates to verify they're valid
	_, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load SSL certificates: %w", err)
	}

	return nil
}

// GetSecurityHeaders returns the extra response headers for TLS deployments
func (c *Config) GetSecurityHeaders() map[string]string {
	headers := make(map[string]string)

	if c.SSL.Enabled && c.SSL.Domain != "" {
		headers["Strict-Transport-Security"] = fmt.Sprintf("max-age=%d; includeSubDomains", c.SSL.HSTSMaxAge)
	}

	return headers
}
