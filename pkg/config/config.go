package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/identity"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeoutSeconds bounds each backend request.
	DefaultTimeoutSeconds = 30
	// DefaultLogLevel is used when log_level is unset.
	DefaultLogLevel = "info"
)

// Config represents the application configuration.
type Config struct {
	APIURL         string         `json:"api_url"`
	Identity       IdentityConfig `json:"identity"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
	LogLevel       string         `json:"log_level,omitempty"`
}

// IdentityConfig holds the signed-in identity. Either Key or Token must be set.
type IdentityConfig struct {
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"token,omitempty"`
	VerifyKey string `json:"verify_key,omitempty"`
}

// Timeout returns the request timeout.
func (c *Config) Timeout() (timeout time.Duration) {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultTimeoutSeconds
	}
	timeout = time.Duration(seconds) * time.Second
	return timeout
}

// Level returns the configured zerolog level, falling back to info.
func (c *Config) Level() (level zerolog.Level) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return level
}

// Session resolves the signed-in identity, decoding the session token when one is configured.
func (c *Config) Session() (session identity.Session, err error) {
	if c.Identity.Token != "" {
		session, err = identity.FromToken(c.Identity.Token, c.Identity.VerifyKey)
		if err != nil {
			err = errors.Wrap(err, "failed to resolve identity from token")
			return session, err
		}
		if session.Name == "" {
			session.Name = c.Identity.Name
		}
		if session.Email == "" {
			session.Email = c.Identity.Email
		}
		return session, err
	}

	session = identity.Session{
		IdentityKey: c.Identity.Key,
		Name:        c.Identity.Name,
		Email:       c.Identity.Email,
	}
	err = session.Validate()
	return session, err
}

// DefaultPath returns $HOME/.resume-intake/config.json.
func DefaultPath() (path string, err error) {
	var homeDir string
	homeDir, err = os.UserHomeDir()
	if err != nil {
		err = errors.Wrap(err, "failed to get user home directory")
		return path, err
	}
	path = filepath.Join(homeDir, ".resume-intake", "config.json")
	return path, err
}

// Load reads configuration from file with .env and environment variable overrides.
// A missing file is not an error when the environment supplies an identity.
func Load(configPath string) (cfg Config, err error) {
	// Determine config file location
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	// Read config file
	var data []byte
	data, err = os.ReadFile(path)
	switch {
	case err == nil:
		err = json.Unmarshal(data, &cfg)
		if err != nil {
			err = errors.Wrapf(err, "failed to parse config file: %s", path)
			return cfg, err
		}
	case os.IsNotExist(err):
		err = nil
		if !envHasIdentity() {
			err = errors.Errorf("config file not found: %s (run 'resume-intake init' to create)", path)
			return cfg, err
		}
	default:
		err = errors.Wrapf(err, "failed to read config file: %s", path)
		return cfg, err
	}

	applyEnv(&cfg)

	// Validate required fields
	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return cfg, err
	}

	return cfg, err
}

// Validate checks that all required configuration is present and fills defaults.
func (c *Config) Validate() (err error) {
	if c.APIURL == "" {
		c.APIURL = api.DefaultBaseURL
	}

	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		err = errors.Errorf("api_url must be an http(s) URL: %s", c.APIURL)
		return err
	}

	if c.Identity.Key == "" && c.Identity.Token == "" {
		err = errors.New("identity.key or identity.token is required (or set RESUME_INTAKE_IDENTITY / RESUME_INTAKE_TOKEN)")
		return err
	}

	if c.TimeoutSeconds < 0 {
		err = errors.New("timeout_seconds must not be negative")
		return err
	}

	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	return err
}

// InitConfig creates a default configuration file.
func InitConfig(configPath string) (err error) {
	// Determine config file location
	path := configPath
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create config directory: %s", dir)
		return err
	}

	// Check if file already exists
	_, err = os.Stat(path)
	if err == nil {
		err = errors.Errorf("config file already exists: %s", path)
		return err
	}

	defaultConfig := Config{
		APIURL: api.DefaultBaseURL,
		Identity: IdentityConfig{
			Key:   "user_your-identity-key",
			Name:  "Your Name",
			Email: "you@example.com",
		},
		TimeoutSeconds: DefaultTimeoutSeconds,
		LogLevel:       DefaultLogLevel,
	}

	// Write to file
	var data []byte
	data, err = json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal default config")
		return err
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write config file: %s", path)
		return err
	}

	return err
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NEXT_PUBLIC_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("RESUME_INTAKE_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("RESUME_INTAKE_IDENTITY"); v != "" {
		cfg.Identity.Key = v
	}
	if v := os.Getenv("RESUME_INTAKE_TOKEN"); v != "" {
		cfg.Identity.Token = v
	}
	if v := os.Getenv("RESUME_INTAKE_VERIFY_KEY"); v != "" {
		cfg.Identity.VerifyKey = v
	}
	if v := os.Getenv("RESUME_INTAKE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func envHasIdentity() (ok bool) {
	ok = os.Getenv("RESUME_INTAKE_IDENTITY") != "" || os.Getenv("RESUME_INTAKE_TOKEN") != ""
	return ok
}
