package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// APIConfig contains settings for the animation generation backend.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	// Seconds between status polls and the poll attempt ceiling. Zero values
	// fall back to the engine defaults (5s, 120 attempts).
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	MaxPollAttempts     int `toml:"max_poll_attempts"`
	// Requests per second allowed against the backend (0 = unlimited).
	RateLimit float64 `toml:"rate_limit"`
}

// AuthConfig contains identity provider settings for session login.
type AuthConfig struct {
	ClientID    string `toml:"client_id"`
	AuthURL     string `toml:"auth_url"`
	TokenURL    string `toml:"token_url"`
	RedirectURI string `toml:"redirect_uri"`
	// Path to the credentials file holding the session token and the
	// fallback Gemini API key. Defaults to ~/.animx/credentials.json.
	CredentialsPath string `toml:"credentials_path"`
}

// DatabaseConfig contains settings for the local history cache.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveCredentialsPath resolves the credentials file path, defaulting to
// ~/.animx/credentials.json when unset.
func (a AuthConfig) ResolveCredentialsPath() (string, error) {
	if a.CredentialsPath != "" {
		return a.CredentialsPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return filepath.Join(home, ".animx", "credentials.json"), nil
}
