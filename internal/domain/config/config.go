// Package config loads extkit's settings from ~/.extkit/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/extkit/internal/domain/integrity"
	"github.com/felixgeelhaar/extkit/internal/domain/source"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/felixgeelhaar/extkit/internal/ports"
	"gopkg.in/yaml.v3"
)

// Config is the root of config.yaml.
type Config struct {
	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
	Paths PathsConfig `yaml:"paths"`
	MCP   MCPConfig   `yaml:"mcp"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// StoreConfig controls catalog access.
type StoreConfig struct {
	OfficialURL      string        `yaml:"official_url"`
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"user_agent"`
	Checksum         string        `yaml:"checksum"`
	PageSize         int           `yaml:"page_size"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
	MaxManifestBytes int64         `yaml:"max_manifest_bytes"`
	MaxPackageBytes  int64         `yaml:"max_package_bytes"`
}

// PathsConfig locates state on disk. A leading "~" expands to the home
// directory.
type PathsConfig struct {
	Sources    string `yaml:"sources"`
	Registry   string `yaml:"registry"`
	Extensions string `yaml:"extensions"`
}

// MCPConfig controls the MCP server.
type MCPConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// Dir returns the extkit home directory.
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".extkit")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	client := store.DefaultClientConfig()
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			OfficialURL:      source.DefaultOfficialURL,
			Timeout:          client.Timeout,
			UserAgent:        client.UserAgent,
			Checksum:         string(client.Algorithm),
			PageSize:         20,
			MaxResponseBytes: client.MaxResponseBytes,
			MaxManifestBytes: client.MaxManifestBytes,
			MaxPackageBytes:  client.MaxPackageBytes,
		},
		Paths: PathsConfig{
			Sources:    filepath.Join("~", ".extkit", "sources.yaml"),
			Registry:   filepath.Join("~", ".extkit", "registry.json"),
			Extensions: filepath.Join("~", ".extkit", "extensions"),
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is user-controlled by design
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, &UserError{
			Code:       ErrCodeFileNotFound,
			Message:    "cannot read configuration file",
			Context:    path,
			Suggestion: "Check the file permissions.",
			Underlying: err,
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewYAMLParseError(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks values that cannot be corrected by defaults.
func (c *Config) Validate() error {
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", err.Error(), "Use debug, info, warn or error.")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return invalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format), "Use text or json.")
	}
	if _, err := integrity.ParseAlgorithm(c.Store.Checksum); err != nil {
		return invalid("store.checksum", err.Error(), "Use md5, sha256, sha512, blake2b-256 or sha3-256.")
	}
	if c.Store.Timeout < 0 {
		return invalid("store.timeout", "must not be negative", `Use a duration such as "30s".`)
	}
	if c.Store.PageSize < 0 {
		return invalid("store.page_size", "must not be negative", "")
	}
	if c.Store.OfficialURL != "" {
		if err := source.ValidateSource(source.Source{Name: "official", Type: source.TypeOfficial, BaseURL: c.Store.OfficialURL}); err != nil {
			return invalid("store.official_url", "Invalid URL format", "Use an absolute URL such as https://extensions.example.com.")
		}
	}
	return nil
}

func invalid(field, message, suggestion string) *UserError {
	return &UserError{
		Code:       ErrCodeConfigInvalid,
		Message:    fmt.Sprintf("invalid value for '%s': %s", field, message),
		Context:    field,
		Suggestion: suggestion,
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() ports.Level {
	level, _ := ports.ParseLevel(c.Log.Level)
	return level
}

// ClientConfig builds the store client configuration.
func (c *Config) ClientConfig() store.ClientConfig {
	alg, _ := integrity.ParseAlgorithm(c.Store.Checksum)
	return store.ClientConfig{
		Timeout:          c.Store.Timeout,
		UserAgent:        c.Store.UserAgent,
		Algorithm:        alg,
		MaxResponseBytes: c.Store.MaxResponseBytes,
		MaxManifestBytes: c.Store.MaxManifestBytes,
		MaxPackageBytes:  c.Store.MaxPackageBytes,
	}
}

// SourcePolicy returns the bootstrap policy for the source manager.
func (c *Config) SourcePolicy() source.Policy {
	return source.DefaultPolicy(c.Store.OfficialURL)
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
