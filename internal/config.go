package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagvault/internal/batch"
	"github.com/starford/tagvault/internal/tagedit"
	"github.com/starford/tagvault/internal/tags"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Tags   TagsConfig        `yaml:"tags"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Tags.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TagsConfig holds defaults for tag operations.
//
// Location, Position and Normalize apply to requests that leave the
// matching option unset. PatternCacheSize bounds the compiled-pattern cache.
// EventThrottle is the minimum gap between tags.updated SSE events.
type TagsConfig struct {
	Location         string        `yaml:"location"`
	Position         string        `yaml:"position"`
	Normalize        *bool         `yaml:"normalize"`
	PatternCacheSize int           `yaml:"pattern_cache_size"`
	EventThrottle    time.Duration `yaml:"event_throttle"`
}

// Validate validates the tags configuration.
func (c *TagsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Location, validation.In(
			string(batch.LocationFrontmatter), string(batch.LocationContent), string(batch.LocationBoth))),
		validation.Field(&c.Position, validation.In(
			string(tagedit.PositionStart), string(tagedit.PositionEnd))),
		validation.Field(&c.PatternCacheSize, validation.Min(0)),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	)
}

// Defaults converts the section into batch defaults. Unset fields keep the
// standard values.
func (c *TagsConfig) Defaults() batch.Defaults {
	d := batch.StandardDefaults
	if c.Location != "" {
		d.Location = batch.Location(c.Location)
	}
	if c.Position != "" {
		d.Position = tagedit.Position(c.Position)
	}
	if c.Normalize != nil {
		d.Normalize = *c.Normalize
	}
	return d
}

// Apply pushes process-wide settings to the tags package.
func (c *TagsConfig) Apply() {
	tags.SetCacheSize(c.PatternCacheSize)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./tagvault.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tags: TagsConfig{
			Location:         string(batch.LocationBoth),
			Position:         string(tagedit.PositionEnd),
			PatternCacheSize: tags.DefaultCacheSize,
			EventThrottle:    2 * time.Second,
		},
	}
}
