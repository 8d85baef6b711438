package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/protokoll/minutes/internal/minutes"
	"github.com/protokoll/minutes/internal/parser"
	"github.com/protokoll/minutes/internal/semantic"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Parser    ParserConfig      `yaml:"parser"`
	Render    RenderConfig      `yaml:"render"`
	Broadcast BroadcastConfig   `yaml:"broadcast"`
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
	if err := c.Parser.Validate(); err != nil {
		return err
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	return c.Broadcast.Validate()
}

// ServiceOptions converts the parser and render sections into the options
// handed to the minutes service.
func (c *Config) ServiceOptions() minutes.Options {
	return minutes.Options{
		Semantic:        c.Parser.SemanticOptions(),
		HTMLLevelOffset: c.Render.HTMLLevelOffset,
	}
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

// VaultConfig holds the path to the protocol source directory.
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

// ParserConfig holds the options of the protocol compiler.
type ParserConfig struct {
	PrivateKeywords        []string `yaml:"private_keywords"`
	FuzzyMinScore          int      `yaml:"fuzzy_min_score"`
	ErrorContextLines      int      `yaml:"error_context_lines"`
	Lax                    bool     `yaml:"lax"`
	EmptySourcePlaceholder string   `yaml:"empty_source_placeholder"`
}

// Validate validates the parser configuration.
func (c *ParserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PrivateKeywords, validation.Each(validation.Required)),
		validation.Field(&c.FuzzyMinScore, validation.Min(0), validation.Max(100)),
		validation.Field(&c.ErrorContextLines, validation.Min(0)),
	)
}

// SemanticOptions returns the compile options for this configuration.
func (c *ParserConfig) SemanticOptions() semantic.Options {
	return semantic.Options{
		PrivateKeywords:        parser.PrivateKeywords(c.PrivateKeywords),
		FuzzyMinScore:          c.FuzzyMinScore,
		ErrorContextLines:      c.ErrorContextLines,
		Lax:                    c.Lax,
		EmptySourcePlaceholder: c.EmptySourcePlaceholder,
	}
}

// RenderConfig holds renderer settings.
type RenderConfig struct {
	HTMLLevelOffset int `yaml:"html_level_offset"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HTMLLevelOffset, validation.Min(0), validation.Max(5)),
	)
}

// BroadcastConfig holds event broker settings.
type BroadcastConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the broadcast configuration.
func (c *BroadcastConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
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
			Path: "./protocols",
		},
		SQLite: SQLiteConfig{
			Path: "./minutes.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Parser: ParserConfig{
			PrivateKeywords:   []string{"private", "internal", "privat", "intern"},
			FuzzyMinScore:     90,
			ErrorContextLines: 3,
		},
		Broadcast: BroadcastConfig{
			Throttle: 2 * time.Second,
		},
	}
}
