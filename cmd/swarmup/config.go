package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/artpar/swarmup/internal/core/validation"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration. It is built once at startup
// and never modified afterwards.
type Config struct {
	Domain         string `mapstructure:"domain"`
	AdminEmail     string `mapstructure:"admin_email"`
	MasterPassword string `mapstructure:"master_password"`

	Manifests ManifestsConfig `mapstructure:"manifests"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Env       EnvConfig       `mapstructure:"env"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Wait      WaitConfig      `mapstructure:"wait"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Log       LogConfig       `mapstructure:"log"`
}

// ManifestsConfig holds the location of the stack manifests.
type ManifestsConfig struct {
	URL     string `mapstructure:"url"`
	Version string `mapstructure:"version"`
	Dir     string `mapstructure:"dir"` // Local checkout, replaced on every run
}

// StorageConfig holds object-storage provisioning configuration.
type StorageConfig struct {
	RootUser  string `mapstructure:"root_user"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"` // Generated when empty
	SecretKey string `mapstructure:"secret_key"` // Generated when empty
}

// EnvConfig holds the substitution file location.
type EnvConfig struct {
	File string `mapstructure:"file"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// DatabaseConfig holds the credentials used to create databases.
type DatabaseConfig struct {
	User string `mapstructure:"user"`
}

// RetryConfig holds the retry budget of transient operations.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Interval time.Duration `mapstructure:"interval"`
}

// WaitConfig holds container location and readiness polling configuration.
type WaitConfig struct {
	LocateAttempts int           `mapstructure:"locate_attempts"`
	LocateInterval time.Duration `mapstructure:"locate_interval"`
	ProbeAttempts  int           `mapstructure:"probe_attempts"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	VerifyTLS      bool          `mapstructure:"verify_tls"`
}

// JournalConfig holds the run journal configuration.
type JournalConfig struct {
	// DSN is the SQLite database path. Empty disables the journal.
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Inputs returns the operator inputs checked by validation.
func (c *Config) Inputs() validation.Inputs {
	return validation.Inputs{
		Domain:          c.Domain,
		AdminEmail:      c.AdminEmail,
		MasterPassword:  c.MasterPassword,
		ManifestURL:     c.Manifests.URL,
		ManifestVersion: c.Manifests.Version,
	}
}

// Validate checks the required inputs and returns non-fatal warnings.
func (c *Config) Validate() (warnings []string, err error) {
	if field, msg := validation.ValidateInputs(c.Inputs()); field != "" {
		return nil, fmt.Errorf("invalid %s: %s", field, msg)
	}
	return validation.CredentialWarnings(c.Inputs()), nil
}

// =============================================================================
// Config Loading
// =============================================================================

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"domain":           "domain",
	"admin-email":      "admin_email",
	"master-password":  "master_password",
	"manifest-url":     "manifests.url",
	"manifest-version": "manifests.version",
	"manifest-dir":     "manifests.dir",
	"bucket":           "storage.bucket",
	"access-key":       "storage.access_key",
	"secret-key":       "storage.secret_key",
	"env-file":         "env.file",
	"journal":          "journal.dsn",
	"verify-tls":       "wait.verify_tls",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// LoadConfig loads configuration from defaults, an optional file, the
// environment (prefix SWARMUP_) and, highest, the flags that were set.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("domain", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("master_password", "")
	v.SetDefault("manifests.url", "https://github.com/artpar/swarmup-stacks.git")
	v.SetDefault("manifests.version", "main")
	v.SetDefault("manifests.dir", "./data/manifests")
	v.SetDefault("storage.root_user", "admin")
	v.SetDefault("storage.bucket", "swarmup")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("env.file", "./data/.env")
	v.SetDefault("docker.host", "")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("retry.attempts", 10)
	v.SetDefault("retry.interval", "3s")
	v.SetDefault("wait.locate_attempts", 40)
	v.SetDefault("wait.locate_interval", "3s")
	v.SetDefault("wait.probe_attempts", 40)
	v.SetDefault("wait.probe_interval", "3s")
	v.SetDefault("wait.probe_timeout", "10s")
	v.SetDefault("wait.verify_tls", false) // Proxy serves a placeholder certificate until ACME completes
	v.SetDefault("journal.dsn", "./data/swarmup.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SWARMUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flags override everything when set
	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Domain = validation.NormalizeDomain(cfg.Domain)

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
