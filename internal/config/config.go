// Package config loads the plant diaries configuration with Viper.
//
// Values are layered: built-in defaults, then config.yaml in the config
// directory, then PLANTDIARIES_* environment variables. Command-line flags
// are applied by the caller on top of the loaded Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/plantdiaries/internal/paths"
)

// Config keys.
const (
	KeyDataDir          = "data_dir"
	KeyServerAddr       = "server.addr"
	KeyCORSOrigins      = "server.cors_origins"
	KeyMaxUploadMB      = "server.max_upload_mb"
	KeyDatabasePath     = "database.path"
	KeyUploadsDir       = "uploads.dir"
	KeyJWTSecret        = "auth.jwt_secret"
	KeyJWTRefreshSecret = "auth.jwt_refresh_secret"
	KeyAccessTTL        = "auth.access_ttl"
	KeyRefreshTTL       = "auth.refresh_ttl"
	KeyLoginRate        = "auth.login_rate"
	KeyLoginBurst       = "auth.login_burst"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyTracing          = "telemetry.tracing"
)

const envPrefix = "PLANTDIARIES"

// ErrMissingSecret is returned by Validate when a JWT secret is not set.
var ErrMissingSecret = errors.New("auth.jwt_secret and auth.jwt_refresh_secret must be set")

// Config is the resolved configuration.
type Config struct {
	ConfigDir string `mapstructure:"-"`
	DataDir   string `mapstructure:"data_dir"`

	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	MaxUploadMB int      `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret string        `mapstructure:"jwt_refresh_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	LoginRate        float64       `mapstructure:"login_rate"`
	LoginBurst       int           `mapstructure:"login_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Tracing bool `mapstructure:"tracing"`
}

// setDefaults registers every key, so environment variables bind to all of
// them.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyServerAddr, ":3001")
	v.SetDefault(KeyCORSOrigins, []string{"*"})
	v.SetDefault(KeyMaxUploadMB, 10)
	v.SetDefault(KeyDatabasePath, "")
	v.SetDefault(KeyUploadsDir, "")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyJWTRefreshSecret, "")
	v.SetDefault(KeyAccessTTL, 15*time.Minute)
	v.SetDefault(KeyRefreshTTL, 7*24*time.Hour)
	v.SetDefault(KeyLoginRate, 5.0)
	v.SetDefault(KeyLoginBurst, 10)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyTracing, false)
}

// New returns a Viper instance bound to config.yaml in configDir and to the
// environment. The file is not read yet.
func New(configDir string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from configDir, if present, and resolves the data,
// database and upload locations. dataDirFlag takes precedence over the file.
func Load(configDir, dataDirFlag string) (*Config, *viper.Viper, error) {
	v := New(configDir)
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := decode(v, configDir, dataDirFlag)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	if errors.As(err, &nf) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

func decode(v *viper.Viper, configDir, dataDirFlag string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.ConfigDir = configDir

	dataDir, err := paths.ResolveDataDir(dataDirFlag, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	cfg.DataDir = dataDir
	if cfg.Database.Path == "" {
		cfg.Database.Path = paths.DatabasePath(dataDir)
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = paths.UploadsDir(dataDir)
	}
	return &cfg, nil
}

// MaxUploadBytes returns the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// Validate checks the settings the HTTP server depends on.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTRefreshSecret == "" {
		return ErrMissingSecret
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyMaxUploadMB, c.Server.MaxUploadMB)
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		return fmt.Errorf("%s and %s must be positive", KeyLoginRate, KeyLoginBurst)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", KeyLogFormat, FormatJSON, FormatText, c.Log.Format)
	}
	return nil
}
