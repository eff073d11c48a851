package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/plantdiaries/internal/paths"
)

func TestLoad_Defaults(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	cfg, _, err := Load(configDir, dataDir)
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, ":3001", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, filepath.Join(dataDir, paths.DatabaseFileName), cfg.Database.Path)
	assert.Equal(t, filepath.Join(dataDir, paths.UploadsDirName), cfg.Uploads.Dir)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Tracing)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecret)
}

func TestLoad_FileEnvAndFlag(t *testing.T) {
	configDir := t.TempDir()
	fileDataDir := t.TempDir()
	flagDataDir := t.TempDir()

	content := "data_dir: " + fileDataDir + "\n" +
		"server:\n  addr: \":8080\"\n  max_upload_mb: 4\n" +
		"auth:\n  jwt_secret: a\n  jwt_refresh_secret: b\n  access_ttl: 5m\n" +
		"log:\n  level: debug\n  format: text\n"
	require.NoError(t, os.WriteFile(paths.ConfigFile(configDir), []byte(content), 0o600))
	t.Setenv("PLANTDIARIES_SERVER_ADDR", ":9090")

	cfg, _, err := Load(configDir, "")
	require.NoError(t, err)
	assert.Equal(t, fileDataDir, cfg.DataDir)
	assert.Equal(t, ":9090", cfg.Server.Addr, "environment beats file")
	assert.Equal(t, int64(4<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, FormatText, cfg.Log.Format)
	assert.NoError(t, cfg.Validate())

	cfg, _, err = Load(configDir, flagDataDir)
	require.NoError(t, err)
	assert.Equal(t, flagDataDir, cfg.DataDir, "flag beats file")
}

func TestLoad_BadYAML(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(paths.ConfigFile(configDir), []byte("server: [\n"), 0o600))
	_, _, err := Load(configDir, t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{MaxUploadMB: 10},
			Auth:   AuthConfig{JWTSecret: "a", JWTRefreshSecret: "b", LoginRate: 5, LoginBurst: 10},
			Log:    LogConfig{Level: "info", Format: FormatJSON},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, false},
		{"zero login burst", func(c *Config) { c.Auth.LoginBurst = 0 }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := paths.ConfigFile(filepath.Join(dir, "nested"))

	written, err := WriteDefault(path, "/srv/plants")
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Plant diaries configuration")
	assert.Contains(t, string(data), "# JWT signing secrets must differ.")

	var fc fileConfig
	require.NoError(t, yaml.Unmarshal(data, &fc))
	assert.Equal(t, "/srv/plants", fc.DataDir)
	assert.Len(t, fc.Auth.JWTSecret, 64)
	assert.NotEqual(t, fc.Auth.JWTSecret, fc.Auth.JWTRefreshSecret)

	cfg, _, err := Load(filepath.Dir(path), "")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTTL)

	written, err = WriteDefault(path, "/elsewhere")
	require.NoError(t, err)
	assert.False(t, written, "existing file is kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"chatty", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var level slog.LevelVar
	var buf bytes.Buffer

	NewLogger(&buf, FormatJSON, &level).Info("hello", "plant", "fern")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "fern", line["plant"])

	buf.Reset()
	NewLogger(&buf, FormatText, &level).Debug("hidden")
	assert.Empty(t, buf.String())
	level.Set(slog.LevelDebug)
	NewLogger(&buf, FormatText, &level).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestApplyLogLevel(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(paths.ConfigFile(configDir), []byte("log:\n  level: warn\n"), 0o600))
	_, v, err := Load(configDir, t.TempDir())
	require.NoError(t, err)

	var level slog.LevelVar
	var buf bytes.Buffer
	logger := NewLogger(&buf, FormatText, &level)

	applyLogLevel(v, &level, logger)
	assert.Equal(t, slog.LevelWarn, level.Level())

	v.Set(KeyLogLevel, "nonsense")
	applyLogLevel(v, &level, logger)
	assert.Equal(t, slog.LevelWarn, level.Level())
	assert.Contains(t, buf.String(), "ignoring config change")
}
