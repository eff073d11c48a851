package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the layout of config.yaml.
type fileConfig struct {
	DataDir   string        `yaml:"data_dir"`
	Server    fileServer    `yaml:"server"`
	Auth      fileAuth      `yaml:"auth"`
	Log       fileLog       `yaml:"log"`
	Telemetry fileTelemetry `yaml:"telemetry"`
}

type fileServer struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
}

type fileAuth struct {
	JWTSecret        string  `yaml:"jwt_secret"`
	JWTRefreshSecret string  `yaml:"jwt_refresh_secret"`
	AccessTTL        string  `yaml:"access_ttl"`
	RefreshTTL       string  `yaml:"refresh_ttl"`
	LoginRate        float64 `yaml:"login_rate"`
	LoginBurst       int     `yaml:"login_burst"`
}

type fileLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type fileTelemetry struct {
	Tracing bool `yaml:"tracing"`
}

// sectionComments are written above each top-level key.
var sectionComments = map[string]string{
	"data_dir":  "Directory holding the database and uploads. Empty uses the platform default.",
	"server":    "HTTP listener, allowed CORS origins and per-file upload limit in MiB.",
	"auth":      "JWT signing secrets must differ. TTLs use Go duration syntax.",
	"log":       "level: debug, info, warn or error. format: json or text. level is reloaded live.",
	"telemetry": "Print OpenTelemetry spans to stdout.",
}

// newSecret returns 32 random bytes, hex encoded.
func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// DefaultYAML renders a commented config.yaml with fresh JWT secrets.
func DefaultYAML(dataDir string) ([]byte, error) {
	access, err := newSecret()
	if err != nil {
		return nil, err
	}
	refresh, err := newSecret()
	if err != nil {
		return nil, err
	}
	fc := fileConfig{
		DataDir: dataDir,
		Server:  fileServer{Addr: ":3001", CORSOrigins: []string{"*"}, MaxUploadMB: 10},
		Auth: fileAuth{
			JWTSecret:        access,
			JWTRefreshSecret: refresh,
			AccessTTL:        (15 * time.Minute).String(),
			RefreshTTL:       (7 * 24 * time.Hour).String(),
			LoginRate:        5,
			LoginBurst:       10,
		},
		Log: fileLog{Level: "info", Format: FormatJSON},
	}

	var doc yaml.Node
	if err := doc.Encode(&fc); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	doc.HeadComment = "Plant diaries configuration"
	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := sectionComments[key.Value]; ok {
			key.HeadComment = c
		}
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return out, nil
}

// WriteDefault writes a default config.yaml to path unless one exists. It
// reports whether a file was written.
func WriteDefault(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	data, err := DefaultYAML(dataDir)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}
	// The file holds signing secrets.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("writing config file: %w", err)
	}
	return true, nil
}
