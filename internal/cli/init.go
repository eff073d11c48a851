package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/config"
	"github.com/mesh-intelligence/plantdiaries/internal/paths"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
)

type initResult struct {
	ConfigFile    string `json:"configFile"`
	ConfigCreated bool   `json:"configCreated"`
	DataDir       string `json:"dataDir"`
	Database      string `json:"database"`
	Uploads       string `json:"uploads"`
}

func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml holding fresh\nJWT secrets, then create the data directory, database and upload root.\nExisting files are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, o)
		},
	}
}

func runInit(cmd *cobra.Command, o *options) error {
	cfg, _, err := o.load()
	if err != nil {
		return err
	}

	configFile := paths.ConfigFile(cfg.ConfigDir)
	created, err := config.WriteDefault(configFile, cfg.DataDir)
	if err != nil {
		return sysError(err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return sysError(fmt.Errorf("creating data directory: %w", err))
	}

	diary, err := sqlite.Open(cmd.Context(), cfg.Database.Path)
	if err != nil {
		return sysError(err)
	}
	if err := diary.Close(); err != nil {
		return sysError(err)
	}
	if _, err := photos.NewOSStore(cfg.Uploads.Dir); err != nil {
		return sysError(err)
	}

	res := initResult{
		ConfigFile:    configFile,
		ConfigCreated: created,
		DataDir:       cfg.DataDir,
		Database:      cfg.Database.Path,
		Uploads:       cfg.Uploads.Dir,
	}
	return o.emit(cmd, res, fmt.Sprintf("Plant diaries initialized\n  config:   %s\n  database: %s\n  uploads:  %s",
		configFile, cfg.Database.Path, cfg.Uploads.Dir))
}
