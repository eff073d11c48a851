package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/plantdiaries/internal/config"
	"github.com/mesh-intelligence/plantdiaries/internal/importer"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/paths"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// userErrors are failures caused by input rather than by the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidName,
	types.ErrInvalidEmail,
	types.ErrWeakPassword,
	types.ErrEmailTaken,
	types.ErrDiaryNotEmpty,
	importer.ErrNoHeader,
	config.ErrMissingSecret,
	fs.ErrNotExist,
}

// classify wraps err with the exit code its cause calls for.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return err
	}
	for _, u := range userErrors {
		if errors.Is(err, u) {
			return userError(err)
		}
	}
	return sysError(err)
}

// load resolves the configuration directory and reads config.yaml.
func (o *options) load() (*config.Config, *viper.Viper, error) {
	configDir, err := paths.ResolveConfigDir(o.configDir)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("resolving config directory: %w", err))
	}
	cfg, v, err := config.Load(configDir, o.dataDir)
	if err != nil {
		return nil, nil, userError(err)
	}
	return cfg, v, nil
}

// jobLogger logs command progress as text on stderr at the configured level.
func jobLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	if l, err := config.ParseLevel(cfg.Log.Level); err == nil {
		level.Set(l)
	}
	return config.NewLogger(cmd.ErrOrStderr(), config.FormatText, level)
}

// workspace is an opened diary and photo store.
type workspace struct {
	cfg    *config.Config
	diary  *sqlite.Backend
	store  *photos.Store
	logger *slog.Logger
}

// open loads the configuration and opens the database and upload root. The
// caller must Close the workspace.
func (o *options) open(cmd *cobra.Command) (*workspace, error) {
	cfg, _, err := o.load()
	if err != nil {
		return nil, err
	}
	diary, err := sqlite.Open(cmd.Context(), cfg.Database.Path)
	if err != nil {
		return nil, sysError(err)
	}
	store, err := photos.NewOSStore(cfg.Uploads.Dir)
	if err != nil {
		diary.Close()
		return nil, sysError(err)
	}
	return &workspace{cfg: cfg, diary: diary, store: store, logger: jobLogger(cmd, cfg)}, nil
}

func (w *workspace) Close() error {
	return w.diary.Close()
}

func (w *workspace) importer() *importer.Importer {
	return importer.New(w.diary, w.store, w.logger, metrics.New())
}

// requireUser confirms the --user account exists.
func (w *workspace) requireUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return userError(errors.New("--user must be a positive user id"))
	}
	if _, err := w.diary.Users().Get(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return userError(fmt.Errorf("user %d: %w", id, err))
		}
		return sysError(err)
	}
	return nil
}

// emit prints v as indented JSON in --json mode and text otherwise.
func (o *options) emit(cmd *cobra.Command, v any, text string) error {
	if o.jsonMode {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return sysError(fmt.Errorf("encoding output: %w", err))
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
