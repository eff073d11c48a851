package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/api"
	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/internal/config"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
	"github.com/mesh-intelligence/plantdiaries/internal/telemetry"
)

func newServeCmd(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Long:  "Serve the plant diaries API until interrupted. The log level follows\nlog.level in config.yaml while the server runs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, o *options, addr string) error {
	cfg, v, err := o.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return userError(err)
	}

	level := new(slog.LevelVar)
	l, _ := config.ParseLevel(cfg.Log.Level)
	level.Set(l)
	logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Log.Format, level)
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		config.WatchLogLevel(v, level, logger)
	}

	shutdown, err := telemetry.Setup(cfg.Telemetry.Tracing, cmd.ErrOrStderr(), Version)
	if err != nil {
		return sysError(err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	diary, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return sysError(err)
	}
	defer diary.Close()

	store, err := photos.NewOSStore(cfg.Uploads.Dir)
	if err != nil {
		return sysError(err)
	}
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return userError(err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := api.New(api.Deps{
		Diary:    diary,
		Store:    store,
		Issuer:   issuer,
		Throttle: auth.NewThrottle(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
		Metrics:  metrics.New(),
		Logger:   logger,
	}, api.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Tracing:        cfg.Telemetry.Tracing,
	})

	if addr == "" {
		addr = cfg.Server.Addr
	}
	logger.Info("starting plant diaries", "version", Version, "database", cfg.Database.Path, "uploads", cfg.Uploads.Dir)
	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return sysError(fmt.Errorf("serving: %w", err))
	}
	return nil
}
