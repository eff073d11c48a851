package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/maintenance"
	"github.com/mesh-intelligence/plantdiaries/internal/metrics"
)

func newMaintenanceCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Repair photo records and folder layouts",
	}
	cmd.AddCommand(
		newCleanupOrphansCmd(o),
		newMigrateCmd(o, "migrate-paths",
			"Move legacy /uploads/<plant>/<file> photos into per-user folders",
			(*maintenance.Jobs).MigratePhotoPaths),
		newMigrateCmd(o, "migrate-root-photos",
			"Move photos stored directly in the upload root into their plant folders",
			(*maintenance.Jobs).MigrateRootPhotos),
	)
	return cmd
}

func (w *workspace) jobs() *maintenance.Jobs {
	return maintenance.New(w.diary, w.store, w.logger, metrics.New())
}

func newCleanupOrphansCmd(o *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup-orphans",
		Short: "Delete photo records whose file is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			rep, err := w.jobs().CleanupOrphans(cmd.Context(), dryRun)
			if err != nil {
				return classify(err)
			}
			text := fmt.Sprintf("Checked %d photos: %d valid, %d orphaned, %d removed",
				rep.Checked, rep.Valid, rep.Orphaned, rep.Removed)
			if dryRun {
				text += " (dry run)"
			}
			return o.emit(cmd, rep, text)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	return cmd
}

type migrateFunc func(*maintenance.Jobs, context.Context) (*maintenance.MigrationReport, error)

func newMigrateCmd(o *options, use, short string, run migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			rep, err := run(w.jobs(), cmd.Context())
			if err != nil {
				return classify(err)
			}
			return o.emit(cmd, rep, formatMigration(rep))
		},
	}
}

func formatMigration(rep *maintenance.MigrationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checked %d paths: %d updated, %d files moved, %d skipped",
		rep.Checked, rep.Updated, rep.Moved, rep.Skipped)
	for _, w := range rep.Warnings {
		fmt.Fprintf(&b, "\n  warning: %s", w)
	}
	return b.String()
}
