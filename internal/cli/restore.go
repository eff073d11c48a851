package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/importer"
)

func newRestoreCmd(o *options) *cobra.Command {
	var (
		opts   importer.RestoreOptions
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace a user's collection with a spreadsheet export",
		Long:  "Delete the user's plants, tags and photo folders, then import the plants CSV\nand, with --updates-dir, the update folders. A missing CSV leaves the\ncollection untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			ctx := cmd.Context()
			if err := w.requireUser(ctx, userID); err != nil {
				return err
			}
			res, err := w.importer().Restore(ctx, userID, opts)
			if err != nil {
				return classify(err)
			}
			text := formatPlantResult(res.Plants)
			if opts.UpdatesDir != "" {
				text += "\n" + formatUpdateResults(res.Updates)
			}
			return o.emit(cmd, res, text)
		},
	}
	cmd.Flags().StringVar(&opts.CSVPath, "csv", "", "plants CSV file")
	cmd.Flags().StringVar(&opts.MediaDir, "media-dir", "", "folder holding the plants' profile photos")
	cmd.Flags().StringVar(&opts.UpdatesDir, "updates-dir", "", "folder holding the update folders")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user to restore")
	cmd.MarkFlagRequired("csv")
	cmd.MarkFlagRequired("user")
	return cmd
}
