package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/importer"
)

func newImportCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import plants and updates from spreadsheet exports",
	}
	cmd.AddCommand(newImportPlantsCmd(o), newImportUpdatesCmd(o))
	return cmd
}

func newImportPlantsCmd(o *options) *cobra.Command {
	var (
		csvPath, mediaDir string
		userID            int64
		clearExisting     bool
	)
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Import a plants CSV for one user",
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

			f, err := os.Open(csvPath)
			if err != nil {
				return userError(err)
			}
			defer f.Close()

			res, err := w.importer().ImportPlants(ctx, userID, f, importer.PlantOptions{
				ClearExisting: clearExisting,
				MediaDir:      mediaDir,
			})
			if err != nil {
				return classify(err)
			}
			return o.emit(cmd, res, formatPlantResult(res))
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "plants CSV file")
	cmd.Flags().StringVar(&mediaDir, "media-dir", "", "folder holding the files named in \"Files & media\"")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user receiving the plants")
	cmd.Flags().BoolVar(&clearExisting, "clear", false, "delete the user's plants first")
	cmd.MarkFlagRequired("csv")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newImportUpdatesCmd(o *options) *cobra.Command {
	var (
		dir    string
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Import per-plant update folders for one user",
		Long:  "Import the events and photos of every folder below --dir holding a *_all.csv.\nEvents and photos already present are skipped, so the import can be rerun.",
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
			res, err := w.importer().ImportUpdates(ctx, userID, dir)
			if err != nil {
				return classify(err)
			}
			return o.emit(cmd, res, formatUpdateResults(res))
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "folder holding the update folders")
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user owning the plants")
	cmd.MarkFlagRequired("dir")
	cmd.MarkFlagRequired("user")
	return cmd
}

func formatPlantResult(res *importer.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %d of %d plants (%d errors)", res.Success, res.Total, res.Errors)
	for _, m := range res.Messages {
		fmt.Fprintf(&b, "\n  %s", m)
	}
	return b.String()
}

func formatUpdateResults(res []*importer.FolderResult) string {
	var (
		b                    strings.Builder
		events, photos, miss int
	)
	for _, r := range res {
		switch {
		case r.NotFound:
			miss++
			fmt.Fprintf(&b, "  %s: no plant named %q\n", r.Folder, r.Plant)
		case r.Error != "":
			fmt.Fprintf(&b, "  %s: %s\n", r.Folder, r.Error)
		default:
			fmt.Fprintf(&b, "  %s: %d events (%d skipped), %d photos (%d skipped)\n",
				r.Folder, r.EventsAdded, r.EventsSkipped, r.PhotosAdded, r.PhotosSkipped)
			for _, f := range r.Failures {
				fmt.Fprintf(&b, "    failed: %s\n", f)
			}
		}
		events += r.EventsAdded
		photos += r.PhotosAdded
	}
	fmt.Fprintf(&b, "Processed %d folders: %d events and %d photos added, %d plants not found",
		len(res), events, photos, miss)
	return b.String()
}
