package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/sqlite"
)

func newBackupCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or load the database as JSONL files",
	}
	cmd.AddCommand(newBackupExportCmd(o), newBackupLoadCmd(o))
	return cmd
}

func newBackupExportCmd(o *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one <table>.jsonl file per table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			stats, err := w.diary.Export(cmd.Context(), out)
			if err != nil {
				return classify(err)
			}
			return o.emit(cmd, stats, formatStats("Exported to "+out, stats))
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "backup directory")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newBackupLoadCmd(o *options) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a backup into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			stats, err := w.diary.Import(cmd.Context(), from)
			if err != nil {
				return classify(err)
			}
			return o.emit(cmd, stats, formatStats("Loaded from "+from, stats))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "backup directory")
	cmd.MarkFlagRequired("from")
	return cmd
}

func formatStats(title string, stats sqlite.BackupStats) string {
	tables := make([]string, 0, len(stats))
	for t := range stats {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	var b strings.Builder
	b.WriteString(title)
	for _, t := range tables {
		fmt.Fprintf(&b, "\n  %-14s %d", t, stats[t])
	}
	return b.String()
}
