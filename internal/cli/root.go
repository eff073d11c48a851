// Package cli implements the plantdiaries command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func userError(err error) error { return &ExitError{Code: exitUserError, Err: err} }

func sysError(err error) error { return &ExitError{Code: exitSysError, Err: err} }

// ExitCode maps an error returned by a command to a process exit code.
// Errors cobra raises for bad flags or arguments count as user errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return exitUserError
}

// options holds the global flag values shared by all subcommands.
type options struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "plantdiaries" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:     "plantdiaries",
		Short:   "Track houseplants, their care events and photos",
		Long:    "Plant diaries serves the plant tracking REST API and runs import, backup\nand maintenance jobs against its database and photo folders.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(opts),
		newServeCmd(opts),
		newSeedAdminCmd(opts),
		newImportCmd(opts),
		newRestoreCmd(opts),
		newBackupCmd(opts),
		newMaintenanceCmd(opts),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}
