package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// Default administrator credentials.
const (
	defaultAdminEmail    = "admin@plantdiaries.local"
	defaultAdminPassword = "admin123"
	defaultAdminName     = "Admin"
)

type seedAdminResult struct {
	User    *types.User `json:"user"`
	Created bool        `json:"created"`
}

func newSeedAdminCmd(o *options) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account with id 1",
		Long:  "Create the administrator as user 1. Nothing changes when user 1 exists.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedAdmin(cmd, o, email, password, name)
		},
	}
	cmd.Flags().StringVar(&email, "email", defaultAdminEmail, "administrator email")
	cmd.Flags().StringVar(&password, "password", defaultAdminPassword, "administrator password")
	cmd.Flags().StringVar(&name, "name", defaultAdminName, "administrator display name")
	return cmd
}

func runSeedAdmin(cmd *cobra.Command, o *options, email, password, name string) error {
	if err := auth.CheckCredentials(email, password); err != nil {
		return userError(err)
	}
	w, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return sysError(err)
	}
	u, created, err := w.diary.Users().CreateAdmin(cmd.Context(), &types.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  types.OptionalString(name),
	})
	if err != nil {
		return classify(err)
	}

	text := fmt.Sprintf("Admin user already exists with id %d (%s)", u.ID, u.Email)
	if created {
		text = fmt.Sprintf("Admin user created with id %d (%s)", u.ID, u.Email)
		if password == defaultAdminPassword {
			w.logger.Warn("admin uses the default password, change it after first login")
		}
	}
	return o.emit(cmd, seedAdminResult{User: u, Created: created}, text)
}
