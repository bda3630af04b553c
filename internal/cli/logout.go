package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Long: `End the current session.

The local session is discarded even if the server cannot be reached;
the wishlist stays on disk for the next sign-in.

Example:
  storefront logout`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if a.Auth.CurrentUser() == nil {
				if f.Format == "json" {
					return f.Success(map[string]any{"signed_out": false})
				}
				fmt.Fprintln(f.Writer, "Not signed in.")
				return nil
			}

			if err := a.Logout(ctx); err != nil {
				f.VerboseLog("server-side logout failed: %v", err)
			}
			if f.Format == "json" {
				return f.Success(map[string]any{"signed_out": true})
			}
			fmt.Fprintln(f.Writer, "Signed out.")
			return nil
		},
	}
}
