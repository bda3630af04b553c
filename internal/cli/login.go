package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Register bool
	Name     string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in to the storefront",
		Long: `Sign in and fold the guest cart into the account's cart.

Any items added before signing in follow the user; the anonymous guest
session is discarded once the merge succeeds. With --register, a new
account is created first.

Exit codes:
  0 - Signed in
  1 - Credentials rejected or account creation failed
  2 - Command error

Examples:
  storefront login ada@example.com hunter2
  storefront login bob@example.com secret --register --name Bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password := args[0], args[1]
			if opts.Register && opts.Name == "" {
				return NewExitError(ExitCommandError, "--name is required with --register")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			user := a.Auth.CurrentUser()
			if user != nil {
				return NewExitError(ExitFailure, fmt.Sprintf("already signed in as %s", user.Email))
			}

			if opts.Register {
				u, err := a.Register(ctx, opts.Name, email, password)
				if err != nil {
					return WrapExitError(ExitFailure, "register", err)
				}
				user = &u
			} else {
				u, err := a.Login(ctx, email, password)
				if err != nil {
					return WrapExitError(ExitFailure, "login", err)
				}
				user = &u
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if f.Format == "json" {
				return f.Success(map[string]any{
					"user": user,
					"cart": cartView(a.Cart.State(), nil),
				})
			}
			fmt.Fprintf(f.Writer, "Signed in as %s <%s>\n", user.Name, user.Email)
			return renderCart(f, a)
		},
	}

	cmd.Flags().BoolVar(&opts.Register, "register", false, "create the account first")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name for --register")

	return cmd
}
