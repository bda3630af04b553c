package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product to the cart",
		Long: `Add a quantity of a product to the cart.

The product is fetched from the catalog first so stock can be checked
before the cart mutates. Quantity defaults to 1. If the cart service is
unreachable, the item is kept locally and the cart reports unsynced.

Examples:
  storefront add 42
  storefront add 42 3`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return NewExitError(ExitCommandError, "product-id must be an integer")
			}
			quantity := 1
			if len(args) == 2 {
				quantity, err = strconv.Atoi(args[1])
				if err != nil {
					return NewExitError(ExitCommandError, "quantity must be an integer")
				}
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			product, err := a.Catalog.Get(ctx, productID)
			if err != nil {
				return WrapExitError(ExitFailure, "fetch product", err)
			}
			a.Cart.Add(ctx, product, quantity)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return renderCart(f, a)
		},
	}
}
