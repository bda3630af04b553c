package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ProductView is one catalog entry in command output.
type ProductView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	Stock   int    `json:"stock"`
	InStock bool   `json:"in_stock"`
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Long: `Fetch and display the product catalog from the shop API.

Example:
  storefront products
  storefront products --format json`,
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

			products, err := a.Catalog.List(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "fetch catalog", err)
			}

			views := make([]ProductView, 0, len(products))
			for _, p := range products {
				views = append(views, ProductView{
					ID:      p.ID,
					Name:    p.Name,
					Price:   p.Price,
					Stock:   p.Stock,
					InStock: p.InStock(),
				})
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if f.Format == "json" {
				return f.Success(views)
			}
			for _, v := range views {
				stock := fmt.Sprintf("%d in stock", v.Stock)
				if !v.InStock {
					stock = "out of stock"
				}
				fmt.Fprintf(f.Writer, "%-5d %-30s %10s  %s\n", v.ID, v.Name, FormatCents(v.Price), stock)
			}
			return nil
		},
	}
}
