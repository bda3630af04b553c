package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/fakeapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	Seed bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-process development API",
		Long: `Start the in-memory storefront API for local development.

The server speaks the same wire contract as the production API: catalog
reads, guest and bearer cart sessions, merge on login. State is held in
memory and lost on exit. With --seed, a small demo catalog and account
(ada@example.com / hunter2) are preloaded.

Examples:
  storefront serve
  storefront serve --addr :8600 --seed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8600", "listen address")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "preload demo catalog and account")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	api := fakeapi.New()
	if opts.Seed {
		api.SeedProduct(catalog.Product{ID: 1, Name: "Keycap Set", Slug: "keycap-set", Price: 6500, Stock: 40, IsActive: true})
		api.SeedProduct(catalog.Product{ID: 2, Name: "Switch Pack", Slug: "switch-pack", Price: 3500, Stock: 120, IsActive: true})
		api.SeedProduct(catalog.Product{ID: 3, Name: "Artisan Cap", Slug: "artisan-cap", Price: 9000, Stock: 0, IsActive: true})
		api.SeedAccount("Ada", "ada@example.com", "hunter2")
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(cmd.OutOrStdout(), "storefront API listening on %s\n", opts.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "serve", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", err)
	}
	return nil
}
