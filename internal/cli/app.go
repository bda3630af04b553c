package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/axiskeys/storefront/internal/app"
	"github.com/axiskeys/storefront/internal/cart"
	"github.com/axiskeys/storefront/internal/config"
	"github.com/axiskeys/storefront/internal/notify"
)

// loadConfig resolves the effective configuration: the file named by
// --config, or the defaults when the flag is absent.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	return cfg, nil
}

// openApp assembles and initializes the storefront for one command run.
// The caller must Close the returned app.
func openApp(ctx context.Context, opts *RootOptions) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	a, err := app.New(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "assemble storefront", err)
	}
	if err := a.Init(ctx); err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "initialize storefront", err)
	}
	return a, nil
}

// CartItemView is one cart line in command output.
type CartItemView struct {
	Product   int64  `json:"product"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// CartView is the cart summary in command output.
type CartView struct {
	Items      []CartItemView     `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice int64              `json:"total_price"`
	Synced     bool               `json:"synced"`
	Notes      []NotificationView `json:"notifications,omitempty"`
}

// NotificationView is one notification in command output.
type NotificationView struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
}

func cartView(st cart.State, notes []notify.Notification) CartView {
	view := CartView{
		TotalItems: st.TotalItems,
		TotalPrice: st.TotalPrice,
		Synced:     st.IsSynced,
	}
	for _, it := range st.Items {
		view.Items = append(view.Items, CartItemView{
			Product:   it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}
	for _, n := range notes {
		view.Notes = append(view.Notes, NotificationView{
			Severity: n.Severity.String(),
			Title:    n.Title,
			Message:  n.Message,
		})
	}
	return view
}

// renderCart writes the cart state and any notifications from the command.
func renderCart(f *OutputFormatter, a *app.App) error {
	view := cartView(a.Cart.State(), a.Notes.Active())
	if f.Format == "json" {
		return f.Success(view)
	}

	for _, n := range view.Notes {
		fmt.Fprintf(f.Writer, "[%s] %s", n.Severity, n.Title)
		if n.Message != "" {
			fmt.Fprintf(f.Writer, ": %s", n.Message)
		}
		fmt.Fprintln(f.Writer)
	}

	if len(view.Items) == 0 {
		fmt.Fprintln(f.Writer, "Cart is empty.")
	} else {
		for _, it := range view.Items {
			fmt.Fprintf(f.Writer, "%-30s x%-3d %10s\n", it.Name, it.Quantity, FormatCents(it.LineTotal))
		}
		fmt.Fprintf(f.Writer, "%-30s %-4d %10s\n", "Total", view.TotalItems, FormatCents(view.TotalPrice))
	}
	if !view.Synced {
		fmt.Fprintln(f.Writer, "Warning: cart is not synced with the server.")
	}
	return nil
}
