// Package app wires the storefront subsystems into one running unit: local
// store, notification queue, guest identity, account client, cart and
// wishlist. It owns session transitions, the one place where cart merge,
// guest token disposal and wishlist switching must happen in the right order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/axiskeys/storefront/internal/auth"
	"github.com/axiskeys/storefront/internal/cart"
	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/config"
	"github.com/axiskeys/storefront/internal/localstore"
	"github.com/axiskeys/storefront/internal/notify"
	"github.com/axiskeys/storefront/internal/remote"
	"github.com/axiskeys/storefront/internal/session"
	"github.com/axiskeys/storefront/internal/wishlist"
)

// App is the assembled storefront.
type App struct {
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Catalog  *catalog.Client
	Auth     *auth.Client
	Notes    *notify.Queue

	guest  *session.Guest
	backup *cart.Backup
	kv     *localstore.Store
}

// Option configures the assembly.
type Option func(*options)

type options struct {
	queue    *notify.Queue
	tokenGen session.TokenGenerator
}

// WithQueue substitutes the notification queue. Used by tests for
// deterministic IDs and expiry.
func WithQueue(q *notify.Queue) Option {
	return func(o *options) { o.queue = q }
}

// WithTokenGenerator substitutes the guest token generator. Used by tests.
func WithTokenGenerator(gen session.TokenGenerator) Option {
	return func(o *options) { o.tokenGen = gen }
}

// New assembles the storefront from configuration. Close releases the local
// store.
func New(cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kv, err := localstore.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	notes := o.queue
	if notes == nil {
		notes = notify.NewQueue()
	}

	httpClient := &http.Client{Timeout: cfg.API.Timeout.Std()}

	guest := session.NewGuest(kv, o.tokenGen)
	account := auth.NewClient(cfg.API.BaseURL, kv, auth.WithHTTPClient(httpClient))
	backup := cart.NewBackup(kv)

	var backend cart.Backend
	switch cfg.Cart.Backend {
	case config.BackendLocal:
		backend = cart.NewLocalBackend(kv, nil)
	default:
		backend = remote.NewClient(cfg.API.BaseURL,
			remote.WithTokenSource(account),
			remote.WithGuest(guest),
			remote.WithHTTPClient(httpClient))
	}

	return &App{
		Cart:     cart.New(backend, cart.WithNotifications(notes), cart.WithBackup(backup)),
		Wishlist: wishlist.New(kv, wishlist.WithNotifications(notes)),
		Catalog:  catalog.NewClient(cfg.API.BaseURL, catalog.WithHTTPClient(httpClient)),
		Auth:     account,
		Notes:    notes,
		guest:    guest,
		backup:   backup,
		kv:       kv,
	}, nil
}

// Init restores the persisted session, attaches the wishlist and performs
// the initial cart sync. A dead backend degrades to the local backup inside
// Sync; Init itself only fails on local store errors.
func (a *App) Init(ctx context.Context) error {
	user, err := a.Auth.Restore(ctx)
	if err != nil {
		slog.Warn("session restore failed, continuing as guest", "error", err)
	}
	if user != nil {
		if err := a.Wishlist.SetUser(ctx, user); err != nil {
			return fmt.Errorf("load wishlist: %w", err)
		}
	}
	a.Cart.Sync(ctx)
	return nil
}

// Login signs the user in and folds the guest cart into theirs.
//
// The guest token is read before authenticating so the merge can name the
// cart that is about to be orphaned. The token is discarded only after a
// successful merge; on merge failure it is kept so a later login can retry.
func (a *App) Login(ctx context.Context, email, password string) (auth.User, error) {
	guestToken, hadGuest, err := a.guest.Current(ctx)
	if err != nil {
		return auth.User{}, err
	}

	user, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}

	if hadGuest {
		if a.Cart.Merge(ctx, guestToken) {
			if err := a.guest.Clear(ctx); err != nil {
				slog.Warn("clear guest session failed", "error", err)
			}
		}
	} else {
		a.Cart.Sync(ctx)
	}

	if err := a.Wishlist.SetUser(ctx, &user); err != nil {
		return user, fmt.Errorf("load wishlist: %w", err)
	}

	a.Notes.Push(notify.SeveritySuccess, "Signed in",
		notify.WithMessage(fmt.Sprintf("Welcome back, %s", user.Name)))
	return user, nil
}

// Register creates an account and signs it in, with the same guest cart
// handling as Login.
func (a *App) Register(ctx context.Context, name, email, password string) (auth.User, error) {
	guestToken, hadGuest, err := a.guest.Current(ctx)
	if err != nil {
		return auth.User{}, err
	}

	user, err := a.Auth.Register(ctx, name, email, password)
	if err != nil {
		return auth.User{}, err
	}

	if hadGuest {
		if a.Cart.Merge(ctx, guestToken) {
			if err := a.guest.Clear(ctx); err != nil {
				slog.Warn("clear guest session failed", "error", err)
			}
		}
	} else {
		a.Cart.Sync(ctx)
	}

	if err := a.Wishlist.SetUser(ctx, &user); err != nil {
		return user, fmt.Errorf("load wishlist: %w", err)
	}

	a.Notes.Push(notify.SeveritySuccess, "Account created",
		notify.WithMessage(fmt.Sprintf("Welcome, %s", user.Name)))
	return user, nil
}

// Logout ends the session. The next visitor starts with an empty cart and a
// detached wishlist; the signed-out user's wishlist stays on disk for their
// next session.
func (a *App) Logout(ctx context.Context) error {
	err := a.Auth.Logout(ctx)

	if werr := a.Wishlist.SetUser(ctx, nil); werr != nil {
		slog.Warn("detach wishlist failed", "error", werr)
	}
	a.Cart.Reset()
	if berr := a.backup.Clear(ctx); berr != nil {
		slog.Warn("clear cart backup failed", "error", berr)
	}

	a.Notes.Push(notify.SeverityInfo, "Signed out")
	return err
}

// Close releases the local store and drops pending notifications.
func (a *App) Close() error {
	a.Notes.Close()
	return a.kv.Close()
}
