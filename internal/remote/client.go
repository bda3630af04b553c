// Package remote implements the cart backend over the storefront HTTP API.
//
// Requests are addressed either by bearer token (authenticated users) or by
// the guest session header. The guest token is requested lazily: the first
// unauthenticated cart call creates it, earlier reads do not.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/axiskeys/storefront/internal/cart"
	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/session"
)

// SessionHeader carries the guest session token on unauthenticated requests.
const SessionHeader = "X-Session-ID"

// TokenSource supplies the bearer token for authenticated requests.
// The second return is false when no user is signed in.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// APIError is a non-2xx response from the cart API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cart api: status %d", e.Status)
	}
	return fmt.Sprintf("cart api: status %d: %s", e.Status, e.Message)
}

// Client implements cart.Backend against the remote cart service.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
	guest  *session.Guest
}

var _ cart.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTokenSource attaches the bearer token source for authenticated calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithGuest attaches the guest identity used when no user is signed in.
func WithGuest(g *session.Guest) Option {
	return func(c *Client) { c.guest = g }
}

// WithHTTPClient substitutes the underlying HTTP client. Used by tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a cart client for the given API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireItem is the API's line item shape. Product is a pointer: the server
// sends null for items whose product was deleted from the catalog.
type wireItem struct {
	ID        int64            `json:"id"`
	Product   *catalog.Product `json:"product"`
	Quantity  int              `json:"quantity"`
	UnitPrice int64            `json:"unit_price"`
	Subtotal  int64            `json:"subtotal"`
	AddedAt   time.Time        `json:"created_at"`
}

type wireCart struct {
	ID    int64      `json:"id"`
	Items []wireItem `json:"items"`
}

// snapshot converts the wire cart, dropping items with no product.
func (w wireCart) snapshot() cart.Snapshot {
	snap := cart.Snapshot{CartID: w.ID}
	for _, it := range w.Items {
		if it.Product == nil || it.Quantity <= 0 {
			continue
		}
		snap.Items = append(snap.Items, cart.Item{
			RemoteID:  it.ID,
			Product:   *it.Product,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return snap
}

// Get implements cart.Backend.
func (c *Client) Get(ctx context.Context) (cart.Snapshot, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil)
}

// AddItem implements cart.Backend.
func (c *Client) AddItem(ctx context.Context, p catalog.Product, quantity int) (cart.Snapshot, error) {
	body := map[string]any{"product_id": p.ID, "quantity": quantity}
	return c.cartCall(ctx, http.MethodPost, "/cart/items", body)
}

// UpdateItem implements cart.Backend.
func (c *Client) UpdateItem(ctx context.Context, itemID int64, quantity int) (cart.Snapshot, error) {
	body := map[string]any{"quantity": quantity}
	return c.cartCall(ctx, http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), body)
}

// RemoveItem implements cart.Backend.
func (c *Client) RemoveItem(ctx context.Context, itemID int64) (cart.Snapshot, error) {
	return c.cartCall(ctx, http.MethodDelete, fmt.Sprintf("/cart/items/%d", itemID), nil)
}

// Clear implements cart.Backend.
func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/cart", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Merge implements cart.Backend. The bearer token addresses the target cart;
// the guest session ID names the cart being folded in.
func (c *Client) Merge(ctx context.Context, guestSessionID string) (cart.Snapshot, error) {
	body := map[string]any{"session_id": guestSessionID}
	return c.cartCall(ctx, http.MethodPost, "/cart/merge", body)
}

// cartCall performs a request whose success response is a cart envelope.
func (c *Client) cartCall(ctx context.Context, method, path string, body any) (cart.Snapshot, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return cart.Snapshot{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return cart.Snapshot{}, err
	}

	var payload struct {
		Data wireCart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return cart.Snapshot{}, fmt.Errorf("decode cart response: %w", err)
	}
	return payload.Data.snapshot(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode cart request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// authorize attaches the bearer token when a user is signed in, otherwise
// the guest session header, creating the guest token on first use.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
			return nil
		}
	}
	if c.guest != nil {
		token, err := c.guest.GetOrCreate(ctx)
		if err != nil {
			return fmt.Errorf("guest session: %w", err)
		}
		req.Header.Set(SessionHeader, token)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
