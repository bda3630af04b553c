// Package fakeapi is an in-process storefront API for development and tests.
//
// It serves the same wire contract as the production cart, catalog and
// account services: envelope responses, bearer or guest-session addressing,
// server-side duplicate consolidation and stock checks. State lives in
// memory; a restart starts clean.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/axiskeys/storefront/internal/catalog"
)

type serverItem struct {
	ID        int64
	ProductID int64
	Quantity  int
	UnitPrice int64
	AddedAt   time.Time
}

type serverCart struct {
	ID    int64
	Items []*serverItem
}

type account struct {
	ID       int64
	Name     string
	Email    string
	Password string
}

// Server is the fake storefront API.
//
// Thread-safety: the handler may serve concurrent requests; all state access
// is guarded by one mutex.
type Server struct {
	mu sync.Mutex

	products map[int64]catalog.Product
	deleted  map[int64]bool
	carts    map[string]*serverCart
	accounts map[string]*account // by email
	tokens   map[string]*account // by bearer token

	nextCartID    int64
	nextItemID    int64
	nextAccountID int64

	failing bool
	now     func() time.Time
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock substitutes the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty fake API.
func New(opts ...Option) *Server {
	s := &Server{
		products: make(map[int64]catalog.Product),
		deleted:  make(map[int64]bool),
		carts:    make(map[string]*serverCart),
		accounts: make(map[string]*account),
		tokens:   make(map[string]*account),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/products", s.handleListProducts)
	r.Get("/products/{id}", s.handleGetProduct)

	r.Get("/cart", s.handleGetCart)
	r.Post("/cart/items", s.handleAddItem)
	r.Put("/cart/items/{id}", s.handleUpdateItem)
	r.Delete("/cart/items/{id}", s.handleRemoveItem)
	r.Delete("/cart", s.handleClearCart)
	r.Post("/cart/merge", s.handleMergeCart)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/me", s.handleMe)

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or httptest.
func (s *Server) Handler() http.Handler { return s.router }

// SetFailing makes every endpoint answer 503 until turned off again.
// Used to exercise clients' degraded paths.
func (s *Server) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// SeedProduct adds or replaces a catalog product.
func (s *Server) SeedProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	delete(s.deleted, p.ID)
}

// DeleteProduct removes a product from the catalog. Cart items referencing
// it are kept but serialized with a null product, as the production API does.
func (s *Server) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	s.deleted[id] = true
}

// SeedAccount registers a user without going through the register endpoint.
func (s *Server) SeedAccount(name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addAccountLocked(name, email, password)
}

func (s *Server) addAccountLocked(name, email, password string) *account {
	s.nextAccountID++
	a := &account{ID: s.nextAccountID, Name: name, Email: email, Password: password}
	s.accounts[email] = a
	return a
}

// owner resolves the cart key for a request: bearer token first, then the
// guest session header.
func (s *Server) owner(r *http.Request) (string, bool) {
	if bearer, ok := bearerToken(r); ok {
		if a, known := s.tokens[bearer]; known {
			return fmt.Sprintf("user:%d", a.ID), true
		}
		return "", false
	}
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return "session:" + sid, true
	}
	return "", false
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

func (s *Server) cartFor(key string) *serverCart {
	c, ok := s.carts[key]
	if !ok {
		s.nextCartID++
		c = &serverCart{ID: s.nextCartID}
		s.carts[key] = c
	}
	return c
}

// unavailable answers 503 when failure mode is on. Caller holds s.mu.
func (s *Server) unavailableLocked(w http.ResponseWriter) bool {
	if !s.failing {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, "service unavailable")
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": message})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// cartJSON serializes a cart in the wire shape. Caller holds s.mu.
func (s *Server) cartJSONLocked(c *serverCart) map[string]any {
	items := make([]any, 0, len(c.Items))
	for _, it := range c.Items {
		var product any
		if p, ok := s.products[it.ProductID]; ok {
			product = p
		}
		items = append(items, map[string]any{
			"id":         it.ID,
			"product":    product,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
			"subtotal":   it.UnitPrice * int64(it.Quantity),
			"created_at": it.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return map[string]any{"id": c.ID, "items": items}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, ok := s.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	key, ok := s.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, s.cartJSONLocked(s.cartFor(key)))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	key, ok := s.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	var body struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Quantity <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be positive")
		return
	}
	p, exists := s.products[body.ProductID]
	if !exists {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	c := s.cartFor(key)
	current := 0
	for _, it := range c.Items {
		if it.ProductID == body.ProductID {
			current = it.Quantity
			break
		}
	}
	if current+body.Quantity > p.Stock {
		writeError(w, http.StatusUnprocessableEntity, "insufficient stock")
		return
	}

	found := false
	for _, it := range c.Items {
		if it.ProductID == body.ProductID {
			it.Quantity += body.Quantity
			found = true
			break
		}
	}
	if !found {
		s.nextItemID++
		c.Items = append(c.Items, &serverItem{
			ID:        s.nextItemID,
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			UnitPrice: p.Price,
			AddedAt:   s.now(),
		})
	}
	writeJSON(w, http.StatusOK, s.cartJSONLocked(c))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	key, ok := s.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	c := s.cartFor(key)
	for i, it := range c.Items {
		if it.ID != itemID {
			continue
		}
		if body.Quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			it.Quantity = body.Quantity
		}
		writeJSON(w, http.StatusOK, s.cartJSONLocked(c))
		return
	}
	writeError(w, http.StatusNotFound, "item not found")
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	key, ok := s.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	c := s.cartFor(key)
	for i, it := range c.Items {
		if it.ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, s.cartJSONLocked(c))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	key, ok := s.owner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	s.cartFor(key).Items = nil
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMergeCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	bearer, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "merge requires a signed-in user")
		return
	}
	a, known := s.tokens[bearer]
	if !known {
		writeError(w, http.StatusUnauthorized, "unknown token")
		return
	}

	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	userCart := s.cartFor(fmt.Sprintf("user:%d", a.ID))
	guestKey := "session:" + body.SessionID
	if guestCart, exists := s.carts[guestKey]; exists {
		for _, gi := range guestCart.Items {
			merged := false
			for _, ui := range userCart.Items {
				if ui.ProductID == gi.ProductID {
					ui.Quantity += gi.Quantity
					merged = true
					break
				}
			}
			if !merged {
				userCart.Items = append(userCart.Items, gi)
			}
		}
		delete(s.carts, guestKey)
	}
	writeJSON(w, http.StatusOK, s.cartJSONLocked(userCart))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	a, ok := s.accounts[body.Email]
	if !ok || a.Password != body.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.issueSessionLocked(w, a)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}

	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}
	if _, taken := s.accounts[body.Email]; taken {
		writeError(w, http.StatusUnprocessableEntity, "email already registered")
		return
	}
	a := s.addAccountLocked(body.Name, body.Email, body.Password)
	s.issueSessionLocked(w, a)
}

func (s *Server) issueSessionLocked(w http.ResponseWriter, a *account) {
	token := uuid.Must(uuid.NewV7()).String()
	s.tokens[token] = a
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  map[string]any{"id": a.ID, "name": a.Name, "email": a.Email},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	if bearer, ok := bearerToken(r); ok {
		delete(s.tokens, bearer)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailableLocked(w) {
		return
	}
	bearer, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no token")
		return
	}
	a, known := s.tokens[bearer]
	if !known {
		writeError(w, http.StatusUnauthorized, "unknown token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": a.ID, "name": a.Name, "email": a.Email})
}
