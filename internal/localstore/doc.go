// Package localstore provides SQLite-backed durable storage for client state.
//
// It is the offline backup layer of the storefront: a single key-value table
// holding the cart backup, per-user wishlists, the guest session token, and
// the auth credential. Owners of in-memory state mirror copies here and read
// them back only when the remote store is unreachable at startup.
//
// # Record Layout
//
//   - "cart"              JSON array of cart line items (offline backup)
//   - "local_cart"        JSON snapshot for the local-only cart backend
//   - "wishlist:<userID>" JSON array of wishlist entries for one user
//   - "guest_session"     opaque guest session token
//   - "auth_token"        bearer credential for the remote store
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package localstore
