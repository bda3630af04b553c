// Package cart implements the cart state machine and its backing strategies.
//
// ARCHITECTURE:
//
// Optimistic-Then-Reconcile:
// Every public operation validates, marks the aggregate loading, and calls
// the backend. A successful call replaces the in-memory item list with the
// canonical snapshot; a failed call applies the mutation locally and flags
// the aggregate unsynced. The UI never blocks and never observes a rollback;
// staleness is surfaced through the synced flag instead of enforced by
// blocking.
//
// Derived Totals:
// TotalItems and TotalPrice are computed by the quantity ledger (Totals)
// inside the reducer on every item-list change. No code path writes them
// directly, so any published State satisfies the aggregate invariant.
//
// Stale-Response Guard:
// Operations are serialized at issuance but their backend calls complete in
// network order. Each issuance bumps a generation counter; a snapshot is
// installed only when no later mutation has been issued, so a slow response
// cannot overwrite newer optimistic state.
//
// Backends:
// The Backend interface has two strategies - remote.Client for the HTTP
// store (with the local-fallback behavior above) and LocalBackend for
// deployments without a remote cart service. The state machine is identical
// across both.
package cart
