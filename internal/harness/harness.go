// Package harness runs scripted cart sessions from YAML scenario files.
//
// Each scenario executes against a fresh in-memory local store with a fixed
// clock and sequential notification IDs, so two runs of the same scenario
// produce byte-identical traces. Traces are validated two ways: step-level
// expectations inside the scenario file, and golden file comparison.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axiskeys/storefront/internal/cart"
	"github.com/axiskeys/storefront/internal/catalog"
	"github.com/axiskeys/storefront/internal/localstore"
	"github.com/axiskeys/storefront/internal/notify"
	"github.com/axiskeys/storefront/internal/testutil"
)

var errOffline = errors.New("cart service offline")

// offlineBackend fails every call. Scenarios use it to drive the cart
// through its degraded paths.
type offlineBackend struct{}

func (offlineBackend) Get(context.Context) (cart.Snapshot, error) {
	return cart.Snapshot{}, errOffline
}

func (offlineBackend) AddItem(context.Context, catalog.Product, int) (cart.Snapshot, error) {
	return cart.Snapshot{}, errOffline
}

func (offlineBackend) UpdateItem(context.Context, int64, int) (cart.Snapshot, error) {
	return cart.Snapshot{}, errOffline
}

func (offlineBackend) RemoveItem(context.Context, int64) (cart.Snapshot, error) {
	return cart.Snapshot{}, errOffline
}

func (offlineBackend) Clear(context.Context) error { return errOffline }

func (offlineBackend) Merge(context.Context, string) (cart.Snapshot, error) {
	return cart.Snapshot{}, errOffline
}

// Run executes a scenario and returns its trace and expectation failures.
//
// Each run gets a fresh in-memory database; nothing leaks between scenarios.
func Run(scenario *Scenario) (*Result, error) {
	kv, err := localstore.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer kv.Close()

	clock := testutil.NewFixedClock(time.Unix(1700000000, 0))
	queue := notify.NewQueue(
		notify.WithScheduler(testutil.NewManualScheduler()),
		notify.WithIDGenerator(testutil.NewSequentialIDs("note").Next),
	)
	defer queue.Close()

	var backend cart.Backend
	if scenario.Backend == BackendOffline {
		backend = offlineBackend{}
	} else {
		backend = cart.NewLocalBackend(kv, clock.Now)
	}

	store := cart.New(backend,
		cart.WithNotifications(queue),
		cart.WithBackup(cart.NewBackup(kv)),
		cart.WithClock(clock.Now))

	products := make(map[int64]catalog.Product, len(scenario.Products))
	for _, p := range scenario.Products {
		products[p.ID] = catalog.Product{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Stock:    p.Stock,
			IsActive: true,
		}
	}

	ctx := context.Background()
	result := &Result{ScenarioName: scenario.Name}
	notesSeen := 0

	for i, step := range scenario.Steps {
		switch step.Op {
		case OpAdd:
			store.Add(ctx, products[step.Product], step.Quantity)
		case OpRemove:
			store.Remove(ctx, step.Product)
		case OpSetQuantity:
			store.SetQuantity(ctx, step.Product, step.Quantity)
		case OpClear:
			store.Clear(ctx)
		case OpSync:
			store.Sync(ctx)
		default:
			return nil, fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}

		state := store.State()
		event := TraceEvent{Step: i + 1, Op: step.Op, State: summarize(state)}

		active := queue.Active()
		for _, n := range active[notesSeen:] {
			event.Notes = append(event.Notes, NoteSummary{
				Severity: n.Severity.String(),
				Title:    n.Title,
				Message:  n.Message,
			})
		}
		notesSeen = len(active)
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			checkExpect(result, i+1, step.Expect, state)
		}
	}
	return result, nil
}

func summarize(st cart.State) StateSummary {
	s := StateSummary{
		TotalItems: st.TotalItems,
		TotalPrice: st.TotalPrice,
		Synced:     st.IsSynced,
	}
	for _, it := range st.Items {
		s.Items = append(s.Items, ItemSummary{
			Product:   it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}
	return s
}

func checkExpect(result *Result, step int, expect *Expect, st cart.State) {
	if expect.TotalItems != nil && st.TotalItems != *expect.TotalItems {
		result.Failures = append(result.Failures,
			fmt.Sprintf("step %d: total_items = %d, want %d", step, st.TotalItems, *expect.TotalItems))
	}
	if expect.TotalPrice != nil && st.TotalPrice != *expect.TotalPrice {
		result.Failures = append(result.Failures,
			fmt.Sprintf("step %d: total_price = %d, want %d", step, st.TotalPrice, *expect.TotalPrice))
	}
	if expect.Synced != nil && st.IsSynced != *expect.Synced {
		result.Failures = append(result.Failures,
			fmt.Sprintf("step %d: synced = %t, want %t", step, st.IsSynced, *expect.Synced))
	}
}
