// Package harness provides scenario-based conformance testing for cart flows.
//
// The harness loads scripted cart sessions, executes them against a fully
// deterministic store, and records a trace of state transitions and
// notifications for assertion and golden snapshot comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario demonstrates"
//	backend: local          # or "offline" to fail every backend call
//	products:
//	  - { id: 1, name: "Keycap Set", price: 500, stock: 10 }
//	steps:
//	  - op: add
//	    product: 1
//	    quantity: 2
//	    expect:
//	      total_items: 2
//	      total_price: 1000
//	      synced: true
//
// Supported ops: add, remove, set_quantity, clear, sync. Each step may carry
// an expect block asserting the derived totals and sync flag after the
// operation completes.
//
// # Deterministic Execution
//
// All scenarios run with:
//   - An in-memory SQLite database (isolated per run)
//   - A fixed clock (testutil.FixedClock)
//   - A manual notification scheduler (testutil.ManualScheduler)
//   - Sequential notification IDs (testutil.SequentialIDs)
//
// This ensures identical traces across runs for golden file comparison.
package harness
