package harness

// Scenario defines a scripted cart session.
// Scenarios drive the cart store through a sequence of operations and record
// a trace of state transitions and notifications for assertion and golden
// file comparison.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Backend selects the cart strategy:
	// "local" (default) keeps the cart in the local store and never fails;
	// "offline" fails every backend call, exercising the degraded paths.
	Backend string `yaml:"backend,omitempty"`

	// Products is the catalog available to the scenario's steps.
	Products []ProductDef `yaml:"products"`

	// Steps is the operation sequence to execute.
	Steps []Step `yaml:"steps"`
}

// Backend values for Scenario.Backend.
const (
	BackendLocal   = "local"
	BackendOffline = "offline"
)

// ProductDef declares a catalog product usable in steps.
type ProductDef struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Price int64  `yaml:"price"`
	Stock int    `yaml:"stock"`
}

// Step is one cart operation with an optional expectation on the resulting
// state.
type Step struct {
	// Op is the operation: add, remove, set_quantity, clear or sync.
	Op string `yaml:"op"`

	// Product names the target product by ID (add, remove, set_quantity).
	Product int64 `yaml:"product,omitempty"`

	// Quantity for add and set_quantity.
	Quantity int `yaml:"quantity,omitempty"`

	// Expect validates the state after the step. Nil skips validation;
	// the golden trace still captures the full state.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Operation names for Step.Op.
const (
	OpAdd         = "add"
	OpRemove      = "remove"
	OpSetQuantity = "set_quantity"
	OpClear       = "clear"
	OpSync        = "sync"
)

// Expect is a subset match on cart state. Nil fields are not checked.
type Expect struct {
	TotalItems *int   `yaml:"total_items,omitempty"`
	TotalPrice *int64 `yaml:"total_price,omitempty"`
	Synced     *bool  `yaml:"synced,omitempty"`
}

// TraceEvent records the observable outcome of one step.
type TraceEvent struct {
	Step  int           `json:"step"`
	Op    string        `json:"op"`
	State StateSummary  `json:"state"`
	Notes []NoteSummary `json:"notifications,omitempty"`
}

// StateSummary is the cart state after a step.
type StateSummary struct {
	TotalItems int           `json:"total_items"`
	TotalPrice int64         `json:"total_price"`
	Synced     bool          `json:"synced"`
	Items      []ItemSummary `json:"items,omitempty"`
}

// ItemSummary is one line item in a trace.
type ItemSummary struct {
	Product   int64  `json:"product"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// NoteSummary is one notification emitted during a step.
type NoteSummary struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
}

// Result is the outcome of running a scenario.
type Result struct {
	ScenarioName string
	Trace        []TraceEvent
	Failures     []string
}

// Passed reports whether every step expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}
