package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long a notification stays visible unless the
// caller overrides it.
const DefaultDuration = 3 * time.Second

// Notification is one user-visible entry in the queue.
type Notification struct {
	ID       string        `json:"id"`
	Severity Severity      `json:"severity"`
	Title    string        `json:"title"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"-"`
	Closable bool          `json:"closable"`
}

// Scheduler schedules deferred removal of notifications.
// The production implementation wraps time.AfterFunc; tests substitute a
// manual scheduler to control expiry deterministically.
type Scheduler interface {
	// AfterFunc runs fn after d elapses and returns a cancel function.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Queue holds the currently visible notifications in arrival order.
//
// Multiple notifications may be visible concurrently; the queue never
// reorders by severity. Entries with a positive duration are removed
// automatically when the duration elapses, and any entry can be dismissed
// early by ID.
//
// Thread-safety: all methods are safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	entries []Notification
	cancels map[string]func()
	sched   Scheduler
	newID   func() string
}

// Option configures a Queue.
type Option func(*Queue)

// WithScheduler substitutes the expiry scheduler. Used by tests.
func WithScheduler(s Scheduler) Option {
	return func(q *Queue) { q.sched = s }
}

// WithIDGenerator substitutes the notification ID generator. Used by tests
// and by the scenario harness for deterministic traces.
func WithIDGenerator(fn func() string) Option {
	return func(q *Queue) { q.newID = fn }
}

// NewQueue creates an empty notification queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		cancels: make(map[string]func()),
		sched:   timerScheduler{},
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// PushOption customizes a single pushed notification.
type PushOption func(*Notification)

// WithMessage sets the optional detail line under the title.
func WithMessage(msg string) PushOption {
	return func(n *Notification) { n.Message = msg }
}

// WithDuration overrides the display duration.
// A zero or negative duration keeps the notification until dismissed.
func WithDuration(d time.Duration) PushOption {
	return func(n *Notification) {
		if d < 0 {
			d = 0
		}
		n.Duration = d
	}
}

// WithoutClose marks the notification as not user-dismissible.
func WithoutClose() PushOption {
	return func(n *Notification) { n.Closable = false }
}

// Push appends a notification and returns its generated ID.
// Defaults: Duration = DefaultDuration, Closable = true.
func (q *Queue) Push(sev Severity, title string, opts ...PushOption) string {
	n := Notification{
		Severity: sev,
		Title:    title,
		Duration: DefaultDuration,
		Closable: true,
	}
	for _, opt := range opts {
		opt(&n)
	}
	n.ID = q.newID()

	q.mu.Lock()
	q.entries = append(q.entries, n)
	if n.Duration > 0 {
		id := n.ID
		q.cancels[id] = q.sched.AfterFunc(n.Duration, func() { q.Dismiss(id) })
	}
	q.mu.Unlock()

	return n.ID
}

// Dismiss removes the notification with the given ID.
// Dismissing an unknown ID is a no-op.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if cancel, ok := q.cancels[id]; ok {
		cancel()
		delete(q.cancels, id)
	}
	for i, n := range q.entries {
		if n.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Active returns the visible notifications in arrival order.
// The returned slice is a copy.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of visible notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close cancels all pending expiry timers and drops all entries.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, cancel := range q.cancels {
		cancel()
		delete(q.cancels, id)
	}
	q.entries = nil
}
