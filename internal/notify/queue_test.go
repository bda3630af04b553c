package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiskeys/storefront/internal/testutil"
)

func newTestQueue(t *testing.T) (*Queue, *testutil.ManualScheduler) {
	t.Helper()
	sched := testutil.NewManualScheduler()
	ids := testutil.NewSequentialIDs("note")
	return NewQueue(WithScheduler(sched), WithIDGenerator(ids.Next)), sched
}

func TestPush_AppliesDefaults(t *testing.T) {
	q, _ := newTestQueue(t)

	id := q.Push(SeveritySuccess, "Added to cart")
	require.Equal(t, "note-1", id)

	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, SeveritySuccess, active[0].Severity)
	assert.Equal(t, "Added to cart", active[0].Title)
	assert.Equal(t, DefaultDuration, active[0].Duration)
	assert.True(t, active[0].Closable)
}

func TestPush_Options(t *testing.T) {
	q, _ := newTestQueue(t)

	q.Push(SeverityWarning, "Out of stock",
		WithMessage("Switch Tester is currently unavailable"),
		WithDuration(4*time.Second),
		WithoutClose(),
	)

	n := q.Active()[0]
	assert.Equal(t, "Switch Tester is currently unavailable", n.Message)
	assert.Equal(t, 4*time.Second, n.Duration)
	assert.False(t, n.Closable)
}

func TestPush_PreservesArrivalOrder(t *testing.T) {
	q, _ := newTestQueue(t)

	q.Push(SeverityError, "Invalid quantity")
	q.Push(SeveritySuccess, "Added to cart")
	q.Push(SeverityInfo, "Removed from cart")

	titles := make([]string, 0, 3)
	for _, n := range q.Active() {
		titles = append(titles, n.Title)
	}
	// Arrival order, never reordered by severity.
	assert.Equal(t, []string{"Invalid quantity", "Added to cart", "Removed from cart"}, titles)
}

func TestAutoExpiry(t *testing.T) {
	q, sched := newTestQueue(t)

	q.Push(SeveritySuccess, "Added to cart", WithDuration(2*time.Second))
	q.Push(SeverityInfo, "Removed from cart", WithDuration(5*time.Second))

	sched.Advance(2 * time.Second)
	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Removed from cart", active[0].Title)

	sched.Advance(3 * time.Second)
	assert.Equal(t, 0, q.Len())
}

func TestZeroDuration_NeverExpires(t *testing.T) {
	q, sched := newTestQueue(t)

	q.Push(SeverityWarning, "Working offline", WithDuration(0))

	sched.Advance(time.Hour)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 0, sched.Pending(), "no timer should be scheduled")
}

func TestDismiss(t *testing.T) {
	q, sched := newTestQueue(t)

	id1 := q.Push(SeveritySuccess, "first")
	q.Push(SeverityInfo, "second")

	q.Dismiss(id1)
	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "second", active[0].Title)

	// Dismissed entry's timer is cancelled; advancing must not panic or
	// remove the surviving entry early.
	sched.Advance(time.Second)
	assert.Equal(t, 1, q.Len())

	// Unknown ID is a no-op.
	q.Dismiss("nope")
	assert.Equal(t, 1, q.Len())
}

func TestClose_CancelsTimers(t *testing.T) {
	q, sched := newTestQueue(t)

	q.Push(SeveritySuccess, "a")
	q.Push(SeverityInfo, "b")
	q.Close()

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, sched.Pending())
}

func TestSeverity_Strings(t *testing.T) {
	cases := map[Severity]string{
		SeveritySuccess: "success",
		SeverityInfo:    "info",
		SeverityWarning: "warning",
		SeverityError:   "error",
	}
	for sev, want := range cases {
		assert.Equal(t, want, sev.String())
		assert.True(t, sev.Valid())
	}
	assert.False(t, Severity(0).Valid())
}
