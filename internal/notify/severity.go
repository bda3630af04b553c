package notify

import "fmt"

// Severity classifies a notification outcome.
//
// The set is closed: every switch over Severity must handle all four values.
// String rendering is used by the CLI and by golden trace files, so the
// names are part of the observable output format.
type Severity int

const (
	// SeveritySuccess reports a completed operation.
	SeveritySuccess Severity = iota + 1
	// SeverityInfo reports a neutral outcome (item removed, cart cleared).
	SeverityInfo
	// SeverityWarning reports a degraded or rejected outcome the user can act on.
	SeverityWarning
	// SeverityError reports an invalid request.
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler so severities serialize as
// their string names in JSON traces.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}
