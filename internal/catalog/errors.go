package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrStopTimeout is returned when a resource connector does not stop
	// within the configured bound.
	ErrStopTimeout = errors.New("resource connector stop timed out")

	// ErrUnknownKind is returned when no worker kind is registered for a
	// target element type and no default kind is configured.
	ErrUnknownKind = errors.New("no worker kind registered for target element type")

	// ErrSourceUnavailable is returned by target sources whose backing store
	// cannot be reached.
	ErrSourceUnavailable = errors.New("target source unavailable")

	// ErrModeConflict is returned when a connector is asked to both Run and
	// Engage.
	ErrModeConflict = errors.New("connector already running in another mode")

	// ErrPanic marks errors recovered from a panic in plugin code.
	ErrPanic = errors.New("panic recovered")
)

// Op names the per-target operation that failed.
type Op string

const (
	OpBuild   Op = "build"
	OpStart   Op = "start"
	OpStop    Op = "stop"
	OpRefresh Op = "refresh"
	OpEvent   Op = "event"
	OpNotify  Op = "notify"
)

// TargetError is a failure scoped to a single catalog target. It never
// aborts a sweep; it is counted and logged by the reconciler.
type TargetError struct {
	Op             Op
	RelationshipID string
	Err            error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s target %s: %v", e.Op, e.RelationshipID, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// NewTargetError wraps err for the given operation and target.
func NewTargetError(op Op, relationshipID string, err error) *TargetError {
	return &TargetError{Op: op, RelationshipID: relationshipID, Err: err}
}

// IsTargetError checks if err is or wraps a *TargetError.
func IsTargetError(err error) bool {
	var te *TargetError
	return errors.As(err, &te)
}

// PanicError converts a recovered panic value into an error wrapping ErrPanic.
func PanicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
