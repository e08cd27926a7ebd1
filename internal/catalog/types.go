package catalog

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// PermittedSynchronization describes which direction metadata may flow
// between the catalog and the third party a connector integrates with.
type PermittedSynchronization string

const (
	// SyncUnset means no explicit value; the owning connector's value applies.
	SyncUnset          PermittedSynchronization = ""
	SyncBothDirections PermittedSynchronization = "bothDirections"
	SyncToThirdParty   PermittedSynchronization = "toThirdParty"
	SyncFromThirdParty PermittedSynchronization = "fromThirdParty"
	SyncNone           PermittedSynchronization = "none"
)

// AllowsEvents reports whether change events may be acted on under this
// synchronization mode.
func (p PermittedSynchronization) AllowsEvents() bool {
	switch p {
	case SyncBothDirections, SyncToThirdParty, SyncFromThirdParty:
		return true
	default:
		return false
	}
}

// Valid reports whether p is one of the known values, including unset.
func (p PermittedSynchronization) Valid() bool {
	switch p {
	case SyncUnset, SyncBothDirections, SyncToThirdParty, SyncFromThirdParty, SyncNone:
		return true
	default:
		return false
	}
}

// Resolve returns p unless it is unset, in which case inherited is returned.
func (p PermittedSynchronization) Resolve(inherited PermittedSynchronization) PermittedSynchronization {
	if p == SyncUnset {
		return inherited
	}
	return p
}

// TargetDescriptor is one declared catalog target as returned by a
// TargetSource.
type TargetDescriptor struct {
	// RelationshipID is the stable identity of the target. Unique per connector.
	RelationshipID string `json:"relationshipId" yaml:"relationshipId"`

	// VersionStamp changes whenever the declaration changes. Compared for
	// equality only.
	VersionStamp string `json:"versionStamp" yaml:"versionStamp"`

	// TargetName is a human-readable label used in logs.
	TargetName string `json:"targetName,omitempty" yaml:"targetName,omitempty"`

	TargetElementID   string `json:"targetElementId" yaml:"targetElementId"`
	TargetElementType string `json:"targetElementType" yaml:"targetElementType"`

	ConfigurationProperties map[string]any `json:"configurationProperties,omitempty" yaml:"configurationProperties,omitempty"`

	// MetadataSourceQualifiedName is set when this process is the home for
	// metadata written back about the target.
	MetadataSourceQualifiedName string `json:"metadataSourceQualifiedName,omitempty" yaml:"metadataSourceQualifiedName,omitempty"`

	// PermittedSynchronization overrides the connector-wide value when set.
	PermittedSynchronization PermittedSynchronization `json:"permittedSynchronization,omitempty" yaml:"permittedSynchronization,omitempty"`
}

// Name returns TargetName, falling back to RelationshipID.
func (d TargetDescriptor) Name() string {
	if d.TargetName != "" {
		return d.TargetName
	}
	return d.RelationshipID
}

// IsHome reports whether metadata for this target is homed in this process.
func (d TargetDescriptor) IsHome() bool {
	return d.MetadataSourceQualifiedName != ""
}

// Clone returns a copy of the descriptor whose configuration map is not
// shared with d. Nested values are copied with copyValue.
func (d TargetDescriptor) Clone() TargetDescriptor {
	c := d
	c.ConfigurationProperties = CopyMap(d.ConfigurationProperties)
	return c
}

// CopyMap deep-copies maps and slices found in m. Scalars are shared.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case map[string]string:
		return maps.Clone(t)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// TargetSource lists the declared catalog targets of a connector.
//
// List returns at most pageSize descriptors starting at offset. An empty page
// signals the end of the listing. Implementations must return an error rather
// than a short listing when the backing store is unreachable.
type TargetSource interface {
	List(ctx context.Context, offset, pageSize int) ([]TargetDescriptor, error)
}

// TargetSourceFunc adapts a function to TargetSource.
type TargetSourceFunc func(ctx context.Context, offset, pageSize int) ([]TargetDescriptor, error)

func (f TargetSourceFunc) List(ctx context.Context, offset, pageSize int) ([]TargetDescriptor, error) {
	return f(ctx, offset, pageSize)
}

// EventKind classifies a change event.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is an asynchronous change notification about a catalog element.
// RelationshipID is set when the source can attribute the change to a
// specific target; ElementID is always set.
type Event struct {
	ID             string            `json:"id" yaml:"id"`
	Kind           EventKind         `json:"kind" yaml:"kind"`
	ElementID      string            `json:"elementId" yaml:"elementId"`
	RelationshipID string            `json:"relationshipId,omitempty" yaml:"relationshipId,omitempty"`
	Source         string            `json:"source" yaml:"source"`
	Timestamp      time.Time         `json:"timestamp" yaml:"timestamp"`
	Attributes     map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewEvent returns an event with a fresh ID and the current time.
func NewEvent(kind EventKind, source, elementID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		ElementID: elementID,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// EventSource delivers change events until stopped.
//
// Start must not block; events are sent to out from the source's own
// goroutines. Sends must respect ctx cancellation. Stop releases all
// resources and is safe to call more than once.
type EventSource interface {
	Name() string
	Start(ctx context.Context, out chan<- Event) error
	Stop() error
}
