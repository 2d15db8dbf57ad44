package device

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

// Value history source values.
const (
	ValueHistorySourceRead = "read"
	ValueHistorySourceCOV  = "cov"
	ValueHistorySourcePoll = "poll"
)

// ValueHistoryEntry represents one recorded property merge for an object.
//
// Each entry stores the merged property snapshot as JSON. This provides a
// local audit trail even when the time-series database is unavailable.
type ValueHistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the device object identifier, e.g. "device:100".
	DeviceID string `json:"device_id"`

	// ObjectID is the object identifier, e.g. "analogInput:3".
	ObjectID string `json:"object_id"`

	// Properties is the property snapshot, keyed by property name.
	Properties map[string]any `json:"properties"`

	// Source identifies how the values were obtained (read, cov, poll).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the merge (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// ValueHistoryRepository stores and retrieves merged property history.
//
// Implementations must be thread-safe and use UTC timestamps.
type ValueHistoryRepository interface {
	// RecordMerge records a property merge for an object.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Device object identifier
	//   - objectID: Object identifier within the device
	//   - props: Merged property values
	//   - source: Origin of the merge (read, cov, poll)
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	RecordMerge(ctx context.Context, deviceID, objectID bacnet.ObjectID, props Properties, source string) error

	// GetHistory returns recent merge history for one object, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - deviceID: Device object identifier
	//   - objectID: Object identifier within the device
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []ValueHistoryEntry: Entries ordered by created_at DESC
	//   - error: nil on success, otherwise the underlying query error
	GetHistory(ctx context.Context, deviceID, objectID bacnet.ObjectID, limit int) ([]ValueHistoryEntry, error)

	// PruneHistory deletes entries older than the given duration.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
