package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteValueHistoryRepository implements ValueHistoryRepository using
// SQLite. Snapshots are stored as JSON in the value_history table.
type SQLiteValueHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteValueHistoryRepository creates a new SQLite history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteValueHistoryRepository: Repository instance ready for use
func NewSQLiteValueHistoryRepository(db *sql.DB) *SQLiteValueHistoryRepository {
	return &SQLiteValueHistoryRepository{db: db}
}

// RecordMerge inserts a new history entry for an object.
func (r *SQLiteValueHistoryRepository) RecordMerge(ctx context.Context, deviceID, objectID bacnet.ObjectID, props Properties, source string) error {
	if len(props) == 0 {
		return nil
	}
	if source == "" {
		source = ValueHistorySourceRead
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshalling properties: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO value_history (device_id, object_id, properties, source) VALUES (?, ?, ?, ?)",
		deviceID.String(),
		objectID.String(),
		string(propsJSON),
		source,
	)
	if err != nil {
		return fmt.Errorf("inserting value history: %w", err)
	}

	return nil
}

// GetHistory returns recent history entries for an object, newest first.
// Limit defaults to 50 and is clamped to 200.
func (r *SQLiteValueHistoryRepository) GetHistory(ctx context.Context, deviceID, objectID bacnet.ObjectID, limit int) ([]ValueHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, object_id, properties, source, created_at
		 FROM value_history
		 WHERE device_id = ? AND object_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		deviceID.String(),
		objectID.String(),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying value history: %w", err)
	}
	defer rows.Close()

	entries := make([]ValueHistoryEntry, 0, limit)
	for rows.Next() {
		var entry ValueHistoryEntry
		var propsJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.ObjectID, &propsJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning value history: %w", err)
		}

		if err := json.Unmarshal([]byte(propsJSON), &entry.Properties); err != nil {
			return nil, fmt.Errorf("unmarshalling properties: %w", err)
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value history: %w", err)
	}

	return entries, nil
}

// PruneHistory deletes history entries older than the given duration.
func (r *SQLiteValueHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM value_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting value history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
