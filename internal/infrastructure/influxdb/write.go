package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteObjectValue writes a single BACnet object property measurement.
//
// This is the primary method for recording object telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device object identifier (e.g., "device:100")
//   - objectID: Monitored object identifier (e.g., "analogInput:3")
//   - property: The property name (e.g., "presentValue")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteObjectValue("device:100", "analogInput:3", "presentValue", 21.5)
func (c *Client) WriteObjectValue(deviceID, objectID, property string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"object_values",
		map[string]string{
			"device_id": deviceID,
			"object_id": objectID,
			"property":  property,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats writes bridge-level gauges: discovered devices, tracked
// objects, and active subscriptions.
func (c *Client) WriteBridgeStats(devices, objects, subscriptions int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_stats",
		map[string]string{
			"bridge": "bacnet",
		},
		map[string]interface{}{
			"devices":       devices,
			"objects":       objects,
			"subscriptions": subscriptions,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
