// Package bacnet implements the BACnet/IP bridge for Gray Logic.
//
// The bridge owns the full discovery and synchronization lifecycle:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│   Gray Logic    │   MQTT   │  BACnet Bridge  │  BACnet/IP
//	│   consumers     │◄─────────│   (this pkg)    │◄──────────► field devices
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Solicit peers (Who-Is) and track announcements (I-Am)
//   - Bulk-read device properties, then the once-only property set of
//     every contained object that passes the subscribable allow-list
//   - Subscribe to confirmed COV notifications and merge them into the
//     device registry, answering per the configured disposition
//   - Poll present-value-class properties on an interval as a safety net
//   - Publish merged values to MQTT, record history, and write numeric
//     present values to the time-series store
//   - Accept read and write commands arriving on the MQTT command
//     topics and acknowledge the outcome
//
// # Failure handling
//
// Read requests degrade in two bounded stages. A failed read that
// targeted exactly one device object is retried with the full device
// property list; any other failure is retried once with a reduced,
// widely-supported property list. A failure of that reduced retry is
// terminal for the batch. Failed subscriptions return their subscriber
// process id to the reclaim pool so the next attempt starts clean.
// One device's failures never stall another device's pipeline.
//
// # Concurrency
//
// Request submission is fire-and-forget: each request runs on its own
// goroutine and its completion handler runs under the bridge mutex, so
// completions, inbound notifications, and retry decisions are serialized
// against each other. Nothing blocks waiting for a response.
package bacnet
