// Package device provides the Device Registry for Gray Logic BACnet.
//
// The Registry is the authoritative in-memory model of every BACnet device
// discovered on the network: its transport address, its objects, and the
// last known value of each object property. The bridge writes into the
// Registry as reads and change-of-value notifications complete; the REST
// API and WebSocket hub read from it.
//
// # Semantics
//
// Devices are created on first announcement and live for the lifetime of
// the process. Object property maps are merged, never replaced: a value
// survives until a newer read or notification overwrites the same key.
// Address and identifier reverse lookups are linear scans; registries
// track tens of devices, not thousands.
//
// Every successful merge sets a change signal that observers (such as the
// WebSocket hub) can wait on instead of polling.
//
// # Persistence
//
// The Registry itself is memory-only. ValueHistoryRepository records merged
// property snapshots in SQLite so the API can serve recent history across
// restarts.
package device
