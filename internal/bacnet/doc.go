// Package bacnet defines the typed surface between Gray Logic and the
// BACnet/IP protocol stack.
//
// The package deliberately stops at the APDU boundary: wire encoding,
// segmentation, and UDP transport live in the underlying protocol library
// (github.com/alexbeltran/gobacnet). What this package owns is everything
// the rest of the system needs to talk about BACnet without touching bytes:
//
//   - Object and property identifier types with standard enumerations
//   - Typed request and result structures for the four service kinds
//     (read-one, read-many, write, subscribe)
//   - Error classification (error / reject / abort / timeout) so callers
//     can drive retry policy without string matching
//   - The application-datatype lookup and value decoding rules, including
//     the array convention that index 0 carries the element count
//   - The Transport interface the bridge dispatches against, plus the
//     gobacnet-backed implementation
//
// Inbound traffic (I-Am announcements, COV notifications) is delivered as
// already-parsed structures through an InboundHandler registered on the
// Transport.
package bacnet
