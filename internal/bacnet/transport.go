package bacnet

import "context"

// Transport is the protocol stack as seen by the bridge: four outbound
// service kinds plus broadcast discovery. Calls are synchronous; callers
// that need fire-and-forget semantics run them on their own goroutines.
//
// Failed requests return a *RequestError so callers can branch on the
// protocol classification (error / reject / abort / timeout).
type Transport interface {
	// Announce broadcasts this client's presence (I-Am).
	Announce(ctx context.Context) error

	// Solicit broadcasts a Who-Is. Peers answer with announcements
	// delivered through the registered InboundHandler.
	Solicit(ctx context.Context) error

	// ReadOne reads a single property from one object.
	ReadOne(ctx context.Context, addr Address, object ObjectID, prop PropertyRef) (PropertyValue, error)

	// ReadMany reads multiple properties across multiple objects in one
	// request.
	ReadMany(ctx context.Context, addr Address, specs []ReadAccessSpec) ([]ObjectResult, error)

	// Write writes a single property value.
	Write(ctx context.Context, addr Address, req WriteRequest) error

	// Subscribe establishes (or with Lifetime 1, ends) a COV subscription.
	Subscribe(ctx context.Context, addr Address, req SubscribeRequest) error

	// SetHandler registers the receiver for inbound announcements and
	// notifications. Must be called before traffic is expected.
	SetHandler(h InboundHandler)

	// Close releases the transport. Subsequent requests fail with
	// ErrTransportClosed.
	Close() error
}

// InboundHandler receives parsed unsolicited traffic from the Transport.
// The Transport may invoke handlers from its own goroutines; serialization
// is the receiver's responsibility.
type InboundHandler interface {
	// HandleIAm delivers a peer announcement.
	HandleIAm(iam IAm)

	// HandleCOV delivers a change-of-value notification. The returned
	// disposition answers confirmed notifications; it is ignored for
	// unconfirmed ones.
	HandleCOV(n COVNotification) Disposition
}
