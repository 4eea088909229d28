package pipeline

import "errors"

var (
	// ErrNoTransport indicates Do was called on a pipeline assembled
	// without a query transport.
	ErrNoTransport = errors.New("pipeline: transport not configured")
	// ErrNoSubscriptionTransport indicates Subscribe was called on a
	// pipeline assembled without a subscription transport.
	ErrNoSubscriptionTransport = errors.New("pipeline: subscription transport not configured")
	// ErrAckTimeout indicates the server did not acknowledge the WebSocket
	// connection in time.
	ErrAckTimeout = errors.New("pipeline: connection_ack timeout")
)
