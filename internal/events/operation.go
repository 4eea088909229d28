// Package events declares the typed events the pipeline, transport, and
// reconciler publish, each on its own topic. Publishing costs nothing while
// nothing subscribes; the otel package subscribes span handlers when tracing
// is configured.
package events

import (
	"time"

	eventbus "github.com/hanpama/graphrow/internal/eventbus"
)

// OperationStart is emitted before an operation is handed to the transport.
type OperationStart struct {
	Query         string
	OperationName string
	OperationType string
}

// OperationFinish is emitted once the operation's result (or its transport
// failure) is in hand. For subscriptions this is the end of the stream.
type OperationFinish struct {
	Query         string
	OperationName string
	OperationType string
	Err           error
	Duration      time.Duration
}

var (
	OperationStarts   = eventbus.New[OperationStart]()
	OperationFinishes = eventbus.New[OperationFinish]()
)
