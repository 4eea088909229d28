package events

import (
	"time"

	eventbus "github.com/hanpama/graphrow/internal/eventbus"
)

// RequestStart is emitted before an HTTP POST to the GraphQL endpoint.
type RequestStart struct {
	URL           string
	OperationName string
}

// RequestFinish is emitted after the HTTP exchange completes.
// Status is 0 when the request never produced a response.
type RequestFinish struct {
	URL           string
	OperationName string
	Status        int
	Err           error
	Duration      time.Duration
}

var (
	RequestStarts   = eventbus.New[RequestStart]()
	RequestFinishes = eventbus.New[RequestFinish]()
)
