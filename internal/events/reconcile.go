package events

import (
	"time"

	eventbus "github.com/hanpama/graphrow/internal/eventbus"
)

// ReconcileStart is emitted before a result payload is walked.
type ReconcileStart struct {
	OperationName string
}

// ReconcileFinish is emitted after one payload has been fully reconciled.
type ReconcileFinish struct {
	OperationName string
	Merges        int
	Deletes       int
	Errors        int
	Warnings      int
	Duration      time.Duration
}

var (
	ReconcileStarts   = eventbus.New[ReconcileStart]()
	ReconcileFinishes = eventbus.New[ReconcileFinish]()
)
