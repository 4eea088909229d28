// Package opid issues the opaque per-operation identifier that keys the
// original-document side channel and groups telemetry spans.
package opid

import (
	"context"

	"github.com/google/uuid"
)

// ID identifies one operation from request time through result time.
type ID string

// New returns a fresh random id.
func New() ID { return ID(uuid.NewString()) }

// key is the context key for the operation ID.
type key struct{}

// NewContext returns a copy of parent with a new operation ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, ID) {
	id := New()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the operation ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (ID, bool) {
	v := ctx.Value(key{})
	id, ok := v.(ID)
	return id, ok
}
