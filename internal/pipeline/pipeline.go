// Package pipeline forwards GraphQL operations to a server with the
// row-store directives stripped from the wire text, then reconciles every
// data-bearing result into the row store using the original document.
//
// The original document travels from request time to result time through a
// side channel keyed by operation id. When the channel has no entry the
// pipeline falls back to the stripped document, which reconciles to nothing:
// degraded, not fatal.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	directive "github.com/hanpama/graphrow/internal/directive"
	events "github.com/hanpama/graphrow/internal/events"
	language "github.com/hanpama/graphrow/internal/language"
	opid "github.com/hanpama/graphrow/internal/opid"
	reconcile "github.com/hanpama/graphrow/internal/reconcile"
)

// Transport executes one GraphQL operation and returns its result. A non-nil
// error means the exchange itself failed; GraphQL errors ride inside Result.
type Transport interface {
	Do(ctx context.Context, req Request) (*Result, error)
}

// SubscriptionTransport runs one subscription, invoking handler for every
// pushed result until the stream ends, handler returns an error, or ctx is
// canceled.
type SubscriptionTransport interface {
	Subscribe(ctx context.Context, req Request, handler func(*Result) error) error
}

// Pipeline couples the directive stripper, a transport, and the reconciler.
type Pipeline struct {
	transport Transport
	subs      SubscriptionTransport
	rec       *reconcile.Reconciler
	stash     stash
}

// New assembles a pipeline. Either transport may be nil when unused; the
// matching method then fails with its sentinel error.
func New(rec *reconcile.Reconciler, transport Transport, subs SubscriptionTransport) *Pipeline {
	return &Pipeline{
		transport: transport,
		subs:      subs,
		rec:       rec,
		stash:     stash{docs: make(map[opid.ID]*language.QueryDocument)},
	}
}

// Do executes one query or mutation. The server sees the stripped document;
// a result that carries data is reconciled exactly once before it is
// returned. GraphQL errors are returned inside the result, not as the error.
func (p *Pipeline) Do(ctx context.Context, query, operationName string, variables map[string]any) (*Result, error) {
	if p.transport == nil {
		return nil, ErrNoTransport
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse query: %w", err)
	}
	ctx, id := opid.NewContext(ctx)
	p.stash.put(id, doc)
	defer p.stash.drop(id)

	stripped := directive.StripDocument(doc)
	req := Request{
		Query:         language.FormatQuery(stripped),
		OperationName: operationName,
		Variables:     variables,
	}
	opType := operationType(doc, operationName)

	start := time.Now()
	events.OperationStarts.Publish(ctx, events.OperationStart{
		Query:         req.Query,
		OperationName: operationName,
		OperationType: opType,
	})
	res, err := p.transport.Do(ctx, req)
	if err == nil && res.HasData() {
		p.rec.Apply(ctx, p.stash.get(id, stripped), operationName, res.Data)
	}
	finishErr := err
	if finishErr == nil && res != nil && len(res.Errors) > 0 {
		finishErr = res.Errors
	}
	events.OperationFinishes.Publish(ctx, events.OperationFinish{
		Query:         req.Query,
		OperationName: operationName,
		OperationType: opType,
		Err:           finishErr,
		Duration:      time.Since(start),
	})
	return res, err
}

// Subscribe runs a subscription. Every pushed payload that carries data is
// reconciled before handler sees it. The stashed document is retained for
// the lifetime of the stream and dropped when it ends.
func (p *Pipeline) Subscribe(ctx context.Context, query, operationName string, variables map[string]any, handler func(*Result) error) error {
	if p.subs == nil {
		return ErrNoSubscriptionTransport
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return fmt.Errorf("pipeline: parse query: %w", err)
	}
	ctx, id := opid.NewContext(ctx)
	p.stash.put(id, doc)
	defer p.stash.drop(id)

	stripped := directive.StripDocument(doc)
	req := Request{
		Query:         language.FormatQuery(stripped),
		OperationName: operationName,
		Variables:     variables,
	}
	opType := operationType(doc, operationName)

	start := time.Now()
	events.OperationStarts.Publish(ctx, events.OperationStart{
		Query:         req.Query,
		OperationName: operationName,
		OperationType: opType,
	})
	err = p.subs.Subscribe(ctx, req, func(res *Result) error {
		if res.HasData() {
			p.rec.Apply(ctx, p.stash.get(id, stripped), operationName, res.Data)
		}
		return handler(res)
	})
	events.OperationFinishes.Publish(ctx, events.OperationFinish{
		Query:         req.Query,
		OperationName: operationName,
		OperationType: opType,
		Err:           err,
		Duration:      time.Since(start),
	})
	return err
}

func operationType(doc *language.QueryDocument, operationName string) string {
	op := doc.Operations.ForName(operationName)
	if op == nil && operationName == "" && len(doc.Operations) > 0 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

// stash is the side channel carrying the original, directive-bearing
// document from request time to result time, keyed by operation id.
type stash struct {
	mu   sync.Mutex
	docs map[opid.ID]*language.QueryDocument
}

func (s *stash) put(id opid.ID, doc *language.QueryDocument) {
	s.mu.Lock()
	s.docs[id] = doc
	s.mu.Unlock()
}

// get returns the stashed document, or fallback when the id is unknown.
func (s *stash) get(id opid.ID, fallback *language.QueryDocument) *language.QueryDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		return doc
	}
	return fallback
}

func (s *stash) drop(id opid.ID) {
	s.mu.Lock()
	delete(s.docs, id)
	s.mu.Unlock()
}
