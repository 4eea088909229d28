package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	events "github.com/hanpama/graphrow/internal/events"
)

// HTTP is a GraphQL-over-HTTP transport: one POST per operation.
type HTTP struct {
	url  string
	opts *Options
}

func NewHTTP(url string, opts ...Option) *HTTP {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &HTTP{url: url, opts: o}
}

var _ Transport = (*HTTP)(nil)

// Do implements Transport. A non-2xx status whose body still decodes as a
// GraphQL result (data or errors) is handed through as that result; anything
// else is a transport error.
func (t *HTTP) Do(ctx context.Context, req Request) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		if t.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.opts.RequestTimeout)
			defer cancel()
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("pipeline: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range t.opts.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	events.RequestStarts.Publish(ctx, events.RequestStart{URL: t.url, OperationName: req.OperationName})
	resp, err := t.opts.HTTPClient.Do(httpReq)
	if err != nil {
		events.RequestFinishes.Publish(ctx, events.RequestFinish{
			URL:           t.url,
			OperationName: req.OperationName,
			Err:           err,
			Duration:      time.Since(start),
		})
		return nil, fmt.Errorf("pipeline: post %s: %w", t.url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	events.RequestFinishes.Publish(ctx, events.RequestFinish{
		URL:           t.url,
		OperationName: req.OperationName,
		Status:        resp.StatusCode,
		Err:           err,
		Duration:      time.Since(start),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: read response: %w", err)
	}

	res, decErr := decodeResult(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decErr == nil && (res.HasData() || len(res.Errors) > 0) {
			return res, nil
		}
		return nil, fmt.Errorf("pipeline: %s; body: %q", resp.Status, raw)
	}
	if decErr != nil {
		return nil, decErr
	}
	return res, nil
}
