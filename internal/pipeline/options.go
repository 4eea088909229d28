package pipeline

import (
	"net/http"
	"time"
)

// Options configures the HTTP and WebSocket transports.
//
// Defaults:
// - HTTPClient:     http.DefaultClient
// - RequestTimeout: 30s (used only if incoming context has no deadline)
// - AckTimeout:     10s (wait for connection_ack after connection_init)
//
// Header entries are added to the HTTP POST and to the WebSocket handshake.
//
// All options are safe to leave zero-valued to use defaults.

type Options struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	AckTimeout     time.Duration
	Header         http.Header
}

// Option mutates Options
//
// Use WithX helpers below.

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		HTTPClient:     http.DefaultClient,
		RequestTimeout: 30 * time.Second,
		AckTimeout:     10 * time.Second,
		Header:         make(http.Header),
	}
}

func WithHTTPClient(c *http.Client) Option      { return func(o *Options) { o.HTTPClient = c } }
func WithRequestTimeout(d time.Duration) Option { return func(o *Options) { o.RequestTimeout = d } }
func WithAckTimeout(d time.Duration) Option     { return func(o *Options) { o.AckTimeout = d } }
func WithHeader(key, value string) Option {
	return func(o *Options) { o.Header.Add(key, value) }
}
