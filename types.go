package familysearch

import (
	"context"
	"net/http"
	"net/url"
)

// Middleware represents a transport-level middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)

// Values maps declared template variable names to their values.
type Values map[string]string

// ValuesOf converts a map keyed by a named string type into Values.
func ValuesOf[K ~string](m map[K]string) Values {
	values := make(Values, len(m))
	for k, v := range m {
		values[string(k)] = v
	}
	return values
}

// Request is a single exchange as it travels through the pipeline.
type Request struct {
	Method string
	// URL may be absolute or relative to the client's base URL.
	URL    string
	Header http.Header
	// Query is merged into the URL's existing query string by the transport.
	Query url.Values
	Body  []byte
	// Link names the discovery link the request was built from, if any.
	Link string
}

// RawResponse is what a Transport returns before classification.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Response is a classified response. Body holds the decoded value; Raw keeps
// the bytes as received.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       Body
	Raw        []byte
}

// Transport executes one HTTP exchange.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*RawResponse, error)

func (f TransportFunc) Execute(ctx context.Context, req *Request) (*RawResponse, error) {
	return f(ctx, req)
}

// Context keys for per-request debug data
type contextKey string

const (
	requestIDKey contextKey = "familysearch_request_id"
)

func withRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the debug request ID attached by the client, if any.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
