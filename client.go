package familysearch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Environment selects one of the hosted FamilySearch deployments.
type Environment string

const (
	Production Environment = "production"
	Staging    Environment = "staging"
	Sandbox    Environment = "sandbox"
)

var environmentBaseURLs = map[Environment]string{
	Production: "https://familysearch.org",
	Staging:    "https://stage.familysearch.org",
	Sandbox:    "https://sandbox.familysearch.org",
}

// BaseURL returns the service root of e.
func (e Environment) BaseURL() (string, bool) {
	u, ok := environmentBaseURLs[e]
	return u, ok
}

// Client is a discovery-driven FamilySearch API client. It fetches the
// discovery document at most once, resolves operations by link name and
// runs every exchange through its stage pipeline. It is safe for
// concurrent use.
type Client struct {
	environment   Environment
	baseURL       string
	discoveryPath string
	developerKey  string

	mu          sync.RWMutex
	token       string
	tokenSource oauth2.TokenSource

	acceptTypes []string
	userAgent   string

	httpClient   *http.Client
	timeout      time.Duration
	timeoutSet   bool
	transport    Transport
	middleware   []Middleware
	stages       func(c *Client) []Stage
	maxRedirects int
	rateLimiter  *rate.Limiter

	classifier *Classifier
	resolver   *Resolver
	handler    Handler

	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	validationError error

	base *url.URL
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		environment:   Sandbox,
		discoveryPath: DefaultDiscoveryPath,
		acceptTypes:   append([]string(nil), DefaultAcceptTypes...),
		userAgent:     UserAgent(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:      30 * time.Second,
		middleware:   []Middleware{},
		stages:       DefaultStages,
		maxRedirects: DefaultMaxRedirects,
		classifier:   NewClassifier(),
		debug:        DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.baseURL == "" {
		client.baseURL, _ = client.environment.BaseURL()
	}
	client.base, _ = url.Parse(client.baseURL)

	if client.transport == nil {
		client.transport = NewHTTPTransport(HTTPTransportConfig{
			HTTPClient:   client.httpClient,
			Middleware:   client.middleware,
			MaxRedirects: client.maxRedirects,
			RateLimiter:  client.rateLimiter,
			Metrics:      client.metrics,
			Logger:       client.logger,
			Debug:        client.debug,
			UserAgent:    client.userAgent,
		})
	}

	client.resolver = NewResolver(client.fetchDiscovery)
	client.resolver.onFetch = client.discoveryFetched
	client.handler = chainStages(client.stages(client), client.execute)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs a GET on target, absolute or relative to the base URL.
func (c *Client) Get(ctx context.Context, target string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: target})
}

// Head performs a HEAD on target.
func (c *Client) Head(ctx context.Context, target string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodHead, URL: target})
}

// Delete performs a DELETE on target.
func (c *Client) Delete(ctx context.Context, target string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, URL: target})
}

// Post performs a POST with the given content type.
func (c *Client) Post(ctx context.Context, target, contentType string, body io.Reader) (*Response, error) {
	return c.send(ctx, http.MethodPost, target, contentType, body)
}

// Put performs a PUT with the given content type.
func (c *Client) Put(ctx context.Context, target, contentType string, body io.Reader) (*Response, error) {
	return c.send(ctx, http.MethodPut, target, contentType, body)
}

func (c *Client) send(ctx context.Context, method, target, contentType string, body io.Reader) (*Response, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = io.ReadAll(body); err != nil {
			return nil, fmt.Errorf("familysearch: read request body: %w", err)
		}
	}
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return c.Do(ctx, &Request{Method: method, URL: target, Header: header, Body: data})
}

// Do runs req through the stage pipeline. The request is copied; the
// caller's value is not modified.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("familysearch: nil request")
	}

	r := *req
	r.Method = strings.ToUpper(r.Method)
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = http.Header{}
	}
	if r.Header.Get("Accept") == "" && len(c.acceptTypes) > 0 {
		r.Header.Set("Accept", strings.Join(c.acceptTypes, ", "))
	}

	absolute, err := c.absoluteURL(r.URL)
	if err != nil {
		return nil, &TransportError{Method: r.Method, URL: r.URL, Cause: err}
	}
	r.URL = absolute

	start := time.Now()
	endpoint := endpointFor(&r)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
		ctx = withRequestID(ctx, requestID)
	}

	if c.debugEnabled(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", r.Method, "url", r.URL, "endpoint", endpoint)
	}

	c.metrics.RecordRequestStart(r.Method, endpoint)
	resp, err := c.handler(ctx, &r)
	c.metrics.RecordRequestEnd(r.Method, endpoint)

	statusCode := 0
	var respErr *ResponseError
	switch {
	case resp != nil:
		statusCode = resp.StatusCode
	case errors.As(err, &respErr):
		statusCode = respErr.StatusCode()
	}
	duration := time.Since(start)
	c.metrics.RecordRequest(r.Method, endpoint, statusCode, duration)

	if err != nil {
		c.metrics.RecordError(errorType(err), r.Method, endpoint)
		if c.debugEnabled(c.debug != nil && c.debug.LogRequests) {
			c.logger.Warn("Request failed", "requestID", requestID, "method", r.Method, "url", r.URL,
				"statusCode", statusCode, "duration", duration, "error", err.Error())
		}
		return nil, err
	}

	if c.debugEnabled(c.debug != nil && c.debug.LogRequests) {
		c.logger.Debug("Request completed", "requestID", requestID, "statusCode", statusCode,
			"body", resp.Body.Kind().String(), "duration", duration)
	}

	return resp, nil
}

// execute is the innermost handler: it hands the request to the transport
// and wraps the raw reply without decoding it.
func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	raw, err := c.transport.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		Body:       rawBody(raw.Body),
		Raw:        raw.Body,
	}, nil
}

// Authenticate logs in with HTTP Basic credentials against the discovery
// login link and stores the returned session id as the bearer token. A key
// argument becomes the developer key only when none is set yet.
func (c *Client) Authenticate(ctx context.Context, username, password string, key ...string) (string, error) {
	if len(key) > 0 && key[0] != "" {
		c.mu.Lock()
		if c.developerKey == "" {
			c.developerKey = key[0]
		}
		c.mu.Unlock()
	}

	login, err := c.Resolve(ctx, LinkLogin)
	if err != nil {
		return "", err
	}
	if err := login.checkMethod(http.MethodGet); err != nil {
		return "", err
	}
	expansion, err := login.Expand(nil)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	for k, vs := range expansion.Query {
		query[k] = vs
	}
	query.Set("dataFormat", MediaTypeJSON)
	if devKey := c.DeveloperKey(); devKey != "" {
		query.Set("key", devKey)
	}

	header := http.Header{}
	header.Set("Authorization", "Basic "+basicCredentials(username, password))

	if c.debugEnabled(c.debug != nil && c.debug.LogAuth) {
		c.logger.Debug("Authenticating", "username", username, "url", expansion.URL)
	}

	resp, err := c.Do(ctx, &Request{
		Method: http.MethodGet,
		URL:    expansion.URL,
		Header: header,
		Query:  query,
		Link:   LinkLogin,
	})
	if err != nil {
		return "", err
	}

	var session struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if resp.Body.Kind() != KindMapping || resp.Body.Decode(&session) != nil || session.Session.ID == "" {
		return "", ErrMissingToken
	}

	c.SetToken(session.Session.ID)
	if c.debugEnabled(c.debug != nil && c.debug.LogAuth) {
		c.logger.Info("Authenticated", "username", username)
	}
	return session.Session.ID, nil
}

func basicCredentials(username, password string) string {
	var buf bytes.Buffer
	buf.WriteString(username)
	buf.WriteByte(':')
	buf.WriteString(password)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Discover returns the discovery document, fetching it on first use.
func (c *Client) Discover(ctx context.Context) (*DiscoveryDocument, error) {
	return c.resolver.Discover(ctx)
}

// Resolve looks up a link by name, discovering first if needed.
func (c *Client) Resolve(ctx context.Context, name string) (*LinkTemplate, error) {
	return c.resolver.Resolve(ctx, name)
}

// Resolver exposes the client's discovery resolver.
func (c *Client) Resolver() *Resolver { return c.resolver }

func (c *Client) fetchDiscovery(ctx context.Context) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: c.discoveryPath, Link: "discovery"})
}

func (c *Client) discoveryFetched(err error) {
	c.metrics.RecordDiscoveryFetch(err)
	if !c.debugEnabled(c.debug != nil && c.debug.LogDiscovery) {
		return
	}
	if err != nil {
		c.logger.Warn("Discovery fetch failed", "path", c.discoveryPath, "error", err.Error())
		return
	}
	c.logger.Debug("Discovery document loaded", "path", c.discoveryPath)
}

// Token returns the bearer token, or "" when anonymous.
func (c *Client) Token() string {
	return c.storedToken()
}

// SetToken replaces the bearer token. An empty token makes the client
// anonymous again.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) storedToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenSource returns the source AuthStage reads: the stored token first,
// then any source configured with WithTokenSource.
func (c *Client) TokenSource() oauth2.TokenSource {
	return clientTokenSource{c: c}
}

// DeveloperKey returns the developer key sent on login.
func (c *Client) DeveloperKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.developerKey
}

// BaseURL returns the service root requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Environment returns the configured environment.
func (c *Client) Environment() Environment { return c.environment }

// Classifier returns the classifier used by the default stages.
func (c *Client) Classifier() *Classifier { return c.classifier }

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) debugEnabled(category bool) bool {
	return c.debug != nil && c.debug.Enabled && category && c.logger != nil
}

func (c *Client) absoluteURL(target string) (string, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return target, nil
	}
	if c.base == nil || !c.base.IsAbs() {
		return "", fmt.Errorf("familysearch: relative URL %q without a base URL", target)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// endpointFor labels metrics by link name when the request came from
// discovery, and by host and path otherwise.
func endpointFor(req *Request) string {
	if req.Link != "" {
		return req.Link
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
