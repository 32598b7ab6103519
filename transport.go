package familysearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxRedirects is the number of redirect hops HTTPTransport follows.
const DefaultMaxRedirects = 3

// HTTPTransportConfig configures NewHTTPTransport.
type HTTPTransportConfig struct {
	// HTTPClient is copied; its CheckRedirect is replaced.
	HTTPClient *http.Client
	Middleware []Middleware
	// MaxRedirects bounds followed hops. A negative value disables following
	// and returns redirect responses as they are.
	MaxRedirects int
	RateLimiter  *rate.Limiter
	Metrics      *MetricsCollector
	Logger       Logger
	Debug        *DebugConfig
	UserAgent    string
}

// HTTPTransport is the net/http backed Transport. It follows redirects
// itself: 301, 302, 307 and 308 keep the method and body, 303 switches to
// GET, and Authorization is dropped when a hop changes host.
type HTTPTransport struct {
	client       *http.Client
	middleware   []Middleware
	maxRedirects int
	limiter      *rate.Limiter
	metrics      *MetricsCollector
	logger       Logger
	debug        *DebugConfig
	userAgent    string
}

// NewHTTPTransport builds an HTTPTransport from cfg.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	client := &http.Client{Timeout: 30 * time.Second}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		client = &copied
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &HTTPTransport{
		client:       client,
		middleware:   cfg.Middleware,
		maxRedirects: cfg.MaxRedirects,
		limiter:      cfg.RateLimiter,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		debug:        cfg.Debug,
		userAgent:    cfg.UserAgent,
	}
}

// Execute sends req, following redirects, and reads the final body.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*RawResponse, error) {
	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Cause: err}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	body := req.Body
	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if t.userAgent != "" && header.Get("User-Agent") == "" {
		header.Set("User-Agent", t.userAgent)
	}

	for hops := 0; ; hops++ {
		if err := t.wait(ctx); err != nil {
			return nil, &TransportError{Method: method, URL: target.String(), Cause: err}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return nil, &TransportError{Method: method, URL: target.String(), Cause: err}
		}
		httpReq.Header = header.Clone()

		resp, err := t.roundTrip(httpReq)
		if err != nil {
			return nil, &TransportError{Method: method, URL: target.String(), Cause: err}
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" || t.maxRedirects < 0 {
			return readRawResponse(resp, method, target.String())
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if hops >= t.maxRedirects {
			return nil, fmt.Errorf("%w: more than %d hops from %s", ErrTooManyRedirects, t.maxRedirects, req.URL)
		}

		next, err := target.Parse(location)
		if err != nil {
			return nil, &TransportError{Method: method, URL: target.String(), Cause: err}
		}

		t.metrics.RecordRedirect(method, resp.StatusCode)
		if resp.StatusCode == http.StatusSeeOther && method != http.MethodHead {
			method = http.MethodGet
			body = nil
			header.Del("Content-Type")
			header.Del("Content-Length")
		}
		if !strings.EqualFold(next.Host, target.Host) {
			header.Del("Authorization")
		}

		if t.debug != nil && t.debug.Enabled && t.debug.LogRedirects && t.logger != nil {
			t.logger.Debug("Following redirect", "requestID", RequestIDFromContext(ctx),
				"status", resp.StatusCode, "from", target.String(), "to", next.String(), "hop", hops+1)
		}

		target = next
	}
}

func (t *HTTPTransport) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	start := time.Now()
	err := t.limiter.Wait(ctx)
	t.metrics.RecordRateLimiterWait(time.Since(start))
	return err
}

// roundTrip runs the middleware chain around the underlying client.
func (t *HTTPTransport) roundTrip(req *http.Request) (*http.Response, error) {
	if len(t.middleware) == 0 {
		return t.client.Do(req)
	}

	current := RoundTripperFunc(t.client.Do)

	for i := len(t.middleware) - 1; i >= 0; i-- {
		middleware := t.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func readRawResponse(resp *http.Response, method, target string) (*RawResponse, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Cause: err}
	}
	return &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// buildURL parses raw and appends query to any query it already has.
func buildURL(raw string, query url.Values) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("familysearch: URL %q is not absolute", raw)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
