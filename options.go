package familysearch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// WithEnvironment selects the deployment whose base URL is used when
// WithBaseURL is not given.
func WithEnvironment(env Environment) Option {
	return func(c *Client) {
		c.environment = env
	}
}

// WithBaseURL overrides the environment's base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithDiscoveryPath sets where the discovery document is fetched from
func WithDiscoveryPath(path string) Option {
	return func(c *Client) {
		c.discoveryPath = path
	}
}

// WithAccessToken starts the client authenticated
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTokenSource supplies bearer tokens when no token has been stored,
// e.g. from an oauth2.Config.
func WithTokenSource(src oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = src
	}
}

// WithDeveloperKey sets the developer key sent on login
func WithDeveloperKey(key string) Option {
	return func(c *Client) {
		c.developerKey = key
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		c.timeoutSet = true
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied and its
// redirect policy is replaced by the transport's own. Its timeout is kept
// unless WithTimeout is given or it has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			c.httpClient = nil
			return
		}
		copied := *client
		switch {
		case c.timeoutSet || copied.Timeout == 0:
			copied.Timeout = c.timeout
		default:
			c.timeout = copied.Timeout
		}
		c.httpClient = &copied
	}
}

// WithTransport replaces the HTTP transport. Middleware, rate limiting and
// redirect options only apply to the default transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithMiddleware adds middleware around each HTTP round trip
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithStages replaces the pipeline. build runs once, after every other
// option has been applied.
func WithStages(build func(c *Client) []Stage) Option {
	return func(c *Client) {
		if build != nil {
			c.stages = build
		}
	}
}

// WithClassifier replaces the classifier used by the default stages
func WithClassifier(classifier *Classifier) Option {
	return func(c *Client) {
		c.classifier = classifier
	}
}

// WithRateLimit paces outgoing requests to r per second with the given burst
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithRateLimiter sets a shared rate limiter
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.rateLimiter = limiter
	}
}

// WithMaxRedirects sets how many redirect hops are followed
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging to stderr
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithAcceptTypes replaces the media types advertised in Accept
func WithAcceptTypes(types ...string) Option {
	return func(c *Client) {
		c.acceptTypes = append([]string(nil), types...)
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// ValidateConfiguration validates the client configuration and returns a
// *ConfigError listing every problem found.
func (c *Client) ValidateConfiguration() error {
	var result *multierror.Error

	result = multierror.Append(result, c.validateEndpointConfig()...)
	result = multierror.Append(result, c.validateHTTPConfig()...)
	result = multierror.Append(result, c.validateRateLimiterConfig()...)
	result = multierror.Append(result, c.validateDebugConfig()...)
	result = multierror.Append(result, c.validateMiddlewareConfig()...)

	if err := result.ErrorOrNil(); err != nil {
		return &ConfigError{Cause: err}
	}
	return nil
}

// validateEndpointConfig validates where requests go
func (c *Client) validateEndpointConfig() []error {
	var errs []error

	if _, ok := c.environment.BaseURL(); !ok {
		errs = append(errs, fmt.Errorf("unknown environment %q", c.environment))
	}

	u, err := url.Parse(c.baseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("base URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("base URL %q must be http or https", c.baseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("base URL %q has no host", c.baseURL))
	}

	if c.discoveryPath == "" {
		errs = append(errs, fmt.Errorf("discovery path cannot be empty"))
	}
	if c.classifier == nil {
		errs = append(errs, fmt.Errorf("classifier cannot be nil"))
	}

	return errs
}

// validateHTTPConfig validates the HTTP client, timeout and redirects
func (c *Client) validateHTTPConfig() []error {
	var errs []error

	if c.httpClient == nil {
		errs = append(errs, fmt.Errorf("HTTP client cannot be nil"))
	}
	if c.timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if c.timeout > 10*time.Minute {
		errs = append(errs, fmt.Errorf("timeout > 10m may cause requests to hang for too long"))
	}
	if c.maxRedirects > 20 {
		errs = append(errs, fmt.Errorf("maxRedirects > 20 is not supported"))
	}

	return errs
}

// validateRateLimiterConfig validates rate limiter configuration
func (c *Client) validateRateLimiterConfig() []error {
	var errs []error

	if c.rateLimiter != nil {
		if c.rateLimiter.Limit() <= 0 {
			errs = append(errs, fmt.Errorf("rate limit must be positive"))
		}
		if c.rateLimiter.Limit() != rate.Inf && c.rateLimiter.Burst() <= 0 {
			errs = append(errs, fmt.Errorf("rate limit burst must be positive"))
		}
	}

	return errs
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []error {
	var errs []error

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errs = append(errs, fmt.Errorf("debug RequestIDGen must be set when debug is enabled"))
		}
		if c.logger == nil {
			errs = append(errs, fmt.Errorf("logger must be set when debug is enabled"))
		}
	}

	return errs
}

// validateMiddlewareConfig validates middleware configuration
func (c *Client) validateMiddlewareConfig() []error {
	var errs []error

	for i, middleware := range c.middleware {
		if middleware == nil {
			errs = append(errs, fmt.Errorf("middleware[%d] cannot be nil", i))
		}
	}

	return errs
}
