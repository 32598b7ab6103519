package familysearch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for every failure the client classifies
var (
	// ErrTemplateNotFound is returned when a link name is absent from the discovery document
	ErrTemplateNotFound = errors.New("familysearch: template not found")

	// ErrMethodNotAllowed is returned when a link does not allow the requested verb
	ErrMethodNotAllowed = errors.New("familysearch: method not allowed")

	// ErrUnknownTemplateVariable is returned when a value is supplied for an undeclared variable
	ErrUnknownTemplateVariable = errors.New("familysearch: unknown template variable")

	// ErrClientError is matched by every 4xx/5xx response, including 401
	ErrClientError = errors.New("familysearch: client error")

	// ErrBadCredentials is matched by 401 responses
	ErrBadCredentials = errors.New("familysearch: bad credentials")

	// ErrMissingToken is returned when a login response carries no session id
	ErrMissingToken = errors.New("familysearch: login response has no session token")

	// ErrTooManyRedirects is returned when the redirect limit is exceeded
	ErrTooManyRedirects = errors.New("familysearch: too many redirects")
)

// Error types used for ResponseError.Type and metrics labels.
const (
	ErrorTypeBadCredentials   = "BadCredentials"
	ErrorTypeClient           = "ClientError"
	ErrorTypeTemplateNotFound = "TemplateNotFound"
	ErrorTypeMethodNotAllowed = "MethodNotAllowed"
	ErrorTypeUnknownVariable  = "UnknownTemplateVariable"
	ErrorTypeTransport        = "Transport"
	ErrorTypeValidation       = "Validation"
)

// TemplateNotFoundError names the link that could not be resolved.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("%v: %q", ErrTemplateNotFound, e.Name)
}

func (e *TemplateNotFoundError) Unwrap() error { return ErrTemplateNotFound }

// MethodNotAllowedError reports a verb outside a link's allowed set.
type MethodNotAllowedError struct {
	Link    string
	Method  string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("%v: %s on %q (allowed: %s)",
		ErrMethodNotAllowed, strings.ToUpper(e.Method), e.Link, strings.Join(e.Allowed, ","))
}

func (e *MethodNotAllowedError) Unwrap() error { return ErrMethodNotAllowed }

// UnknownVariableError names the offending key.
type UnknownVariableError struct {
	Name     string
	Template string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("%v: %q not declared by %s", ErrUnknownTemplateVariable, e.Name, e.Template)
}

func (e *UnknownVariableError) Unwrap() error { return ErrUnknownTemplateVariable }

// ResponseError carries a classified 4xx/5xx response, decoded body included.
type ResponseError struct {
	Type     string
	Method   string
	URL      string
	Response *Response
}

// Error implements error interface.
func (e *ResponseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: status %d", e.Type, e.StatusCode())
	if e.Method != "" {
		msg = fmt.Sprintf("%s (%s %s)", msg, e.Method, e.URL)
	}
	return msg
}

// Is matches ErrClientError for every response error, ErrBadCredentials for
// 401s, and another *ResponseError of the same Type.
func (e *ResponseError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrClientError:
		return true
	case ErrBadCredentials:
		return e.Type == ErrorTypeBadCredentials
	}
	if targetErr, ok := target.(*ResponseError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// StatusCode returns the HTTP status of the attached response.
func (e *ResponseError) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ResponseError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Response != nil {
		info += fmt.Sprintf("Status Code: %d\n", e.Response.StatusCode)
		if ct := e.Response.Header.Get("Content-Type"); ct != "" {
			info += fmt.Sprintf("Content-Type: %s\n", ct)
		}
		if warning := e.Response.Header.Get("Warning"); warning != "" {
			info += fmt.Sprintf("Warning: %s\n", warning)
		}
		info += fmt.Sprintf("Body: %s\n", e.Response.Body.Kind())
	}
	return info
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrorTypeTransport, e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ConfigError is returned by ValidateConfiguration.
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration validation failed: %v", ErrorTypeValidation, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is a failure a caller might reasonably
// retry: transport errors, 5xx responses and 429. The client itself never
// retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		code := respErr.StatusCode()
		return code >= 500 || code == http.StatusTooManyRequests
	}

	return false
}

// errorType maps err to an ErrorType* label.
func errorType(err error) string {
	var respErr *ResponseError
	switch {
	case errors.As(err, &respErr):
		return respErr.Type
	case errors.Is(err, ErrTemplateNotFound):
		return ErrorTypeTemplateNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return ErrorTypeMethodNotAllowed
	case errors.Is(err, ErrUnknownTemplateVariable):
		return ErrorTypeUnknownVariable
	case errors.Is(err, ErrMissingToken):
		return ErrorTypeBadCredentials
	default:
		return ErrorTypeTransport
	}
}
