package familysearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func responseError(status int, typ string) *ResponseError {
	return &ResponseError{
		Type:   typ,
		Method: http.MethodGet,
		URL:    "https://example.com/x",
		Response: &Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {MediaTypeJSON}, "Warning": {"199 - bad key"}},
		},
	}
}

func TestResponseErrorIs(t *testing.T) {
	unauthorized := responseError(http.StatusUnauthorized, ErrorTypeBadCredentials)
	notFound := responseError(http.StatusNotFound, ErrorTypeClient)

	if !errors.Is(unauthorized, ErrClientError) || !errors.Is(unauthorized, ErrBadCredentials) {
		t.Error("401 should match ErrClientError and ErrBadCredentials")
	}
	if !errors.Is(notFound, ErrClientError) {
		t.Error("404 should match ErrClientError")
	}
	if errors.Is(notFound, ErrBadCredentials) {
		t.Error("404 should not match ErrBadCredentials")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", notFound), &ResponseError{Type: ErrorTypeClient}) {
		t.Error("wrapped 404 should match a ResponseError of the same type")
	}
}

func TestResponseErrorMessage(t *testing.T) {
	err := responseError(http.StatusGone, ErrorTypeClient)
	want := "ClientError: status 410 (GET https://example.com/x)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var nilErr *ResponseError
	if nilErr.Error() != "<nil>" || nilErr.StatusCode() != 0 {
		t.Error("nil ResponseError should be safe to use")
	}
}

func TestResponseErrorDebugInfo(t *testing.T) {
	info := responseError(http.StatusUnauthorized, ErrorTypeBadCredentials).DebugInfo()
	for _, want := range []string{
		"Error Type: BadCredentials",
		"Method: GET",
		"Status Code: 401",
		"Content-Type: application/json",
		"Warning: 199 - bad key",
		"Body: empty",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo() missing %q:\n%s", want, info)
		}
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	tests := []struct {
		err    error
		target error
		text   string
	}{
		{&TemplateNotFoundError{Name: "person-template"}, ErrTemplateNotFound, `"person-template"`},
		{&MethodNotAllowedError{Link: "current-user", Method: "post", Allowed: []string{"GET"}}, ErrMethodNotAllowed, "POST on"},
		{&UnknownVariableError{Name: "pidd", Template: "/p/{pid}"}, ErrUnknownTemplateVariable, `"pidd"`},
	}

	for _, tt := range tests {
		if !errors.Is(tt.err, tt.target) {
			t.Errorf("%T does not match %v", tt.err, tt.target)
		}
		if !strings.Contains(tt.err.Error(), tt.text) {
			t.Errorf("%T message %q missing %q", tt.err, tt.err.Error(), tt.text)
		}
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	err := &TransportError{Method: "GET", URL: "https://example.com", Cause: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("TransportError should unwrap to its cause")
	}
	if !strings.HasPrefix(err.Error(), ErrorTypeTransport) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &TransportError{Cause: errors.New("reset")}, true},
		{"server error", responseError(http.StatusBadGateway, ErrorTypeClient), true},
		{"too many requests", responseError(http.StatusTooManyRequests, ErrorTypeClient), true},
		{"not found", responseError(http.StatusNotFound, ErrorTypeClient), false},
		{"redirect limit", fmt.Errorf("%w: loop", ErrTooManyRedirects), false},
		{"template", &TemplateNotFoundError{Name: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{responseError(http.StatusUnauthorized, ErrorTypeBadCredentials), ErrorTypeBadCredentials},
		{&TemplateNotFoundError{}, ErrorTypeTemplateNotFound},
		{&MethodNotAllowedError{}, ErrorTypeMethodNotAllowed},
		{&UnknownVariableError{}, ErrorTypeUnknownVariable},
		{ErrMissingToken, ErrorTypeBadCredentials},
		{errors.New("dial tcp"), ErrorTypeTransport},
	}

	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout must be positive")
	err := &ConfigError{Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "timeout must be positive") {
		t.Errorf("Error() = %q", err.Error())
	}
}
