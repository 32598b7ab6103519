package familysearch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type seen struct {
	method string
	body   string
	auth   string
}

func redirectServer(t *testing.T, hops []int, final string) (*httptest.Server, *[]seen) {
	t.Helper()
	var log []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log = append(log, seen{method: r.Method, body: string(body), auth: r.Header.Get("Authorization")})

		step, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if step < len(hops) {
			target := "/hop/" + strconv.Itoa(step+1)
			if step+1 == len(hops) && final != "" {
				target = final
			}
			w.Header().Set("Location", target)
			w.WriteHeader(hops[step])
			return
		}
		w.Header().Set("Content-Type", MediaTypeJSON)
		_, _ = w.Write([]byte(`{"done":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &log
}

func newTestTransport(cfg HTTPTransportConfig) *HTTPTransport {
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	return NewHTTPTransport(cfg)
}

func TestTransportSeeOtherSwitchesToGet(t *testing.T) {
	srv, log := redirectServer(t, []int{http.StatusSeeOther}, "")
	tr := newTestTransport(HTTPTransportConfig{})

	raw, err := tr.Execute(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL + "/hop/0",
		Header: http.Header{"Content-Type": {MediaTypeJSON}},
		Body:   []byte(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if raw.StatusCode != http.StatusOK {
		t.Errorf("status = %d", raw.StatusCode)
	}

	if len(*log) != 2 {
		t.Fatalf("server saw %d requests, want 2", len(*log))
	}
	if (*log)[1].method != http.MethodGet || (*log)[1].body != "" {
		t.Errorf("after 303 got %s %q, want GET without body", (*log)[1].method, (*log)[1].body)
	}
}

func TestTransportHeadStaysHeadOnSeeOther(t *testing.T) {
	srv, log := redirectServer(t, []int{http.StatusSeeOther}, "")
	tr := newTestTransport(HTTPTransportConfig{})

	if _, err := tr.Execute(context.Background(), &Request{Method: http.MethodHead, URL: srv.URL + "/hop/0"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if (*log)[1].method != http.MethodHead {
		t.Errorf("after 303 got %s, want HEAD", (*log)[1].method)
	}
}

func TestTransportKeepsMethodAndBody(t *testing.T) {
	for _, status := range []int{http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			srv, log := redirectServer(t, []int{status}, "")
			tr := newTestTransport(HTTPTransportConfig{})

			_, err := tr.Execute(context.Background(), &Request{Method: http.MethodPut, URL: srv.URL + "/hop/0", Body: []byte("payload")})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			last := (*log)[len(*log)-1]
			if last.method != http.MethodPut || last.body != "payload" {
				t.Errorf("after %d got %s %q, want PUT payload", status, last.method, last.body)
			}
		})
	}
}

func TestTransportRedirectLimit(t *testing.T) {
	srv, log := redirectServer(t, []int{302, 302, 302}, "")
	tr := newTestTransport(HTTPTransportConfig{})

	if _, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/hop/0"}); err != nil {
		t.Fatalf("three hops should be followed: %v", err)
	}
	if len(*log) != 4 {
		t.Errorf("server saw %d requests, want 4", len(*log))
	}

	srv, _ = redirectServer(t, []int{302, 302, 302, 302}, "")
	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/hop/0"})
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("Execute() error = %v, want ErrTooManyRedirects", err)
	}
}

func TestTransportRedirectsDisabled(t *testing.T) {
	srv, log := redirectServer(t, []int{302}, "")
	tr := NewHTTPTransport(HTTPTransportConfig{MaxRedirects: -1})

	raw, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/hop/0"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if raw.StatusCode != http.StatusFound || len(*log) != 1 {
		t.Errorf("status = %d after %d requests, want 302 after 1", raw.StatusCode, len(*log))
	}
}

func TestTransportDropsAuthorizationAcrossHosts(t *testing.T) {
	other, otherLog := redirectServer(t, nil, "")
	srv, log := redirectServer(t, []int{302, 302}, other.URL+"/hop/0")
	tr := newTestTransport(HTTPTransportConfig{})

	_, err := tr.Execute(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL + "/hop/0",
		Header: http.Header{"Authorization": {"Bearer T"}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if (*log)[1].auth != "Bearer T" {
		t.Errorf("same-host hop Authorization = %q, want kept", (*log)[1].auth)
	}
	if len(*otherLog) != 1 || (*otherLog)[0].auth != "" {
		t.Errorf("cross-host hop saw %+v, want no Authorization", *otherLog)
	}
}

func TestTransportMergesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
	}))
	defer srv.Close()

	tr := newTestTransport(HTTPTransportConfig{})
	_, err := tr.Execute(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL + "/search?fixed=1",
		Query:  map[string][]string{"start": {"20"}},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotQuery != "fixed=1&start=20" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestTransportRejectsRelativeURL(t *testing.T) {
	tr := newTestTransport(HTTPTransportConfig{})
	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: "/relative"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Errorf("Execute() error = %v, want *TransportError", err)
	}
}

func TestTransportNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := newTestTransport(HTTPTransportConfig{})
	_, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: url})
	if !IsTransient(err) {
		t.Errorf("Execute() error = %v, want transient transport error", err)
	}
}

func TestTransportMiddlewareOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Trace")))
	}))
	defer srv.Close()

	var order []string
	mw := func(name string) Middleware {
		return func(req *http.Request, next RoundTripper) (*http.Response, error) {
			order = append(order, name)
			req.Header.Set("X-Trace", req.Header.Get("X-Trace")+name)
			return next.RoundTrip(req)
		}
	}

	tr := newTestTransport(HTTPTransportConfig{Middleware: []Middleware{mw("a"), mw("b")}})
	raw, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Join(order, "") != "ab" || string(raw.Body) != "ab" {
		t.Errorf("order = %v, body = %q, want ab", order, raw.Body)
	}
}

func TestTransportRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	tr := newTestTransport(HTTPTransportConfig{RateLimiter: limiter})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("three paced requests took %v, want >= ~100ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter.SetBurst(0)
	_, err := tr.Execute(ctx, &Request{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Error("Execute() with cancelled context should fail while limited")
	}
}

func TestTransportUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	tr := newTestTransport(HTTPTransportConfig{UserAgent: "fs-test/1"})
	if _, err := tr.Execute(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ua != "fs-test/1" {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestNewHTTPTransportDoesNotMutateClient(t *testing.T) {
	base := &http.Client{Timeout: time.Second}
	_ = NewHTTPTransport(HTTPTransportConfig{HTTPClient: base})
	if base.CheckRedirect != nil {
		t.Error("NewHTTPTransport() modified the caller's http.Client")
	}
}
