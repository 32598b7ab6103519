package familysearch

import (
	"context"
	"net/http"
	"strings"
)

// ETagKey is the reserved value key sent as If-None-Match instead of being
// expanded into the URL.
const ETagKey = "etag"

// Operation invokes one named discovery link.
type Operation struct {
	client *Client
	name   string
}

// Operation returns a handle for the link called name. Nothing is fetched
// until a verb is invoked.
func (c *Client) Operation(name string) *Operation {
	return &Operation{client: c, name: name}
}

// Name returns the link name.
func (o *Operation) Name() string { return o.name }

// Get invokes the link with GET.
func (o *Operation) Get(ctx context.Context, values Values) (*Response, error) {
	return o.Invoke(ctx, http.MethodGet, values, "", nil)
}

// Head invokes the link with HEAD.
func (o *Operation) Head(ctx context.Context, values Values) (*Response, error) {
	return o.Invoke(ctx, http.MethodHead, values, "", nil)
}

// Delete invokes the link with DELETE.
func (o *Operation) Delete(ctx context.Context, values Values) (*Response, error) {
	return o.Invoke(ctx, http.MethodDelete, values, "", nil)
}

// Post invokes the link with POST and the given body.
func (o *Operation) Post(ctx context.Context, values Values, contentType string, body []byte) (*Response, error) {
	return o.Invoke(ctx, http.MethodPost, values, contentType, body)
}

// Put invokes the link with PUT and the given body.
func (o *Operation) Put(ctx context.Context, values Values, contentType string, body []byte) (*Response, error) {
	return o.Invoke(ctx, http.MethodPut, values, contentType, body)
}

// Invoke resolves the link, checks method against its allowed set before
// any network call, expands values and sends the request. When contentType
// is empty the link's first declared media type is used for bodies.
func (o *Operation) Invoke(ctx context.Context, method string, values Values, contentType string, body []byte) (*Response, error) {
	tmpl, err := o.client.Resolve(ctx, o.name)
	if err != nil {
		return nil, err
	}
	if err := tmpl.checkMethod(method); err != nil {
		return nil, err
	}

	header := http.Header{}
	vars := make(Values, len(values))
	for k, v := range values {
		if k == ETagKey {
			header.Set("If-None-Match", v)
			continue
		}
		vars[k] = v
	}

	expansion, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}

	if body != nil {
		if contentType == "" && len(tmpl.MediaTypes) > 0 {
			contentType = tmpl.MediaTypes[0]
		}
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
	}

	return o.client.Do(ctx, &Request{
		Method: strings.ToUpper(method),
		URL:    expansion.URL,
		Header: header,
		Query:  expansion.Query,
		Body:   body,
		Link:   tmpl.Name,
	})
}
