package familysearch

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strings"
)

// Media types understood by the classifier.
const (
	MediaTypeFamilySearch = "application/x-fs-v1+json"
	MediaTypeGedcomx      = "application/x-gedcomx-v1+json"
	MediaTypeGedcomxAtom  = "application/x-gedcomx-atom+json"
	MediaTypeAtomJSON     = "application/atom+json"
	MediaTypeJSON         = "application/json"
)

// DefaultAcceptTypes is advertised in the Accept header of every request
// that does not set one.
var DefaultAcceptTypes = []string{MediaTypeFamilySearch, MediaTypeGedcomxAtom, MediaTypeJSON}

// Classifier turns raw exchanges into decoded responses and maps failure
// statuses to errors. It holds no state.
type Classifier struct {
	// FeedTypes are decoded into *Feed.
	FeedTypes []string
	// ResourceTypes are decoded into generic JSON values. Any type with a
	// "+json" suffix is treated as one too.
	ResourceTypes []string
}

// NewClassifier returns a Classifier for the FamilySearch media types.
func NewClassifier() *Classifier {
	return &Classifier{
		FeedTypes:     []string{MediaTypeGedcomxAtom, MediaTypeAtomJSON},
		ResourceTypes: []string{MediaTypeFamilySearch, MediaTypeGedcomx, MediaTypeJSON},
	}
}

// Classify decodes raw and then checks its status.
func (c *Classifier) Classify(raw *RawResponse) (*Response, error) {
	resp := c.Decode(raw.StatusCode, raw.Header, raw.Body)
	if err := c.Check(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Decode builds a Response whose Body is decoded by media type. Decoding
// never fails: unknown types and malformed payloads come back as KindRaw.
func (c *Classifier) Decode(status int, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	resp := &Response{StatusCode: status, Header: header, Raw: body}

	if status == http.StatusNoContent || status == http.StatusNotModified {
		resp.Body = emptyBody()
		return resp
	}
	if len(bytes.TrimSpace(body)) == 0 {
		resp.Body = emptyBody()
		return resp
	}

	mediaType := parseMediaType(header.Get("Content-Type"))
	switch {
	case mediaType == "":
		resp.Body = rawBody(body)
	case containsFold(c.FeedTypes, mediaType):
		feed, err := decodeFeed(body)
		if err != nil {
			resp.Body = rawBody(body)
			break
		}
		resp.Body = feedBody(feed)
	case containsFold(c.ResourceTypes, mediaType) || strings.HasSuffix(mediaType, "+json"):
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			resp.Body = rawBody(body)
			break
		}
		resp.Body = valueBody(v)
	default:
		resp.Body = rawBody(body)
	}
	return resp
}

// Check returns a *ResponseError for 4xx and 5xx statuses.
func (c *Classifier) Check(resp *Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &ResponseError{Type: ErrorTypeBadCredentials, Response: resp}
	case resp.StatusCode >= 400 && resp.StatusCode < 600:
		return &ResponseError{Type: ErrorTypeClient, Response: resp}
	}
	return nil
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// fall back to the part before any parameters
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.ToLower(mediaType)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
