package familysearch

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Kind tags the variant held by a Body.
type Kind int

const (
	// KindEmpty is used for 204/304 responses and empty payloads.
	KindEmpty Kind = iota
	// KindMapping holds a JSON object as map[string]any.
	KindMapping
	// KindSequence holds a JSON array as []any.
	KindSequence
	// KindScalar holds a JSON string, number, bool or null.
	KindScalar
	// KindFeed holds an atom-shaped collection.
	KindFeed
	// KindRaw holds bytes that were not decoded.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindScalar:
		return "scalar"
	case KindFeed:
		return "feed"
	case KindRaw:
		return "raw"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Body is a decoded response body. The zero value is an empty body.
type Body struct {
	kind  Kind
	value any
	feed  *Feed
	raw   []byte
}

func emptyBody() Body { return Body{kind: KindEmpty} }

func rawBody(data []byte) Body {
	if len(data) == 0 {
		return emptyBody()
	}
	return Body{kind: KindRaw, raw: data}
}

func feedBody(f *Feed) Body { return Body{kind: KindFeed, feed: f} }

// valueBody tags a value produced by encoding/json.
func valueBody(v any) Body {
	switch v.(type) {
	case map[string]any:
		return Body{kind: KindMapping, value: v}
	case []any:
		return Body{kind: KindSequence, value: v}
	default:
		return Body{kind: KindScalar, value: v}
	}
}

// Kind returns the variant tag.
func (b Body) Kind() Kind { return b.kind }

// IsEmpty reports whether the body carries nothing.
func (b Body) IsEmpty() bool { return b.kind == KindEmpty }

// Mapping returns the JSON object for KindMapping bodies.
func (b Body) Mapping() (map[string]any, bool) {
	m, ok := b.value.(map[string]any)
	return m, ok && b.kind == KindMapping
}

// Sequence returns the JSON array for KindSequence bodies.
func (b Body) Sequence() ([]any, bool) {
	s, ok := b.value.([]any)
	return s, ok && b.kind == KindSequence
}

// Scalar returns the JSON scalar for KindScalar bodies.
func (b Body) Scalar() (any, bool) {
	return b.value, b.kind == KindScalar
}

// Feed returns the collection for KindFeed bodies.
func (b Body) Feed() (*Feed, bool) {
	return b.feed, b.kind == KindFeed && b.feed != nil
}

// Bytes returns the undecoded payload of KindRaw bodies.
func (b Body) Bytes() []byte {
	if b.kind != KindRaw {
		return nil
	}
	return b.raw
}

// Lookup walks nested mappings (and sequences, by decimal index) along path.
func (b Body) Lookup(path ...string) (any, bool) {
	if b.kind != KindMapping && b.kind != KindSequence {
		return nil, false
	}
	current := b.value
	for _, key := range path {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// LookupString is Lookup narrowed to a string leaf.
func (b Body) LookupString(path ...string) (string, bool) {
	v, ok := b.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Decode converts a mapping or sequence body into the value pointed to by
// into, honoring json struct tags.
func (b Body) Decode(into any) error {
	if b.kind != KindMapping && b.kind != KindSequence {
		return fmt.Errorf("familysearch: cannot decode %s body", b.kind)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           into,
	})
	if err != nil {
		return fmt.Errorf("familysearch: decoder: %w", err)
	}
	if err := decoder.Decode(b.value); err != nil {
		return fmt.Errorf("familysearch: decode %s body: %w", b.kind, err)
	}
	return nil
}
