package familysearch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ambiyansyah-risyal/familysearch/internal/singleflight"
)

// DefaultDiscoveryPath is where the discovery document is served.
const DefaultDiscoveryPath = "/.well-known/app-meta"

// Well-known discovery link names.
const (
	LinkLogin                   = "fs-identity-v2-login"
	LinkCurrentUser             = "current-user"
	LinkPerson                  = "person"
	LinkPersonWithRelationships = "person-with-relationships"
	LinkAncestry                = "ancestry"
	LinkDescendancy             = "descendancy"
	LinkPersonSearch            = "person-search"
)

// Suffixes tried, in order, after the bare name.
var resolveSuffixes = []string{"", "-template", "-query"}

const discoveryKey = "discovery"

// DiscoveryDocument maps link names to templates. It is immutable once
// parsed.
type DiscoveryDocument struct {
	links map[string]*LinkTemplate
	body  Body
}

type discoveryWire struct {
	Links map[string]*Link `json:"links"`
}

// ParseDiscoveryDocument builds a document from a decoded discovery body.
func ParseDiscoveryDocument(body Body) (*DiscoveryDocument, error) {
	if body.Kind() != KindMapping {
		return nil, fmt.Errorf("familysearch: discovery document is %s, want mapping", body.Kind())
	}

	var wire discoveryWire
	if err := body.Decode(&wire); err != nil {
		return nil, fmt.Errorf("familysearch: parse discovery document: %w", err)
	}

	doc := &DiscoveryDocument{
		links: make(map[string]*LinkTemplate, len(wire.Links)),
		body:  body,
	}
	for name, l := range wire.Links {
		if l == nil {
			continue
		}
		tmpl, err := newLinkTemplate(name, l)
		if err != nil {
			return nil, err
		}
		doc.links[name] = tmpl
	}
	return doc, nil
}

// Lookup tries name, name+"-template" and name+"-query" in that order.
func (d *DiscoveryDocument) Lookup(name string) (*LinkTemplate, error) {
	if d != nil {
		for _, suffix := range resolveSuffixes {
			if tmpl, ok := d.links[name+suffix]; ok {
				return tmpl, nil
			}
		}
	}
	return nil, &TemplateNotFoundError{Name: name}
}

// Names returns every link name, sorted.
func (d *DiscoveryDocument) Names() []string {
	names := make([]string, 0, len(d.links))
	for name := range d.links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of links.
func (d *DiscoveryDocument) Len() int { return len(d.links) }

// Body returns the decoded document as served.
func (d *DiscoveryDocument) Body() Body { return d.body }

// Resolver fetches the discovery document once and resolves names against
// it. Concurrent first callers share a single fetch.
type Resolver struct {
	fetch   func(ctx context.Context) (*Response, error)
	onFetch func(err error)

	mu    sync.RWMutex
	doc   *DiscoveryDocument
	group *singleflight.Group[*DiscoveryDocument]
}

// NewResolver returns a Resolver that loads the document with fetch.
func NewResolver(fetch func(ctx context.Context) (*Response, error)) *Resolver {
	return &Resolver{
		fetch: fetch,
		group: singleflight.New[*DiscoveryDocument](),
	}
}

func (r *Resolver) cached() *DiscoveryDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc
}

// Fetched reports whether the document has been loaded.
func (r *Resolver) Fetched() bool { return r.cached() != nil }

// Discover returns the memoized document, fetching it on first use. A
// failed fetch is not remembered; the next call tries again.
func (r *Resolver) Discover(ctx context.Context) (*DiscoveryDocument, error) {
	if doc := r.cached(); doc != nil {
		return doc, nil
	}

	doc, err, _ := r.group.Do(discoveryKey, func() (*DiscoveryDocument, error) {
		// a caller that lost the race may arrive after the owner stored it
		if doc := r.cached(); doc != nil {
			return doc, nil
		}

		resp, err := r.fetch(ctx)
		if err == nil {
			var doc *DiscoveryDocument
			doc, err = ParseDiscoveryDocument(resp.Body)
			if err == nil {
				r.mu.Lock()
				r.doc = doc
				r.mu.Unlock()
			}
		}
		if r.onFetch != nil {
			r.onFetch(err)
		}
		if err != nil {
			return nil, err
		}
		return r.cached(), nil
	})
	return doc, err
}

// Resolve discovers if needed and looks name up.
func (r *Resolver) Resolve(ctx context.Context, name string) (*LinkTemplate, error) {
	doc, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Lookup(name)
}
