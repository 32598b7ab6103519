package familysearch

import "strings"

// Link is the wire shape of a discovery link and of the links embedded in
// feeds and entries. List-valued fields are comma-joined.
type Link struct {
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
	Type     string `json:"type,omitempty"`
	Accept   string `json:"accept,omitempty"`
	Allow    string `json:"allow,omitempty"`
	Title    string `json:"title,omitempty"`
}

// LinkTemplate is a resolved discovery link. It must not be modified after
// construction.
type LinkTemplate struct {
	// Name is the discovery key the template was found under.
	Name string
	// Raw is the URI template, or the plain href for non-templated links.
	Raw            string
	MediaTypes     []string
	AcceptTypes    []string
	AllowedMethods []string
	Title          string

	groups []templateGroup
}

// newLinkTemplate builds a LinkTemplate from its wire form. A link without
// an allow list is a plain href and may be fetched with GET.
func newLinkTemplate(name string, l *Link) (*LinkTemplate, error) {
	if l == nil {
		return nil, &TemplateNotFoundError{Name: name}
	}

	raw := l.Template
	if raw == "" {
		raw = l.Href
	}

	allowed := splitList(l.Allow, true)
	if len(allowed) == 0 {
		allowed = []string{"get"}
	}

	return &LinkTemplate{
		Name:           name,
		Raw:            raw,
		MediaTypes:     splitList(l.Type, false),
		AcceptTypes:    splitList(l.Accept, false),
		AllowedMethods: allowed,
		Title:          l.Title,
		groups:         parseTemplate(raw),
	}, nil
}

// Allows reports whether method (any case) is in the allowed set.
func (t *LinkTemplate) Allows(method string) bool {
	method = strings.ToLower(method)
	for _, m := range t.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Variables returns the declared variable names.
func (t *LinkTemplate) Variables() []string {
	return declaredNames(t.groups)
}

// Expand validates values and expands the template.
func (t *LinkTemplate) Expand(values Values) (Expansion, error) {
	return expandGroups(t.Raw, t.groups, values)
}

func (t *LinkTemplate) checkMethod(method string) error {
	if t.Allows(method) {
		return nil
	}
	return &MethodNotAllowedError{
		Link:    t.Name,
		Method:  strings.ToLower(method),
		Allowed: append([]string(nil), t.AllowedMethods...),
	}
}

// splitList splits a comma-joined list, trimming blanks and duplicates.
func splitList(s string, lower bool) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if lower {
			part = strings.ToLower(part)
		}
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
