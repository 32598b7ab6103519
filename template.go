package familysearch

import (
	"net/url"
	"sort"
	"strings"
)

// Expansion is the result of expanding a URI template.
type Expansion struct {
	// URL has every template group removed or substituted.
	URL string
	// Query holds the supplied values of query-style variables. The
	// transport appends them; they are never inlined into URL.
	Query url.Values
}

// templateGroup is one {...} expression of a template.
type templateGroup struct {
	start int
	end   int
	query bool
	names []string
}

// parseTemplate scans raw for brace groups. A group whose body starts with
// '?' or '&' is query-style; every other group is path-style.
func parseTemplate(raw string) []templateGroup {
	var groups []templateGroup
	for i := 0; i < len(raw); {
		open := strings.IndexByte(raw[i:], '{')
		if open < 0 {
			break
		}
		open += i
		closing := strings.IndexByte(raw[open:], '}')
		if closing < 0 {
			break
		}
		closing += open

		body := raw[open+1 : closing]
		g := templateGroup{start: open, end: closing + 1}
		if body != "" && (body[0] == '?' || body[0] == '&') {
			g.query = true
			body = body[1:]
		}
		for _, name := range strings.Split(body, ",") {
			if name = strings.TrimSpace(name); name != "" {
				g.names = append(g.names, name)
			}
		}
		groups = append(groups, g)
		i = closing + 1
	}
	return groups
}

// declaredNames unions the names of every group, in first-seen order.
func declaredNames(groups []templateGroup) []string {
	seen := make(map[string]bool)
	var names []string
	for _, g := range groups {
		for _, name := range g.names {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// VariablesOf returns every variable name declared by template, path-style
// and query-style alike.
func VariablesOf(template string) []string {
	return declaredNames(parseTemplate(template))
}

// Expand validates values against the variables template declares and
// expands it. Path-style groups are replaced by their escaped values;
// query-style groups are dropped from the URL and their supplied values
// returned in Expansion.Query.
func Expand(template string, values Values) (Expansion, error) {
	return expandGroups(template, parseTemplate(template), values)
}

func expandGroups(template string, groups []templateGroup, values Values) (Expansion, error) {
	declared := make(map[string]bool)
	inPath := make(map[string]bool)
	for _, g := range groups {
		for _, name := range g.names {
			declared[name] = true
			if !g.query {
				inPath[name] = true
			}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !declared[k] {
			return Expansion{}, &UnknownVariableError{Name: k, Template: template}
		}
	}

	var b strings.Builder
	query := url.Values{}
	last := 0
	for _, g := range groups {
		b.WriteString(template[last:g.start])
		last = g.end

		if g.query {
			for _, name := range g.names {
				// a name that also sits in a path position is consumed there
				if inPath[name] {
					continue
				}
				if v, ok := values[name]; ok {
					query.Set(name, v)
				}
			}
			continue
		}

		parts := make([]string, 0, len(g.names))
		for _, name := range g.names {
			if v, ok := values[name]; ok {
				parts = append(parts, url.PathEscape(v))
			}
		}
		b.WriteString(strings.Join(parts, ","))
	}
	b.WriteString(template[last:])

	if len(query) == 0 {
		query = nil
	}
	return Expansion{URL: b.String(), Query: query}, nil
}
