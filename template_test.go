package familysearch

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func TestVariablesOf(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{"https://x/platform/tree/persons/{pid}{?access_token}", []string{"pid", "access_token"}},
		{"https://x/ancestry{?person,generations,spouse,personDetails,access_token}",
			[]string{"person", "generations", "spouse", "personDetails", "access_token"}},
		{"https://x/{a,b}/c{&d}", []string{"a", "b", "d"}},
		{"https://x/{pid}/y/{pid}{?pid}", []string{"pid"}},
		{"https://x/plain", nil},
		{"https://x/{unclosed", nil},
	}

	for _, tt := range tests {
		got := VariablesOf(tt.template)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("VariablesOf(%q) = %v, want %v", tt.template, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		values    Values
		wantURL   string
		wantQuery url.Values
	}{
		{
			name:     "path and residual query",
			template: "https://sandbox.familysearch.org/platform/tree/persons/{pid}{?access_token}",
			values:   Values{"pid": "KWQX-52J"},
			wantURL:  "https://sandbox.familysearch.org/platform/tree/persons/KWQX-52J",
		},
		{
			name:      "query values returned separately",
			template:  "https://x/platform/tree/ancestry{?person,generations,access_token}",
			values:    Values{"person": "KWQX-52J", "generations": "4"},
			wantURL:   "https://x/platform/tree/ancestry",
			wantQuery: url.Values{"person": {"KWQX-52J"}, "generations": {"4"}},
		},
		{
			name:     "path value is escaped",
			template: "https://x/search/{q}",
			values:   Values{"q": "a b/c"},
			wantURL:  "https://x/search/a%20b%2Fc",
		},
		{
			name:     "undefined path variable expands empty",
			template: "https://x/persons/{pid}/notes",
			values:   Values{},
			wantURL:  "https://x/persons//notes",
		},
		{
			name:     "multi-name path group",
			template: "https://x/{a,b}",
			values:   Values{"a": "1", "b": "2"},
			wantURL:  "https://x/1,2",
		},
		{
			name:     "path wins over query for the same name",
			template: "https://x/persons/{pid}{?pid,flag}",
			values:   Values{"pid": "P1"},
			wantURL:  "https://x/persons/P1",
		},
		{
			name:      "continuation group",
			template:  "https://x/q?fixed=1{&start}",
			values:    Values{"start": "20"},
			wantURL:   "https://x/q?fixed=1",
			wantQuery: url.Values{"start": {"20"}},
		},
		{
			name:     "nil values",
			template: "https://x/plain",
			values:   nil,
			wantURL:  "https://x/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.template, tt.values)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if got.URL != tt.wantURL {
				t.Errorf("Expand().URL = %q, want %q", got.URL, tt.wantURL)
			}
			if !reflect.DeepEqual(got.Query, tt.wantQuery) {
				t.Errorf("Expand().Query = %v, want %v", got.Query, tt.wantQuery)
			}
		})
	}
}

func TestExpandUnknownVariable(t *testing.T) {
	template := "https://x/persons/{pid}{?access_token}"

	_, err := Expand(template, Values{"zeta": "1", "alpha": "2", "pid": "P"})
	if !errors.Is(err, ErrUnknownTemplateVariable) {
		t.Fatalf("Expand() error = %v, want ErrUnknownTemplateVariable", err)
	}

	var varErr *UnknownVariableError
	if !errors.As(err, &varErr) {
		t.Fatalf("Expand() error type = %T, want *UnknownVariableError", err)
	}
	if varErr.Name != "alpha" {
		t.Errorf("UnknownVariableError.Name = %q, want the first key in sorted order", varErr.Name)
	}
	if varErr.Template != template {
		t.Errorf("UnknownVariableError.Template = %q, want %q", varErr.Template, template)
	}
}

func TestExpandIsPure(t *testing.T) {
	values := Values{"pid": "P1", "access_token": "T"}
	first, _ := Expand("https://x/{pid}{?access_token}", values)
	second, _ := Expand("https://x/{pid}{?access_token}", values)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expand() not deterministic: %v vs %v", first, second)
	}
	if len(values) != 2 {
		t.Errorf("Expand() modified its input: %v", values)
	}
}
