package familysearch

import "encoding/json"

// Feed is an atom-shaped collection such as a search result page.
type Feed struct {
	ID      string          `json:"id,omitempty"`
	Title   string          `json:"title,omitempty"`
	Updated int64           `json:"updated,omitempty"`
	Results int             `json:"results,omitempty"`
	Index   int             `json:"index,omitempty"`
	Links   map[string]Link `json:"links,omitempty"`
	Entries []Entry         `json:"entries,omitempty"`
}

// Entry is one item of a Feed.
type Entry struct {
	ID         string          `json:"id,omitempty"`
	Title      string          `json:"title,omitempty"`
	Updated    int64           `json:"updated,omitempty"`
	Score      float64         `json:"score,omitempty"`
	Confidence int             `json:"confidence,omitempty"`
	Links      map[string]Link `json:"links,omitempty"`
	Content    map[string]any  `json:"content,omitempty"`
}

// Link returns the href of the named link, or "" when absent.
func (f *Feed) Link(rel string) string {
	if f == nil {
		return ""
	}
	return f.Links[rel].Href
}

// Next returns the href of the next page, if any.
func (f *Feed) Next() string { return f.Link("next") }

// Link returns the href of the named entry link, or "" when absent.
func (e Entry) Link(rel string) string {
	return e.Links[rel].Href
}

func decodeFeed(data []byte) (*Feed, error) {
	var f Feed
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
