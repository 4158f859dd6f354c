package joke

// Joke is a single joke as returned by the upstream service
type Joke struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	IconURL    string   `json:"icon_url"`
	Value      string   `json:"value"`
	Categories []string `json:"categories,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
	UpdatedAt  string   `json:"updated_at,omitempty"`
}

// SearchResult is the body of a full-text search.
// Total may exceed len(Result) if upstream paginates.
type SearchResult struct {
	Total  int    `json:"total"`
	Result []Joke `json:"result"`
}
