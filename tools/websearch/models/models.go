package models

// Result is the normalized representation of a search hit, independent of
// which provider produced it.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}
