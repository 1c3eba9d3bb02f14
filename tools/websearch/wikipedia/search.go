package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/studypilot/studypilot/tools/websearch/models"
)

const summaryURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// snippetWords caps the extract at roughly three sentences.
const snippetWords = 60

// Search queries the public Wikipedia REST summary endpoint for a topic.
// At most one hit is returned.
type Search struct {
	Client    *http.Client
	UserAgent string
}

type response struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (s Search) Search(ctx context.Context, query string, maxResults int) ([]models.Result, error) {
	endpoint := summaryURL + url.PathEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia status %d", resp.StatusCode)
	}

	var raw response
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	title := raw.Title
	if title == "" {
		title = query
	}
	page := raw.ContentURLs.Desktop.Page
	if page == "" {
		page = endpoint
	}
	snippet := raw.Extract
	if words := strings.Fields(snippet); len(words) > snippetWords {
		snippet = strings.Join(words[:snippetWords], " ")
	}

	out := []models.Result{{Title: title, URL: page, Snippet: snippet, Source: "wikipedia"}}
	if maxResults >= 1 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}
